package main

import (
	"math/rand"

	"github.com/btree-query-bench/blockidx/dbms/index"
	"github.com/cockroachdb/errors"
)

type WorkloadType string

const (
	OLTP      WorkloadType = "OLTP (90/10)"
	OLAP      WorkloadType = "OLAP (10/90)"
	Reporting WorkloadType = "Reporting (Range)"
)

// rangeWidth is the key span of each Reporting scan.
const rangeWidth = 100

// ExecuteWorkload runs a mixed distribution of ops over keys in [0, keys).
// Misses are part of the workload; any other error stops it.
func ExecuteWorkload(idx index.Index, rng *rand.Rand, wType WorkloadType, ops, keys int) error {
	for i := 0; i < ops; i++ {
		choice := rng.Intn(100)
		key := uint64(rng.Intn(keys))

		var err error
		switch wType {
		case OLTP:
			if choice < 90 {
				_, err = idx.Get(key)
			} else {
				err = idx.Insert(key, key)
			}
		case OLAP:
			if choice < 10 {
				_, err = idx.Get(key)
			} else {
				err = idx.Insert(key, key)
			}
		case Reporting:
			err = scan(idx, key, key+rangeWidth)
		}
		if err != nil && !errors.Is(err, index.ErrNotFound) {
			return errors.Wrapf(err, "%s", wType)
		}
	}
	return nil
}

func scan(idx index.Index, start, end uint64) error {
	it, err := idx.Range(start, end)
	if err != nil {
		return err
	}
	for it.Next() {
	}
	return errors.CombineErrors(it.Error(), it.Close())
}
