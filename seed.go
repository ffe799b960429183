package main

import (
	"flag"

	"github.com/btree-query-bench/blockidx/dbms/csvio"
	"github.com/cockroachdb/errors"
	"github.com/go-faker/faker/v4"
)

// seedRecord is filled with random data by faker.
type seedRecord struct {
	Key   uint64
	Value uint64
}

// seedPairs generates n random pairs with keys in [1, maxKey].
func seedPairs(n int, maxKey uint64) ([]csvio.Pair, error) {
	pairs := make([]csvio.Pair, 0, n)
	for i := 0; i < n; i++ {
		var rec seedRecord
		if err := faker.FakeData(&rec); err != nil {
			return nil, errors.Wrap(err, "seed")
		}
		pairs = append(pairs, csvio.Pair{Key: rec.Key%maxKey + 1, Value: rec.Value})
	}
	return pairs, nil
}

func (c *cli) seed(args []string) (err error) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	n := fs.Int("n", 1000, "Number of records to generate.")
	maxKey := fs.Uint64("max-key", 1_000_000, "Largest key to generate.")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 || *n < 0 || *maxKey == 0 {
		return errUsage
	}
	out := fs.Arg(0)

	pairs, err := seedPairs(*n, *maxKey)
	if err != nil {
		return err
	}
	w, err := csvio.Create(out)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.CombineErrors(err, w.Close())
	}()
	if err := csvio.WritePairs(w, pairs); err != nil {
		return err
	}
	c.ok.Fprintf(c.stdout, "wrote %d random entries to %q\n", len(pairs), out)
	return nil
}
