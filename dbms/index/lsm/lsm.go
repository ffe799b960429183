// Package lsm wraps Pebble (CockroachDB's LSM storage engine) behind the
// common Index interface so the block-file B-tree can be benchmarked
// against it.
package lsm

import (
	"encoding/binary"

	"github.com/btree-query-bench/blockidx/dbms/index"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

var _ index.Index = (*LSM)(nil)

type LSM struct {
	db *pebble.DB
}

// Open opens (or creates) a Pebble database at the given directory path.
func Open(dir string) (*LSM, error) {
	opts := &pebble.Options{
		MemTableSize: 16 << 20,
		// Keep a few memtables so one can be flushed while another is active.
		MemTableStopWritesThreshold: 4,
		// L0 compaction trigger.
		L0CompactionThreshold: 4,
		L0StopWritesThreshold: 12,
	}

	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errors.Wrap(err, "lsm: open")
	}
	return &LSM{db: db}, nil
}

// Close cleanly shuts down Pebble, flushing any in-memory state.
func (l *LSM) Close() error {
	return l.db.Close()
}

// Insert inserts or updates the value for key.
func (l *LSM) Insert(key, value uint64) error {
	return errors.Wrap(l.db.Set(encode(key), encode(value), pebble.NoSync), "lsm: insert")
}

// Get retrieves the value for key, or index.ErrNotFound.
func (l *LSM) Get(key uint64) (uint64, error) {
	val, closer, err := l.db.Get(encode(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, errors.Wrapf(index.ErrNotFound, "lsm: get %d", key)
	}
	if err != nil {
		return 0, errors.Wrap(err, "lsm: get")
	}
	defer closer.Close()
	// val is only valid until closer.Close(); decode copies it out.
	return decode(val)
}

// Range returns an iterator over all keys in [start, end] inclusive.
func (l *LSM) Range(start, end uint64) (index.Iterator, error) {
	iterOpts := &pebble.IterOptions{LowerBound: encode(start)}
	// UpperBound is exclusive; leave it open when end+1 would wrap.
	if end < ^uint64(0) {
		iterOpts.UpperBound = encode(end + 1)
	}
	if start > end {
		iterOpts.UpperBound = encode(start)
	}
	iter, err := l.db.NewIter(iterOpts)
	if err != nil {
		return nil, errors.Wrap(err, "lsm: range")
	}
	iter.First()
	return &rangeIterator{iter: iter, first: true}, nil
}

// ─── Encoding ─────────────────────────────────────────────────────────────────

// encode writes v big-endian. Big-endian preserves sort order, which Pebble
// relies on for keys.
func encode(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func decode(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, errors.Newf("lsm: unexpected length %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// ─── Range Iterator ───────────────────────────────────────────────────────────

type rangeIterator struct {
	iter  *pebble.Iterator
	first bool
	key   uint64
	val   uint64
	err   error
}

func (it *rangeIterator) Next() bool {
	if it.err != nil {
		return false
	}
	var valid bool
	if it.first {
		// iter.First() was already called in Range(); just check validity.
		it.first = false
		valid = it.iter.Valid()
	} else {
		valid = it.iter.Next()
	}
	if !valid {
		return false
	}
	if it.key, it.err = decode(it.iter.Key()); it.err != nil {
		return false
	}
	if it.val, it.err = decode(it.iter.Value()); it.err != nil {
		return false
	}
	return true
}

func (it *rangeIterator) Key() uint64   { return it.key }
func (it *rangeIterator) Value() uint64 { return it.val }
func (it *rangeIterator) Error() error  { return errors.CombineErrors(it.err, it.iter.Error()) }
func (it *rangeIterator) Close() error  { return it.iter.Close() }
