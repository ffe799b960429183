package index

import "github.com/cockroachdb/errors"

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("key not found")

// Index is the common interface for the benchmarked implementations.
type Index interface {
	Insert(key, value uint64) error
	Get(key uint64) (uint64, error)
	Range(start, end uint64) (Iterator, error)
	Close() error
}

// Iterator allows scanning over a range of key-value pairs in key order.
type Iterator interface {
	Next() bool
	Key() uint64
	Value() uint64
	Error() error
	Close() error
}
