// Package indexfile exposes one-shot operations on an index file. Every
// call opens the file, does its work and closes it again, so nothing is
// cached between calls and each change is on disk when the call returns.
package indexfile

import (
	"io"

	"github.com/btree-query-bench/blockidx/dbms/csvio"
	"github.com/btree-query-bench/blockidx/dbms/index/btree"
	"github.com/btree-query-bench/blockidx/dbms/pager"
	"github.com/cockroachdb/errors"
)

// ErrAlreadyExists is returned by Create for a path that is taken.
var ErrAlreadyExists = pager.ErrAlreadyExists

// Pair is one key/value entry.
type Pair = csvio.Pair

// Options are passed to every tree opened by this package.
type Options = btree.Options

// LoadReport summarizes a BulkLoad.
type LoadReport struct {
	Inserted int
	Replaced int
	Skipped  []*csvio.LineError
}

// Create initializes an empty index file.
func Create(path string, opts *Options) error {
	t, err := btree.Create(path, opts)
	if err != nil {
		return err
	}
	return t.Close()
}

// with opens the index at path, runs fn and closes the file, keeping the
// first error.
func with(path string, opts *Options, fn func(t *btree.BTree) error) (err error) {
	t, err := btree.Open(path, opts)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.CombineErrors(err, t.Close())
	}()
	return fn(t)
}

// Insert stores value under key.
func Insert(path string, key, value uint64, opts *Options) (res btree.PutResult, err error) {
	err = with(path, opts, func(t *btree.BTree) error {
		res, err = t.Put(key, value)
		return err
	})
	return res, err
}

// Search looks up key. A missing key is reported through found, not err.
func Search(path string, key uint64) (value uint64, found bool, err error) {
	err = with(path, nil, func(t *btree.BTree) error {
		value, found, err = t.Search(key)
		return err
	})
	return value, found, err
}

// Export returns every entry in ascending key order.
func Export(path string) ([]Pair, error) {
	pairs := []Pair{}
	err := with(path, nil, func(t *btree.BTree) error {
		return t.Walk(func(k, v uint64) error {
			pairs = append(pairs, Pair{Key: k, Value: v})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

// BulkLoad inserts each well-formed line of r as its own Insert call.
// Malformed lines are collected in the report and skipped; an I/O error on
// the index stops the load.
func BulkLoad(path string, r io.Reader, opts *Options) (LoadReport, error) {
	var rep LoadReport
	err := csvio.Scan(r, func(p csvio.Pair, lerr *csvio.LineError) error {
		if lerr != nil {
			rep.Skipped = append(rep.Skipped, lerr)
			return nil
		}
		res, err := Insert(path, p.Key, p.Value, opts)
		if err != nil {
			return errors.Wrapf(err, "indexfile: load %d", p.Key)
		}
		if res.Replaced {
			rep.Replaced++
		} else {
			rep.Inserted++
		}
		return nil
	})
	return rep, err
}

// LoadFile is BulkLoad reading from a CSV file.
func LoadFile(path, csvPath string, opts *Options) (LoadReport, error) {
	f, err := csvio.Open(csvPath)
	if err != nil {
		return LoadReport{}, err
	}
	defer f.Close()
	return BulkLoad(path, f, opts)
}

// ExtractFile writes every entry to a new CSV file at csvPath. It refuses
// an existing destination.
func ExtractFile(path, csvPath string) (n int, err error) {
	pairs, err := Export(path)
	if err != nil {
		return 0, err
	}
	w, err := csvio.Create(csvPath)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = errors.CombineErrors(err, w.Close())
	}()
	return len(pairs), csvio.WritePairs(w, pairs)
}

// Check runs the tree's invariant checker.
func Check(path string) (st btree.Stats, err error) {
	err = with(path, nil, func(t *btree.BTree) error {
		st, err = t.Check()
		return err
	})
	return st, err
}

// WriteDOT renders the tree as Graphviz to w.
func WriteDOT(path string, w io.Writer) error {
	return with(path, nil, func(t *btree.BTree) error {
		return t.WriteDOT(w)
	})
}
