// Package btree implements a disk-based B-tree over the block file of the
// pager package.
//
// Keys and values are uint64. Each node occupies one 512-byte block and
// holds up to 19 entries and 20 child pointers (see package btpage for the
// layout). Entries live in internal nodes as well as leaves: a split
// promotes the median entry into the parent instead of copying it.
//
// A BTree holds nothing but the open file. Every operation starts by
// re-reading the header from block 0 and reads each node it touches from
// disk; mutated nodes and the header are written back before the operation
// returns.
package btree

import (
	"os"

	"github.com/btree-query-bench/blockidx/dbms/index"
	"github.com/btree-query-bench/blockidx/dbms/index/btpage"
	"github.com/btree-query-bench/blockidx/dbms/pager"
	"github.com/cockroachdb/errors"
)

// ─── Constants ────────────────────────────────────────────────────────────────

const (
	maxKeys     = btpage.MaxKeys
	maxChildren = btpage.MaxChildren

	// mid is the slot promoted out of a full node.
	mid = maxKeys / 2

	headerBlock = 0
)

// ErrInvalidBlock is returned when block 0 is addressed as a node.
var ErrInvalidBlock = errors.New("block 0 is reserved for the header")

var _ index.Index = (*BTree)(nil)

// ─── BTree ────────────────────────────────────────────────────────────────────

// Options tune a BTree. The zero value is valid.
type Options struct {
	// Logf receives structural events such as node and root splits.
	Logf func(format string, args ...any)
}

// BTree is a B-tree stored in a single index file.
type BTree struct {
	pg   *pager.Pager
	logf func(format string, args ...any)
}

// Create initializes a new, empty index at path. It fails with
// pager.ErrAlreadyExists if the path is taken.
func Create(path string, opts *Options) (*BTree, error) {
	pg, err := pager.Create(path)
	if err != nil {
		return nil, err
	}
	t := newTree(pg, opts)
	if err := t.writeHeader(btpage.NewHeader()); err != nil {
		return nil, errors.CombineErrors(err, pg.Close())
	}
	return t, nil
}

// Open opens an existing index at path and validates its header. A missing
// file is an error; Open never creates one.
func Open(path string, opts *Options) (*BTree, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "btree: open %s", path)
	}
	pg, err := pager.Open(path)
	if err != nil {
		return nil, err
	}
	t := newTree(pg, opts)
	if _, err := t.readHeader(); err != nil {
		return nil, errors.CombineErrors(errors.Wrapf(err, "btree: open %s", path), pg.Close())
	}
	return t, nil
}

func newTree(pg *pager.Pager, opts *Options) *BTree {
	t := &BTree{pg: pg, logf: func(string, ...any) {}}
	if opts != nil && opts.Logf != nil {
		t.logf = opts.Logf
	}
	return t
}

// Close syncs and closes the index file.
func (t *BTree) Close() error {
	if err := t.pg.Sync(); err != nil {
		return errors.CombineErrors(err, t.pg.Close())
	}
	return t.pg.Close()
}

// Header returns the current header as stored on disk.
func (t *BTree) Header() (btpage.Header, error) {
	return t.readHeader()
}

// ─── Block I/O ────────────────────────────────────────────────────────────────

func (t *BTree) readHeader() (btpage.Header, error) {
	b, err := t.pg.ReadBlock(headerBlock)
	if err != nil {
		return btpage.Header{}, errors.Wrap(err, "btree: read header")
	}
	h, err := btpage.DecodeHeader(b)
	if err != nil {
		return btpage.Header{}, errors.Wrap(err, "btree: read header")
	}
	return h, nil
}

func (t *BTree) writeHeader(h btpage.Header) error {
	return errors.Wrap(t.pg.WriteBlock(headerBlock, btpage.EncodeHeader(h)), "btree: write header")
}

func (t *BTree) readNode(id uint64) (*btpage.Node, error) {
	if id == headerBlock {
		return nil, errors.Wrap(ErrInvalidBlock, "btree: read node")
	}
	b, err := t.pg.ReadBlock(id)
	if err != nil {
		return nil, errors.Wrapf(err, "btree: read node %d", id)
	}
	n, err := btpage.DecodeNode(b)
	if err != nil {
		return nil, errors.Wrapf(err, "btree: read node %d", id)
	}
	if n.ID != id {
		return nil, errors.Wrapf(btpage.ErrFormat, "btree: block %d holds node id %d", id, n.ID)
	}
	return n, nil
}

func (t *BTree) writeNode(n *btpage.Node) error {
	if n.ID == headerBlock {
		return errors.Wrap(ErrInvalidBlock, "btree: write node")
	}
	return errors.Wrapf(t.pg.WriteBlock(n.ID, btpage.EncodeNode(n)), "btree: write node %d", n.ID)
}
