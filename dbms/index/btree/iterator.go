package btree

import (
	"github.com/btree-query-bench/blockidx/dbms/index"
	"github.com/btree-query-bench/blockidx/dbms/index/btpage"
)

// Walk calls visit for every entry in ascending key order. A non-nil error
// from visit stops the walk and is returned.
func (t *BTree) Walk(visit func(key, value uint64) error) error {
	h, err := t.readHeader()
	if err != nil {
		return err
	}
	if h.Empty() {
		return nil
	}
	return t.walk(h.Root, visit)
}

func (t *BTree) walk(id uint64, visit func(key, value uint64) error) error {
	n, err := t.readNode(id)
	if err != nil {
		return err
	}
	for i := 0; i < n.Len(); i++ {
		if c := n.Children[i]; c != 0 {
			if err := t.walk(c, visit); err != nil {
				return err
			}
		}
		if err := visit(n.Keys[i], n.Values[i]); err != nil {
			return err
		}
	}
	if c := n.Children[n.Len()]; c != 0 {
		return t.walk(c, visit)
	}
	return nil
}

// ─── Range Iterator ───────────────────────────────────────────────────────────

// RangeIterator scans entries with start <= key <= end in key order.
// Entries sit in internal nodes too, so it keeps a stack of nodes and
// interleaves child subtrees with each node's own keys.
type RangeIterator struct {
	tree  *BTree
	end   uint64
	stack []stackFrame
	key   uint64
	val   uint64
	err   error
	done  bool
}

type stackFrame struct {
	node *btpage.Node
	idx  int  // next key of node to emit
	down bool // Children[idx] has already been visited
}

var _ index.Iterator = (*RangeIterator)(nil)

// Range returns an iterator over all keys in [start, end].
func (t *BTree) Range(start, end uint64) (index.Iterator, error) {
	it := &RangeIterator{tree: t, end: end}
	h, err := t.readHeader()
	if err != nil {
		return nil, err
	}
	if h.Empty() || start > end {
		it.done = true
		return it, nil
	}
	if err := it.seek(h.Root, start); err != nil {
		return nil, err
	}
	return it, nil
}

// seek walks down toward start, pushing one frame per level positioned at
// the first key >= start.
func (it *RangeIterator) seek(id, start uint64) error {
	for id != 0 {
		n, err := it.tree.readNode(id)
		if err != nil {
			return err
		}
		idx := 0
		for idx < n.Len() && n.Keys[idx] < start {
			idx++
		}
		it.stack = append(it.stack, stackFrame{node: n, idx: idx, down: true})
		if n.IsLeaf() {
			return nil
		}
		id = n.Children[idx]
	}
	return nil
}

// Next advances the iterator. Returns false when exhausted.
func (it *RangeIterator) Next() bool {
	if it.done {
		return false
	}
	for len(it.stack) > 0 {
		f := &it.stack[len(it.stack)-1]
		n := f.node

		if !f.down && !n.IsLeaf() && f.idx <= n.Len() {
			f.down = true
			if c := n.Children[f.idx]; c != 0 {
				child, err := it.tree.readNode(c)
				if err != nil {
					it.err = err
					it.done = true
					return false
				}
				it.stack = append(it.stack, stackFrame{node: child})
				continue
			}
		}

		if f.idx < n.Len() {
			k, v := n.Keys[f.idx], n.Values[f.idx]
			f.idx++
			f.down = false
			if k > it.end {
				it.done = true
				return false
			}
			it.key, it.val = k, v
			return true
		}

		it.stack = it.stack[:len(it.stack)-1]
	}
	it.done = true
	return false
}

func (it *RangeIterator) Key() uint64   { return it.key }
func (it *RangeIterator) Value() uint64 { return it.val }
func (it *RangeIterator) Error() error  { return it.err }
func (it *RangeIterator) Close() error  { it.stack = nil; return nil }
