package btree

import (
	"github.com/btree-query-bench/blockidx/dbms/index"
	"github.com/btree-query-bench/blockidx/dbms/index/btpage"
	"github.com/cockroachdb/errors"
)

// Search returns the value stored under key. found is false when the key
// is absent or the tree is empty; that is not an error.
func (t *BTree) Search(key uint64) (value uint64, found bool, err error) {
	h, err := t.readHeader()
	if err != nil {
		return 0, false, err
	}
	if h.Empty() {
		return 0, false, nil
	}
	n, slot, err := t.findLeaf(h.Root, key)
	if err != nil || slot < 0 {
		return 0, false, err
	}
	return n.Values[slot], true, nil
}

// Get implements index.Index.
func (t *BTree) Get(key uint64) (uint64, error) {
	v, ok, err := t.Search(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.Wrapf(index.ErrNotFound, "btree: get %d", key)
	}
	return v, nil
}

// findLeaf descends from root toward key. It stops early and returns the
// node and slot when some node on the path already holds key. Otherwise it
// returns the leaf key belongs in with slot -1. A zero child pointer in an
// internal node also ends the descent; the caller sees a non-leaf node.
func (t *BTree) findLeaf(root, key uint64) (*btpage.Node, int, error) {
	id := root
	for {
		n, err := t.readNode(id)
		if err != nil {
			return nil, -1, err
		}
		if slot := keySlot(n, key); slot >= 0 {
			return n, slot, nil
		}
		if n.IsLeaf() {
			return n, -1, nil
		}
		next := n.Children[childIndex(n, key)]
		if next == 0 {
			return n, -1, nil
		}
		id = next
	}
}

// keySlot scans the occupied keys for an exact match.
func keySlot(n *btpage.Node, key uint64) int {
	for i := 0; i < n.Len(); i++ {
		if n.Keys[i] == key {
			return i
		}
	}
	return -1
}

// childIndex returns the first i with key < Keys[i], or NumKeys.
func childIndex(n *btpage.Node, key uint64) int {
	i := 0
	for i < n.Len() && key >= n.Keys[i] {
		i++
	}
	return i
}
