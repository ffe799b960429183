package btree

import (
	"github.com/btree-query-bench/blockidx/dbms/index/btpage"
	"github.com/cockroachdb/errors"
)

// PutResult describes where Put stored an entry.
type PutResult struct {
	Block    uint64 // node block holding the entry
	Replaced bool   // key existed; its value was overwritten
	Splits   int    // node splits performed before the entry fit
}

// Insert stores value under key, overwriting the value of an existing key.
func (t *BTree) Insert(key, value uint64) error {
	_, err := t.Put(key, value)
	return err
}

// Put stores value under key and reports what it did.
//
// When the target leaf is full it is split, which may cascade up to the
// root, and the insert restarts from the header: the split can move the
// key's destination anywhere along the path.
func (t *BTree) Put(key, value uint64) (PutResult, error) {
	var res PutResult
	for {
		h, err := t.readHeader()
		if err != nil {
			return res, err
		}

		if h.Empty() {
			root := &btpage.Node{ID: h.Allocate(), NumKeys: 1}
			root.Keys[0], root.Values[0] = key, value
			if err := t.writeNode(root); err != nil {
				return res, err
			}
			h.Root = root.ID
			res.Block = root.ID
			return res, t.writeHeader(h)
		}

		n, slot, err := t.findLeaf(h.Root, key)
		if err != nil {
			return res, err
		}
		if slot >= 0 {
			n.Values[slot] = value
			res.Block, res.Replaced = n.ID, true
			return res, t.writeNode(n)
		}
		if !n.IsLeaf() {
			return res, errors.Wrapf(btpage.ErrFormat, "btree: internal node %d has no child for key %d", n.ID, key)
		}

		if !n.Full() {
			insertIntoNode(n, key, value)
			res.Block = n.ID
			return res, t.writeNode(n)
		}

		// A split always leaves room in both halves, so the retry lands.
		if res.Splits > 0 {
			return res, errors.AssertionFailedf("btree: leaf %d still full after split", n.ID)
		}
		if err := t.split(&h, n); err != nil {
			return res, err
		}
		if err := t.writeHeader(h); err != nil {
			return res, err
		}
		res.Splits++
	}
}

// insertIntoNode places key/value in sorted position by shifting larger
// entries one slot right, and returns the slot it landed in. Children are
// left untouched. n must not be full.
func insertIntoNode(n *btpage.Node, key, value uint64) int {
	if n.Full() {
		panic("btree: insertIntoNode on a full node")
	}
	i := n.Len() - 1
	for i >= 0 && n.Keys[i] > key {
		n.Keys[i+1] = n.Keys[i]
		n.Values[i+1] = n.Values[i]
		i--
	}
	n.Keys[i+1] = key
	n.Values[i+1] = value
	n.NumKeys++
	return i + 1
}

// insertChild puts id at Children[pos], shifting later pointers right.
// Whatever was in the last slot falls off.
func insertChild(n *btpage.Node, pos int, id uint64) {
	copy(n.Children[pos+1:], n.Children[pos:maxChildren-1])
	n.Children[pos] = id
}

// split divides the full node n around its median. The median entry moves
// into the parent, splitting the parent first if it is full too. h is
// updated with every allocated block and any new root; the caller persists
// it, except for a root split which writes it immediately.
func (t *BTree) split(h *btpage.Header, n *btpage.Node) error {
	if !n.Full() {
		return errors.AssertionFailedf("btree: split of node %d with %d keys", n.ID, n.NumKeys)
	}
	promotedKey, promotedVal := n.Keys[mid], n.Values[mid]

	right := &btpage.Node{
		ID:      h.Allocate(),
		Parent:  n.Parent,
		NumKeys: maxKeys - mid - 1,
	}
	copy(right.Keys[:], n.Keys[mid+1:])
	copy(right.Values[:], n.Values[mid+1:])
	copy(right.Children[:], n.Children[mid+1:])

	for i := mid; i < maxKeys; i++ {
		n.Keys[i], n.Values[i] = 0, 0
	}
	for i := mid + 1; i < maxChildren; i++ {
		n.Children[i] = 0
	}
	n.NumKeys = mid

	t.logf("btree: split node %d: promote key %d, right half in block %d", n.ID, promotedKey, right.ID)

	if n.Parent == 0 {
		root := &btpage.Node{ID: h.Allocate(), NumKeys: 1}
		root.Keys[0], root.Values[0] = promotedKey, promotedVal
		root.Children[0], root.Children[1] = n.ID, right.ID
		n.Parent, right.Parent = root.ID, root.ID
		h.Root = root.ID

		for _, w := range []*btpage.Node{n, right, root} {
			if err := t.writeNode(w); err != nil {
				return err
			}
		}
		if err := t.reparent(right); err != nil {
			return err
		}
		t.logf("btree: root split: new root in block %d", root.ID)
		return t.writeHeader(*h)
	}

	if err := t.writeNode(n); err != nil {
		return err
	}
	if err := t.writeNode(right); err != nil {
		return err
	}
	if err := t.reparent(right); err != nil {
		return err
	}

	parent, err := t.readNode(n.Parent)
	if err != nil {
		return err
	}
	if parent.Full() {
		if err := t.split(h, parent); err != nil {
			return err
		}
		// The parent's split may have moved n into the new right half;
		// n's own parent pointer says which half now holds it.
		if n, err = t.readNode(n.ID); err != nil {
			return err
		}
		if parent, err = t.readNode(n.Parent); err != nil {
			return err
		}
	}

	slot := insertIntoNode(parent, promotedKey, promotedVal)
	insertChild(parent, slot+1, right.ID)
	if err := t.writeNode(parent); err != nil {
		return err
	}
	if right.Parent != parent.ID {
		right.Parent = parent.ID
		return t.writeNode(right)
	}
	return nil
}

// reparent points every child of n back at n. Children moved by a split
// still name the node they came from until this runs.
func (t *BTree) reparent(n *btpage.Node) error {
	if n.IsLeaf() {
		return nil
	}
	for i := 0; i <= n.Len(); i++ {
		id := n.Children[i]
		if id == 0 {
			continue
		}
		c, err := t.readNode(id)
		if err != nil {
			return err
		}
		if c.Parent == n.ID {
			continue
		}
		c.Parent = n.ID
		if err := t.writeNode(c); err != nil {
			return err
		}
	}
	return nil
}
