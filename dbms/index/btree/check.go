package btree

import (
	"github.com/btree-query-bench/blockidx/dbms/index/btpage"
	"github.com/cockroachdb/errors"
)

// ErrCorrupt is returned by Check when the tree breaks a structural invariant.
var ErrCorrupt = errors.New("tree invariant violated")

// Stats summarizes a tree that passed Check.
type Stats struct {
	Height    int
	Nodes     int
	Leaves    int
	Keys      int
	NextBlock uint64
}

// bound is an optional key limit inherited from an ancestor separator.
type bound struct {
	set bool
	key uint64
}

// Check walks the whole tree and verifies its invariants: node ids match
// their blocks, keys are strictly ascending and fall between the parent's
// separators, parent pointers name the parent, all leaves share one depth,
// and no node lies at or beyond the allocator's next free block.
func (t *BTree) Check() (Stats, error) {
	h, err := t.readHeader()
	if err != nil {
		return Stats{}, err
	}
	st := Stats{NextBlock: h.NextBlock}
	if h.Empty() {
		return st, nil
	}
	c := &checker{t: t, h: h, stats: &st, seen: map[uint64]bool{}, leafDepth: -1}
	if err := c.node(h.Root, 0, 1, bound{}, bound{}); err != nil {
		return st, err
	}
	st.Height = c.leafDepth
	return st, nil
}

type checker struct {
	t         *BTree
	h         btpage.Header
	stats     *Stats
	seen      map[uint64]bool
	leafDepth int
}

func (c *checker) node(id, parent uint64, depth int, lo, hi bound) error {
	if id >= c.h.NextBlock {
		return errors.Wrapf(ErrCorrupt, "node %d is beyond next free block %d", id, c.h.NextBlock)
	}
	if c.seen[id] {
		return errors.Wrapf(ErrCorrupt, "node %d reachable twice", id)
	}
	c.seen[id] = true

	n, err := c.t.readNode(id)
	if err != nil {
		return err
	}
	c.stats.Nodes++
	c.stats.Keys += n.Len()

	if n.Parent != parent {
		return errors.Wrapf(ErrCorrupt, "node %d names parent %d, reached from %d", id, n.Parent, parent)
	}
	if n.NumKeys == 0 {
		return errors.Wrapf(ErrCorrupt, "node %d is empty", id)
	}
	for i := 0; i < n.Len(); i++ {
		k := n.Keys[i]
		if i > 0 && k <= n.Keys[i-1] {
			return errors.Wrapf(ErrCorrupt, "node %d: key %d at slot %d not above %d", id, k, i, n.Keys[i-1])
		}
		if lo.set && k < lo.key {
			return errors.Wrapf(ErrCorrupt, "node %d: key %d below separator %d", id, k, lo.key)
		}
		if hi.set && k >= hi.key {
			return errors.Wrapf(ErrCorrupt, "node %d: key %d not below separator %d", id, k, hi.key)
		}
	}

	if n.IsLeaf() {
		c.stats.Leaves++
		for i := 0; i < btpage.MaxChildren; i++ {
			if n.Children[i] != 0 {
				return errors.Wrapf(ErrCorrupt, "leaf %d has child %d in slot %d", id, n.Children[i], i)
			}
		}
		if c.leafDepth < 0 {
			c.leafDepth = depth
		} else if c.leafDepth != depth {
			return errors.Wrapf(ErrCorrupt, "leaf %d at depth %d, others at %d", id, depth, c.leafDepth)
		}
		return nil
	}

	for i := 0; i <= n.Len(); i++ {
		child := n.Children[i]
		if child == 0 {
			return errors.Wrapf(ErrCorrupt, "internal node %d missing child %d", id, i)
		}
		clo, chi := lo, hi
		if i > 0 {
			clo = bound{set: true, key: n.Keys[i-1]}
		}
		if i < n.Len() {
			chi = bound{set: true, key: n.Keys[i]}
		}
		if err := c.node(child, id, depth+1, clo, chi); err != nil {
			return err
		}
	}
	for i := n.Len() + 1; i < btpage.MaxChildren; i++ {
		if n.Children[i] != 0 {
			return errors.Wrapf(ErrCorrupt, "node %d has stray child %d in slot %d", id, n.Children[i], i)
		}
	}
	return nil
}
