// Package btpage defines the on-disk block layout of the index file.
//
// Every field is a big-endian uint64. Block 0 holds the header:
//
//	[0-7]     magic tag "4348PRJ3"
//	[8-15]    root block index (0 = empty tree)
//	[16-23]   next free block index
//	[24-511]  zero
//
// Any other block in use holds a node:
//
//	[0-7]     block id of this node
//	[8-15]    block id of the parent (0 = root)
//	[16-23]   number of keys
//	[24-175]  19 keys
//	[176-327] 19 values
//	[328-487] 20 child block ids
//	[488-511] zero
package btpage

import (
	"bytes"
	"encoding/binary"

	"github.com/btree-query-bench/blockidx/dbms/pager"
	"github.com/cockroachdb/errors"
)

const (
	BlockSize = pager.BlockSize

	MaxKeys     = 19
	MaxChildren = MaxKeys + 1

	OffID       = 0
	OffParent   = 8
	OffNumKeys  = 16
	OffKeys     = 24
	OffValues   = OffKeys + MaxKeys*8
	OffChildren = OffValues + MaxKeys*8
	OffEnd      = OffChildren + MaxChildren*8

	OffMagic     = 0
	OffRoot      = 8
	OffNextBlock = 16
)

// Magic identifies a file as an index of this format version.
var Magic = [8]byte{'4', '3', '4', '8', 'P', 'R', 'J', '3'}

// ErrFormat marks a block that cannot be decoded: wrong length, wrong
// magic tag, or contents no valid node can have.
var ErrFormat = errors.New("bad block format")

var be = binary.BigEndian

// ─── Header ───────────────────────────────────────────────────────────────────

// Header is the block-0 record: root pointer and block allocator.
type Header struct {
	Root      uint64
	NextBlock uint64
}

// NewHeader returns the header of an empty index.
func NewHeader() Header {
	return Header{Root: 0, NextBlock: 1}
}

// Allocate hands out the next unused block index. Indices are never reused.
func (h *Header) Allocate() uint64 {
	id := h.NextBlock
	h.NextBlock++
	return id
}

// Empty reports whether the tree has no root.
func (h Header) Empty() bool {
	return h.Root == 0
}

func EncodeHeader(h Header) []byte {
	b := make([]byte, BlockSize)
	copy(b[OffMagic:OffMagic+8], Magic[:])
	be.PutUint64(b[OffRoot:], h.Root)
	be.PutUint64(b[OffNextBlock:], h.NextBlock)
	return b
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != BlockSize {
		return Header{}, errors.Wrapf(ErrFormat, "btpage: header block is %d bytes, want %d", len(b), BlockSize)
	}
	if !bytes.Equal(b[OffMagic:OffMagic+8], Magic[:]) {
		return Header{}, errors.Wrapf(ErrFormat, "btpage: invalid magic %q", b[OffMagic:OffMagic+8])
	}
	return Header{
		Root:      be.Uint64(b[OffRoot:]),
		NextBlock: be.Uint64(b[OffNextBlock:]),
	}, nil
}

// ─── Node ─────────────────────────────────────────────────────────────────────

// Node is one B-tree node. Only the first NumKeys keys/values and, for an
// internal node, the first NumKeys+1 children are meaningful. The engine
// keeps the remaining slots zeroed; the codec stores all slots as given.
type Node struct {
	ID       uint64
	Parent   uint64
	NumKeys  uint64
	Keys     [MaxKeys]uint64
	Values   [MaxKeys]uint64
	Children [MaxChildren]uint64
}

// IsLeaf uses Children[0] as the test; block 0 can never be a child.
func (n *Node) IsLeaf() bool {
	return n.Children[0] == 0
}

func (n *Node) Full() bool {
	return n.NumKeys >= MaxKeys
}

// Len returns NumKeys as an int for indexing.
func (n *Node) Len() int {
	return int(n.NumKeys)
}

func EncodeNode(n *Node) []byte {
	b := make([]byte, BlockSize)
	be.PutUint64(b[OffID:], n.ID)
	be.PutUint64(b[OffParent:], n.Parent)
	be.PutUint64(b[OffNumKeys:], n.NumKeys)
	for i := 0; i < MaxKeys; i++ {
		be.PutUint64(b[OffKeys+i*8:], n.Keys[i])
		be.PutUint64(b[OffValues+i*8:], n.Values[i])
	}
	for i := 0; i < MaxChildren; i++ {
		be.PutUint64(b[OffChildren+i*8:], n.Children[i])
	}
	return b
}

func DecodeNode(b []byte) (*Node, error) {
	if len(b) != BlockSize {
		return nil, errors.Wrapf(ErrFormat, "btpage: node block is %d bytes, want %d", len(b), BlockSize)
	}
	n := &Node{
		ID:      be.Uint64(b[OffID:]),
		Parent:  be.Uint64(b[OffParent:]),
		NumKeys: be.Uint64(b[OffNumKeys:]),
	}
	if n.NumKeys > MaxKeys {
		return nil, errors.Wrapf(ErrFormat, "btpage: node %d has %d keys, max %d", n.ID, n.NumKeys, MaxKeys)
	}
	for i := 0; i < MaxKeys; i++ {
		n.Keys[i] = be.Uint64(b[OffKeys+i*8:])
		n.Values[i] = be.Uint64(b[OffValues+i*8:])
	}
	for i := 0; i < MaxChildren; i++ {
		n.Children[i] = be.Uint64(b[OffChildren+i*8:])
	}
	return n, nil
}
