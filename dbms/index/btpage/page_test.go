package btpage

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestLayoutOffsets(t *testing.T) {
	if OffValues != 176 || OffChildren != 328 || OffEnd != 488 {
		t.Fatalf("Unexpected layout: values %d, children %d, end %d", OffValues, OffChildren, OffEnd)
	}
	if OffEnd > BlockSize {
		t.Fatalf("Node layout does not fit in a block")
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Root: 7, NextBlock: 42}
	b := EncodeHeader(h)
	if len(b) != BlockSize {
		t.Fatalf("Expected %d bytes, got %d", BlockSize, len(b))
	}
	if string(b[:8]) != "4348PRJ3" {
		t.Errorf("Expected magic at offset 0, got %q", b[:8])
	}
	if got := binary.BigEndian.Uint64(b[8:]); got != 7 {
		t.Errorf("Expected root 7 big-endian at offset 8, got %d", got)
	}
	if !bytes.Equal(b[24:], make([]byte, BlockSize-24)) {
		t.Errorf("Expected header padding to be zero")
	}

	got, err := DecodeHeader(b)
	if err != nil {
		t.Fatalf("Failed to decode header: %v", err)
	}
	if got != h {
		t.Errorf("Expected %+v, got %+v", h, got)
	}
}

func TestHeaderAllocate(t *testing.T) {
	h := NewHeader()
	if !h.Empty() || h.NextBlock != 1 {
		t.Fatalf("Expected empty header with next block 1, got %+v", h)
	}
	for want := uint64(1); want <= 3; want++ {
		if got := h.Allocate(); got != want {
			t.Errorf("Expected block %d, got %d", want, got)
		}
	}
	if h.NextBlock != 4 {
		t.Errorf("Expected next block 4, got %d", h.NextBlock)
	}
}

func TestDecodeHeaderErrors(t *testing.T) {
	bad := EncodeHeader(Header{Root: 1, NextBlock: 2})
	bad[3] = 'X'
	tests := []struct {
		name string
		b    []byte
	}{
		{"bad magic", bad},
		{"zero block", make([]byte, BlockSize)},
		{"short", EncodeHeader(Header{})[:100]},
		{"long", append(EncodeHeader(Header{}), 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeHeader(tt.b); !errors.Is(err, ErrFormat) {
				t.Errorf("Expected ErrFormat, got %v", err)
			}
		})
	}
}

func TestNodeRoundTrip(t *testing.T) {
	n := &Node{ID: 5, Parent: 3, NumKeys: MaxKeys}
	for i := 0; i < MaxKeys; i++ {
		n.Keys[i] = uint64(i*10 + 1)
		n.Values[i] = ^uint64(i)
	}
	for i := 0; i < MaxChildren; i++ {
		n.Children[i] = uint64(100 + i)
	}

	b := EncodeNode(n)
	if len(b) != BlockSize {
		t.Fatalf("Expected %d bytes, got %d", BlockSize, len(b))
	}
	if got := binary.BigEndian.Uint64(b[OffChildren+19*8:]); got != 119 {
		t.Errorf("Expected last child 119 at offset %d, got %d", OffChildren+19*8, got)
	}
	if !bytes.Equal(b[OffEnd:], make([]byte, BlockSize-OffEnd)) {
		t.Errorf("Expected node padding to be zero")
	}

	got, err := DecodeNode(b)
	if err != nil {
		t.Fatalf("Failed to decode node: %v", err)
	}
	if *got != *n {
		t.Errorf("Round trip mismatch:\nwant %+v\ngot  %+v", n, got)
	}
}

func TestNodeSlotsBeyondCountSurvive(t *testing.T) {
	n := &Node{ID: 2, NumKeys: 1}
	n.Keys[0], n.Keys[5] = 1, 99
	got, err := DecodeNode(EncodeNode(n))
	if err != nil {
		t.Fatalf("Failed to decode node: %v", err)
	}
	if got.Keys[5] != 99 {
		t.Errorf("Expected unused slot to round-trip, got %d", got.Keys[5])
	}
}

func TestDecodeNodeErrors(t *testing.T) {
	b := EncodeNode(&Node{ID: 1})
	binary.BigEndian.PutUint64(b[OffNumKeys:], MaxKeys+1)
	if _, err := DecodeNode(b); !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat for too many keys, got %v", err)
	}
	if _, err := DecodeNode(make([]byte, 10)); !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat for short block, got %v", err)
	}
}

func TestNodePredicates(t *testing.T) {
	n := &Node{NumKeys: MaxKeys}
	if !n.IsLeaf() || !n.Full() || n.Len() != MaxKeys {
		t.Errorf("Expected full leaf, got leaf=%v full=%v len=%d", n.IsLeaf(), n.Full(), n.Len())
	}
	n.Children[0] = 4
	n.NumKeys = 3
	if n.IsLeaf() || n.Full() {
		t.Errorf("Expected internal non-full node")
	}
}
