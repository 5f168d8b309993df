package store

import (
	"github.com/bits-and-blooms/bitset"
)

// Tombstones is the deletion bitmap: a bit vector of length N
// indexed by slot (NodeId). Bit set means the slot is soft-deleted.
// Backed by bits-and-blooms/bitset rather than a hand-rolled []byte, since
// that is exactly the dense fixed-length bitset the invariant describes.
type Tombstones struct {
	bits    *bitset.BitSet
	deleted int
}

func NewTombstones() *Tombstones {
	return &Tombstones{bits: bitset.New(0)}
}

// Grow extends the bitmap so slot n-1 is addressable, leaving new bits
// clear (not deleted). Called once per Insert.
func (t *Tombstones) Grow(n uint) {
	if n > t.bits.Len() {
		t.bits.Set(n - 1).Clear(n - 1)
	}
}

// Set flips the tombstone bit for slot and returns the previous state.
func (t *Tombstones) Set(slot uint32, deleted bool) bool {
	prev := t.bits.Test(uint(slot))
	if deleted == prev {
		return prev
	}
	if deleted {
		t.bits.Set(uint(slot))
		t.deleted++
	} else {
		t.bits.Clear(uint(slot))
		t.deleted--
	}
	return prev
}

func (t *Tombstones) Test(slot uint32) bool {
	return t.bits.Test(uint(slot))
}

// Count returns deleted_count, maintained incrementally rather than
// recomputed, but must always equal bits.Count() — exercised by the
// property test in hnsw.
func (t *Tombstones) Count() int {
	return t.deleted
}

// PopCount recomputes the true popcount directly from the bitset, used
// by tests to verify the incrementally-maintained Count stays in sync.
func (t *Tombstones) PopCount() int {
	return int(t.bits.Count())
}

func (t *Tombstones) Len() int {
	return int(t.bits.Len())
}

// Bytes serializes the bitmap LSB-first per-byte, the snapshot's
// tombstone section layout.
func (t *Tombstones) Bytes() []byte {
	n := t.Len()
	out := make([]byte, (n+7)/8)
	for i := 0; i < n; i++ {
		if t.bits.Test(uint(i)) {
			out[i/8] |= 1 << (uint(i) % 8)
		}
	}
	return out
}

// LoadBytes reconstructs a tombstone bitmap of length n from its packed
// LSB-first byte form, as written by Bytes.
func LoadBytes(n int, data []byte) *Tombstones {
	t := &Tombstones{bits: bitset.New(uint(n))}
	for i := 0; i < n; i++ {
		byteIdx := i / 8
		if byteIdx >= len(data) {
			break
		}
		if data[byteIdx]&(1<<(uint(i)%8)) != 0 {
			t.bits.Set(uint(i))
			t.deleted++
		}
	}
	return t
}
