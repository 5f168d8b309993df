// Package store owns the contiguous vector bytes for an index and the
// per-slot tombstone bitmap. It has no notion of VectorId or the HNSW
// graph: slots are dense, zero-based, and allocated in insertion order,
// matching the graph's NodeId space one-for-one.
package store

import (
	"math"

	"github.com/evecdb/evec/internal/errs"
)

// Kind identifies which tagged storage representation backs an index.
type Kind uint8

const (
	KindFloat32 Kind = iota
	KindScalarU8
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindFloat32:
		return "float32"
	case KindScalarU8:
		return "scalar_u8"
	case KindBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Storage is the contract every tagged representation implements.
// Insert/Get operate on a dense, zero-based slot index equal to the
// graph's NodeId for that vector.
type Storage interface {
	Kind() Kind
	Dim() int
	Len() int

	// Insert appends v (validated: correct dimension, all-finite) and
	// returns its slot.
	Insert(v []float32) (uint32, error)

	// Get decodes the vector at slot back to float32. For Float32
	// storage this may return the backing slice directly; callers must
	// not mutate it.
	Get(slot uint32) ([]float32, error)

	SetDeleted(slot uint32, deleted bool) (previous bool, err error)
	IsDeleted(slot uint32) (bool, error)
	DeletedCount() int
	Tombstones() *Tombstones
}

// ValidateVector enforces the insert-time input invariants: exact
// dimensionality and all-finite components. Exported so callers that
// sequence a durable write ahead of the storage mutation (the WAL-backed
// insert path) can reject bad input before anything hits disk.
func ValidateVector(dim int, v []float32) error {
	if len(v) != dim {
		return errs.DimMismatch(dim, len(v))
	}
	for _, x := range v {
		if isNonFinite(x) {
			return errs.New(errs.NonFiniteValue, "vector contains NaN or infinite component")
		}
	}
	return nil
}

func validateInsert(dim int, v []float32) error {
	return ValidateVector(dim, v)
}

func isNonFinite(x float32) bool {
	f := float64(x)
	return math.IsNaN(f) || math.IsInf(f, 0)
}

func checkSlot(slot uint32, n int) error {
	if int(slot) >= n {
		return errs.Newf(errs.NodeIdOutOfBounds, "slot %d out of bounds (len=%d)", slot, n)
	}
	return nil
}
