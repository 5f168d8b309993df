package store

import "github.com/evecdb/evec/internal/errs"

// Float32Storage holds vectors as a flat N*dim slice of float32, the
// direct (unquantized) tagged representation.
type Float32Storage struct {
	dim     int
	data    []float32
	count   int
	tomb    *Tombstones
}

func NewFloat32(dim int) *Float32Storage {
	return &Float32Storage{dim: dim, tomb: NewTombstones()}
}

func (s *Float32Storage) Kind() Kind { return KindFloat32 }
func (s *Float32Storage) Dim() int   { return s.dim }
func (s *Float32Storage) Len() int   { return s.count }
func (s *Float32Storage) Tombstones() *Tombstones { return s.tomb }

func (s *Float32Storage) Insert(v []float32) (uint32, error) {
	if err := validateInsert(s.dim, v); err != nil {
		return 0, err
	}
	slot := uint32(s.count)
	s.data = append(s.data, v...)
	s.count++
	s.tomb.Grow(uint(s.count))
	return slot, nil
}

// Get returns the backing slice directly (no copy) — callers must treat
// it as read-only, matching the Cow<[f32]> contract's borrowed case.
func (s *Float32Storage) Get(slot uint32) ([]float32, error) {
	if err := checkSlot(slot, s.count); err != nil {
		return nil, err
	}
	start := int(slot) * s.dim
	return s.data[start : start+s.dim], nil
}

func (s *Float32Storage) SetDeleted(slot uint32, deleted bool) (bool, error) {
	if err := checkSlot(slot, s.count); err != nil {
		return false, err
	}
	return s.tomb.Set(slot, deleted), nil
}

func (s *Float32Storage) IsDeleted(slot uint32) (bool, error) {
	if err := checkSlot(slot, s.count); err != nil {
		return false, err
	}
	return s.tomb.Test(slot), nil
}

func (s *Float32Storage) DeletedCount() int { return s.tomb.Count() }

// Raw exposes the backing buffer for persistence writers.
func (s *Float32Storage) Raw() []float32 { return s.data }

// LoadFloat32 reconstructs storage from a previously serialized payload
// and tombstone bitmap (used by the root package's decodeVectorPayload
// when loading a snapshot).
func LoadFloat32(dim int, data []float32, tomb *Tombstones) (*Float32Storage, error) {
	if dim <= 0 {
		return nil, errs.New(errs.BufferTooShort, "dimension must be positive")
	}
	if len(data)%dim != 0 {
		return nil, errs.New(errs.BufferTooShort, "vector payload not a multiple of dimension")
	}
	return &Float32Storage{dim: dim, data: data, count: len(data) / dim, tomb: tomb}, nil
}
