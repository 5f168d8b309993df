package store

import "github.com/evecdb/evec/internal/errs"

// ScalarU8Storage holds vectors as one byte per dimension plus a shared
// per-dimension {min, max} reconstruction range. Decode is
// min + (byte/255)*(max-min); encode is its inverse, clamped to [0,255].
type ScalarU8Storage struct {
	dim   int
	min   []float32
	max   []float32
	data  []byte
	count int
	tomb  *Tombstones
}

// NewScalarU8 builds scalar-quantized storage over a fixed reconstruction
// range. The range is established once (typically from a training pass
// over a sample, see internal/quant) and is immutable thereafter, per the
// tagged-union storage design note: storage is a sum type decided at
// construction, not reconfigured at runtime.
func NewScalarU8(dim int, min, max []float32) (*ScalarU8Storage, error) {
	if len(min) != dim || len(max) != dim {
		return nil, errs.DimMismatch(dim, len(min))
	}
	return &ScalarU8Storage{dim: dim, min: min, max: max, tomb: NewTombstones()}, nil
}

func (s *ScalarU8Storage) Kind() Kind              { return KindScalarU8 }
func (s *ScalarU8Storage) Dim() int                { return s.dim }
func (s *ScalarU8Storage) Len() int                { return s.count }
func (s *ScalarU8Storage) Tombstones() *Tombstones { return s.tomb }
func (s *ScalarU8Storage) DeletedCount() int       { return s.tomb.Count() }

func (s *ScalarU8Storage) Insert(v []float32) (uint32, error) {
	if err := validateInsert(s.dim, v); err != nil {
		return 0, err
	}
	slot := uint32(s.count)
	for i, x := range v {
		s.data = append(s.data, s.encodeOne(i, x))
	}
	s.count++
	s.tomb.Grow(uint(s.count))
	return slot, nil
}

func (s *ScalarU8Storage) encodeOne(dim int, x float32) byte {
	rng := s.max[dim] - s.min[dim]
	if rng <= 0 {
		return 0
	}
	scaled := (x - s.min[dim]) / rng * 255.0
	if scaled < 0 {
		scaled = 0
	} else if scaled > 255 {
		scaled = 255
	}
	return byte(scaled + 0.5)
}

// Get decodes slot back to an owned float32 vector.
func (s *ScalarU8Storage) Get(slot uint32) ([]float32, error) {
	if err := checkSlot(slot, s.count); err != nil {
		return nil, err
	}
	start := int(slot) * s.dim
	out := make([]float32, s.dim)
	for i := 0; i < s.dim; i++ {
		b := s.data[start+i]
		out[i] = s.min[i] + (float32(b)/255.0)*(s.max[i]-s.min[i])
	}
	return out, nil
}

func (s *ScalarU8Storage) SetDeleted(slot uint32, deleted bool) (bool, error) {
	if err := checkSlot(slot, s.count); err != nil {
		return false, err
	}
	return s.tomb.Set(slot, deleted), nil
}

func (s *ScalarU8Storage) IsDeleted(slot uint32) (bool, error) {
	if err := checkSlot(slot, s.count); err != nil {
		return false, err
	}
	return s.tomb.Test(slot), nil
}

func (s *ScalarU8Storage) Raw() []byte         { return s.data }
func (s *ScalarU8Storage) Range() ([]float32, []float32) { return s.min, s.max }

func LoadScalarU8(dim int, min, max []float32, data []byte, tomb *Tombstones) (*ScalarU8Storage, error) {
	if len(data)%dim != 0 {
		return nil, errs.New(errs.BufferTooShort, "scalar payload not a multiple of dimension")
	}
	return &ScalarU8Storage{dim: dim, min: min, max: max, data: data, count: len(data) / dim, tomb: tomb}, nil
}
