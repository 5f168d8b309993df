package store

import (
	"github.com/evecdb/evec/internal/errs"
	"github.com/evecdb/evec/internal/quant"
)

// BinaryStorage holds vectors as a packed bitstream, sign-quantized
// (positive -> 1, non-positive -> 0), one bit per dimension, LSB-first
// within a byte. dim must be a multiple of 8.
type BinaryStorage struct {
	dim       int
	bytesPer  int
	data      []byte
	count     int
	tomb      *Tombstones
}

func NewBinary(dim int) (*BinaryStorage, error) {
	if dim <= 0 || dim%8 != 0 {
		return nil, errs.Newf(errs.DimensionMismatch, "binary storage requires dim multiple of 8, got %d", dim)
	}
	return &BinaryStorage{dim: dim, bytesPer: dim / 8, tomb: NewTombstones()}, nil
}

func (s *BinaryStorage) Kind() Kind              { return KindBinary }
func (s *BinaryStorage) Dim() int                { return s.dim }
func (s *BinaryStorage) Len() int                { return s.count }
func (s *BinaryStorage) Tombstones() *Tombstones { return s.tomb }
func (s *BinaryStorage) DeletedCount() int       { return s.tomb.Count() }

func (s *BinaryStorage) Insert(v []float32) (uint32, error) {
	if err := validateInsert(s.dim, v); err != nil {
		return 0, err
	}
	slot := uint32(s.count)
	packed := PackSigns(v)
	s.data = append(s.data, packed...)
	s.count++
	s.tomb.Grow(uint(s.count))
	return slot, nil
}

// PackSigns bit-packs a float32 vector using sign quantization, LSB-first.
func PackSigns(v []float32) []byte {
	return quant.EncodeBinary(v)
}

// GetPacked returns the raw packed bitstream for slot, used by Hamming
// search paths that never need the reconstructed float form.
func (s *BinaryStorage) GetPacked(slot uint32) ([]byte, error) {
	if err := checkSlot(slot, s.count); err != nil {
		return nil, err
	}
	start := int(slot) * s.bytesPer
	return s.data[start : start+s.bytesPer], nil
}

// Get reconstructs an approximate float32 vector (+1/-1 per dimension)
// for callers that need the uniform Storage interface; binary rescoring
// should instead keep the original float vectors alongside (see
// index_bq.go) rather than rely on this lossy reconstruction.
func (s *BinaryStorage) Get(slot uint32) ([]float32, error) {
	packed, err := s.GetPacked(slot)
	if err != nil {
		return nil, err
	}
	out := make([]float32, s.dim)
	for i := 0; i < s.dim; i++ {
		if packed[i/8]&(1<<(uint(i)%8)) != 0 {
			out[i] = 1
		} else {
			out[i] = -1
		}
	}
	return out, nil
}

func (s *BinaryStorage) SetDeleted(slot uint32, deleted bool) (bool, error) {
	if err := checkSlot(slot, s.count); err != nil {
		return false, err
	}
	return s.tomb.Set(slot, deleted), nil
}

func (s *BinaryStorage) IsDeleted(slot uint32) (bool, error) {
	if err := checkSlot(slot, s.count); err != nil {
		return false, err
	}
	return s.tomb.Test(slot), nil
}

func (s *BinaryStorage) Raw() []byte { return s.data }

func LoadBinary(dim int, data []byte, tomb *Tombstones) (*BinaryStorage, error) {
	bytesPer := dim / 8
	if bytesPer == 0 || len(data)%bytesPer != 0 {
		return nil, errs.New(errs.BufferTooShort, "binary payload not a multiple of packed dimension")
	}
	return &BinaryStorage{dim: dim, bytesPer: bytesPer, data: data, count: len(data) / bytesPer, tomb: tomb}, nil
}
