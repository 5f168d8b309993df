package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat32InsertGet(t *testing.T) {
	s := NewFloat32(3)
	slot, err := s.Insert([]float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), slot)

	got, err := s.Get(slot)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, got)
}

func TestFloat32RejectsDimensionMismatch(t *testing.T) {
	s := NewFloat32(3)
	_, err := s.Insert([]float32{1, 2})
	require.Error(t, err)
}

func TestFloat32RejectsNonFinite(t *testing.T) {
	s := NewFloat32(2)
	_, err := s.Insert([]float32{1, float32(math.NaN())})
	require.Error(t, err)
}

func TestTombstoneLifecycle(t *testing.T) {
	s := NewFloat32(2)
	slot, _ := s.Insert([]float32{1, 1})

	prev, err := s.SetDeleted(slot, true)
	require.NoError(t, err)
	assert.False(t, prev)
	assert.Equal(t, 1, s.DeletedCount())

	prev, err = s.SetDeleted(slot, true)
	require.NoError(t, err)
	assert.True(t, prev, "idempotent re-delete reports previous state")
	assert.Equal(t, 1, s.DeletedCount())
}

func TestScalarU8RoundTrip(t *testing.T) {
	min := []float32{-1, -1}
	max := []float32{1, 1}
	s, err := NewScalarU8(2, min, max)
	require.NoError(t, err)

	slot, err := s.Insert([]float32{0.5, -0.5})
	require.NoError(t, err)

	got, err := s.Get(slot)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got[0], 0.01)
	assert.InDelta(t, -0.5, got[1], 0.01)
}

func TestBinaryPackAndHamming(t *testing.T) {
	s, err := NewBinary(8)
	require.NoError(t, err)

	slotA, _ := s.Insert([]float32{1, 1, 1, 1, -1, -1, -1, -1})
	slotB, _ := s.Insert([]float32{1, 1, 1, 1, 1, 1, 1, 1})

	a, err := s.GetPacked(slotA)
	require.NoError(t, err)
	b, err := s.GetPacked(slotB)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestTombstonesBytesRoundTrip(t *testing.T) {
	tomb := NewTombstones()
	tomb.Grow(10)
	tomb.Set(2, true)
	tomb.Set(7, true)

	data := tomb.Bytes()
	restored := LoadBytes(10, data)

	assert.True(t, restored.Test(2))
	assert.True(t, restored.Test(7))
	assert.False(t, restored.Test(3))
	assert.Equal(t, 2, restored.Count())
	assert.Equal(t, tomb.PopCount(), restored.PopCount())
}
