package quant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainScalarRangeBasic(t *testing.T) {
	vectors := [][]float32{
		{0, 10},
		{5, 20},
		{-5, 0},
	}
	r, err := TrainScalarRange(vectors, 1.0)
	require.NoError(t, err)
	assert.Equal(t, float32(-5), r.Min[0])
	assert.Equal(t, float32(5), r.Max[0])
	assert.Equal(t, float32(0), r.Min[1])
	assert.Equal(t, float32(20), r.Max[1])
}

func TestTrainScalarRangeRejectsDimensionMismatch(t *testing.T) {
	vectors := [][]float32{{1, 2}, {1, 2, 3}}
	_, err := TrainScalarRange(vectors, 1.0)
	require.Error(t, err)
}

func TestTrainScalarRangeDegenerateDimension(t *testing.T) {
	vectors := [][]float32{{1, 1}, {1, 1}}
	r, err := TrainScalarRange(vectors, 1.0)
	require.NoError(t, err)
	assert.NotEqual(t, r.Min[0], r.Max[0], "degenerate dimension must not collapse to zero width")
}

func TestEncodeBinarySignQuantization(t *testing.T) {
	v := []float32{1, -1, 0, 2, -0.1, 5, -5, 0.01}
	packed := EncodeBinary(v)
	require.Len(t, packed, 1)
	// bit i set iff v[i] > 0
	assert.Equal(t, byte(0b10101001), packed[0])
}
