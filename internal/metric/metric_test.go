package metric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestL2SquaredMatchesPortable(t *testing.T) {
	a := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}
	b := []float32{9, 8, 7, 6, 5, 4, 3, 2, 1}

	want := L2SquaredPortable(a, b)
	got := ForMetric(L2)(a, b)

	assert.InDelta(t, float64(want), float64(got), 1e-3)
}

func TestCosineIdentical(t *testing.T) {
	a := []float32{1, 2, 3}
	got := ForMetric(Cosine)(a, a)
	assert.InDelta(t, 0.0, float64(got), 1e-4)
}

func TestCosineZeroVector(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{1, 2, 3}
	got := ForMetric(Cosine)(a, b)
	assert.Equal(t, float32(1.0), got)
}

func TestDotOrdering(t *testing.T) {
	// larger dot product -> more negative distance -> "closer"
	a := []float32{1, 1, 1}
	close := []float32{1, 1, 1}
	far := []float32{-1, -1, -1}

	dClose := ForMetric(Dot)(a, close)
	dFar := ForMetric(Dot)(a, far)
	require.Less(t, dClose, dFar)
}

func TestHammingPopcount(t *testing.T) {
	a := []byte{0b11110000}
	b := []byte{0b11111111}
	got := Hamming(a, b)
	assert.Equal(t, uint32(4), got)
}

func TestAcceleratedMatchesPortableAcrossLengths(t *testing.T) {
	for _, n := range []int{1, 3, 7, 8, 15, 16, 33, 129} {
		a := make([]float32, n)
		b := make([]float32, n)
		for i := range a {
			a[i] = float32(math.Sin(float64(i)))
			b[i] = float32(math.Cos(float64(i)))
		}
		wantL2 := L2SquaredPortable(a, b)
		gotL2 := ForMetric(L2)(a, b)
		assert.InDelta(t, float64(wantL2), float64(gotL2), 1e-2, "len=%d", n)
	}
}
