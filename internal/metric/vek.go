package metric

import (
	"github.com/chewxy/math32"
	"github.com/viterin/vek/vek32"
)

// Accelerated kernels built on vek32's SIMD-dispatched dot product. vek
// picks the actual AVX2/AVX/SSE instruction sequence at its own init time;
// the Level recorded in dispatch.go reflects what this process' CPU
// supports so callers can tell whether the accelerated path was taken.

func l2SquaredAccelerated(a, b []float32) float32 {
	// ||a-b||^2 = dot(a,a) - 2*dot(a,b) + dot(b,b), computed with the
	// same SIMD dot product kernel instead of a subtract-then-dot pass
	// over a temporary difference vector.
	aa := vek32.Dot(a, a)
	bb := vek32.Dot(b, b)
	ab := vek32.Dot(a, b)
	v := aa - 2*ab + bb
	if v < 0 {
		// clamp floating point underflow for near-identical vectors
		return 0
	}
	return v
}

func dotAccelerated(a, b []float32) float32 {
	return -vek32.Dot(a, b)
}

func cosineAccelerated(a, b []float32) float32 {
	dot := vek32.Dot(a, b)
	normA := math32.Sqrt(vek32.Dot(a, a))
	normB := math32.Sqrt(vek32.Dot(b, b))
	if normA == 0 || normB == 0 {
		return 1.0
	}
	cos := dot / (normA * normB)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return 1.0 - cos
}
