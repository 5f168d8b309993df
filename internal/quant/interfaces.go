// Package quant implements the float->bytes encoders the storage layer
// delegates to: scalar-range training for the ScalarQuantizedU8 storage
// representation, and sign quantization for the Binary representation.
// Quantizers never own vector bytes; internal/store does.
package quant

import "github.com/evecdb/evec/internal/errs"

// ScalarRange is the per-dimension {min, max} reconstruction range a
// trained scalar quantizer produces, consumed by store.NewScalarU8.
type ScalarRange struct {
	Min []float32
	Max []float32
}

// TrainScalarRange computes per-dimension min/max over a sample of the
// training set. sampleRatio in (0,1] controls how much of vectors is
// actually scanned: a deterministic evenly-spaced stride rather than
// random sampling, so training is reproducible for a fixed input set.
func TrainScalarRange(vectors [][]float32, sampleRatio float64) (*ScalarRange, error) {
	if len(vectors) == 0 {
		return nil, errs.New(errs.Unknown, "no training vectors provided")
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, errs.Newf(errs.DimensionMismatch, "training vector %d has dimension %d, expected %d", i, len(v), dim)
		}
	}

	sample := strideSample(vectors, sampleRatio)

	min := make([]float32, dim)
	max := make([]float32, dim)
	copy(min, sample[0])
	copy(max, sample[0])

	for _, v := range sample {
		for d := 0; d < dim; d++ {
			if v[d] < min[d] {
				min[d] = v[d]
			}
			if v[d] > max[d] {
				max[d] = v[d]
			}
		}
	}

	// guard against a degenerate (constant) dimension collapsing the
	// reconstruction range to zero width.
	for d := 0; d < dim; d++ {
		if max[d] == min[d] {
			max[d] = min[d] + 1
		}
	}

	return &ScalarRange{Min: min, Max: max}, nil
}

func strideSample(vectors [][]float32, ratio float64) [][]float32 {
	if ratio <= 0 || ratio >= 1 {
		return vectors
	}
	n := int(float64(len(vectors)) * ratio)
	if n < 1 {
		n = 1
	}
	stride := len(vectors) / n
	if stride < 1 {
		stride = 1
	}
	out := make([][]float32, 0, n)
	for i := 0; i < len(vectors) && len(out) < n; i += stride {
		out = append(out, vectors[i])
	}
	return out
}

// EncodeBinary sign-quantizes v into a packed LSB-first bitstream
// (positive -> 1, non-positive -> 0). store.PackSigns delegates here so
// the bit-packing convention has one definition shared by the
// quantizer and the storage layer.
func EncodeBinary(v []float32) []byte {
	out := make([]byte, (len(v)+7)/8)
	for i, x := range v {
		if x > 0 {
			out[i/8] |= 1 << (uint(i) % 8)
		}
	}
	return out
}
