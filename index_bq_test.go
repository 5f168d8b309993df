package evec

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBQRequiresBinaryConfig(t *testing.T) {
	idx := newTestIndex(t, 8)
	_, err := idx.InsertBQ([]float32{1, -1, 1, -1, 1, -1, 1, -1})
	require.Error(t, err)
	_, err = idx.SearchBQ([]float32{1, -1, 1, -1, 1, -1, 1, -1}, 3)
	require.Error(t, err)
}

func TestBQInsertAndSearch(t *testing.T) {
	idx := newTestIndex(t, 8, WithBinaryQuantization())
	a, err := idx.InsertBQ([]float32{1, 1, 1, 1, 1, 1, 1, 1})
	require.NoError(t, err)
	b, err := idx.InsertBQ([]float32{-1, -1, -1, -1, -1, -1, -1, -1})
	require.NoError(t, err)

	results, err := idx.SearchBQ([]float32{1, 1, 1, 1, 1, 1, 1, 1}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, a, results[0].VectorID)
	assert.Equal(t, float32(0), results[0].Distance, "identical sign pattern has Hamming distance 0")
	assert.Equal(t, b, results[1].VectorID)
	assert.Equal(t, float32(8), results[1].Distance, "fully flipped pattern differs in every bit")
}

func TestBQRejectsBadDimension(t *testing.T) {
	_, err := New(WithDimension(12), WithBinaryQuantization())
	require.Error(t, err, "binary quantization requires dim to be a multiple of 8")
}

// Mean recall@10 of rescored binary search against exact float search
// over sign vectors, per the BQ rescore scenario: >= 0.90 expected.
func TestBQRescoreRecall(t *testing.T) {
	const (
		dim     = 128
		n       = 500
		queries = 50
		k       = 10
	)
	idx := newTestIndex(t, dim, WithBinaryQuantization(), WithHNSW(16, 32, 128, 128))

	rng := rand.New(rand.NewSource(2024))
	signVec := func() []float32 {
		v := make([]float32, dim)
		for d := range v {
			if rng.Intn(2) == 0 {
				v[d] = -1
			} else {
				v[d] = 1
			}
		}
		return v
	}

	vectors := make(map[uint64][]float32, n)
	for i := 0; i < n; i++ {
		v := signVec()
		id, err := idx.InsertBQ(v)
		require.NoError(t, err)
		vectors[id] = v
	}

	exactTopK := func(q []float32) map[uint64]bool {
		type hit struct {
			id uint64
			d  float32
		}
		hits := make([]hit, 0, n)
		for id, v := range vectors {
			hits = append(hits, hit{id: id, d: exactL2(q, v)})
		}
		sort.Slice(hits, func(i, j int) bool {
			if hits[i].d != hits[j].d {
				return hits[i].d < hits[j].d
			}
			return hits[i].id < hits[j].id
		})
		out := make(map[uint64]bool, k)
		for _, h := range hits[:k] {
			out[h.id] = true
		}
		return out
	}

	var recallSum float64
	for q := 0; q < queries; q++ {
		query := signVec()
		truth := exactTopK(query)

		got, err := idx.SearchBQRescored(query, k, 20)
		require.NoError(t, err)

		matched := 0
		for _, r := range got {
			if truth[r.VectorID] {
				matched++
			}
		}
		recallSum += float64(matched) / float64(k)
	}

	meanRecall := recallSum / queries
	assert.GreaterOrEqual(t, meanRecall, 0.90, "rescoring must recover the recall 1-bit quantization loses")
}
