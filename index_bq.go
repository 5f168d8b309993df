package evec

import (
	"sort"

	"github.com/evecdb/evec/internal/errs"
	"github.com/evecdb/evec/internal/hnsw"
)

// InsertBQ inserts v into a binary-quantized Index (constructed with
// WithBinaryQuantization), caching the original float vector so
// SearchBQRescored can later recover the precision 1-bit quantization
// loses. It is an error to call InsertBQ on an Index that was not
// configured for binary quantization.
func (idx *Index) InsertBQ(v []float32) (uint64, error) {
	if !idx.cfg.QuantizeBinary {
		return 0, errs.New(errs.Unknown, "InsertBQ requires an Index constructed with WithBinaryQuantization")
	}
	id, err := idx.Insert(v)
	if err != nil {
		return 0, err
	}
	original := make([]float32, len(v))
	copy(original, v)
	idx.bqOriginals[id] = original
	return id, nil
}

// SearchBQ quantizes the query to its ±1 sign form and runs the
// unfiltered top-level search over the Hamming-routed binary-quantized
// graph. Distances returned are the Hamming bit
// distance (as float32), since both sides of every comparison are sign
// vectors.
func (idx *Index) SearchBQ(query []float32, k int) ([]hnsw.SearchResult, error) {
	if !idx.cfg.QuantizeBinary {
		return nil, errs.New(errs.Unknown, "SearchBQ requires an Index constructed with WithBinaryQuantization")
	}
	return idx.Search(signQuery(query), k)
}

// signQuery maps each component to ±1, the same quantization Insert
// applies on the storage side, so graph routing compares sign vectors
// against sign vectors and the HammingSign metric yields true bit
// distances.
func signQuery(q []float32) []float32 {
	out := make([]float32, len(q))
	for i, x := range q {
		if x > 0 {
			out[i] = 1
		} else {
			out[i] = -1
		}
	}
	return out
}

// SearchBQRescored fetches k*rescoreFactor BQ candidates, computes exact
// float distances against the original (pre-quantization) vectors, and
// re-ranks to emit the true top-k by float distance — recovering the
// recall 1-bit quantization loses at the cost of a float pass over a
// small candidate set. rescoreFactor must be >= 1.
func (idx *Index) SearchBQRescored(query []float32, k int, rescoreFactor int) ([]hnsw.SearchResult, error) {
	if !idx.cfg.QuantizeBinary {
		return nil, errs.New(errs.Unknown, "SearchBQRescored requires an Index constructed with WithBinaryQuantization")
	}
	if rescoreFactor < 1 {
		rescoreFactor = 1
	}

	candidates, err := idx.Search(signQuery(query), k*rescoreFactor)
	if err != nil {
		return nil, err
	}

	rescored := make([]hnsw.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		vec, err := idx.bqVectorFor(c.VectorID)
		if err != nil {
			return nil, err
		}
		rescored = append(rescored, hnsw.SearchResult{
			VectorID: c.VectorID,
			Distance: exactL2(query, vec),
		})
	}

	sort.Slice(rescored, func(i, j int) bool { return rescored[i].Distance < rescored[j].Distance })
	if len(rescored) > k {
		rescored = rescored[:k]
	}
	return rescored, nil
}

// bqVectorFor returns id's cached original float vector, falling back to
// the lossy ±1 sign reconstruction when no original was cached (e.g.
// after a Save/Load round trip, which does not persist originals).
func (idx *Index) bqVectorFor(id uint64) ([]float32, error) {
	if v, ok := idx.bqOriginals[id]; ok {
		return v, nil
	}
	slot, ok := idx.graph.VectorSlot(id)
	if !ok {
		return nil, errs.Newf(errs.IdNotFound, "vector id %d not found", id)
	}
	return idx.storage.Get(slot)
}

func exactL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
