package filter

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/evecdb/evec/internal/meta"
)

// EligibleSet is the PreFilter strategy's precomputed membership set: the
// VectorIds whose metadata satisfies an expression, backed by a Roaring
// bitmap so large eligible sets stay compact and membership tests stay
// O(1)-ish regardless of cardinality.
type EligibleSet struct {
	bitmap *roaring.Bitmap
}

// BuildEligibleSet scans every (VectorId, Map) pair and evaluates expr
// against each, returning the ids that satisfy it. VectorIds are uint64
// but roaring.Bitmap is 32-bit; ids above math.MaxUint32 are rejected,
// which is acceptable here since internal/hnsw never allocates VectorIds
// that large in a single process lifetime without an intervening
// compaction that remaps them.
func BuildEligibleSet(expr Expr, all map[uint64]meta.Map) (*EligibleSet, error) {
	expr = Simplify(expr)
	bm := roaring.New()
	for id, m := range all {
		if id > math.MaxUint32 {
			continue
		}
		ok, err := Apply(expr, m)
		if err != nil {
			continue
		}
		if ok {
			bm.Add(uint32(id))
		}
	}
	return &EligibleSet{bitmap: bm}, nil
}

func (e *EligibleSet) Contains(id uint64) bool {
	if id > math.MaxUint32 {
		return false
	}
	return e.bitmap.Contains(uint32(id))
}

func (e *EligibleSet) Len() uint64 { return e.bitmap.GetCardinality() }

// Ids returns the eligible VectorIds in ascending order.
func (e *EligibleSet) Ids() []uint64 {
	out := make([]uint64, 0, e.bitmap.GetCardinality())
	it := e.bitmap.Iterator()
	for it.HasNext() {
		out = append(out, uint64(it.Next()))
	}
	return out
}
