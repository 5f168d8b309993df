package evec

import (
	"math"

	"github.com/evecdb/evec/internal/errs"
	"github.com/evecdb/evec/internal/filter"
	"github.com/evecdb/evec/internal/hnsw"
	"github.com/evecdb/evec/internal/meta"
)

// SearchFiltered runs a k-NN search restricted to vectors whose metadata
// satisfies filterExpr. The expression is parsed,
// algebraically simplified, and dispatched through one of three
// execution strategies chosen by estimated selectivity:
//
//   - PostFilter: one oversampled graph search, then predicate checks.
//   - PreFilter: evaluate the predicate over all metadata first, then
//     search only the eligible set.
//   - Hybrid: adaptive oversampling with a PreFilter fallback when the
//     candidate pool runs dry.
//
// A contradiction (e.g. `price BETWEEN 100 AND 50`) returns an empty
// result without touching the graph; a tautology degrades to a plain
// Search.
func (idx *Index) SearchFiltered(query []float32, k int, filterExpr string) ([]hnsw.SearchResult, error) {
	if len(query) != idx.cfg.Dimension {
		return nil, errs.DimMismatch(idx.cfg.Dimension, len(query))
	}
	if k <= 0 {
		return nil, nil
	}

	expr, err := filter.Parse(filterExpr)
	if err != nil {
		return nil, err
	}
	expr = filter.Simplify(expr)

	if lit, ok := expr.(*filter.Literal); ok {
		if !lit.Value {
			return nil, nil
		}
		return idx.Search(query, k)
	}

	est := filter.EstimateWithSample(expr, idx.meta.All(), int64(idx.cfg.Seed))
	plan := filter.ChooseStrategy(est.Selectivity, k)

	switch plan.Strategy {
	case filter.PostFilter:
		return idx.searchPostFilter(query, k, expr, plan.Oversample)
	case filter.PreFilter:
		return idx.searchPreFilter(query, k, expr)
	default:
		return idx.searchHybrid(query, k, expr, plan.Oversample)
	}
}

func (idx *Index) matchesFilter(expr filter.Expr, id uint64) bool {
	m := idx.meta.MapFor(id)
	if m == nil {
		m = meta.Map{}
	}
	ok, err := filter.Apply(expr, m)
	return err == nil && ok
}

func (idx *Index) searchPostFilter(query []float32, k int, expr filter.Expr, oversample float64) ([]hnsw.SearchResult, error) {
	fetch := int(math.Ceil(float64(k) * oversample))
	candidates, err := idx.graph.Search(query, fetch)
	if err != nil {
		return nil, err
	}
	out := make([]hnsw.SearchResult, 0, k)
	for _, c := range candidates {
		if !idx.matchesFilter(expr, c.VectorID) {
			continue
		}
		out = append(out, c)
		if len(out) == k {
			break
		}
	}
	return out, nil
}

func (idx *Index) searchPreFilter(query []float32, k int, expr filter.Expr) ([]hnsw.SearchResult, error) {
	eligible, err := filter.BuildEligibleSet(expr, idx.meta.All())
	if err != nil {
		return nil, err
	}
	if eligible.Len() == 0 {
		return nil, nil
	}
	return idx.graph.ExhaustiveSearch(query, k, eligible.Contains)
}

// searchHybrid oversamples adaptively: each round's observed pass rate
// sets the next round's factor, and exhausting the graph's candidate
// pool before k results pass triggers the PreFilter fallback.
func (idx *Index) searchHybrid(query []float32, k int, expr filter.Expr, oversample float64) ([]hnsw.SearchResult, error) {
	for {
		fetch := int(math.Ceil(float64(k) * oversample))
		candidates, err := idx.graph.Search(query, fetch)
		if err != nil {
			return nil, err
		}

		out := make([]hnsw.SearchResult, 0, k)
		passed := 0
		for _, c := range candidates {
			if !idx.matchesFilter(expr, c.VectorID) {
				continue
			}
			passed++
			if len(out) < k {
				out = append(out, c)
			}
		}
		if len(out) == k {
			return out, nil
		}

		// Fewer candidates than requested means the graph itself ran
		// dry; a wider beam cannot help, so switch to PreFilter.
		if len(candidates) < fetch || oversample >= filter.HybridMaxOversample {
			return idx.searchPreFilter(query, k, expr)
		}

		passRate := float64(passed) / float64(len(candidates))
		next := filter.HybridMaxOversample
		if passRate > 0 {
			next = 1.2 / passRate
		}
		if next <= oversample {
			next = oversample * 2
		}
		if next > filter.HybridMaxOversample {
			next = filter.HybridMaxOversample
		}
		oversample = next
	}
}
