package filter

import (
	"math/rand"
	"sort"

	"github.com/evecdb/evec/internal/meta"
)

// Simplify reduces obvious tautologies and contradictions before
// selectivity estimation and strategy selection, mirroring the algebraic
// shortcuts a query planner applies ahead of cost estimation:
//
//   - NOT (NOT x)            -> x
//   - x AND Literal{true}     -> x,  x AND Literal{false}    -> false
//   - x OR  Literal{true}     -> true, x OR  Literal{false}  -> x
//   - Between{Lo > Hi}        -> false (empty range)
func Simplify(expr Expr) Expr {
	switch e := expr.(type) {
	case *Not:
		inner := Simplify(e.Inner)
		if n, ok := inner.(*Not); ok {
			return n.Inner
		}
		if l, ok := inner.(*Literal); ok {
			return &Literal{Value: !l.Value}
		}
		return &Not{Inner: inner}

	case *And:
		l := Simplify(e.Left)
		r := Simplify(e.Right)
		if lit, ok := l.(*Literal); ok {
			if !lit.Value {
				return &Literal{Value: false}
			}
			return r
		}
		if lit, ok := r.(*Literal); ok {
			if !lit.Value {
				return &Literal{Value: false}
			}
			return l
		}
		return &And{Left: l, Right: r}

	case *Or:
		l := Simplify(e.Left)
		r := Simplify(e.Right)
		if lit, ok := l.(*Literal); ok {
			if lit.Value {
				return &Literal{Value: true}
			}
			return r
		}
		if lit, ok := r.(*Literal); ok {
			if lit.Value {
				return &Literal{Value: true}
			}
			return l
		}
		return &Or{Left: l, Right: r}

	case *Between:
		lo, loOK := numericOf(e.Lo)
		hi, hiOK := numericOf(e.Hi)
		if loOK && hiOK && lo > hi {
			return &Literal{Value: false}
		}
		return e

	default:
		return expr
	}
}

// EstimateSelectivity returns the fraction of the given sample expected to
// satisfy expr, in [0,1]. Logical combinators use the closed-form formulas
// (AND multiplies independent selectivities, OR uses inclusion-exclusion,
// NOT complements); leaves are estimated empirically against the sample.
// An empty sample yields the conservative estimate 1.0 (assume nothing is
// filtered out, steering the strategy selector toward PreFilter).
func EstimateSelectivity(expr Expr, sample []meta.Map) float64 {
	expr = Simplify(expr)
	if len(sample) == 0 {
		return 1.0
	}

	switch e := expr.(type) {
	case *Literal:
		if e.Value {
			return 1.0
		}
		return 0.0

	case *And:
		return EstimateSelectivity(e.Left, sample) * EstimateSelectivity(e.Right, sample)

	case *Or:
		a := EstimateSelectivity(e.Left, sample)
		b := EstimateSelectivity(e.Right, sample)
		return a + b - a*b

	case *Not:
		return 1.0 - EstimateSelectivity(e.Inner, sample)

	default:
		matches := 0
		for _, m := range sample {
			ok, err := Apply(expr, m)
			if err == nil && ok {
				matches++
			}
		}
		return float64(matches) / float64(len(sample))
	}
}

// Estimate pairs a selectivity with a confidence reflecting how much
// metadata backed it: confidence approaches 1 as the sample grows and is
// 0 for an empty sample, where the selectivity itself is the
// conservative 1.0 default.
type Estimate struct {
	Selectivity float64
	Confidence  float64
}

// defaultSampleSize bounds how many metadata entries EstimateWithSample
// scans per leaf. Beyond a few hundred entries the pass-rate estimate's
// standard error is already small relative to the strategy thresholds.
const defaultSampleSize = 256

// EstimateWithSample draws a bounded sample from all (seeded for
// determinism when seed != 0, system-entropy otherwise) and returns the
// estimated selectivity together with a sample-size-driven confidence.
func EstimateWithSample(expr Expr, all map[uint64]meta.Map, seed int64) Estimate {
	sample := SampleMaps(all, defaultSampleSize, seed)
	s := EstimateSelectivity(expr, sample)
	n := len(sample)
	if n == 0 {
		return Estimate{Selectivity: s, Confidence: 0}
	}
	return Estimate{
		Selectivity: s,
		Confidence:  float64(n) / float64(n+16),
	}
}

// SampleMaps returns up to max metadata maps drawn without replacement
// from all. Iteration order over a Go map is randomized, so for a
// deterministic sample the ids are first collected and sorted, then a
// seeded shuffle picks the subset.
func SampleMaps(all map[uint64]meta.Map, max int, seed int64) []meta.Map {
	if len(all) == 0 || max <= 0 {
		return nil
	}
	ids := make([]uint64, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if len(ids) > max {
		var rng *rand.Rand
		if seed != 0 {
			rng = rand.New(rand.NewSource(seed))
		} else {
			rng = rand.New(rand.NewSource(rand.Int63()))
		}
		rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		ids = ids[:max]
	}

	out := make([]meta.Map, 0, len(ids))
	for _, id := range ids {
		out = append(out, all[id])
	}
	return out
}
