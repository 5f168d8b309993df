package filter

import "math"

// Strategy is the chosen execution plan for a filtered search.
type Strategy int

const (
	// PostFilter runs an oversampled ANN search first, then drops
	// non-matching results.
	PostFilter Strategy = iota
	// PreFilter evaluates the predicate over all metadata up front to
	// produce an eligible-id set, then runs a membership-restricted
	// search over that set.
	PreFilter
	// Hybrid oversamples adaptively between HybridMinOversample and
	// HybridMaxOversample, falling back to PreFilter when the candidate
	// pool is exhausted before k results pass.
	Hybrid
)

func (s Strategy) String() string {
	switch s {
	case PostFilter:
		return "PostFilter"
	case PreFilter:
		return "PreFilter"
	default:
		return "Hybrid"
	}
}

const (
	postFilterThreshold = 0.05
	preFilterThreshold  = 0.80

	// HybridMinOversample and HybridMaxOversample bound Hybrid's
	// adaptive oversample factor.
	HybridMinOversample = 1.5
	HybridMaxOversample = 10.0

	// maxPostFilterOversample caps PostFilter's ceil(1/s) so a near-zero
	// selectivity estimate cannot request an absurd candidate pool.
	maxPostFilterOversample = 100.0
)

// Plan bundles the chosen strategy with its oversample factor
// (meaningful only for PostFilter and Hybrid).
type Plan struct {
	Strategy   Strategy
	Oversample float64
}

// ChooseStrategy maps an estimated selectivity to an execution plan:
// below postFilterThreshold the predicate is so
// selective that a heavily-oversampled single search beats scanning all
// metadata, so PostFilter runs with oversample ceil(1/s) capped; above
// preFilterThreshold almost everything matches and the eligible-id set
// is cheap to build and nearly complete, so PreFilter restricts the
// search exactly; in between, Hybrid oversamples by 1/s clamped to
// [HybridMinOversample, HybridMaxOversample].
func ChooseStrategy(selectivity float64, k int) Plan {
	switch {
	case selectivity < postFilterThreshold:
		return Plan{Strategy: PostFilter, Oversample: postFilterOversample(selectivity)}
	case selectivity > preFilterThreshold:
		return Plan{Strategy: PreFilter}
	default:
		return Plan{Strategy: Hybrid, Oversample: hybridOversample(selectivity)}
	}
}

// postFilterOversample is ceil(1/s), capped.
func postFilterOversample(s float64) float64 {
	if s <= 0 {
		return maxPostFilterOversample
	}
	v := math.Ceil(1.0 / s)
	if v > maxPostFilterOversample {
		return maxPostFilterOversample
	}
	if v < 1 {
		return 1
	}
	return v
}

// hybridOversample is 1/s clamped to [HybridMinOversample, HybridMaxOversample].
func hybridOversample(s float64) float64 {
	if s <= 0 {
		return HybridMaxOversample
	}
	v := 1.0 / s
	if v < HybridMinOversample {
		return HybridMinOversample
	}
	if v > HybridMaxOversample {
		return HybridMaxOversample
	}
	return v
}
