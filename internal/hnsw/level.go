package hnsw

import "math"

// drawLevel samples level = floor(-ln(u) * lambda), u ~ Uniform(0,1),
// clamped to [0, maxLevelCap]. lambda = 1/ln(M).
func drawLevel(rng interface{ Float64() float64 }, lambda float64) int {
	u := rng.Float64()
	for u <= 0 {
		u = rng.Float64()
	}
	level := int(math.Floor(-math.Log(u) * lambda))
	if level > maxLevelCap {
		level = maxLevelCap
	}
	if level < 0 {
		level = 0
	}
	return level
}
