package compare

import (
	"math"
	"sort"

	"github.com/goreulmanhae/compare-api/internal/catalog"
)

// epsilon is the smallest value treated as non-zero for lower-is-better specs.
const epsilon = 0.00001

// fallbackRange applies to weighted keys without a spec definition.
var fallbackRange = Range{Min: 0, Max: 1}

// Normalize maps v into [0,1] relative to r for the given orientation.
// A range with no spread normalizes every value to 1.
func Normalize(v float64, r Range, orientation catalog.Orientation) float64 {
	if r.Max == r.Min {
		return 1
	}

	var n float64
	if orientation == catalog.OrientationNegative {
		if v > epsilon {
			n = r.Min / v
		} else {
			n = 1
		}
	} else if r.Max > 0 {
		n = v / r.Max
	}

	return math.Min(math.Max(n, 0), 1)
}

// activeWeights returns the keys with a positive finite weight, sorted so
// that floating point accumulation is deterministic.
func activeWeights(weights WeightVector) []string {
	keys := make([]string, 0, len(weights))
	for k, w := range weights {
		if w > 0 && !math.IsInf(w, 1) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Score computes a candidate's 0..100 match score as the weighted mean of
// its normalized spec values. Keys with a zero, negative or absent weight do
// not count; a candidate with no positive weight scores 0. Unknown keys are
// treated as higher-is-better.
func Score(c Candidate, specs []catalog.SpecDefinition, ranges map[string]Range, weights WeightVector) int {
	return scoreKeys(c, specs, ranges, weights, activeWeights(weights))
}

// maxWeight returns the largest weight among keys.
func maxWeight(weights WeightVector, keys []string) float64 {
	var m float64
	for _, key := range keys {
		m = math.Max(m, weights[key])
	}
	return m
}

func scoreKeys(c Candidate, specs []catalog.SpecDefinition, ranges map[string]Range, weights WeightVector, keys []string) int {
	// Weights are scaled into (0,1] so that sums of large finite weights
	// cannot overflow to +Inf.
	scale := maxWeight(weights, keys)
	if scale <= 0 {
		return 0
	}

	var totalScore, totalWeight float64
	for _, key := range keys {
		w := weights[key] / scale

		orientation := catalog.OrientationPositive
		if spec, ok := findSpec(specs, key); ok {
			orientation = spec.Orientation
		}
		r, ok := ranges[key]
		if !ok {
			r = fallbackRange
		}

		totalScore += Normalize(NumericValue(key, c.Attributes), r, orientation) * w
		totalWeight += w
	}

	mean := totalScore / totalWeight
	if totalWeight <= 0 || math.IsNaN(mean) || math.IsInf(mean, 0) {
		return 0
	}
	// math.Round rounds half away from zero; inputs here are never negative.
	return int(math.Round(math.Min(math.Max(mean, 0), 1) * 100))
}

// ScoreAll scores every candidate, preserving input order.
func ScoreAll(candidates []Candidate, specs []catalog.SpecDefinition, ranges map[string]Range, weights WeightVector) []ScoredCandidate {
	keys := activeWeights(weights)
	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, ScoredCandidate{
			Candidate: c,
			Score:     scoreKeys(c, specs, ranges, weights, keys),
		})
	}
	return scored
}
