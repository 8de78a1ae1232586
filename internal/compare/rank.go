package compare

import (
	"sort"

	"github.com/goreulmanhae/compare-api/internal/catalog"
)

// Rank sorts scored candidates by descending score in place and returns them.
// Equal scores keep their input order.
func Rank(scored []ScoredCandidate) []ScoredCandidate {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// Compute runs the full engine over one candidate set: it resolves the
// category's specs, measures per-spec ranges across the candidates, scores
// each candidate and ranks them. It is pure and performs no I/O.
func Compute(stored []catalog.SpecDefinition, candidates []Candidate, weights WeightVector) (*Result, error) {
	if len(candidates) < MinCandidates {
		return nil, ErrTooFewCandidates
	}

	specs := ResolveSpecs(stored)
	ranges := ComputeRanges(specs, candidates)
	ranked := Rank(ScoreAll(candidates, specs, ranges, weights))

	return &Result{
		RankedData:      ranked,
		SpecDefinitions: specs,
	}, nil
}
