// Package compare implements the multi-criteria scoring engine that ranks
// product variants against user-weighted category specs, and the service
// that feeds it from the catalog and hands results to history recording.
package compare

import (
	"errors"
	"fmt"

	"github.com/goreulmanhae/compare-api/internal/catalog"
)

// Errors reported by the engine and the comparison service.
var (
	// ErrInvalidRequest marks requests rejected before any data is fetched.
	ErrInvalidRequest = errors.New("invalid comparison request")

	// ErrTooFewCandidates is returned when fewer than two distinct candidates are supplied.
	ErrTooFewCandidates = fmt.Errorf("%w: at least two distinct candidates are required", ErrInvalidRequest)
)

// MinCandidates is the smallest candidate set that can be compared.
const MinCandidates = 2

// Candidate is one product variant under evaluation.
type Candidate struct {
	ID           int64                `json:"id"`
	DisplayName  string               `json:"display_name"`
	VariantLabel string               `json:"variant_label"`
	Brand        string               `json:"brand"`
	ImageURL     string               `json:"image_url"`
	Price        float64              `json:"price"`
	Attributes   catalog.AttributeMap `json:"attributes"`
}

// WeightVector maps a spec key to a non-negative importance weight.
// A zero or absent weight excludes the spec from scoring.
type WeightVector map[string]float64

// Range is the observed spread of one spec across a candidate set.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ScoredCandidate is a Candidate with its 0..100 match score.
type ScoredCandidate struct {
	Candidate
	Score int `json:"score"`
}

// Result is the ranked output of one comparison.
type Result struct {
	RankedData      []ScoredCandidate        `json:"rankedData"`
	SpecDefinitions []catalog.SpecDefinition `json:"specDefinitions"`
}
