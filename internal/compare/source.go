package compare

import (
	"context"
	"fmt"

	"github.com/goreulmanhae/compare-api/internal/catalog"
)

// CandidateSource loads candidates by variant id.
type CandidateSource interface {
	// FetchCandidates returns one candidate per id, in id order, or an error
	// wrapping catalog.ErrNotFound naming the ids that do not resolve.
	FetchCandidates(ctx context.Context, ids []int64) ([]Candidate, error)

	// LookupCandidates returns the candidates that still exist among ids, in
	// id order. Unknown ids are silently omitted.
	LookupCandidates(ctx context.Context, ids []int64) ([]Candidate, error)
}

// SpecSource loads a category's stored spec definitions.
type SpecSource interface {
	// FetchCategorySpecs returns the stored specs in order, or catalog.ErrNotFound.
	FetchCategorySpecs(ctx context.Context, categoryID int64) ([]catalog.SpecDefinition, error)
}

// CatalogSource adapts a catalog.Store to CandidateSource and SpecSource.
type CatalogSource struct {
	store catalog.Store
}

// NewCatalogSource creates a CatalogSource reading from store.
func NewCatalogSource(store catalog.Store) *CatalogSource {
	return &CatalogSource{store: store}
}

// FetchCandidates implements CandidateSource.
func (s *CatalogSource) FetchCandidates(ctx context.Context, ids []int64) ([]Candidate, error) {
	candidates, err := s.LookupCandidates(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(candidates) == len(ids) {
		return candidates, nil
	}

	found := make(map[int64]bool, len(candidates))
	for _, c := range candidates {
		found[c.ID] = true
	}
	var missing []int64
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return nil, fmt.Errorf("%w: variants %v", catalog.ErrNotFound, missing)
}

// LookupCandidates implements CandidateSource.
func (s *CatalogSource) LookupCandidates(ctx context.Context, ids []int64) ([]Candidate, error) {
	details, err := s.store.GetVariantDetails(ctx, ids)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, 0, len(details))
	for _, d := range details {
		candidates = append(candidates, CandidateFromDetail(d))
	}
	return candidates, nil
}

// FetchCategorySpecs implements SpecSource.
func (s *CatalogSource) FetchCategorySpecs(ctx context.Context, categoryID int64) ([]catalog.SpecDefinition, error) {
	c, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return catalog.Definitions(c.Specs), nil
}
