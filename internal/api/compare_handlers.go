package api

import (
	"context"
	"net/http"

	"github.com/goreulmanhae/compare-api/internal/compare"
	"github.com/goreulmanhae/compare-api/internal/middleware"
)

// CalculateRequest is the body of POST /products/calculate. Weights are
// capped at 1e6 each.
type CalculateRequest struct {
	SelectedVariantIDs []int64            `json:"selectedVariantIds" validate:"required,min=2,dive,gt=0"`
	Weights            map[string]float64 `json:"weights" validate:"required,dive,keys,required,endkeys,gte=0,lte=1000000"`
	CategoryID         int64              `json:"categoryId" validate:"required,gt=0"`
}

// Comparer runs comparisons.
type Comparer interface {
	Compare(ctx context.Context, req compare.Request) (*compare.Result, error)
}

// CompareHandlers serves the comparison endpoint.
type CompareHandlers struct {
	comparer Comparer
}

// NewCompareHandlers creates a new CompareHandlers instance.
func NewCompareHandlers(comparer Comparer) *CompareHandlers {
	return &CompareHandlers{comparer: comparer}
}

// Calculate handles POST /products/calculate.
//
// The bearer token, when present, is passed through untouched: identity is
// resolved later by history recording and never affects the ranking.
func (h *CompareHandlers) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.comparer.Compare(r.Context(), compare.Request{
		CandidateIDs:  req.SelectedVariantIDs,
		Weights:       compare.WeightVector(req.Weights),
		CategoryID:    req.CategoryID,
		IdentityToken: middleware.BearerToken(r),
		RequestID:     middleware.GetRequestID(r.Context()),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}
