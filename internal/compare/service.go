package compare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/goreulmanhae/compare-api/internal/catalog"
	"github.com/goreulmanhae/compare-api/internal/history"
	"github.com/goreulmanhae/compare-api/internal/tracing"
)

// HistoryDispatcher hands a finished comparison to background recording.
type HistoryDispatcher interface {
	Dispatch(ctx context.Context, e history.Entry)
}

// Request is one comparison request.
type Request struct {
	CandidateIDs []int64
	Weights      WeightVector
	CategoryID   int64
	// IdentityToken is the caller's bearer token; empty for anonymous callers.
	IdentityToken string
	RequestID     string
}

// Replay is a stored comparison rebuilt against current catalog data.
type Replay struct {
	RankedData      []ScoredCandidate        `json:"rankedData"`
	SpecDefinitions []catalog.SpecDefinition `json:"specDefinitions"`
	Weights         WeightVector             `json:"weights"`
	CreatedAt       time.Time                `json:"created_at"`
}

// ServiceConfig configures a Service. All fields are optional.
type ServiceConfig struct {
	History HistoryDispatcher
	Metrics *Metrics
	Logger  *slog.Logger
}

// Service runs comparisons over catalog data.
type Service struct {
	candidates CandidateSource
	specs      SpecSource
	history    HistoryDispatcher
	metrics    *Metrics
	logger     *slog.Logger
}

// NewService creates a comparison Service.
func NewService(candidates CandidateSource, specs SpecSource, cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		candidates: candidates,
		specs:      specs,
		history:    cfg.History,
		metrics:    cfg.Metrics,
		logger:     logger,
	}
}

// DedupeIDs removes repeated ids, keeping the first occurrence.
func DedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Validate checks the request shape and returns the distinct candidate ids.
func (r Request) Validate() ([]int64, error) {
	if r.CategoryID <= 0 {
		return nil, fmt.Errorf("%w: categoryId must be positive", ErrInvalidRequest)
	}
	for key, w := range r.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("%w: weight for %q must be a non-negative number", ErrInvalidRequest, key)
		}
	}
	ids := DedupeIDs(r.CandidateIDs)
	if len(ids) < MinCandidates {
		return nil, ErrTooFewCandidates
	}
	return ids, nil
}

// Compare fetches the requested candidates and the category's specs, ranks
// the candidates and, for identified callers, dispatches the result to
// history recording. Recording never affects the returned result.
func (s *Service) Compare(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	ctx, endSpan := tracing.StartSpan(ctx, "compare.compare",
		attribute.Int64("compare.category_id", req.CategoryID),
		attribute.Int("compare.requested", len(req.CandidateIDs)),
	)
	var distinct int
	defer func() {
		endSpan(err)
		s.metrics.observe(outcomeOf(err), time.Since(start).Seconds(), distinct)
	}()

	ids, err := req.Validate()
	if err != nil {
		return nil, err
	}
	distinct = len(ids)

	var (
		candidates []Candidate
		stored     []catalog.SpecDefinition
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.candidates.FetchCandidates(gctx, ids)
		if err != nil {
			return fmt.Errorf("failed to fetch candidates: %w", err)
		}
		candidates = c
		return nil
	})
	g.Go(func() error {
		specs, err := s.specs.FetchCategorySpecs(gctx, req.CategoryID)
		if err != nil {
			return fmt.Errorf("failed to fetch category %d specs: %w", req.CategoryID, err)
		}
		stored = specs
		return nil
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}

	res, err = Compute(stored, candidates, req.Weights)
	if err != nil {
		return nil, err
	}
	tracing.AddEvent(ctx, "compare.ranked", attribute.Int("compare.candidates", len(res.RankedData)))

	s.dispatch(ctx, req, res)
	return res, nil
}

func (s *Service) dispatch(ctx context.Context, req Request, res *Result) {
	if s.history == nil || req.IdentityToken == "" {
		return
	}

	scores := make([]history.ScoreRow, 0, len(res.RankedData))
	for _, c := range res.RankedData {
		scores = append(scores, history.ScoreRow{VariantID: c.ID, Score: c.Score})
	}
	weights := make(map[string]float64, len(req.Weights))
	for k, v := range req.Weights {
		weights[k] = v
	}

	s.history.Dispatch(ctx, history.Entry{
		Token:        req.IdentityToken,
		CategoryID:   req.CategoryID,
		Weights:      weights,
		SpecsSummary: SpecsSummary(res.SpecDefinitions, req.Weights),
		Scores:       scores,
		RequestID:    req.RequestID,
	})
}

// SpecsSummary lists the display names of the specs that carried a positive
// weight, in resolved spec order.
func SpecsSummary(specs []catalog.SpecDefinition, weights WeightVector) []string {
	names := []string{}
	for _, spec := range specs {
		if w := weights[spec.Key]; w > 0 && !math.IsInf(w, 1) {
			names = append(names, spec.DisplayName)
		}
	}
	return names
}

// Replay rebuilds a stored comparison. Stored scores are kept as recorded
// and ordered by descending score; candidate details come from the current
// catalog. Variants removed since the record was created are skipped.
func (s *Service) Replay(ctx context.Context, rec *history.Record) (rep *Replay, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "compare.replay",
		attribute.String("history.id", rec.ID),
		attribute.Int64("compare.category_id", rec.CategoryID),
	)
	defer func() { endSpan(err) }()

	rows := append([]history.ScoreRow(nil), rec.Scores...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Score > rows[j].Score })

	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.VariantID)
	}

	var (
		candidates []Candidate
		stored     []catalog.SpecDefinition
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.candidates.LookupCandidates(gctx, ids)
		if err != nil {
			return fmt.Errorf("failed to load history candidates: %w", err)
		}
		candidates = c
		return nil
	})
	g.Go(func() error {
		specs, err := s.specs.FetchCategorySpecs(gctx, rec.CategoryID)
		if errors.Is(err, catalog.ErrNotFound) {
			s.logger.WarnContext(gctx, "history category no longer exists",
				"history_id", rec.ID,
				"category_id", rec.CategoryID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to fetch category %d specs: %w", rec.CategoryID, err)
		}
		stored = specs
		return nil
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[int64]Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	ranked := make([]ScoredCandidate, 0, len(rows))
	for _, r := range rows {
		c, ok := byID[r.VariantID]
		if !ok {
			s.logger.WarnContext(ctx, "history variant no longer exists",
				"history_id", rec.ID,
				"variant_id", r.VariantID)
			continue
		}
		ranked = append(ranked, ScoredCandidate{Candidate: c, Score: r.Score})
	}

	weights := make(WeightVector, len(rec.Weights))
	for k, v := range rec.Weights {
		weights[k] = v
	}

	return &Replay{
		RankedData:      ranked,
		SpecDefinitions: ResolveSpecs(stored),
		Weights:         weights,
		CreatedAt:       rec.CreatedAt,
	}, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrInvalidRequest):
		return OutcomeInvalid
	case errors.Is(err, catalog.ErrNotFound):
		return OutcomeNotFound
	default:
		return OutcomeError
	}
}
