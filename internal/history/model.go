// Package history persists comparison results of authenticated users so a
// past ranking can be listed and replayed later.
package history

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when a record does not exist or belongs to another user.
var ErrNotFound = errors.New("history record not found")

// Pagination defaults for listing.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// summarySeparator joins spec display names in stored summaries.
const summarySeparator = ", "

// ScoreRow is the score a variant received in one comparison.
type ScoreRow struct {
	VariantID int64 `json:"variant_id"`
	Score     int   `json:"score"`
}

// Record is one immutable comparison snapshot.
type Record struct {
	ID           string             `json:"id"`
	OwnerUserID  string             `json:"owner_user_id"`
	CategoryID   int64              `json:"category_id"`
	Weights      map[string]float64 `json:"weights"`
	SpecsSummary []string           `json:"specs_summary"`
	CreatedAt    time.Time          `json:"created_at"`
	Scores       []ScoreRow         `json:"scores"`
}

// Summary is the list view of a record.
type Summary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	CategoryID   int64     `json:"category_id"`
	SpecsSummary []string  `json:"specs_summary"`
}

// Page selects one page of a listing. Page is 1-based.
type Page struct {
	Page  int
	Limit int
}

// Normalize replaces out-of-range values with defaults and caps the limit.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParsePage reads page and limit query values. Missing, non-numeric or
// non-positive values fall back to defaults; limit is capped at MaxLimit.
func ParsePage(page, limit string) Page {
	var p Page
	if n, err := strconv.Atoi(strings.TrimSpace(page)); err == nil {
		p.Page = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(limit)); err == nil {
		p.Limit = n
	}
	return p.Normalize()
}

// JoinSummary encodes spec names for storage.
func JoinSummary(names []string) string {
	return strings.Join(names, summarySeparator)
}

// SplitSummary decodes a stored summary. An empty summary yields an empty slice.
func SplitSummary(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, summarySeparator)
}

func (r *Record) clone() *Record {
	out := *r
	out.Weights = make(map[string]float64, len(r.Weights))
	for k, v := range r.Weights {
		out.Weights[k] = v
	}
	out.SpecsSummary = append([]string(nil), r.SpecsSummary...)
	out.Scores = append([]ScoreRow(nil), r.Scores...)
	return &out
}
