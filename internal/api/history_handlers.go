package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/goreulmanhae/compare-api/internal/compare"
	"github.com/goreulmanhae/compare-api/internal/history"
	"github.com/goreulmanhae/compare-api/internal/middleware"
)

// Replayer rebuilds a stored comparison against current catalog data.
type Replayer interface {
	Replay(ctx context.Context, rec *history.Record) (*compare.Replay, error)
}

// HistoryListResponse is the body of GET /histories.
type HistoryListResponse struct {
	List       []history.Summary `json:"list"`
	TotalCount int               `json:"totalCount"`
}

// HistoryHandlers serves a user's comparison history. Routes must be wrapped
// in middleware.RequireAuth.
type HistoryHandlers struct {
	repo     history.Repository
	replayer Replayer
}

// NewHistoryHandlers creates a new HistoryHandlers instance.
func NewHistoryHandlers(repo history.Repository, replayer Replayer) *HistoryHandlers {
	return &HistoryHandlers{repo: repo, replayer: replayer}
}

// List handles GET /histories?page=&limit=.
func (h *HistoryHandlers) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page := history.ParsePage(q.Get("page"), q.Get("limit"))

	list, total, err := h.repo.ListByOwner(r.Context(), userID, page)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if list == nil {
		list = []history.Summary{}
	}
	writeJSON(w, r, http.StatusOK, HistoryListResponse{List: list, TotalCount: total})
}

// Get handles GET /histories/{id} and replays the stored comparison.
func (h *HistoryHandlers) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		// Not a key we could have issued.
		writeErrorCode(w, r, http.StatusNotFound, ErrCodeNotFound, history.ErrNotFound.Error())
		return
	}

	rec, err := h.repo.GetForOwner(r.Context(), id, userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	replay, err := h.replayer.Replay(r.Context(), rec)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, replay)
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeErrorCode(w, r, http.StatusUnauthorized, ErrCodeAuthFailed, "A valid bearer token is required")
		return "", false
	}
	return userID, true
}
