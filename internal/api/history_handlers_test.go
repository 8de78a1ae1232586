package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/goreulmanhae/compare-api/internal/catalog"
	"github.com/goreulmanhae/compare-api/internal/compare"
	"github.com/goreulmanhae/compare-api/internal/history"
	"github.com/goreulmanhae/compare-api/internal/middleware"
)

var testTokens = staticResolver{"alice-token": "alice", "bob-token": "bob"}

func newHistoryMux(repo history.Repository, replayer Replayer) *http.ServeMux {
	h := NewHistoryHandlers(repo, replayer)
	requireAuth := middleware.RequireAuth(testTokens)
	mux := http.NewServeMux()
	mux.Handle("GET /histories", requireAuth(http.HandlerFunc(h.List)))
	mux.Handle("GET /histories/{id}", requireAuth(http.HandlerFunc(h.Get)))
	return mux
}

func seedHistory(t *testing.T, repo history.Repository, owner string, n int) []string {
	t.Helper()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = uuid.NewString()
		err := repo.Create(context.Background(), &history.Record{
			ID:           ids[i],
			OwnerUserID:  owner,
			CategoryID:   1,
			Weights:      map[string]float64{"price": 1},
			SpecsSummary: []string{"판매가"},
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
			Scores:       []history.ScoreRow{{VariantID: 100, Score: 0}, {VariantID: 101, Score: 100}},
		})
		if err != nil {
			t.Fatalf("seed history: %v", err)
		}
	}
	return ids
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestHistoryList_Pagination(t *testing.T) {
	repo := history.NewInMemoryRepository()
	ids := seedHistory(t, repo, "alice", 12)
	seedHistory(t, repo, "bob", 3)
	mux := newHistoryMux(repo, nil)

	tests := []struct {
		query     string
		wantLen   int
		wantFirst string
	}{
		{"", 10, ids[11]},
		{"?page=2", 2, ids[1]},
		{"?page=2&limit=5", 5, ids[6]},
		{"?page=abc&limit=zz", 10, ids[11]},
		{"?limit=500", 12, ids[11]},
		{"?page=9", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := doRequest(t, mux, http.MethodGet, "/histories"+tt.query, "", bearer("alice-token"))
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
			}
			var resp HistoryListResponse
			decodeBody(t, w, &resp)
			if resp.TotalCount != 12 {
				t.Errorf("expected totalCount 12, got %d", resp.TotalCount)
			}
			if len(resp.List) != tt.wantLen {
				t.Fatalf("expected %d entries, got %d", tt.wantLen, len(resp.List))
			}
			if tt.wantLen > 0 && resp.List[0].ID != tt.wantFirst {
				t.Errorf("expected newest-first order starting at %s, got %s", tt.wantFirst, resp.List[0].ID)
			}
		})
	}
}

func TestHistoryList_EmptyListIsArray(t *testing.T) {
	mux := newHistoryMux(history.NewInMemoryRepository(), nil)

	w := doRequest(t, mux, http.MethodGet, "/histories", "", bearer("bob-token"))
	if w.Body.String() != "{\"list\":[],\"totalCount\":0}\n" {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestHistory_RequiresAuth(t *testing.T) {
	mux := newHistoryMux(history.NewInMemoryRepository(), nil)

	for name, headers := range map[string]map[string]string{
		"no header":     nil,
		"unknown token": bearer("mallory-token"),
		"basic scheme":  {"Authorization": "Basic YWxpY2U6cHc="},
	} {
		t.Run(name, func(t *testing.T) {
			w := doRequest(t, mux, http.MethodGet, "/histories", "", headers)
			assertErrorCode(t, w, http.StatusUnauthorized, ErrCodeAuthFailed)
		})
	}
}

func TestHistoryGet_Replays(t *testing.T) {
	repo := history.NewInMemoryRepository()
	ids := seedHistory(t, repo, "alice", 1)
	svc := newTestCompareService(catalog.NewInMemoryStore(testSnapshot()), nil)
	mux := newHistoryMux(repo, svc)

	w := doRequest(t, mux, http.MethodGet, "/histories/"+ids[0], "", bearer("alice-token"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var rep compare.Replay
	decodeBody(t, w, &rep)
	if len(rep.RankedData) != 2 || rep.RankedData[0].ID != 101 || rep.RankedData[0].Score != 100 {
		t.Errorf("expected stored ranking, got %+v", rep.RankedData)
	}
	if rep.RankedData[0].DisplayName != "Galaxy Book" {
		t.Errorf("expected current catalog details, got %+v", rep.RankedData[0])
	}
	if rep.Weights["price"] != 1 {
		t.Errorf("expected stored weights, got %v", rep.Weights)
	}
}

func TestHistoryGet_NotFound(t *testing.T) {
	repo := history.NewInMemoryRepository()
	ids := seedHistory(t, repo, "alice", 1)
	svc := newTestCompareService(catalog.NewInMemoryStore(testSnapshot()), nil)
	mux := newHistoryMux(repo, svc)

	tests := map[string]string{
		"foreign record": ids[0],
		"unknown id":     uuid.NewString(),
		"not a uuid":     "42",
	}
	for name, id := range tests {
		t.Run(name, func(t *testing.T) {
			w := doRequest(t, mux, http.MethodGet, "/histories/"+id, "", bearer("bob-token"))
			assertErrorCode(t, w, http.StatusNotFound, ErrCodeNotFound)
		})
	}
}

type failingReplayer struct{}

func (failingReplayer) Replay(ctx context.Context, rec *history.Record) (*compare.Replay, error) {
	return nil, fmt.Errorf("load variants: %w", context.DeadlineExceeded)
}

func TestHistoryGet_ReplayFailure(t *testing.T) {
	repo := history.NewInMemoryRepository()
	ids := seedHistory(t, repo, "alice", 1)
	mux := newHistoryMux(repo, failingReplayer{})

	w := doRequest(t, mux, http.MethodGet, "/histories/"+ids[0], "", bearer("alice-token"))
	assertErrorCode(t, w, http.StatusInternalServerError, ErrCodeInternal)
}
