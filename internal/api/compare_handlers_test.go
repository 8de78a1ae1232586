package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/goreulmanhae/compare-api/internal/catalog"
	"github.com/goreulmanhae/compare-api/internal/compare"
	"github.com/goreulmanhae/compare-api/internal/middleware"
)

// captureComparer records the request it was given.
type captureComparer struct {
	got compare.Request
	res *compare.Result
	err error
}

func (c *captureComparer) Compare(ctx context.Context, req compare.Request) (*compare.Result, error) {
	c.got = req
	return c.res, c.err
}

func TestCalculate_RanksCandidates(t *testing.T) {
	svc := newTestCompareService(catalog.NewInMemoryStore(testSnapshot()), nil)
	h := http.HandlerFunc(NewCompareHandlers(svc).Calculate)

	w := doRequest(t, h, http.MethodPost, "/products/calculate",
		`{"selectedVariantIds":[100,101,102],"weights":{"price":1},"categoryId":1}`, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res compare.Result
	decodeBody(t, w, &res)

	wantOrder := []int64{101, 102, 100}
	if len(res.RankedData) != len(wantOrder) {
		t.Fatalf("expected %d candidates, got %+v", len(wantOrder), res.RankedData)
	}
	for i, id := range wantOrder {
		if res.RankedData[i].ID != id {
			t.Errorf("position %d: expected %d, got %d", i, id, res.RankedData[i].ID)
		}
	}
	if res.RankedData[0].Score != 100 {
		t.Errorf("cheapest variant should score 100, got %d", res.RankedData[0].Score)
	}
	if res.SpecDefinitions[0].Key != "price" {
		t.Errorf("price should lead the spec definitions, got %+v", res.SpecDefinitions)
	}
}

func TestCalculate_PassesIdentityThrough(t *testing.T) {
	c := &captureComparer{res: &compare.Result{}}
	h := middleware.RequestID(http.HandlerFunc(NewCompareHandlers(c).Calculate))

	w := doRequest(t, h, http.MethodPost, "/products/calculate",
		`{"selectedVariantIds":[1,2,1],"weights":{"price":0.5},"categoryId":3}`,
		map[string]string{"Authorization": "Bearer abc.def", "X-Request-ID": "req-42"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if c.got.IdentityToken != "abc.def" || c.got.RequestID != "req-42" {
		t.Errorf("unexpected identity/request id: %+v", c.got)
	}
	if len(c.got.CandidateIDs) != 3 || c.got.CategoryID != 3 || c.got.Weights["price"] != 0.5 {
		t.Errorf("request not forwarded as sent: %+v", c.got)
	}
}

func TestCalculate_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
		wantMsg  string
	}{
		{"malformed json", `{"selectedVariantIds":`, ErrCodeBadRequest, "Invalid JSON"},
		{"two objects", `{"selectedVariantIds":[1,2],"weights":{},"categoryId":1} {}`, ErrCodeBadRequest, "single JSON object"},
		{"missing ids", `{"weights":{},"categoryId":1}`, ErrCodeValidation, "selectedVariantIds is required"},
		{"one id", `{"selectedVariantIds":[1],"weights":{},"categoryId":1}`, ErrCodeValidation, "at least 2"},
		{"zero id", `{"selectedVariantIds":[1,0],"weights":{},"categoryId":1}`, ErrCodeValidation, "greater than 0"},
		{"missing weights", `{"selectedVariantIds":[1,2],"categoryId":1}`, ErrCodeValidation, "weights is required"},
		{"negative weight", `{"selectedVariantIds":[1,2],"weights":{"price":-1},"categoryId":1}`, ErrCodeValidation, "at least 0"},
		{"huge weight", `{"selectedVariantIds":[1,2],"weights":{"price":1e7},"categoryId":1}`, ErrCodeValidation, "at most"},
		{"missing category", `{"selectedVariantIds":[1,2],"weights":{}}`, ErrCodeValidation, "categoryId is required"},
		{"duplicate ids collapse", `{"selectedVariantIds":[100,100],"weights":{},"categoryId":1}`, ErrCodeValidation, "two distinct"},
	}

	svc := newTestCompareService(catalog.NewInMemoryStore(testSnapshot()), nil)
	h := http.HandlerFunc(NewCompareHandlers(svc).Calculate)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, h, http.MethodPost, "/products/calculate", tt.body, nil)
			assertErrorCode(t, w, http.StatusBadRequest, tt.wantCode)
			if !strings.Contains(w.Body.String(), tt.wantMsg) {
				t.Errorf("expected message containing %q, got %s", tt.wantMsg, w.Body.String())
			}
		})
	}
}

func TestCalculate_UnknownReferences(t *testing.T) {
	svc := newTestCompareService(catalog.NewInMemoryStore(testSnapshot()), nil)
	h := http.HandlerFunc(NewCompareHandlers(svc).Calculate)

	for name, body := range map[string]string{
		"unknown variant":  `{"selectedVariantIds":[100,999],"weights":{},"categoryId":1}`,
		"unknown category": `{"selectedVariantIds":[100,101],"weights":{},"categoryId":77}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := doRequest(t, h, http.MethodPost, "/products/calculate", body, nil)
			assertErrorCode(t, w, http.StatusNotFound, ErrCodeNotFound)
		})
	}
}

func TestCalculate_InternalError(t *testing.T) {
	c := &captureComparer{err: errors.New("database is on fire")}
	h := http.HandlerFunc(NewCompareHandlers(c).Calculate)

	w := doRequest(t, h, http.MethodPost, "/products/calculate",
		`{"selectedVariantIds":[1,2],"weights":{},"categoryId":1}`, nil)

	assertErrorCode(t, w, http.StatusInternalServerError, ErrCodeInternal)
	if strings.Contains(w.Body.String(), "fire") {
		t.Errorf("internal detail leaked: %s", w.Body.String())
	}
}
