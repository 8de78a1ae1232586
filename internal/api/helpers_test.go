package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goreulmanhae/compare-api/internal/catalog"
	"github.com/goreulmanhae/compare-api/internal/compare"
)

func int64Ptr(v int64) *int64 { return &v }

func testSnapshot() catalog.Snapshot {
	return catalog.Snapshot{
		Categories: []catalog.Category{
			{ID: 2, Slug: "monitor", Name: "모니터", Specs: []catalog.SpecRecord{
				{EngName: "size", KorName: "크기", Unit: "inch", IsPositive: true},
			}},
			{ID: 1, Slug: "laptop", Name: "노트북", Specs: []catalog.SpecRecord{
				{EngName: "battery", KorName: "배터리", Unit: "mAh", IsPositive: true},
				{EngName: "weight", KorName: "무게", Unit: "kg"},
			}},
		},
		Makers: []catalog.Maker{{ID: 1, Name: "Samsung"}, {ID: 2, Name: "LG"}},
		Products: []catalog.Product{
			{ID: 10, CategoryID: 1, MakerID: int64Ptr(1), Name: "Galaxy Book", CommonSpecs: catalog.AttributeMap{"weight": 1.2}},
			{ID: 11, CategoryID: 1, MakerID: int64Ptr(2), Name: "Gram", CommonSpecs: catalog.AttributeMap{"weight": 1.0}},
			{ID: 20, CategoryID: 2, MakerID: int64Ptr(2), Name: "UltraGear", CommonSpecs: catalog.AttributeMap{"size": 27}},
		},
		Variants: []catalog.Variant{
			{ID: 100, ProductID: 10, VariantName: "16GB", Price: 200, OptionSpecs: catalog.AttributeMap{"battery": 3000}},
			{ID: 101, ProductID: 10, VariantName: "8GB", Price: 100, OptionSpecs: catalog.AttributeMap{"battery": 3000}},
			{ID: 102, ProductID: 11, VariantName: "Base", Price: 150, OptionSpecs: catalog.AttributeMap{"battery": 5000}},
		},
	}
}

func newTestCompareService(store catalog.Store, d compare.HistoryDispatcher) *compare.Service {
	src := compare.NewCatalogSource(store)
	return compare.NewService(src, src, compare.ServiceConfig{History: d})
}

func doRequest(t *testing.T, h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Errorf("expected status %d, got %d (body %s)", status, w.Code, w.Body.String())
	}
	var resp ErrorResponse
	decodeBody(t, w, &resp)
	if resp.Error.Code != code {
		t.Errorf("expected error code %s, got %s", code, resp.Error.Code)
	}
}

// staticResolver maps fixed tokens to user ids.
type staticResolver map[string]string

func (s staticResolver) ResolveIdentity(ctx context.Context, token string) (string, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}
