package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goreulmanhae/compare-api/internal/config"
	"github.com/goreulmanhae/compare-api/internal/jobs"
)

const seedJSON = `{
  "categories": [{"id": 1, "slug": "laptop", "name": "노트북", "specs": []}],
  "makers": [],
  "products": [{"id": 10, "category_id": 1, "name": "Gram", "image_url": "", "common_specs": {}}],
  "variants": [{"id": 100, "product_id": 10, "variant_name": "Base", "price": 10, "option_specs": {}}]
}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestOpenStores_InMemoryWithSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(seedJSON), 0o600); err != nil {
		t.Fatal(err)
	}

	metrics := jobs.NewMetrics()
	st, err := openStores(context.Background(), &config.Config{}, path, metrics, testLogger())
	if err != nil {
		t.Fatalf("openStores: %v", err)
	}
	defer st.close()

	categories, err := st.catalog.ListCategories(context.Background())
	if err != nil || len(categories) != 1 {
		t.Errorf("expected seeded category, got %v %v", categories, err)
	}
	if len(st.checkers) != 0 {
		t.Errorf("in-memory stores need no readiness checks, got %v", st.checkers)
	}
	if got := testutil.CollectAndCount(metrics.Collectors()[0]); got != 1 {
		t.Errorf("expected one catalog_seed job sample, got %d", got)
	}
}

func TestOpenStores_BadSeed(t *testing.T) {
	_, err := openStores(context.Background(), &config.Config{}, filepath.Join(t.TempDir(), "missing.json"), nil, testLogger())
	if err == nil {
		t.Error("expected error for missing seed file")
	}
}

func TestOpenStores_SQLite(t *testing.T) {
	cfg := &config.Config{DatabaseURL: "sqlite://" + filepath.Join(t.TempDir(), "compare.db")}

	st, err := openStores(context.Background(), cfg, "", nil, testLogger())
	if err != nil {
		t.Fatalf("openStores: %v", err)
	}
	defer st.close()

	if _, ok := st.checkers["database"]; !ok {
		t.Error("expected a database readiness check")
	}
	if err := st.checkers["database"].HealthCheck(context.Background()); err != nil {
		t.Errorf("database check: %v", err)
	}
	exists, err := st.accounts.UsernameExists(context.Background(), "nobody")
	if err != nil || exists {
		t.Errorf("UsernameExists on empty schema = %v, %v", exists, err)
	}
}

func TestOpenStores_SeedRequiresInMemory(t *testing.T) {
	cfg := &config.Config{DatabaseURL: "sqlite://" + filepath.Join(t.TempDir(), "compare.db")}
	if _, err := openStores(context.Background(), cfg, "seed.json", nil, testLogger()); err == nil {
		t.Error("expected -seed to be rejected with a database")
	}
}
