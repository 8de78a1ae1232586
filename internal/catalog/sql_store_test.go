package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/goreulmanhae/compare-api/internal/db"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	ctx := context.Background()

	database, err := db.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func TestSQLStore(t *testing.T) {
	s := NewSQLStore(openTestDB(t), nil)
	if err := s.Seed(context.Background(), sampleSnapshot()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	storeContract(t, s)
}

func TestSQLStore_SeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewSQLStore(openTestDB(t), nil)

	snap := sampleSnapshot()
	if err := s.Seed(ctx, snap); err != nil {
		t.Fatalf("first Seed: %v", err)
	}
	snap.Variants[0].Price = 1900000
	if err := s.Seed(ctx, snap); err != nil {
		t.Fatalf("second Seed: %v", err)
	}

	variants, err := s.ListVariants(ctx, 100)
	if err != nil {
		t.Fatalf("ListVariants: %v", err)
	}
	if len(variants) != 2 {
		t.Fatalf("expected 2 variants after reseed, got %d", len(variants))
	}
	if variants[1].ID != 1002 || variants[1].Price != 1900000 {
		t.Errorf("expected updated price, got %+v", variants[1])
	}
}

func TestSQLStore_CompoundAttributesRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewSQLStore(openTestDB(t), nil)
	if err := s.Seed(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	details, err := s.GetVariantDetails(ctx, []int64{2001})
	if err != nil {
		t.Fatalf("GetVariantDetails: %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("expected 1 detail, got %d", len(details))
	}
	res, ok := details[0].CommonSpecs["screen_resolution"].(map[string]any)
	if !ok {
		t.Fatalf("expected object attribute, got %T", details[0].CommonSpecs["screen_resolution"])
	}
	if res["width"] != 1920.0 || res["height"] != 1080.0 {
		t.Errorf("unexpected resolution: %v", res)
	}
	if details[0].OptionSpecs == nil {
		t.Error("expected empty option specs map, got nil")
	}
}

func TestSQLStore_EmptyIDs(t *testing.T) {
	s := NewSQLStore(openTestDB(t), nil)
	got, err := s.GetVariantDetails(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetVariantDetails: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty slice, got %v", got)
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"gram", "gram"},
		{"100%", `100\%`},
		{"a_b", `a\_b`},
		{`c:\x`, `c:\\x`},
	}
	for _, tt := range tests {
		if got := escapeLike(tt.in); got != tt.want {
			t.Errorf("escapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
