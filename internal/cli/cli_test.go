package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goreulmanhae/compare-api/internal/auth"
	"github.com/goreulmanhae/compare-api/internal/catalog"
	"github.com/goreulmanhae/compare-api/internal/compare"
	"github.com/goreulmanhae/compare-api/internal/db"
)

// execute runs comparectl with args and returns its stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const catalogJSON = `{
  "categories": [{"id": 1, "slug": "laptop", "name": "노트북",
    "specs": [{"eng_name": "battery", "kor_name": "배터리", "unit": "mAh", "is_positive": true}]}],
  "makers": [{"id": 1, "name": "LG"}],
  "products": [{"id": 10, "category_id": 1, "maker_id": 1, "name": "Gram",
    "image_url": "https://cdn.example.com/gram.png", "common_specs": {}}],
  "variants": [
    {"id": 100, "product_id": 10, "variant_name": "Base", "price": 100, "option_specs": {"battery": 3000}},
    {"id": 101, "product_id": 10, "variant_name": "Pro", "price": 200, "option_specs": {"battery": 6000}}
  ]
}`

const scoreJSON = `{
  "specs": [{"key": "battery", "display_name": "배터리", "unit": "mAh", "orientation": "positive"}],
  "candidates": [
    {"id": 1, "display_name": "Gram", "variant_label": "Base", "price": 100, "attributes": {"battery": 3000}},
    {"id": 2, "display_name": "Gram", "variant_label": "Pro", "price": 200, "attributes": {"battery": 6000}}
  ],
  "weights": {"battery": 1}
}`

func TestMigrate(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "compare.db")

	for i := 0; i < 2; i++ {
		out, err := execute(t, "", "migrate", "--database-url", url)
		if err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
		if !strings.Contains(out, "Applied") {
			t.Errorf("unexpected output: %s", out)
		}
	}
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := execute(t, "", "migrate"); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("expected missing database URL error, got %v", err)
	}
}

func TestSeed(t *testing.T) {
	path := writeFile(t, "catalog.json", catalogJSON)
	url := "sqlite://" + filepath.Join(t.TempDir(), "compare.db")

	out, err := execute(t, "", "seed", "--file", path, "--database-url", url)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !strings.Contains(out, "1 categories, 1 makers, 1 products, 2 variants") {
		t.Errorf("unexpected output: %s", out)
	}

	database, err := db.Open(context.Background(), url)
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()
	variants, err := catalog.NewSQLStore(database, slog.Default()).ListVariants(context.Background(), 10)
	if err != nil || len(variants) != 2 {
		t.Errorf("expected seeded variants, got %v %v", variants, err)
	}
}

func TestSeed_DryRunRejectsInvalid(t *testing.T) {
	bad := strings.Replace(catalogJSON, "https://cdn.example.com/gram.png", "ftp://cdn.example.com/gram.png", 1)
	path := writeFile(t, "catalog.json", bad)

	if _, err := execute(t, "", "seed", "--file", path, "--dry-run"); err == nil {
		t.Error("expected invalid image URL to fail validation")
	}

	good := writeFile(t, "ok.json", catalogJSON)
	out, err := execute(t, "", "seed", "--file", good, "--dry-run")
	if err != nil || !strings.Contains(out, "Snapshot OK") {
		t.Errorf("dry run = %q, %v", out, err)
	}
}

func TestScore_Table(t *testing.T) {
	path := writeFile(t, "request.json", scoreJSON)

	out, err := execute(t, "", "score", "--file", path)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got:\n%s", out)
	}
	if fields := strings.Fields(lines[1]); fields[0] != "1" || fields[1] != "100" || fields[2] != "2" {
		t.Errorf("expected the longer battery first with score 100, got %q", lines[1])
	}
}

func TestScore_JSONFromStdin(t *testing.T) {
	out, err := execute(t, scoreJSON, "score", "--file", "-", "--json")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	var res compare.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(res.RankedData) != 2 || res.RankedData[0].ID != 2 {
		t.Errorf("unexpected ranking: %+v", res.RankedData)
	}
}

func TestScore_PriceWeighted(t *testing.T) {
	input := `{
  "candidates": [
    {"id": 1, "price": 100, "attributes": {}},
    {"id": 2, "price": 200, "attributes": {"price": 1}}
  ],
  "weights": {"price": 1}
}`
	out, err := execute(t, input, "score", "--file", "-", "--json")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	var res compare.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	got := map[int64]int{}
	for _, c := range res.RankedData {
		got[c.ID] = c.Score
	}
	if len(got) != 2 || got[1] != 100 || got[2] != 50 {
		t.Errorf("expected {1:100, 2:50}, got %v", got)
	}
}

func TestScore_DuplicateCandidates(t *testing.T) {
	input := `{
  "candidates": [
    {"id": 1, "price": 100},
    {"id": 1, "price": 300},
    {"id": 2, "price": 200}
  ],
  "weights": {"price": 1}
}`
	out, err := execute(t, input, "score", "--file", "-", "--json")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	var res compare.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(res.RankedData) != 2 {
		t.Fatalf("expected repeated id to be dropped, got %+v", res.RankedData)
	}
	if res.RankedData[0].ID != 1 || res.RankedData[0].Price != 100 {
		t.Errorf("expected the first occurrence of id 1 to win, got %+v", res.RankedData[0])
	}
}

func TestScore_DuplicatesLeaveTooFew(t *testing.T) {
	input := `{"candidates": [{"id": 1, "price": 1}, {"id": 1, "price": 2}], "weights": {}}`
	if _, err := execute(t, input, "score", "--file", "-"); err == nil {
		t.Error("expected an error when only one distinct candidate remains")
	}
}

func TestScore_TooFewCandidates(t *testing.T) {
	input := `{"specs": [], "candidates": [{"id": 1, "price": 1}], "weights": {}}`
	if _, err := execute(t, input, "score", "--file", "-"); err == nil {
		t.Error("expected an error for a single candidate")
	}
}

func TestToken(t *testing.T) {
	const secret = "0123456789abcdef0123456789abcdef"
	out, err := execute(t, "", "token", "--user", "u-42", "--username", "alice", "--secret", secret)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	svc, err := auth.NewJWTService(auth.JWTConfig{Secret: secret})
	if err != nil {
		t.Fatal(err)
	}
	claims, err := svc.ValidateAccessToken(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("minted token does not validate: %v", err)
	}
	if claims.Subject != "u-42" || claims.Username != "alice" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestToken_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := execute(t, "", "token", "--user", "u-1"); err == nil {
		t.Error("expected error without a secret")
	}
}
