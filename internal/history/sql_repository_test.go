package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/goreulmanhae/compare-api/internal/db"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	ctx := context.Background()

	database, err := db.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func TestSQLRepository(t *testing.T) {
	repositoryContract(t, func(t *testing.T) Repository {
		return NewSQLRepository(openTestDB(t), nil)
	})
}

func TestSQLRepository_DuplicateIDRollsBack(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	repo := NewSQLRepository(database, nil)

	if err := repo.Create(ctx, newRecord("dup", "alice", 0)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	second := newRecord("dup", "alice", 0)
	second.Scores = append(second.Scores, ScoreRow{VariantID: 12, Score: 1})
	if err := repo.Create(ctx, second); err == nil {
		t.Fatal("expected duplicate id to fail")
	}

	var rows int
	if err := database.QueryRowContext(ctx, `SELECT COUNT(*) FROM history_scores WHERE history_id = 'dup'`).Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 2 {
		t.Errorf("expected original 2 score rows, got %d", rows)
	}
}

func TestSQLRepository_TimestampsSortAcrossZones(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLRepository(openTestDB(t), nil)

	// Stored in UTC so lexical order matches chronological order.
	early := newRecord("early", "alice", 0)
	late := newRecord("late", "alice", 0)
	late.CreatedAt = baseTime.Add(90 * time.Minute).In(time.FixedZone("KST", 9*60*60))

	for _, rec := range []*Record{late, early} {
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	list, _, err := repo.ListByOwner(ctx, "alice", Page{})
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(list) != 2 || list[0].ID != "late" {
		t.Fatalf("expected late first, got %+v", list)
	}
	if !list[0].CreatedAt.Equal(late.CreatedAt) {
		t.Errorf("expected %v, got %v", late.CreatedAt, list[0].CreatedAt)
	}
}
