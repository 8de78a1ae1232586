package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goreulmanhae/compare-api/internal/db"
	"github.com/goreulmanhae/compare-api/internal/tracing"
)

// SQLRepository implements Repository on PostgreSQL or SQLite.
type SQLRepository struct {
	db     *db.DB
	logger *slog.Logger
}

// NewSQLRepository creates a new SQLRepository.
func NewSQLRepository(database *db.DB, logger *slog.Logger) *SQLRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLRepository{
		db:     database,
		logger: logger,
	}
}

// Create implements Repository. The record and its score rows are written
// in one transaction.
func (r *SQLRepository) Create(ctx context.Context, rec *Record) (err error) {
	if err := validateRecord(rec); err != nil {
		return err
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, string(r.db.Dialect), "histories", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	weights, err := json.Marshal(rec.Weights)
	if err != nil {
		return fmt.Errorf("failed to encode weights: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Always attempt rollback on function exit (no-op after successful commit)
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.logger.Warn("failed to rollback history transaction", slog.String("error", rbErr.Error()))
		}
	}()

	_, err = tx.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO histories (id, user_id, category_id, preference, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), rec.ID, rec.OwnerUserID, rec.CategoryID, string(weights), JoinSummary(rec.SpecsSummary), db.FormatTime(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert history: %w", err)
	}

	insertScore := r.db.Rebind(`
		INSERT INTO history_scores (history_id, position, variant_id, score)
		VALUES (?, ?, ?, ?)
	`)
	for i, s := range rec.Scores {
		if _, err = tx.ExecContext(ctx, insertScore, rec.ID, i, s.VariantID, s.Score); err != nil {
			return fmt.Errorf("failed to insert score row %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}
	return nil
}

// ListByOwner implements Repository.
func (r *SQLRepository) ListByOwner(ctx context.Context, ownerID string, page Page) (summaries []Summary, total int, err error) {
	page = page.Normalize()

	ctx, endSpan := tracing.StartDBSpan(ctx, string(r.db.Dialect), "histories", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	err = r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT COUNT(*) FROM histories WHERE user_id = ?`), ownerID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count histories: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
		SELECT id, category_id, summary, created_at
		FROM histories
		WHERE user_id = ?
		ORDER BY created_at DESC, id ASC
		LIMIT ? OFFSET ?
	`), ownerID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list histories: %w", err)
	}
	defer rows.Close()

	summaries = []Summary{}
	for rows.Next() {
		var (
			s       Summary
			summary string
			created db.Timestamp
		)
		if err = rows.Scan(&s.ID, &s.CategoryID, &summary, &created); err != nil {
			return nil, 0, fmt.Errorf("failed to scan history: %w", err)
		}
		s.SpecsSummary = SplitSummary(summary)
		s.CreatedAt = created.Time
		summaries = append(summaries, s)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate histories: %w", err)
	}
	return summaries, total, nil
}

// GetForOwner implements Repository.
func (r *SQLRepository) GetForOwner(ctx context.Context, id, ownerID string) (rec *Record, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, string(r.db.Dialect), "histories", tracing.DBOperationQuery)
	defer func() {
		if errors.Is(err, ErrNotFound) {
			endSpan(nil)
			return
		}
		endSpan(err)
	}()

	var (
		weights string
		summary string
		created db.Timestamp
	)
	rec = &Record{ID: id, OwnerUserID: ownerID}
	err = r.db.QueryRowContext(ctx, r.db.Rebind(`
		SELECT category_id, preference, summary, created_at
		FROM histories
		WHERE id = ? AND user_id = ?
	`), id, ownerID).Scan(&rec.CategoryID, &weights, &summary, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	if err = json.Unmarshal([]byte(weights), &rec.Weights); err != nil {
		return nil, fmt.Errorf("failed to decode weights: %w", err)
	}
	rec.SpecsSummary = SplitSummary(summary)
	rec.CreatedAt = created.Time

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
		SELECT variant_id, score
		FROM history_scores
		WHERE history_id = ?
		ORDER BY position ASC
	`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get history scores: %w", err)
	}
	defer rows.Close()

	rec.Scores = []ScoreRow{}
	for rows.Next() {
		var s ScoreRow
		if err = rows.Scan(&s.VariantID, &s.Score); err != nil {
			return nil, fmt.Errorf("failed to scan score row: %w", err)
		}
		rec.Scores = append(rec.Scores, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate score rows: %w", err)
	}
	return rec, nil
}
