package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"github.com/goreulmanhae/compare-api/internal/db"
	"github.com/goreulmanhae/compare-api/internal/tracing"
)

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures.
const pgUniqueViolation = "23505"

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
	return &SQLRepository{db: database, logger: logger}
}

// Create implements Repository.
func (r *SQLRepository) Create(ctx context.Context, u User) (err error) {
	if err := validateUser(u); err != nil {
		return err
	}
	u.Username = NormalizeUsername(u.Username)

	ctx, endSpan := tracing.StartDBSpan(ctx, string(r.db.Dialect), "users", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	exists, err := r.UsernameExists(ctx, u.Username)
	if err != nil {
		return err
	}
	if exists {
		return ErrUsernameTaken
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO users (id, username) VALUES (?, ?)`), u.ID, u.Username)
	if isUsernameConflict(err) {
		return ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// UsernameExists implements Repository.
func (r *SQLRepository) UsernameExists(ctx context.Context, username string) (exists bool, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, string(r.db.Dialect), "users", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	err = r.db.QueryRowContext(ctx,
		r.db.Rebind(`SELECT EXISTS (SELECT 1 FROM users WHERE username = ?)`),
		NormalizeUsername(username),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

// isUsernameConflict recognizes a unique violation on users.username from
// either driver. Conflicts on the primary key are reported as plain errors.
func isUsernameConflict(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation && strings.Contains(pqErr.Constraint, "username")
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed: users.username")
}
