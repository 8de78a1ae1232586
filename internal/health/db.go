// Package health provides readiness checks for the API's backing services.
package health

import (
	"context"
	"time"
)

// Checker reports whether a dependency is usable.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// DefaultTimeout bounds a single check.
const DefaultTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB and *db.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// DBChecker pings the database.
type DBChecker struct {
	db      Pinger
	timeout time.Duration
}

// NewDBChecker creates a new database health checker.
func NewDBChecker(db Pinger) *DBChecker {
	return &DBChecker{db: db, timeout: DefaultTimeout}
}

// HealthCheck pings the database within the checker's timeout.
func (d *DBChecker) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.db.PingContext(ctx)
}
