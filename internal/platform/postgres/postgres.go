package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"collabcore/internal/platform/config"
)

// Open connects to Postgres and verifies the connection. Returns nil when no
// DSN is configured so main can fall back to in-memory stores in dev mode.
func Open(ctx context.Context, cfg config.Postgres) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return db, nil
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// rejection. Stores use the insert itself as the concurrency gate, so this is
// the one pq error code domain logic depends on.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
