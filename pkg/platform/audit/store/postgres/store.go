// Package postgres persists audit events in the audit_events table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"collabcore/pkg/platform/audit"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (category, action, account_id, subject, detail, request_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(event.Category),
		event.Action,
		event.AccountID,
		event.Subject,
		event.Detail,
		event.RequestID,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByAccount(ctx context.Context, accountID string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, action, account_id, subject, detail, request_id, occurred_at
		FROM audit_events
		WHERE account_id = $1
		ORDER BY occurred_at, id`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var e audit.Event
		var category string
		if err := rows.Scan(&category, &e.Action, &e.AccountID, &e.Subject, &e.Detail, &e.RequestID, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.Category(category)
		out = append(out, e)
	}
	return out, rows.Err()
}
