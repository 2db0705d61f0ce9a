package eventledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"collabcore/internal/platform/postgres"
)

// PostgresStore backs the ledger with the processed_events primary key. The
// INSERT is the synchronization mechanism across concurrent redelivery; there
// is deliberately no read-then-write path here.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) RecordIfNew(ctx context.Context, externalID, eventType string) (bool, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processed_events (external_id, event_type, processed_at)
		VALUES ($1, $2, now())
	`, externalID, eventType)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("record event: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) Seen(ctx context.Context, externalID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM processed_events WHERE external_id = $1`, externalID,
	).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check event: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM processed_events WHERE processed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge events: %w", err)
	}
	return res.RowsAffected()
}
