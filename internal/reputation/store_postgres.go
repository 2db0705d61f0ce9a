package reputation

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "collabcore/pkg/domain"
)

type PostgresEntryStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresEntryStore {
	return &PostgresEntryStore{db: db}
}

func (s *PostgresEntryStore) Append(ctx context.Context, entry Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reputation_entries (id, account_id, score_delta, reason_code, category, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, uuid.UUID(entry.ID), uuid.UUID(entry.AccountID), entry.ScoreDelta, entry.ReasonCode, entry.Category)
	if err != nil {
		return fmt.Errorf("append reputation entry: %w", err)
	}
	return nil
}

func (s *PostgresEntryStore) ListByAccount(ctx context.Context, accountID id.AccountID) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, score_delta, reason_code, category, created_at
		FROM reputation_entries
		WHERE account_id = $1
		ORDER BY created_at
	`, uuid.UUID(accountID))
	if err != nil {
		return nil, fmt.Errorf("list reputation entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var entryID, acctID uuid.UUID
		if err := rows.Scan(&entryID, &acctID, &entry.ScoreDelta, &entry.ReasonCode, &entry.Category, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reputation entry: %w", err)
		}
		entry.ID = id.EntryID(entryID)
		entry.AccountID = id.AccountID(acctID)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
