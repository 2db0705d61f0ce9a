package verification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"collabcore/internal/account"
	id "collabcore/pkg/domain"
	"collabcore/pkg/platform/sentinel"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) UpsertSubmission(ctx context.Context, entry Entry) (Entry, error) {
	// ON CONFLICT keeps the existing row identity; only the submission
	// payload and status are reset.
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO verification_entries
			(id, account_id, role, type, level, status, evidence, score_impact, submitted_at)
		VALUES ($1, $2, $3, $4, $5, 'submitted', $6, $7, now())
		ON CONFLICT (account_id, type) DO UPDATE SET
			status = 'submitted',
			evidence = EXCLUDED.evidence,
			reviewer_id = NULL,
			reviewed_at = NULL,
			submitted_at = now()
		RETURNING id, account_id, role, type, level, status, evidence, score_impact, reviewer_id, submitted_at, reviewed_at
	`, uuid.UUID(entry.ID), uuid.UUID(entry.AccountID), entry.Role, entry.Type,
		entry.Level, pq.Array(entry.Evidence), entry.ScoreImpact)
	out, err := scanEntry(row)
	if err != nil {
		return Entry{}, fmt.Errorf("upsert verification entry: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ApplyReview(ctx context.Context, entryID id.VerificationID, status Status, reviewerID id.AccountID, reviewedAt time.Time) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE verification_entries
		SET status = $2, reviewer_id = $3, reviewed_at = $4
		WHERE id = $1
		RETURNING id, account_id, role, type, level, status, evidence, score_impact, reviewer_id, submitted_at, reviewed_at
	`, uuid.UUID(entryID), status, uuid.UUID(reviewerID), reviewedAt)
	out, err := scanEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, sentinel.ErrNotFound
		}
		return Entry{}, fmt.Errorf("apply review: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, entryID id.VerificationID) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, role, type, level, status, evidence, score_impact, reviewer_id, submitted_at, reviewed_at
		FROM verification_entries WHERE id = $1
	`, uuid.UUID(entryID))
	out, err := scanEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, sentinel.ErrNotFound
		}
		return Entry{}, fmt.Errorf("find verification entry: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListByAccount(ctx context.Context, accountID id.AccountID) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, role, type, level, status, evidence, score_impact, reviewer_id, submitted_at, reviewed_at
		FROM verification_entries
		WHERE account_id = $1
		ORDER BY level
	`, uuid.UUID(accountID))
	if err != nil {
		return nil, fmt.Errorf("list verification entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verification entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var entry Entry
	var entryID, acctID uuid.UUID
	var reviewer uuid.NullUUID
	var role string
	if err := row.Scan(&entryID, &acctID, &role, &entry.Type, &entry.Level, &entry.Status,
		pq.Array(&entry.Evidence), &entry.ScoreImpact, &reviewer, &entry.SubmittedAt, &entry.ReviewedAt); err != nil {
		return Entry{}, err
	}
	entry.ID = id.VerificationID(entryID)
	entry.AccountID = id.AccountID(acctID)
	entry.Role = account.Role(role)
	if reviewer.Valid {
		rid := id.AccountID(reviewer.UUID)
		entry.ReviewerID = &rid
	}
	return entry, nil
}
