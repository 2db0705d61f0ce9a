package account

import (
	"context"
	"database/sql"
	"fmt"

	"collabcore/internal/platform/postgres"
	id "collabcore/pkg/domain"
	"collabcore/pkg/platform/sentinel"

	"github.com/google/uuid"
)

// PostgresStore implements Store on a SQL database. Every counter mutation is
// a single UPDATE so the database is the only synchronization point.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, acct Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, role, display_name, email, reputation_score, verification_level, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, uuid.UUID(acct.ID), acct.Role, acct.DisplayName, acct.Email, acct.ReputationScore, acct.VerificationLevel)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, accountID id.AccountID) (Account, error) {
	var acct Account
	var rawID uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT id, role, display_name, email, reputation_score, verification_level, ladder_completed_at, created_at
		FROM accounts WHERE id = $1
	`, uuid.UUID(accountID)).Scan(
		&rawID, &acct.Role, &acct.DisplayName, &acct.Email,
		&acct.ReputationScore, &acct.VerificationLevel, &acct.LadderCompletedAt, &acct.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return Account{}, sentinel.ErrNotFound
		}
		return Account{}, fmt.Errorf("find account: %w", err)
	}
	acct.ID = id.AccountID(rawID)
	return acct, nil
}

func (s *PostgresStore) IncrementScoreClamped(ctx context.Context, accountID id.AccountID, delta int) (int, error) {
	var score int
	err := s.db.QueryRowContext(ctx, `
		UPDATE accounts
		SET reputation_score = GREATEST(0, LEAST(100, reputation_score + $2))
		WHERE id = $1
		RETURNING reputation_score
	`, uuid.UUID(accountID), delta).Scan(&score)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, sentinel.ErrNotFound
		}
		return 0, fmt.Errorf("increment score: %w", err)
	}
	return score, nil
}

func (s *PostgresStore) SetScore(ctx context.Context, accountID id.AccountID, score int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET reputation_score = GREATEST(0, LEAST(100, $2)) WHERE id = $1
	`, uuid.UUID(accountID), score)
	if err != nil {
		return fmt.Errorf("set score: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AdvanceLevel(ctx context.Context, accountID id.AccountID, level int) (int, bool, error) {
	var newLevel, oldLevel int
	err := s.db.QueryRowContext(ctx, `
		UPDATE accounts a
		SET verification_level = GREATEST(a.verification_level, $2)
		FROM (SELECT verification_level AS old_level FROM accounts WHERE id = $1 FOR UPDATE) prev
		WHERE a.id = $1
		RETURNING a.verification_level, prev.old_level
	`, uuid.UUID(accountID), level).Scan(&newLevel, &oldLevel)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, sentinel.ErrNotFound
		}
		return 0, false, fmt.Errorf("advance level: %w", err)
	}
	return newLevel, newLevel > oldLevel, nil
}

func (s *PostgresStore) MarkLadderComplete(ctx context.Context, accountID id.AccountID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET ladder_completed_at = now()
		WHERE id = $1 AND ladder_completed_at IS NULL
	`, uuid.UUID(accountID))
	if err != nil {
		return false, fmt.Errorf("mark ladder complete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark ladder complete: %w", err)
	}
	return n == 1, nil
}
