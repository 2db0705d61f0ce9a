package milestone

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"collabcore/internal/platform/postgres"
	id "collabcore/pkg/domain"
	"collabcore/pkg/platform/sentinel"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, m Milestone) error {
	status := m.EscrowStatus
	if status == "" {
		status = EscrowUnfunded
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO milestones (id, title, escrow_status, updated_at)
		VALUES ($1, $2, $3, now())
	`, uuid.UUID(m.ID), m.Title, status)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create milestone: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, milestoneID id.MilestoneID) (Milestone, error) {
	var m Milestone
	var rawID uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, escrow_status, updated_at FROM milestones WHERE id = $1
	`, uuid.UUID(milestoneID)).Scan(&rawID, &m.Title, &m.EscrowStatus, &m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return Milestone{}, sentinel.ErrNotFound
		}
		return Milestone{}, fmt.Errorf("find milestone: %w", err)
	}
	m.ID = id.MilestoneID(rawID)
	return m, nil
}

func (s *PostgresStore) AdvanceEscrow(ctx context.Context, milestoneID id.MilestoneID) (Milestone, error) {
	// One statement moves exactly one step; terminal states match no row.
	row := s.db.QueryRowContext(ctx, `
		UPDATE milestones
		SET escrow_status = CASE escrow_status
			WHEN 'unfunded' THEN 'funded'
			WHEN 'funded' THEN 'released'
		END,
		updated_at = now()
		WHERE id = $1 AND escrow_status IN ('unfunded', 'funded')
		RETURNING id, title, escrow_status, updated_at
	`, uuid.UUID(milestoneID))

	var m Milestone
	var rawID uuid.UUID
	if err := row.Scan(&rawID, &m.Title, &m.EscrowStatus, &m.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			// Distinguish missing from terminal for the caller's logs.
			if _, findErr := s.FindByID(ctx, milestoneID); findErr != nil {
				return Milestone{}, findErr
			}
			return Milestone{}, sentinel.ErrInvalidState
		}
		return Milestone{}, fmt.Errorf("advance escrow: %w", err)
	}
	m.ID = id.MilestoneID(rawID)
	return m, nil
}
