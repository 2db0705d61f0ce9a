package alliance

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"collabcore/internal/platform/postgres"
	id "collabcore/pkg/domain"
	"collabcore/pkg/platform/sentinel"
)

// PostgresStore relies on two database mechanisms: the partial unique index
// on live pairs (ux_alliances_pair_live) and single-statement conditional
// updates. No explicit locks are taken anywhere.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateIfPairFree(ctx context.Context, a Alliance) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alliances (id, requester_id, receiver_id, pair_key, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
	`, uuid.UUID(a.ID), uuid.UUID(a.RequesterID), uuid.UUID(a.ReceiverID),
		PairKey(a.RequesterID, a.ReceiverID), a.Status)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create alliance: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteRejectedByPair(ctx context.Context, pairKey string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM alliances WHERE pair_key = $1 AND status = 'rejected'`, pairKey)
	if err != nil {
		return fmt.Errorf("delete rejected alliance: %w", err)
	}
	return nil
}

func (s *PostgresStore) AcceptIfPending(ctx context.Context, allianceID id.AllianceID, receiver id.AccountID) (Alliance, error) {
	return s.transitionIfPending(ctx, allianceID, receiver, StatusAccepted)
}

func (s *PostgresStore) RejectIfPending(ctx context.Context, allianceID id.AllianceID, receiver id.AccountID) (Alliance, error) {
	return s.transitionIfPending(ctx, allianceID, receiver, StatusRejected)
}

func (s *PostgresStore) transitionIfPending(ctx context.Context, allianceID id.AllianceID, receiver id.AccountID, to Status) (Alliance, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE alliances
		SET status = $3, updated_at = now()
		WHERE id = $1 AND receiver_id = $2 AND status = 'pending'
		RETURNING id, requester_id, receiver_id, status, created_at, updated_at
	`, uuid.UUID(allianceID), uuid.UUID(receiver), to)
	a, err := scanAlliance(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Alliance{}, sentinel.ErrNotFound
		}
		return Alliance{}, fmt.Errorf("transition alliance: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) DeleteIfAcceptedMember(ctx context.Context, allianceID id.AllianceID, member id.AccountID) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM alliances
		WHERE id = $1 AND status = 'accepted' AND (requester_id = $2 OR receiver_id = $2)
	`, uuid.UUID(allianceID), uuid.UUID(member))
	if err != nil {
		return fmt.Errorf("delete alliance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, allianceID id.AllianceID) (Alliance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, requester_id, receiver_id, status, created_at, updated_at
		FROM alliances WHERE id = $1
	`, uuid.UUID(allianceID))
	a, err := scanAlliance(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Alliance{}, sentinel.ErrNotFound
		}
		return Alliance{}, fmt.Errorf("find alliance: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) FindLiveByPair(ctx context.Context, pairKey string) (Alliance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, requester_id, receiver_id, status, created_at, updated_at
		FROM alliances WHERE pair_key = $1 AND status <> 'rejected'
	`, pairKey)
	a, err := scanAlliance(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Alliance{}, sentinel.ErrNotFound
		}
		return Alliance{}, fmt.Errorf("find alliance by pair: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListByAccount(ctx context.Context, accountID id.AccountID) ([]Alliance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, requester_id, receiver_id, status, created_at, updated_at
		FROM alliances
		WHERE requester_id = $1 OR receiver_id = $1
		ORDER BY created_at
	`, uuid.UUID(accountID))
	if err != nil {
		return nil, fmt.Errorf("list alliances: %w", err)
	}
	defer rows.Close()

	var out []Alliance
	for rows.Next() {
		a, err := scanAlliance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alliance: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlliance(row rowScanner) (Alliance, error) {
	var a Alliance
	var aID, requester, receiver uuid.UUID
	if err := row.Scan(&aID, &requester, &receiver, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Alliance{}, err
	}
	a.ID = id.AllianceID(aID)
	a.RequesterID = id.AccountID(requester)
	a.ReceiverID = id.AccountID(receiver)
	return a, nil
}
