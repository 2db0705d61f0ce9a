package reputation

import (
	"context"

	id "collabcore/pkg/domain"
)

// EntryStore persists the append-only delta log.
type EntryStore interface {
	Append(ctx context.Context, entry Entry) error
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]Entry, error)
}

// AccountScores is the slice of the account store this module uses. The
// aggregate is mutated only through these two atomic operations.
type AccountScores interface {
	IncrementScoreClamped(ctx context.Context, accountID id.AccountID, delta int) (int, error)
	SetScore(ctx context.Context, accountID id.AccountID, score int) error
}
