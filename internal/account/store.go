package account

import (
	"context"

	id "collabcore/pkg/domain"
)

// Store is the single authority over the accounts table. The three counter
// operations are atomic at the storage layer; no caller may read-modify-write
// the underlying fields.
type Store interface {
	Create(ctx context.Context, acct Account) error
	FindByID(ctx context.Context, accountID id.AccountID) (Account, error)

	// IncrementScoreClamped adds delta to the reputation aggregate and clamps
	// to [0,100] in the same operation, returning the new value. Clamp happens
	// on write so concurrent deltas never observe an unclamped intermediate.
	IncrementScoreClamped(ctx context.Context, accountID id.AccountID, delta int) (int, error)

	// SetScore overwrites the aggregate. Used only by recompute, which always
	// wins over the incremental value when explicitly invoked.
	SetScore(ctx context.Context, accountID id.AccountID, score int) error

	// AdvanceLevel raises the verification level to at least level. The level
	// is monotonic: a lower value never regresses it. Returns the level after
	// the operation and whether this call raised it.
	AdvanceLevel(ctx context.Context, accountID id.AccountID, level int) (newLevel int, advanced bool, err error)

	// MarkLadderComplete records ladder completion exactly once. Returns true
	// only for the call that first flipped the flag.
	MarkLadderComplete(ctx context.Context, accountID id.AccountID) (first bool, err error)
}
