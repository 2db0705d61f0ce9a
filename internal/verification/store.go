package verification

import (
	"context"
	"time"

	id "collabcore/pkg/domain"
)

// Store persists verification entries, one per (account, type).
type Store interface {
	// UpsertSubmission creates or overwrites the entry for (account, type),
	// resetting status to submitted. Resubmission after rejection is allowed
	// and simply overwrites.
	UpsertSubmission(ctx context.Context, entry Entry) (Entry, error)

	// ApplyReview sets the review outcome. Zero rows matched (unknown entry)
	// is sentinel.ErrNotFound.
	ApplyReview(ctx context.Context, entryID id.VerificationID, status Status, reviewerID id.AccountID, reviewedAt time.Time) (Entry, error)

	FindByID(ctx context.Context, entryID id.VerificationID) (Entry, error)
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]Entry, error)
}

// AccountLevels is the slice of the account store this module uses. The
// verification level is monotonic at the storage layer.
type AccountLevels interface {
	AdvanceLevel(ctx context.Context, accountID id.AccountID, level int) (newLevel int, advanced bool, err error)
	MarkLadderComplete(ctx context.Context, accountID id.AccountID) (first bool, err error)
}
