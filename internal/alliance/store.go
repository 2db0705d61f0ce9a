package alliance

import (
	"context"

	id "collabcore/pkg/domain"
)

// Store contracts. The accept and reject operations are atomic conditional
// updates: precondition check and mutation happen in one storage operation,
// and zero matched rows is reported as sentinel.ErrNotFound so the service
// can re-fetch and classify why the caller lost.
type Store interface {
	// CreateIfPairFree inserts a pending alliance. A live (pending or
	// accepted) record for the same unordered pair causes
	// sentinel.ErrConflict; the pair constraint is enforced by the storage
	// layer, not by a prior read.
	CreateIfPairFree(ctx context.Context, a Alliance) error

	// DeleteRejectedByPair clears a superseded rejected record so a new
	// request can be inserted. Deleting a missing record is not an error:
	// the whole request sequence must be retry-safe.
	DeleteRejectedByPair(ctx context.Context, pairKey string) error

	// AcceptIfPending sets status=accepted only if the record is pending and
	// receiver is the caller. Exactly one of two concurrent calls succeeds.
	AcceptIfPending(ctx context.Context, allianceID id.AllianceID, receiver id.AccountID) (Alliance, error)

	// RejectIfPending mirrors AcceptIfPending for the reject transition.
	RejectIfPending(ctx context.Context, allianceID id.AllianceID, receiver id.AccountID) (Alliance, error)

	// DeleteIfAcceptedMember removes an accepted alliance when the caller is
	// a member. Zero rows matched is sentinel.ErrNotFound.
	DeleteIfAcceptedMember(ctx context.Context, allianceID id.AllianceID, member id.AccountID) error

	FindByID(ctx context.Context, allianceID id.AllianceID) (Alliance, error)
	FindLiveByPair(ctx context.Context, pairKey string) (Alliance, error)
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]Alliance, error)
}
