package alliance

import (
	"strings"
	"time"

	id "collabcore/pkg/domain"
)

// Status values an alliance moves through. Removal is a hard delete, so it
// has no status of its own.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Alliance is a pairwise relationship. Direction is preserved (requester vs
// receiver) but uniqueness is enforced on the unordered pair: at most one
// non-rejected record may exist for any two accounts.
type Alliance struct {
	ID          id.AllianceID
	RequesterID id.AccountID
	ReceiverID  id.AccountID
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Involves reports whether the account is either party.
func (a Alliance) Involves(accountID id.AccountID) bool {
	return a.RequesterID == accountID || a.ReceiverID == accountID
}

// PairKey canonicalizes the unordered pair for the uniqueness constraint.
func PairKey(a, b id.AccountID) string {
	as, bs := a.String(), b.String()
	if strings.Compare(as, bs) > 0 {
		as, bs = bs, as
	}
	return as + ":" + bs
}
