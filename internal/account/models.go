package account

import (
	"time"

	id "collabcore/pkg/domain"
)

// Role is the marketplace role an account holds. Exactly one per account.
type Role string

const (
	RoleTalent   Role = "talent"
	RoleFounder  Role = "founder"
	RoleInvestor Role = "investor"
)

func (r Role) Valid() bool {
	switch r {
	case RoleTalent, RoleFounder, RoleInvestor:
		return true
	}
	return false
}

// Billable is the single capability predicate consulted by every transition
// that touches paid plans. Only founders carry subscriptions; other roles are
// implicitly on the always-active free tier.
func Billable(r Role) bool {
	return r == RoleFounder
}

// DefaultScore is where every new account's reputation aggregate starts.
const DefaultScore = 50

// Account is the directory record plus the two derived counters this core
// owns: the clamped reputation aggregate and the monotonic verification
// level. Both are mutated exclusively through the store's atomic operations.
type Account struct {
	ID                id.AccountID
	Role              Role
	DisplayName       string
	Email             string
	ReputationScore   int
	VerificationLevel int
	LadderCompletedAt *time.Time
	CreatedAt         time.Time
}
