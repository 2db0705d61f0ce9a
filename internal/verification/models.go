package verification

import (
	"time"

	"collabcore/internal/account"
	id "collabcore/pkg/domain"
)

type Status string

const (
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Entry is one verification step for an account. There is exactly one entry
// per (account, type); resubmission overwrites it and resets the status.
type Entry struct {
	ID          id.VerificationID
	AccountID   id.AccountID
	Role        account.Role
	Type        string
	Level       int
	Status      Status
	Evidence    []string
	ScoreImpact int
	ReviewerID  *id.AccountID
	SubmittedAt time.Time
	ReviewedAt  *time.Time
}

// Step is one rung of a role's ladder.
type Step struct {
	Level       int
	Type        string
	ScoreImpact int
}

// Ladders defines the fixed, ordered verification ladder per role. An
// account's verification level is the highest approved rung; approvals may
// land out of order and set the level directly to the approved ordinal.
var Ladders = map[account.Role][]Step{
	account.RoleTalent: {
		{Level: 1, Type: "identity", ScoreImpact: 2},
		{Level: 2, Type: "skill_assessment", ScoreImpact: 5},
		{Level: 3, Type: "portfolio_review", ScoreImpact: 5},
	},
	account.RoleFounder: {
		{Level: 1, Type: "identity", ScoreImpact: 2},
		{Level: 2, Type: "company_registration", ScoreImpact: 5},
		{Level: 3, Type: "funding_history", ScoreImpact: 5},
	},
	account.RoleInvestor: {
		{Level: 1, Type: "identity", ScoreImpact: 2},
		{Level: 2, Type: "accreditation", ScoreImpact: 6},
		{Level: 3, Type: "track_record", ScoreImpact: 4},
	},
}

// StepFor resolves a verification type within a role's ladder.
func StepFor(role account.Role, vtype string) (Step, bool) {
	for _, step := range Ladders[role] {
		if step.Type == vtype {
			return step, true
		}
	}
	return Step{}, false
}

// LadderLength returns the number of rungs for the role.
func LadderLength(role account.Role) int {
	return len(Ladders[role])
}
