package reputation

import (
	"time"

	id "collabcore/pkg/domain"
)

// Category groups entries for the recompute formula.
type Category string

const (
	// CategoryCompletion covers delivered milestones and released escrow.
	CategoryCompletion Category = "completion"
	// CategoryAgreement covers signed collaborations (accepted alliances).
	CategoryAgreement Category = "agreement"
	// CategoryApplication covers successful opportunity applications.
	CategoryApplication Category = "application"
	// CategoryVerification covers approved verification steps.
	CategoryVerification Category = "verification"
	// CategoryDispute covers penalties; entries here carry negative deltas.
	CategoryDispute Category = "dispute"
)

// Reason codes name the business fact behind a delta. New codes are added as
// the surrounding application grows; the ledger itself is agnostic.
const (
	ReasonAllianceAccepted     = "alliance_accepted"
	ReasonMilestonePaid        = "milestone_paid"
	ReasonVerificationApproved = "verification_approved"
	ReasonApplicationAccepted  = "application_accepted"
	ReasonDisputeRaised        = "dispute_raised"
	ReasonManualAdjustment     = "manual_adjustment"
)

// Entry is one immutable reputation delta. Entries are never updated or
// deleted; the aggregate on the account is derived and can be recomputed from
// the full log at any time.
type Entry struct {
	ID         id.EntryID
	AccountID  id.AccountID
	ScoreDelta int
	ReasonCode string
	Category   Category
	CreatedAt  time.Time
}
