// Package notification is the boundary to the delivery infrastructure
// (email, push, in-app). This core only enqueues; delivery is someone else's
// job and enqueue failures never fail the mutation that triggered them.
package notification

import "context"

const (
	TypeAllianceRequested    = "alliance_requested"
	TypeAllianceAccepted     = "alliance_accepted"
	TypePaymentIssue         = "payment_issue"
	TypePaymentReceived      = "payment_received"
	TypeVerificationReviewed = "verification_reviewed"
	TypeVerificationComplete = "verification_complete"
)

// Sink accepts notifications for later delivery.
type Sink interface {
	Enqueue(ctx context.Context, accountID, ntype, title, message string, metadata map[string]string) error
}

// Envelope is the wire shape pushed onto the queue.
type Envelope struct {
	AccountID string            `json:"account_id"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
