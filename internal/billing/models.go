package billing

import (
	"time"

	id "collabcore/pkg/domain"
)

// SubscriptionStatus mirrors the processor's subscription state locally.
type SubscriptionStatus string

const (
	SubStatusActive     SubscriptionStatus = "active"
	SubStatusPastDue    SubscriptionStatus = "past_due"
	SubStatusCanceled   SubscriptionStatus = "canceled"
	SubStatusIncomplete SubscriptionStatus = "incomplete"
	SubStatusTrialing   SubscriptionStatus = "trialing"
)

// Subscription is one billable account's plan state. One record per account;
// cancellation is a status, never a delete.
type Subscription struct {
	AccountID          id.AccountID
	PlanTier           PlanTier
	Status             SubscriptionStatus
	CustomerRef        string
	SubscriptionRef    string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
	Features           []string
	UpdatedAt          time.Time
}

// PaymentType classifies what a payment funds.
type PaymentType string

const (
	PaymentMilestone    PaymentType = "milestone"
	PaymentInvestment   PaymentType = "investment"
	PaymentSubscription PaymentType = "subscription"
	PaymentCommission   PaymentType = "commission"
)

type PaymentStatus string

const (
	PayStatusPending    PaymentStatus = "pending"
	PayStatusProcessing PaymentStatus = "processing"
	PayStatusCompleted  PaymentStatus = "completed"
	PayStatusFailed     PaymentStatus = "failed"
	PayStatusRefunded   PaymentStatus = "refunded"
)

// allowedFrom lists the statuses a transition may leave. Status moves forward
// only: pending/processing -> completed|failed, completed -> refunded.
var allowedFrom = map[PaymentStatus][]PaymentStatus{
	PayStatusCompleted: {PayStatusPending, PayStatusProcessing},
	PayStatusFailed:    {PayStatusPending, PayStatusProcessing},
	PayStatusRefunded:  {PayStatusCompleted},
}

// AllowedFrom returns the statuses that may precede to.
func AllowedFrom(to PaymentStatus) []PaymentStatus {
	return allowedFrom[to]
}

// Payment is one money movement, created once per external confirmation.
// Amounts are integer minor currency units.
type Payment struct {
	ExternalRef  string
	Type         PaymentType
	Amount       int64
	Currency     string
	Status       PaymentStatus
	FromAccount  id.AccountID
	ToAccount    *id.AccountID
	LinkedEntity *id.MilestoneID
	PlatformFee  int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
