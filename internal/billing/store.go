package billing

import (
	"context"
	"time"

	id "collabcore/pkg/domain"
)

// SubscriptionChange is a partial update applied in one atomic operation.
// Nil fields are left untouched.
type SubscriptionChange struct {
	Status            *SubscriptionStatus
	PlanTier          *PlanTier
	Features          []string
	CancelAtPeriodEnd *bool
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
}

// SubscriptionStore keys subscriptions by account, with a secondary unique
// handle on the external customer reference. Concurrent processor events for
// one customer funnel into single-statement updates.
type SubscriptionStore interface {
	// Upsert creates or replaces the account's subscription record. Used by
	// checkout, which carries the full desired state and is idempotent when
	// re-run with the same event.
	Upsert(ctx context.Context, sub Subscription) error

	// ApplyByCustomerRef applies a partial change as one atomic update.
	// Unknown refs yield sentinel.ErrNotFound.
	ApplyByCustomerRef(ctx context.Context, customerRef string, change SubscriptionChange) (Subscription, error)

	FindByAccount(ctx context.Context, accountID id.AccountID) (Subscription, error)
}

// PaymentStore creates payment records exactly once per external reference
// and moves their status forward only.
type PaymentStore interface {
	// CreateIfAbsent inserts the payment and reports whether this call
	// created it. The existence check and insert are one operation.
	CreateIfAbsent(ctx context.Context, p Payment) (created bool, err error)

	// AdvanceStatus moves the payment to the given status if its current
	// status is an allowed predecessor. sentinel.ErrNotFound when the ref is
	// unknown; sentinel.ErrInvalidState when the transition is not forward.
	AdvanceStatus(ctx context.Context, externalRef string, to PaymentStatus) (Payment, error)

	FindByRef(ctx context.Context, externalRef string) (Payment, error)
}
