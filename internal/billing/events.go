package billing

import (
	"encoding/json"
	"fmt"
	"time"
)

// Inbound billing events form a tagged union: one variant per recognized
// event type plus a catch-all, so each handler's required fields are
// compile-time guaranteed instead of being plucked from untyped maps.

// Event is implemented by every variant.
type Event interface {
	// ExternalID is the processor's unique event identifier, the key the
	// event ledger dedups on.
	ExternalID() string
	// Type is the processor's event type string.
	Type() string
}

type envelope struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type header struct {
	id, typ string
}

func (h header) ExternalID() string { return h.id }
func (h header) Type() string       { return h.typ }

// Recognized processor event types.
const (
	TypeCheckoutCompleted    = "checkout.completed"
	TypeSubscriptionUpdated  = "subscription.updated"
	TypeSubscriptionDeleted  = "subscription.deleted"
	TypeInvoicePaid          = "invoice.paid"
	TypeInvoicePaymentFailed = "invoice.payment_failed"
	TypePaymentSucceeded     = "payment.succeeded"
	TypePaymentFailed        = "payment.failed"
	TypeChargeRefunded       = "charge.refunded"
)

// BillingReasonCycle marks a recurring-cycle invoice as opposed to the first
// invoice of a new subscription.
const BillingReasonCycle = "subscription_cycle"

type CheckoutCompleted struct {
	header
	AccountID       string    `json:"account_id"`
	PlanTier        string    `json:"plan_tier"`
	CustomerRef     string    `json:"customer_ref"`
	SubscriptionRef string    `json:"subscription_ref"`
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
}

type SubscriptionUpdated struct {
	header
	CustomerRef       string    `json:"customer_ref"`
	Status            string    `json:"status"`
	CancelAtPeriodEnd bool      `json:"cancel_at_period_end"`
	PeriodStart       time.Time `json:"period_start"`
	PeriodEnd         time.Time `json:"period_end"`
}

type SubscriptionDeleted struct {
	header
	CustomerRef string `json:"customer_ref"`
}

type InvoicePaid struct {
	header
	CustomerRef   string    `json:"customer_ref"`
	BillingReason string    `json:"billing_reason"`
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
}

type InvoicePaymentFailed struct {
	header
	CustomerRef string `json:"customer_ref"`
}

type PaymentSucceeded struct {
	header
	PaymentRef  string `json:"payment_ref"`
	PaymentType string `json:"payment_type"`
	// Amount is in minor currency units.
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	PlatformFee int64  `json:"platform_fee"`
	FromAccount string `json:"from_account"`
	ToAccount   string `json:"to_account"`
	// MilestoneID links the payment to a milestone when set.
	MilestoneID string `json:"milestone_id"`
}

type PaymentFailed struct {
	header
	PaymentRef string `json:"payment_ref"`
}

type ChargeRefunded struct {
	header
	PaymentRef string `json:"payment_ref"`
}

// Unrecognized carries event types this reconciler has no transition for.
// They are still recorded as processed so the upstream stops redelivering.
type Unrecognized struct {
	header
}

// ParseEvent decodes a verified payload into its variant.
func ParseEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode event envelope: %w", err)
	}
	if env.ID == "" {
		return nil, fmt.Errorf("event is missing an id")
	}
	if env.Type == "" {
		return nil, fmt.Errorf("event %s is missing a type", env.ID)
	}

	h := header{id: env.ID, typ: env.Type}
	var (
		ev  Event
		dst any
	)
	switch env.Type {
	case TypeCheckoutCompleted:
		v := &CheckoutCompleted{header: h}
		ev, dst = v, v
	case TypeSubscriptionUpdated:
		v := &SubscriptionUpdated{header: h}
		ev, dst = v, v
	case TypeSubscriptionDeleted:
		v := &SubscriptionDeleted{header: h}
		ev, dst = v, v
	case TypeInvoicePaid:
		v := &InvoicePaid{header: h}
		ev, dst = v, v
	case TypeInvoicePaymentFailed:
		v := &InvoicePaymentFailed{header: h}
		ev, dst = v, v
	case TypePaymentSucceeded:
		v := &PaymentSucceeded{header: h}
		ev, dst = v, v
	case TypePaymentFailed:
		v := &PaymentFailed{header: h}
		ev, dst = v, v
	case TypeChargeRefunded:
		v := &ChargeRefunded{header: h}
		ev, dst = v, v
	default:
		return &Unrecognized{header: h}, nil
	}

	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			return nil, fmt.Errorf("decode %s data: %w", env.Type, err)
		}
	}
	return ev, nil
}
