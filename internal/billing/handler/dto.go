package handler

import (
	"time"

	"collabcore/internal/billing"
)

// WebhookResponse acknowledges a settled event.
type WebhookResponse struct {
	Received bool `json:"received"`
}

// SubscriptionResponse is the wire shape of the caller's subscription.
type SubscriptionResponse struct {
	PlanTier           string     `json:"plan_tier"`
	Status             string     `json:"status"`
	Features           []string   `json:"features"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
}

func FromSubscription(sub billing.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		PlanTier:           string(sub.PlanTier),
		Status:             string(sub.Status),
		Features:           sub.Features,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
	}
}
