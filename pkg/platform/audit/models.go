// Package audit records who did what across the reconciliation core. Events
// flow through a channel into a background worker, so domain paths never
// block on the trail.
package audit

import (
	"context"
	"time"
)

// Category groups events by the module that emitted them.
type Category string

const (
	CategoryAlliance     Category = "alliance"
	CategoryVerification Category = "verification"
	CategoryReputation   Category = "reputation"
	CategoryBilling      Category = "billing"
)

// Event is one append-only audit record.
type Event struct {
	Category  Category
	Action    string
	AccountID string
	Subject   string
	Detail    string
	RequestID string
	Timestamp time.Time
}

// Store persists audit events. Append-only; there is no update or delete.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAccount(ctx context.Context, accountID string) ([]Event, error)
}

// Publisher forwards events to an external sink after they are persisted.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
