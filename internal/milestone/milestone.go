// Package milestone holds the minimal slice of milestone state this core
// touches: the escrow lifecycle of a held payment. Full milestone CRUD lives
// with the rest of the application.
package milestone

import (
	"context"
	"time"

	id "collabcore/pkg/domain"
)

// EscrowStatus is the funding lifecycle of a milestone's held payment.
type EscrowStatus string

const (
	EscrowUnfunded EscrowStatus = "unfunded"
	EscrowFunded   EscrowStatus = "funded"
	EscrowReleased EscrowStatus = "released"
	EscrowRefunded EscrowStatus = "refunded"
)

// next returns the single forward step from a status, or "" when terminal.
func next(s EscrowStatus) EscrowStatus {
	switch s {
	case EscrowUnfunded:
		return EscrowFunded
	case EscrowFunded:
		return EscrowReleased
	default:
		return ""
	}
}

// Milestone is the escrow-relevant projection of a milestone record.
type Milestone struct {
	ID           id.MilestoneID
	Title        string
	EscrowStatus EscrowStatus
	UpdatedAt    time.Time
}

// Store advances escrow state. AdvanceEscrow moves exactly one step forward
// as a single conditional update; a terminal status yields
// sentinel.ErrInvalidState. The payment path only calls it on the first
// recording of a payment, so redelivery never advances twice.
type Store interface {
	Create(ctx context.Context, m Milestone) error
	FindByID(ctx context.Context, milestoneID id.MilestoneID) (Milestone, error)
	AdvanceEscrow(ctx context.Context, milestoneID id.MilestoneID) (Milestone, error)
}
