// Package domain holds typed identifiers shared across modules. Distinct
// types prevent an account ID from being passed where an alliance ID is
// expected; the compiler enforces what code review would otherwise have to.
package domain

import (
	"github.com/google/uuid"

	dErrors "collabcore/pkg/domain-errors"
)

type (
	AccountID      uuid.UUID
	AllianceID     uuid.UUID
	MilestoneID    uuid.UUID
	VerificationID uuid.UUID
	EntryID        uuid.UUID
)

func (id AccountID) String() string      { return uuid.UUID(id).String() }
func (id AllianceID) String() string     { return uuid.UUID(id).String() }
func (id MilestoneID) String() string    { return uuid.UUID(id).String() }
func (id VerificationID) String() string { return uuid.UUID(id).String() }

func (id AccountID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

func (id EntryID) String() string { return uuid.UUID(id).String() }

func NewAccountID() AccountID           { return AccountID(uuid.New()) }
func NewEntryID() EntryID               { return EntryID(uuid.New()) }
func NewAllianceID() AllianceID         { return AllianceID(uuid.New()) }
func NewMilestoneID() MilestoneID       { return MilestoneID(uuid.New()) }
func NewVerificationID() VerificationID { return VerificationID(uuid.New()) }

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs. All typed parsers funnel through it.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be empty")
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be the nil UUID")
	}
	return u, nil
}

func ParseAccountID(raw string) (AccountID, error) {
	u, err := parseUUID(raw, "account")
	return AccountID(u), err
}

func ParseAllianceID(raw string) (AllianceID, error) {
	u, err := parseUUID(raw, "alliance")
	return AllianceID(u), err
}

func ParseMilestoneID(raw string) (MilestoneID, error) {
	u, err := parseUUID(raw, "milestone")
	return MilestoneID(u), err
}

func ParseVerificationID(raw string) (VerificationID, error) {
	u, err := parseUUID(raw, "verification")
	return VerificationID(u), err
}
