package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: a uniqueness constraint rejected the write
// - ErrInvalidState: entity in wrong state for requested transition
// - ErrAlreadyProcessed: event or payment reference was recorded before
// - ErrUnavailable: storage temporarily unavailable; caller may retry
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrUnavailable      = errors.New("unavailable")
)
