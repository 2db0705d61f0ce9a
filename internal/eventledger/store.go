package eventledger

import (
	"context"
	"time"
)

// Store is the durable dedup barrier.
type Store interface {
	// RecordIfNew inserts the record and reports whether this call created
	// it. When two callers race on the same externalID exactly one receives
	// true; the other must perform no further side effects.
	RecordIfNew(ctx context.Context, externalID, eventType string) (isNew bool, err error)

	// Seen reports whether the event was already recorded. Fast-path check
	// only; RecordIfNew remains the authoritative gate.
	Seen(ctx context.Context, externalID string) (bool, error)

	// PurgeBefore removes records processed before cutoff and returns the
	// number removed.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
