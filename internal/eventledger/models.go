// Package eventledger is the idempotency barrier for externally delivered
// events. The insert itself is the concurrency gate: a unique constraint on
// the external identifier decides, globally, which delivery of an event is
// the first one. Everything downstream relies on that single fact.
package eventledger

import "time"

// Record marks one external event as handled. Created once, never updated.
// Records older than the upstream redelivery window may be purged without
// affecting correctness; redelivery past the window does not occur (an
// assumption documented here, not enforced).
type Record struct {
	ExternalID  string
	EventType   string
	ProcessedAt time.Time
}
