package audit

import (
	"context"
	"log/slog"
	"time"
)

// Recorder is the producer side of the trail. Emit never blocks the caller:
// when the inbox is full the event is dropped and counted, because a slow
// audit sink must not stall a domain operation.
type Recorder struct {
	inbox   chan Event
	dropped func()
	logger  *slog.Logger
}

type RecorderOption func(*Recorder)

// WithDropCounter installs a callback fired once per dropped event.
func WithDropCounter(fn func()) RecorderOption {
	return func(r *Recorder) { r.dropped = fn }
}

func NewRecorder(buffer int, logger *slog.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Emit queues the event for the background worker.
func (r *Recorder) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case r.inbox <- event:
	default:
		if r.dropped != nil {
			r.dropped()
		}
		r.logger.WarnContext(ctx, "audit inbox full, event dropped",
			"category", string(event.Category),
			"action", event.Action,
		)
	}
}

// Inbox exposes the consumer end for the worker.
func (r *Recorder) Inbox() <-chan Event { return r.inbox }
