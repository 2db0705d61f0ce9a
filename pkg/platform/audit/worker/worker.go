// Package worker drains the audit inbox into the store and, when configured,
// an external publisher.
package worker

import (
	"context"
	"log/slog"

	"collabcore/pkg/platform/audit"
	"collabcore/pkg/platform/circuit"
)

// Worker consumes audit events from a channel and persists them. Store and
// publish failures are logged, not fatal: losing one audit line must not
// take the worker down with it.
type Worker struct {
	store     audit.Store
	publisher audit.Publisher
	breaker   *circuit.Breaker
	skipped   int
	inbox     <-chan audit.Event
	logger    *slog.Logger
}

// probeEvery is how many events are skipped between trial publishes while
// the breaker is open.
const probeEvery = 10

func New(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// WithPublisher forwards each persisted event to an external sink. A breaker
// skips the sink while it is failing; the store remains the system of record
// either way.
func (w *Worker) WithPublisher(p audit.Publisher) *Worker {
	w.publisher = p
	w.breaker = circuit.New("audit-publisher",
		circuit.WithFailureThreshold(5),
		circuit.WithSuccessThreshold(2),
	)
	return w
}

// Run drains the inbox until the context is canceled. Events already queued
// when cancellation hits are flushed before returning.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.flush()
			return ctx.Err()
		case event := <-w.inbox:
			w.handle(ctx, event)
		}
	}
}

func (w *Worker) flush() {
	// The parent context is gone; give the remaining events a detached one.
	ctx := context.Background()
	for {
		select {
		case event := <-w.inbox:
			w.handle(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) handle(ctx context.Context, event audit.Event) {
	if err := w.store.Append(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "audit append failed",
			"category", string(event.Category),
			"action", event.Action,
			"error", err.Error(),
		)
		return
	}
	if w.publisher == nil {
		return
	}
	// While the breaker is open most events skip the sink; every probeEvery-th
	// event goes through as a trial so the breaker can close again.
	if w.breaker.IsOpen() {
		w.skipped++
		if w.skipped%probeEvery != 0 {
			return
		}
	}
	if err := w.publisher.Publish(ctx, event); err != nil {
		if _, change := w.breaker.RecordFailure(); change.Opened {
			w.logger.WarnContext(ctx, "audit publisher breaker opened")
		}
		w.logger.WarnContext(ctx, "audit publish failed",
			"category", string(event.Category),
			"action", event.Action,
			"error", err.Error(),
		)
		return
	}
	if _, change := w.breaker.RecordSuccess(); change.Closed {
		w.skipped = 0
		w.logger.InfoContext(ctx, "audit publisher breaker closed")
	}
}
