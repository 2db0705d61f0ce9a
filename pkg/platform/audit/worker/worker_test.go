package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabcore/pkg/platform/audit"
	"collabcore/pkg/platform/audit/store/memory"
)

type fakePublisher struct {
	mu        sync.Mutex
	err       error
	published []audit.Event
}

func (p *fakePublisher) Publish(_ context.Context, event audit.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, event)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func (p *fakePublisher) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func event(action string) audit.Event {
	return audit.Event{
		Category:  audit.CategoryAlliance,
		Action:    action,
		AccountID: "acct_1",
		Timestamp: time.Now(),
	}
}

func TestRun_DrainsInboxIntoStore(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	recorder := audit.NewRecorder(16, logger)
	store := memory.New()
	w := New(store, recorder.Inbox(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	for i := 0; i < 5; i++ {
		recorder.Emit(context.Background(), event("alliance.accepted"))
	}

	require.Eventually(t, func() bool {
		return len(store.All()) == 5
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestRun_FlushesQueuedEventsOnShutdown(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	recorder := audit.NewRecorder(16, logger)
	store := memory.New()
	w := New(store, recorder.Inbox(), logger)

	// Queue before the worker ever runs, then cancel immediately: the
	// shutdown path must still persist what was already accepted.
	for i := 0; i < 3; i++ {
		recorder.Emit(context.Background(), event("alliance.requested"))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, store.All(), 3)
}

func TestEmit_DropsWhenInboxFull(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	var drops int
	recorder := audit.NewRecorder(2, logger, audit.WithDropCounter(func() { drops++ }))

	// No worker draining; the third emit has nowhere to go.
	for i := 0; i < 3; i++ {
		recorder.Emit(context.Background(), event("verification.reviewed"))
	}
	assert.Equal(t, 1, drops)
}

func TestHandle_BreakerSkipsFailingPublisher(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	store := memory.New()
	publisher := &fakePublisher{}
	publisher.setErr(errors.New("broker unreachable"))

	inbox := make(chan audit.Event)
	w := New(store, inbox, logger).WithPublisher(publisher)

	// Five consecutive failures open the breaker; after that, publishes are
	// skipped except for periodic probes, but the store keeps every event.
	for i := 0; i < 12; i++ {
		w.handle(context.Background(), event("billing.payment.succeeded"))
	}
	assert.Len(t, store.All(), 12)
	assert.Equal(t, 0, publisher.count())
	assert.True(t, w.breaker.IsOpen())

	// Once the sink recovers, probe successes close the breaker again and
	// publishing resumes for every event.
	publisher.setErr(nil)
	for i := 0; i < 25; i++ {
		w.handle(context.Background(), event("billing.payment.succeeded"))
	}
	assert.False(t, w.breaker.IsOpen())
	assert.Greater(t, publisher.count(), 2)
}
