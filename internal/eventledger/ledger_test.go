package eventledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRecordIfNew_FirstDeliveryWins(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	isNew, err := store.RecordIfNew(ctx, "evt_1", "payment.succeeded")
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = store.RecordIfNew(ctx, "evt_1", "payment.succeeded")
	require.NoError(t, err)
	assert.False(t, isNew, "second delivery must not be new")

	seen, err := store.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = store.Seen(ctx, "evt_2")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRecordIfNew_ConcurrentDeliveriesExactlyOneWinner(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	const workers = 50
	var winners atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			isNew, err := store.RecordIfNew(ctx, "evt_contended", "checkout.completed")
			require.NoError(t, err)
			if isNew {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(1), winners.Load(), "exactly one delivery may win the insert")
}

func TestLedger_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	for i := 0; i < 5; i++ {
		_, err := store.RecordIfNew(ctx, fmt.Sprintf("evt_%d", i), "invoice.paid")
		require.NoError(t, err)
	}
	// Age the records past the window.
	store.mu.Lock()
	for key, rec := range store.records {
		rec.ProcessedAt = rec.ProcessedAt.Add(-2 * time.Hour)
		store.records[key] = rec
	}
	store.mu.Unlock()
	_, err := store.RecordIfNew(ctx, "evt_recent", "invoice.paid")
	require.NoError(t, err)

	ledger := New(store, time.Hour, testLogger())
	require.NoError(t, ledger.PurgeExpired(ctx))

	for i := 0; i < 5; i++ {
		seen, err := store.Seen(ctx, fmt.Sprintf("evt_%d", i))
		require.NoError(t, err)
		assert.False(t, seen, "aged record should be purged")
	}
	seen, err := store.Seen(ctx, "evt_recent")
	require.NoError(t, err)
	assert.True(t, seen, "record inside the window must survive")
}

func TestLedger_RecordAfterPurgeIsNewAgain(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	ledger := New(store, 0, testLogger())

	isNew, err := ledger.RecordIfNew(ctx, "evt_cycle", "subscription.updated")
	require.NoError(t, err)
	require.True(t, isNew)

	// Zero retention purges everything immediately.
	time.Sleep(time.Millisecond)
	require.NoError(t, ledger.PurgeExpired(ctx))

	isNew, err = ledger.RecordIfNew(ctx, "evt_cycle", "subscription.updated")
	require.NoError(t, err)
	assert.True(t, isNew, "purged id is treated as first delivery again")
}
