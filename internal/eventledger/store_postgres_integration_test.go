//go:build integration

package eventledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabcore/pkg/testutil/containers"
)

func TestPostgresStore_RecordIfNew_ConcurrentExactlyOneWinner(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	store := NewPostgres(pc.DB)
	ctx := context.Background()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			isNew, err := store.RecordIfNew(ctx, "evt_race", "payment.succeeded")
			assert.NoError(t, err)
			if isNew {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())

	seen, err := store.Seen(ctx, "evt_race")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestPostgresStore_PurgeBefore(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	store := NewPostgres(pc.DB)
	ctx := context.Background()

	isNew, err := store.RecordIfNew(ctx, "evt_old", "invoice.paid")
	require.NoError(t, err)
	require.True(t, isNew)
	isNew, err = store.RecordIfNew(ctx, "evt_recent", "invoice.paid")
	require.NoError(t, err)
	require.True(t, isNew)

	// Age one record past an hour so a one-hour cutoff catches only it.
	_, err = pc.DB.ExecContext(ctx,
		`UPDATE processed_events SET processed_at = processed_at - interval '2 hours' WHERE external_id = 'evt_old'`)
	require.NoError(t, err)

	purged, err := store.PurgeBefore(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	seen, err := store.Seen(ctx, "evt_old")
	require.NoError(t, err)
	assert.False(t, seen, "purged event must be processable again")

	seen, err = store.Seen(ctx, "evt_recent")
	require.NoError(t, err)
	assert.True(t, seen)
}
