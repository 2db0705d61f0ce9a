//go:build integration

package alliance

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabcore/internal/account"
	id "collabcore/pkg/domain"
	"collabcore/pkg/platform/sentinel"
	"collabcore/pkg/testutil/containers"
)

func seedAccounts(t *testing.T, pc *containers.PostgresContainer, n int) []id.AccountID {
	t.Helper()
	ctx := context.Background()
	accounts := account.NewPostgres(pc.DB)
	out := make([]id.AccountID, n)
	for i := range out {
		out[i] = id.NewAccountID()
		require.NoError(t, accounts.Create(ctx, account.Account{
			ID: out[i], Role: account.RoleTalent, ReputationScore: account.DefaultScore,
		}))
	}
	return out
}

func pendingAlliance(requester, receiver id.AccountID) Alliance {
	return Alliance{
		ID:          id.NewAllianceID(),
		RequesterID: requester,
		ReceiverID:  receiver,
		Status:      StatusPending,
	}
}

func TestPostgresStore_PairExclusivity(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	store := NewPostgres(pc.DB)
	ctx := context.Background()
	ids := seedAccounts(t, pc, 2)

	require.NoError(t, store.CreateIfPairFree(ctx, pendingAlliance(ids[0], ids[1])))

	// The constraint is on the unordered pair, so the reverse direction is
	// blocked too.
	err := store.CreateIfPairFree(ctx, pendingAlliance(ids[0], ids[1]))
	assert.ErrorIs(t, err, sentinel.ErrConflict)
	err = store.CreateIfPairFree(ctx, pendingAlliance(ids[1], ids[0]))
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestPostgresStore_RejectedRecordDoesNotBlockPair(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	store := NewPostgres(pc.DB)
	ctx := context.Background()
	ids := seedAccounts(t, pc, 2)

	a := pendingAlliance(ids[0], ids[1])
	require.NoError(t, store.CreateIfPairFree(ctx, a))
	_, err := store.RejectIfPending(ctx, a.ID, ids[1])
	require.NoError(t, err)

	// A rejected record occupies the pair until it is superseded.
	err = store.CreateIfPairFree(ctx, pendingAlliance(ids[1], ids[0]))
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	require.NoError(t, store.DeleteRejectedByPair(ctx, PairKey(ids[0], ids[1])))
	assert.NoError(t, store.CreateIfPairFree(ctx, pendingAlliance(ids[1], ids[0])))
}

func TestPostgresStore_AcceptIfPending_ConcurrentExactlyOneWinner(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	store := NewPostgres(pc.DB)
	ctx := context.Background()
	ids := seedAccounts(t, pc, 2)

	a := pendingAlliance(ids[0], ids[1])
	require.NoError(t, store.CreateIfPairFree(ctx, a))

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AcceptIfPending(ctx, a.ID, ids[1])
			switch {
			case err == nil:
				winners.Add(1)
			default:
				// Losers see no pending row matching the predicate.
				assert.ErrorIs(t, err, sentinel.ErrNotFound)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())

	got, err := store.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, got.Status)
}
