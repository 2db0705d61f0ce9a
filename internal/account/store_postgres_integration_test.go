//go:build integration

package account

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "collabcore/pkg/domain"
	"collabcore/pkg/testutil/containers"
)

func createAccount(t *testing.T, store *PostgresStore, score, level int) id.AccountID {
	t.Helper()
	accountID := id.NewAccountID()
	require.NoError(t, store.Create(context.Background(), Account{
		ID: accountID, Role: RoleFounder, ReputationScore: score, VerificationLevel: level,
	}))
	return accountID
}

func TestPostgresStore_IncrementScoreClamped(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	store := NewPostgres(pc.DB)
	ctx := context.Background()

	t.Run("single statement clamps both ends", func(t *testing.T) {
		accountID := createAccount(t, store, 97, 0)
		score, err := store.IncrementScoreClamped(ctx, accountID, 20)
		require.NoError(t, err)
		assert.Equal(t, 100, score)

		score, err = store.IncrementScoreClamped(ctx, accountID, -150)
		require.NoError(t, err)
		assert.Equal(t, 0, score)
	})

	t.Run("concurrent writers stay in range", func(t *testing.T) {
		accountID := createAccount(t, store, DefaultScore, 0)
		var wg sync.WaitGroup
		for i := 0; i < 30; i++ {
			wg.Add(1)
			delta := 7
			if i%2 == 1 {
				delta = -7
			}
			go func() {
				defer wg.Done()
				_, err := store.IncrementScoreClamped(ctx, accountID, delta)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		acct, err := store.FindByID(ctx, accountID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, acct.ReputationScore, 0)
		assert.LessOrEqual(t, acct.ReputationScore, 100)
	})
}

func TestPostgresStore_AdvanceLevelMonotonic(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	store := NewPostgres(pc.DB)
	ctx := context.Background()
	accountID := createAccount(t, store, DefaultScore, 1)

	level, advanced, err := store.AdvanceLevel(ctx, accountID, 3)
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, 3, level)

	level, advanced, err = store.AdvanceLevel(ctx, accountID, 2)
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Equal(t, 3, level)
}

func TestPostgresStore_MarkLadderCompleteFiresOnce(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	store := NewPostgres(pc.DB)
	ctx := context.Background()
	accountID := createAccount(t, store, DefaultScore, 3)

	first, err := store.MarkLadderComplete(ctx, accountID)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.MarkLadderComplete(ctx, accountID)
	require.NoError(t, err)
	assert.False(t, again)
}
