package reputation

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabcore/internal/account"
	id "collabcore/pkg/domain"
	dErrors "collabcore/pkg/domain-errors"
)

func newTestService(t *testing.T) (*Service, *account.InMemoryStore, id.AccountID) {
	t.Helper()
	accounts := account.NewInMemoryStore()
	accountID := id.NewAccountID()
	require.NoError(t, accounts.Create(context.Background(), account.Account{
		ID:              accountID,
		Role:            account.RoleTalent,
		ReputationScore: account.DefaultScore,
	}))
	svc := NewService(NewInMemoryEntryStore(), accounts, slog.New(slog.DiscardHandler))
	return svc, accounts, accountID
}

func TestApplyDelta_AppendsEntryAndMovesAggregate(t *testing.T) {
	ctx := context.Background()
	svc, _, accountID := newTestService(t)

	aggregate, err := svc.ApplyDelta(ctx, accountID, 3, ReasonAllianceAccepted, CategoryAgreement)
	require.NoError(t, err)
	assert.Equal(t, 53, aggregate)

	aggregate, err = svc.ApplyDelta(ctx, accountID, -5, ReasonDisputeRaised, CategoryDispute)
	require.NoError(t, err)
	assert.Equal(t, 48, aggregate)

	history, err := svc.History(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 3, history[0].ScoreDelta)
	assert.Equal(t, ReasonAllianceAccepted, history[0].ReasonCode)
	assert.Equal(t, -5, history[1].ScoreDelta)
}

func TestApplyDelta_RejectsZero(t *testing.T) {
	ctx := context.Background()
	svc, _, accountID := newTestService(t)

	_, err := svc.ApplyDelta(ctx, accountID, 0, ReasonManualAdjustment, CategoryCompletion)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	history, err := svc.History(ctx, accountID)
	require.NoError(t, err)
	assert.Empty(t, history, "rejected delta must not leave an entry")
}

func TestApplyDelta_UnknownAccount(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.ApplyDelta(ctx, id.NewAccountID(), 5, ReasonMilestonePaid, CategoryCompletion)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestApplyDelta_ClampsAtBounds(t *testing.T) {
	ctx := context.Background()
	svc, accounts, accountID := newTestService(t)

	// Push past the ceiling.
	for i := 0; i < 20; i++ {
		_, err := svc.ApplyDelta(ctx, accountID, 5, ReasonMilestonePaid, CategoryCompletion)
		require.NoError(t, err)
	}
	acct, err := accounts.FindByID(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 100, acct.ReputationScore)

	// A later penalty applies from the clamped value, not the raw sum.
	aggregate, err := svc.ApplyDelta(ctx, accountID, -10, ReasonDisputeRaised, CategoryDispute)
	require.NoError(t, err)
	assert.Equal(t, 90, aggregate)

	// And through the floor.
	for i := 0; i < 30; i++ {
		_, err := svc.ApplyDelta(ctx, accountID, -10, ReasonDisputeRaised, CategoryDispute)
		require.NoError(t, err)
	}
	acct, err = accounts.FindByID(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 0, acct.ReputationScore)
}

func TestApplyDelta_ConcurrentDeltasConverge(t *testing.T) {
	ctx := context.Background()
	svc, accounts, accountID := newTestService(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ApplyDelta(ctx, accountID, 2, ReasonMilestonePaid, CategoryCompletion)
			assert.NoError(t, err)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ApplyDelta(ctx, accountID, -1, ReasonDisputeRaised, CategoryDispute)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	acct, err := accounts.FindByID(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 60, acct.ReputationScore, "50 + 10*2 - 10*1")

	history, err := svc.History(ctx, accountID)
	require.NoError(t, err)
	assert.Len(t, history, 20)
}

func TestRecompute_DerivesFromLogAndOverwrites(t *testing.T) {
	ctx := context.Background()
	svc, accounts, accountID := newTestService(t)

	// 2 completions, 1 agreement, 1 approved verification worth 5, 1 dispute.
	for i := 0; i < 2; i++ {
		_, err := svc.ApplyDelta(ctx, accountID, 5, ReasonMilestonePaid, CategoryCompletion)
		require.NoError(t, err)
	}
	_, err := svc.ApplyDelta(ctx, accountID, 3, ReasonAllianceAccepted, CategoryAgreement)
	require.NoError(t, err)
	_, err = svc.ApplyDelta(ctx, accountID, 5, ReasonVerificationApproved, CategoryVerification)
	require.NoError(t, err)
	_, err = svc.ApplyDelta(ctx, accountID, -10, ReasonDisputeRaised, CategoryDispute)
	require.NoError(t, err)

	// Simulate drift: the aggregate no longer matches the log.
	require.NoError(t, accounts.SetScore(ctx, accountID, 7))

	// 40 + min(2*5,30) + min(1*3,15) + min(0*2,10) + min(5,15) - min(1*10,40)
	score, err := svc.Recompute(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 48, score)

	acct, err := accounts.FindByID(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 48, acct.ReputationScore, "recompute always overwrites the running value")
}

func TestRecompute_CapsContributions(t *testing.T) {
	ctx := context.Background()
	svc, _, accountID := newTestService(t)

	// 20 completions would be worth 100 raw; the cap holds them to 30.
	for i := 0; i < 20; i++ {
		_, err := svc.ApplyDelta(ctx, accountID, 5, ReasonMilestonePaid, CategoryCompletion)
		require.NoError(t, err)
	}

	score, err := svc.Recompute(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 70, score, "40 base + capped 30 for completions")
}

func TestRecompute_EmptyLogYieldsBase(t *testing.T) {
	ctx := context.Background()
	svc, _, accountID := newTestService(t)

	score, err := svc.Recompute(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 40, score)
}
