package verification

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabcore/internal/account"
	"collabcore/internal/notification"
	"collabcore/internal/reputation"
	id "collabcore/pkg/domain"
	dErrors "collabcore/pkg/domain-errors"
)

type fixture struct {
	svc      *Service
	accounts *account.InMemoryStore
	sink     *notification.MemorySink
	reviewer id.AccountID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	accounts := account.NewInMemoryStore()
	logger := slog.New(slog.DiscardHandler)
	rep := reputation.NewService(reputation.NewInMemoryEntryStore(), accounts, logger)
	sink := notification.NewMemorySink()
	directory := account.NewDirectory(accounts)
	svc := NewService(NewInMemoryStore(), accounts, directory, rep, sink, logger)
	return &fixture{svc: svc, accounts: accounts, sink: sink, reviewer: id.NewAccountID()}
}

func (f *fixture) addAccount(t *testing.T, role account.Role) id.AccountID {
	t.Helper()
	accountID := id.NewAccountID()
	require.NoError(t, f.accounts.Create(context.Background(), account.Account{
		ID: accountID, Role: role, ReputationScore: account.DefaultScore,
	}))
	return accountID
}

func TestSubmit_ValidatesTypeAgainstRoleLadder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	talent := f.addAccount(t, account.RoleTalent)

	entry, err := f.svc.Submit(ctx, talent, "skill_assessment", []string{"https://example.com/cert"})
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, entry.Status)
	assert.Equal(t, 2, entry.Level)
	assert.Equal(t, 5, entry.ScoreImpact)

	// accreditation belongs to the investor ladder, not talent.
	_, err = f.svc.Submit(ctx, talent, "accreditation", nil)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = f.svc.Submit(ctx, talent, "nonsense", nil)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestSubmit_DedupesEvidence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	talent := f.addAccount(t, account.RoleTalent)

	entry, err := f.svc.Submit(ctx, talent, "identity", []string{" doc.pdf ", "doc.pdf", "", "other.pdf"})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc.pdf", "other.pdf"}, entry.Evidence)
}

func TestSubmit_ResubmissionResetsStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	talent := f.addAccount(t, account.RoleTalent)

	entry, err := f.svc.Submit(ctx, talent, "identity", []string{"v1.pdf"})
	require.NoError(t, err)
	_, err = f.svc.Review(ctx, entry.ID, DecisionReject, f.reviewer)
	require.NoError(t, err)

	// Resubmitting the same type is a retry, not a duplicate.
	again, err := f.svc.Submit(ctx, talent, "identity", []string{"v2.pdf"})
	require.NoError(t, err)
	assert.Equal(t, entry.ID, again.ID, "one entry per (account, type)")
	assert.Equal(t, StatusSubmitted, again.Status)
	assert.Equal(t, []string{"v2.pdf"}, again.Evidence)

	entries, err := f.svc.Progress(ctx, talent)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReview_ApproveAdvancesLevelAndCreditsScore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	talent := f.addAccount(t, account.RoleTalent)

	entry, err := f.svc.Submit(ctx, talent, "identity", nil)
	require.NoError(t, err)

	result, err := f.svc.Review(ctx, entry.ID, DecisionApprove, f.reviewer)
	require.NoError(t, err)
	assert.True(t, result.LevelAdvanced)
	assert.Equal(t, 1, result.NewLevel)
	assert.Equal(t, StatusApproved, result.Entry.Status)
	require.NotNil(t, result.Entry.ReviewerID)
	assert.Equal(t, f.reviewer, *result.Entry.ReviewerID)

	acct, err := f.accounts.FindByID(ctx, talent)
	require.NoError(t, err)
	assert.Equal(t, 1, acct.VerificationLevel)
	assert.Equal(t, account.DefaultScore+2, acct.ReputationScore)
}

func TestReview_RejectLeavesLevelAndScore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	talent := f.addAccount(t, account.RoleTalent)

	entry, err := f.svc.Submit(ctx, talent, "identity", nil)
	require.NoError(t, err)

	result, err := f.svc.Review(ctx, entry.ID, DecisionReject, f.reviewer)
	require.NoError(t, err)
	assert.False(t, result.LevelAdvanced)
	assert.Equal(t, StatusRejected, result.Entry.Status)

	acct, err := f.accounts.FindByID(ctx, talent)
	require.NoError(t, err)
	assert.Equal(t, 0, acct.VerificationLevel)
	assert.Equal(t, account.DefaultScore, acct.ReputationScore)
}

func TestReview_OutOfOrderApprovalSetsLevelDirectly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	talent := f.addAccount(t, account.RoleTalent)

	// Rung 2 approved before rung 1.
	entry, err := f.svc.Submit(ctx, talent, "skill_assessment", nil)
	require.NoError(t, err)
	result, err := f.svc.Review(ctx, entry.ID, DecisionApprove, f.reviewer)
	require.NoError(t, err)
	assert.True(t, result.LevelAdvanced)
	assert.Equal(t, 2, result.NewLevel)

	// Approving rung 1 afterwards must not regress the level.
	entry, err = f.svc.Submit(ctx, talent, "identity", nil)
	require.NoError(t, err)
	result, err = f.svc.Review(ctx, entry.ID, DecisionApprove, f.reviewer)
	require.NoError(t, err)
	assert.False(t, result.LevelAdvanced)
	assert.Equal(t, 2, result.NewLevel)

	acct, err := f.accounts.FindByID(ctx, talent)
	require.NoError(t, err)
	assert.Equal(t, 2, acct.VerificationLevel)
}

func TestReview_LadderCompletionNotifiesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	investor := f.addAccount(t, account.RoleInvestor)

	for _, vtype := range []string{"identity", "accreditation", "track_record"} {
		entry, err := f.svc.Submit(ctx, investor, vtype, nil)
		require.NoError(t, err)
		_, err = f.svc.Review(ctx, entry.ID, DecisionApprove, f.reviewer)
		require.NoError(t, err)
	}

	acct, err := f.accounts.FindByID(ctx, investor)
	require.NoError(t, err)
	assert.Equal(t, 3, acct.VerificationLevel)

	var completions int
	for _, env := range f.sink.SentTo(investor.String()) {
		if env.Type == notification.TypeVerificationComplete {
			completions++
		}
	}
	assert.Equal(t, 1, completions)

	// A re-review of the top rung reaches the completion check again but the
	// one-time flag holds.
	entry, err := f.svc.Submit(ctx, investor, "track_record", nil)
	require.NoError(t, err)
	_, err = f.svc.Review(ctx, entry.ID, DecisionApprove, f.reviewer)
	require.NoError(t, err)

	completions = 0
	for _, env := range f.sink.SentTo(investor.String()) {
		if env.Type == notification.TypeVerificationComplete {
			completions++
		}
	}
	assert.Equal(t, 1, completions, "completion notification must not repeat")
}

func TestReview_UnknownEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Review(ctx, id.NewVerificationID(), DecisionApprove, f.reviewer)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestLadders_EveryRoleHasOrderedRungs(t *testing.T) {
	for role, steps := range Ladders {
		require.NotEmpty(t, steps, "role %s", role)
		for i, step := range steps {
			assert.Equal(t, i+1, step.Level, "role %s rung %d", role, i)
		}
	}
}
