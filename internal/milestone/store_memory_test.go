package milestone

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "collabcore/pkg/domain"
	"collabcore/pkg/platform/sentinel"
)

func TestAdvanceEscrow_SingleForwardSteps(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	mid := id.NewMilestoneID()
	require.NoError(t, store.Create(ctx, Milestone{ID: mid, Title: "MVP demo"}))

	m, err := store.AdvanceEscrow(ctx, mid)
	require.NoError(t, err)
	assert.Equal(t, EscrowFunded, m.EscrowStatus)

	m, err = store.AdvanceEscrow(ctx, mid)
	require.NoError(t, err)
	assert.Equal(t, EscrowReleased, m.EscrowStatus)
}

func TestAdvanceEscrow_TerminalStatusRejected(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	for _, terminal := range []EscrowStatus{EscrowReleased, EscrowRefunded} {
		mid := id.NewMilestoneID()
		require.NoError(t, store.Create(ctx, Milestone{ID: mid, EscrowStatus: terminal}))

		_, err := store.AdvanceEscrow(ctx, mid)
		assert.ErrorIs(t, err, sentinel.ErrInvalidState, "status %s must be terminal", terminal)

		m, err := store.FindByID(ctx, mid)
		require.NoError(t, err)
		assert.Equal(t, terminal, m.EscrowStatus)
	}
}

func TestAdvanceEscrow_UnknownMilestone(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.AdvanceEscrow(context.Background(), id.NewMilestoneID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestCreate_DefaultsToUnfunded(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	mid := id.NewMilestoneID()
	require.NoError(t, store.Create(ctx, Milestone{ID: mid}))

	m, err := store.FindByID(ctx, mid)
	require.NoError(t, err)
	assert.Equal(t, EscrowUnfunded, m.EscrowStatus)

	assert.ErrorIs(t, store.Create(ctx, Milestone{ID: mid}), sentinel.ErrConflict)
}
