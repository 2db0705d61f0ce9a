//go:build integration

package notification

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabcore/pkg/testutil/containers"
)

func TestRedisSink_EnqueuePushesEnvelope(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	sink := NewRedisSink(rc.Client)
	ctx := context.Background()

	require.NoError(t, sink.Enqueue(ctx, "acct_1", TypePaymentReceived,
		"Payment received", "A payment has been released to you.",
		map[string]string{"payment_ref": "pay_1"}))
	require.NoError(t, sink.Enqueue(ctx, "acct_2", TypeAllianceRequested,
		"New alliance request", "Someone wants to ally with you.", nil))

	// The delivery side pops from the tail, so the first enqueue comes out
	// first.
	raw, err := rc.Client.RPop(ctx, QueueKey).Bytes()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "acct_1", env.AccountID)
	assert.Equal(t, TypePaymentReceived, env.Type)
	assert.Equal(t, "pay_1", env.Metadata["payment_ref"])

	n, err := rc.Client.LLen(ctx, QueueKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
