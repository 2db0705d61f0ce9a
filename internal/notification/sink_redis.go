package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// QueueKey is the Redis list the delivery workers consume.
const QueueKey = "collabcore:notifications"

// RedisSink pushes envelopes onto a Redis list. The delivery side BRPOPs.
type RedisSink struct {
	client redis.Cmdable
}

func NewRedisSink(client redis.Cmdable) *RedisSink {
	return &RedisSink{client: client}
}

func (s *RedisSink) Enqueue(ctx context.Context, accountID, ntype, title, message string, metadata map[string]string) error {
	payload, err := json.Marshal(Envelope{
		AccountID: accountID,
		Type:      ntype,
		Title:     title,
		Message:   message,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := s.client.LPush(ctx, QueueKey, payload).Err(); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}
