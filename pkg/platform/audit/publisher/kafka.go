// Package publisher streams audit events to Kafka for downstream consumers.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"collabcore/pkg/platform/audit"
)

// wireEvent is the JSON shape produced to the audit topic.
type wireEvent struct {
	Category  string    `json:"category"`
	Action    string    `json:"action"`
	AccountID string    `json:"account_id,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Kafka publishes audit events to a single topic, keyed by account so one
// account's trail stays ordered within a partition.
type Kafka struct {
	client *kgo.Client
	topic  string
}

func NewKafka(brokers []string, topic string) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(50*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Kafka{client: client, topic: topic}, nil
}

func (k *Kafka) Publish(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(wireEvent{
		Category:  string(event.Category),
		Action:    event.Action,
		AccountID: event.AccountID,
		Subject:   event.Subject,
		Detail:    event.Detail,
		RequestID: event.RequestID,
		Timestamp: event.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(event.AccountID),
		Value: value,
	}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

func (k *Kafka) Close() {
	k.client.Close()
}
