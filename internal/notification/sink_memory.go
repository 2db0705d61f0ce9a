package notification

import (
	"context"
	"log/slog"
	"sync"
)

// MemorySink collects envelopes for assertions in tests and for dev mode.
type MemorySink struct {
	mu        sync.Mutex
	envelopes []Envelope
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Enqueue(_ context.Context, accountID, ntype, title, message string, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envelopes = append(s.envelopes, Envelope{
		AccountID: accountID,
		Type:      ntype,
		Title:     title,
		Message:   message,
		Metadata:  metadata,
	})
	return nil
}

// Sent returns a copy of everything enqueued so far.
func (s *MemorySink) Sent() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Envelope{}, s.envelopes...)
}

// SentTo filters by receiving account.
func (s *MemorySink) SentTo(accountID string) []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Envelope
	for _, e := range s.envelopes {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out
}

// LogSink writes notifications to the log; used when no queue is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Enqueue(ctx context.Context, accountID, ntype, title, _ string, _ map[string]string) error {
	s.logger.InfoContext(ctx, "notification",
		"account_id", accountID,
		"type", ntype,
		"title", title,
	)
	return nil
}
