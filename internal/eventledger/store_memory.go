package eventledger

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is the test and dev implementation. The mutex gives the same
// exactly-one-winner semantics the Postgres unique constraint provides.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

func (s *InMemoryStore) RecordIfNew(_ context.Context, externalID, eventType string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[externalID]; exists {
		return false, nil
	}
	s.records[externalID] = Record{
		ExternalID:  externalID,
		EventType:   eventType,
		ProcessedAt: time.Now(),
	}
	return true, nil
}

func (s *InMemoryStore) Seen(_ context.Context, externalID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.records[externalID]
	return exists, nil
}

func (s *InMemoryStore) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for key, rec := range s.records {
		if rec.ProcessedAt.Before(cutoff) {
			delete(s.records, key)
			purged++
		}
	}
	return purged, nil
}
