package reputation

import (
	"context"
	"sync"
	"time"

	id "collabcore/pkg/domain"
)

type InMemoryEntryStore struct {
	mu      sync.RWMutex
	entries map[id.AccountID][]Entry
}

func NewInMemoryEntryStore() *InMemoryEntryStore {
	return &InMemoryEntryStore{entries: make(map[id.AccountID][]Entry)}
}

func (s *InMemoryEntryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.entries[entry.AccountID] = append(s.entries[entry.AccountID], entry)
	return nil
}

func (s *InMemoryEntryStore) ListByAccount(_ context.Context, accountID id.AccountID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry{}, s.entries[accountID]...), nil
}
