package verification

import (
	"context"
	"sync"
	"time"

	id "collabcore/pkg/domain"
	"collabcore/pkg/platform/sentinel"
)

type accountType struct {
	accountID id.AccountID
	vtype     string
}

type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.VerificationID]Entry
	byOwner map[accountType]id.VerificationID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[id.VerificationID]Entry),
		byOwner: make(map[accountType]id.VerificationID),
	}
}

func (s *InMemoryStore) UpsertSubmission(_ context.Context, entry Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := accountType{accountID: entry.AccountID, vtype: entry.Type}
	if existingID, ok := s.byOwner[key]; ok {
		// Overwrite keeps the original identity so reviewers holding the ID
		// still reference the same logical step.
		entry.ID = existingID
	}
	entry.Status = StatusSubmitted
	entry.ReviewerID = nil
	entry.ReviewedAt = nil
	if entry.SubmittedAt.IsZero() {
		entry.SubmittedAt = time.Now()
	}
	s.byID[entry.ID] = entry
	s.byOwner[key] = entry.ID
	return entry, nil
}

func (s *InMemoryStore) ApplyReview(_ context.Context, entryID id.VerificationID, status Status, reviewerID id.AccountID, reviewedAt time.Time) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.byID[entryID]
	if !ok {
		return Entry{}, sentinel.ErrNotFound
	}
	entry.Status = status
	entry.ReviewerID = &reviewerID
	entry.ReviewedAt = &reviewedAt
	s.byID[entryID] = entry
	return entry, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, entryID id.VerificationID) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entry, ok := s.byID[entryID]; ok {
		return entry, nil
	}
	return Entry{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListByAccount(_ context.Context, accountID id.AccountID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, entry := range s.byID {
		if entry.AccountID == accountID {
			out = append(out, entry)
		}
	}
	return out, nil
}
