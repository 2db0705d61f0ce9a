package alliance

import (
	"context"
	"sync"
	"time"

	id "collabcore/pkg/domain"
	"collabcore/pkg/platform/sentinel"
)

// InMemoryStore holds one mutex across all operations, which gives each of
// them the same atomicity the Postgres conditional updates provide.
type InMemoryStore struct {
	mu        sync.RWMutex
	alliances map[id.AllianceID]Alliance
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{alliances: make(map[id.AllianceID]Alliance)}
}

func (s *InMemoryStore) CreateIfPairFree(_ context.Context, a Alliance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := PairKey(a.RequesterID, a.ReceiverID)
	for _, existing := range s.alliances {
		if existing.Status != StatusRejected && PairKey(existing.RequesterID, existing.ReceiverID) == key {
			return sentinel.ErrConflict
		}
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.UpdatedAt = a.CreatedAt
	s.alliances[a.ID] = a
	return nil
}

func (s *InMemoryStore) DeleteRejectedByPair(_ context.Context, pairKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for aid, existing := range s.alliances {
		if existing.Status == StatusRejected && PairKey(existing.RequesterID, existing.ReceiverID) == pairKey {
			delete(s.alliances, aid)
		}
	}
	return nil
}

func (s *InMemoryStore) AcceptIfPending(_ context.Context, allianceID id.AllianceID, receiver id.AccountID) (Alliance, error) {
	return s.transitionIfPending(allianceID, receiver, StatusAccepted)
}

func (s *InMemoryStore) RejectIfPending(_ context.Context, allianceID id.AllianceID, receiver id.AccountID) (Alliance, error) {
	return s.transitionIfPending(allianceID, receiver, StatusRejected)
}

func (s *InMemoryStore) transitionIfPending(allianceID id.AllianceID, receiver id.AccountID, to Status) (Alliance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alliances[allianceID]
	if !ok || a.Status != StatusPending || a.ReceiverID != receiver {
		return Alliance{}, sentinel.ErrNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	s.alliances[allianceID] = a
	return a, nil
}

func (s *InMemoryStore) DeleteIfAcceptedMember(_ context.Context, allianceID id.AllianceID, member id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alliances[allianceID]
	if !ok || a.Status != StatusAccepted || !a.Involves(member) {
		return sentinel.ErrNotFound
	}
	delete(s.alliances, allianceID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, allianceID id.AllianceID) (Alliance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.alliances[allianceID]; ok {
		return a, nil
	}
	return Alliance{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindLiveByPair(_ context.Context, pairKey string) (Alliance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.alliances {
		if a.Status != StatusRejected && PairKey(a.RequesterID, a.ReceiverID) == pairKey {
			return a, nil
		}
	}
	return Alliance{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListByAccount(_ context.Context, accountID id.AccountID) ([]Alliance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Alliance
	for _, a := range s.alliances {
		if a.Involves(accountID) {
			out = append(out, a)
		}
	}
	return out, nil
}
