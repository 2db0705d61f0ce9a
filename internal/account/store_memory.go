package account

import (
	"context"
	"sync"
	"time"

	id "collabcore/pkg/domain"
	"collabcore/pkg/platform/sentinel"
)

// InMemoryStore keeps the counter contracts correct under concurrency with a
// single mutex. Used by unit tests and dev mode.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[id.AccountID]*Account
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{accounts: make(map[id.AccountID]*Account)}
}

func (s *InMemoryStore) Create(_ context.Context, acct Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[acct.ID]; exists {
		return sentinel.ErrConflict
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = time.Now()
	}
	s.accounts[acct.ID] = &acct
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, accountID id.AccountID) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if acct, ok := s.accounts[accountID]; ok {
		return *acct, nil
	}
	return Account{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) IncrementScoreClamped(_ context.Context, accountID id.AccountID, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[accountID]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	acct.ReputationScore = clamp(acct.ReputationScore + delta)
	return acct.ReputationScore, nil
}

func (s *InMemoryStore) SetScore(_ context.Context, accountID id.AccountID, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[accountID]
	if !ok {
		return sentinel.ErrNotFound
	}
	acct.ReputationScore = clamp(score)
	return nil
}

func (s *InMemoryStore) AdvanceLevel(_ context.Context, accountID id.AccountID, level int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[accountID]
	if !ok {
		return 0, false, sentinel.ErrNotFound
	}
	if level > acct.VerificationLevel {
		acct.VerificationLevel = level
		return level, true, nil
	}
	return acct.VerificationLevel, false, nil
}

func (s *InMemoryStore) MarkLadderComplete(_ context.Context, accountID id.AccountID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[accountID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if acct.LadderCompletedAt != nil {
		return false, nil
	}
	now := time.Now()
	acct.LadderCompletedAt = &now
	return true, nil
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
