package milestone

import (
	"context"
	"sync"
	"time"

	id "collabcore/pkg/domain"
	"collabcore/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu         sync.RWMutex
	milestones map[id.MilestoneID]Milestone
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{milestones: make(map[id.MilestoneID]Milestone)}
}

func (s *InMemoryStore) Create(_ context.Context, m Milestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.milestones[m.ID]; exists {
		return sentinel.ErrConflict
	}
	if m.EscrowStatus == "" {
		m.EscrowStatus = EscrowUnfunded
	}
	m.UpdatedAt = time.Now()
	s.milestones[m.ID] = m
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, milestoneID id.MilestoneID) (Milestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.milestones[milestoneID]; ok {
		return m, nil
	}
	return Milestone{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) AdvanceEscrow(_ context.Context, milestoneID id.MilestoneID) (Milestone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.milestones[milestoneID]
	if !ok {
		return Milestone{}, sentinel.ErrNotFound
	}
	to := next(m.EscrowStatus)
	if to == "" {
		return Milestone{}, sentinel.ErrInvalidState
	}
	m.EscrowStatus = to
	m.UpdatedAt = time.Now()
	s.milestones[milestoneID] = m
	return m, nil
}
