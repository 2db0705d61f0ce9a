package billing

import (
	"context"
	"sync"
	"time"

	id "collabcore/pkg/domain"
	"collabcore/pkg/platform/sentinel"
)

type InMemorySubscriptionStore struct {
	mu   sync.RWMutex
	subs map[id.AccountID]Subscription
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{subs: make(map[id.AccountID]Subscription)}
}

func (s *InMemorySubscriptionStore) Upsert(_ context.Context, sub Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub.UpdatedAt = time.Now()
	s.subs[sub.AccountID] = sub
	return nil
}

func (s *InMemorySubscriptionStore) ApplyByCustomerRef(_ context.Context, customerRef string, change SubscriptionChange) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for accountID, sub := range s.subs {
		if sub.CustomerRef != customerRef {
			continue
		}
		if change.Status != nil {
			sub.Status = *change.Status
		}
		if change.PlanTier != nil {
			sub.PlanTier = *change.PlanTier
		}
		if change.Features != nil {
			sub.Features = append([]string{}, change.Features...)
		}
		if change.CancelAtPeriodEnd != nil {
			sub.CancelAtPeriodEnd = *change.CancelAtPeriodEnd
		}
		if change.PeriodStart != nil {
			sub.CurrentPeriodStart = change.PeriodStart
		}
		if change.PeriodEnd != nil {
			sub.CurrentPeriodEnd = change.PeriodEnd
		}
		sub.UpdatedAt = time.Now()
		s.subs[accountID] = sub
		return sub, nil
	}
	return Subscription{}, sentinel.ErrNotFound
}

func (s *InMemorySubscriptionStore) FindByAccount(_ context.Context, accountID id.AccountID) (Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sub, ok := s.subs[accountID]; ok {
		return sub, nil
	}
	return Subscription{}, sentinel.ErrNotFound
}

type InMemoryPaymentStore struct {
	mu       sync.RWMutex
	payments map[string]Payment
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{payments: make(map[string]Payment)}
}

func (s *InMemoryPaymentStore) CreateIfAbsent(_ context.Context, p Payment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.payments[p.ExternalRef]; exists {
		return false, nil
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.payments[p.ExternalRef] = p
	return true, nil
}

func (s *InMemoryPaymentStore) AdvanceStatus(_ context.Context, externalRef string, to PaymentStatus) (Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[externalRef]
	if !ok {
		return Payment{}, sentinel.ErrNotFound
	}
	for _, from := range AllowedFrom(to) {
		if p.Status == from {
			p.Status = to
			p.UpdatedAt = time.Now()
			s.payments[externalRef] = p
			return p, nil
		}
	}
	return Payment{}, sentinel.ErrInvalidState
}

func (s *InMemoryPaymentStore) FindByRef(_ context.Context, externalRef string) (Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.payments[externalRef]; ok {
		return p, nil
	}
	return Payment{}, sentinel.ErrNotFound
}
