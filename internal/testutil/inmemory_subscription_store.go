package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/roomcraft/roomcraft/internal/domain/subscription"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/types"
)

var _ subscription.Repository = (*InMemorySubscriptionStore)(nil)

// InMemorySubscriptionStore is an in-memory implementation of
// subscription.Repository
type InMemorySubscriptionStore struct {
	mu   sync.RWMutex
	subs map[string]*subscription.Subscription
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		subs: make(map[string]*subscription.Subscription),
	}
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subs[sub.ID]; exists {
		return ierr.NewError("subscription already exists").
			WithHint("A subscription with this ID already exists").
			Mark(ierr.ErrAlreadyExists)
	}

	copied := *sub
	s.subs[sub.ID] = &copied
	return nil
}

func (s *InMemorySubscriptionStore) GetByID(ctx context.Context, id string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[id]
	if !ok {
		return nil, ierr.NewError("subscription not found").
			WithHintf("Subscription with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}

	copied := *sub
	return &copied, nil
}

func (s *InMemorySubscriptionStore) GetByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if sub.StripeSubscriptionID == stripeSubscriptionID {
			copied := *sub
			return &copied, nil
		}
	}

	return nil, ierr.NewError("subscription not found").
		WithHint("No subscription matches this Stripe subscription").
		Mark(ierr.ErrNotFound)
}

func (s *InMemorySubscriptionStore) GetActiveByUserID(ctx context.Context, userID string) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*subscription.Subscription
	for _, sub := range s.subs {
		if sub.UserID != userID {
			continue
		}
		if sub.Status == types.SubscriptionStatusActive || sub.Status == types.SubscriptionStatusTrialing {
			copied := *sub
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *InMemorySubscriptionStore) ListDueForReset(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*subscription.Subscription
	for _, sub := range s.subs {
		if sub.Status == types.SubscriptionStatusActive && !sub.NextResetDate.After(now) {
			copied := *sub
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *InMemorySubscriptionStore) ListDueTrials(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*subscription.Subscription
	for _, sub := range s.subs {
		if sub.Status == types.SubscriptionStatusTrialing && sub.IsTrial && !sub.BillingCycleEnd.After(now) {
			copied := *sub
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[sub.ID]; !ok {
		return ierr.NewError("subscription not found").
			WithHintf("Subscription with ID %s was not found", sub.ID).
			Mark(ierr.ErrNotFound)
	}

	copied := *sub
	s.subs[sub.ID] = &copied
	return nil
}
