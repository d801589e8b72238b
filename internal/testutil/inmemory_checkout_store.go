package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/roomcraft/roomcraft/internal/domain/checkout"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/types"
)

var _ checkout.Repository = (*InMemoryCheckoutStore)(nil)

// InMemoryCheckoutStore is an in-memory implementation of checkout.Repository
type InMemoryCheckoutStore struct {
	mu       sync.RWMutex
	sessions map[string]*checkout.Session
}

func NewInMemoryCheckoutStore() *InMemoryCheckoutStore {
	return &InMemoryCheckoutStore{
		sessions: make(map[string]*checkout.Session),
	}
}

func (s *InMemoryCheckoutStore) Create(ctx context.Context, session *checkout.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return ierr.NewError("checkout session already exists").
			WithHint("A checkout session with this ID already exists").
			Mark(ierr.ErrAlreadyExists)
	}

	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

func (s *InMemoryCheckoutStore) GetByStripeSessionID(ctx context.Context, stripeSessionID string) (*checkout.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, session := range s.sessions {
		if session.StripeSessionID == stripeSessionID {
			copied := *session
			return &copied, nil
		}
	}

	return nil, ierr.NewError("checkout session not found").
		WithHint("No checkout session matches this Stripe session").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryCheckoutStore) MarkCompleted(ctx context.Context, id string, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return ierr.NewError("checkout session not found").
			WithHintf("Checkout session with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}

	session.Status = types.CheckoutSessionStatusCompleted
	session.CompletedAt = &completedAt
	return nil
}
