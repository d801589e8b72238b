package testutil

import (
	"context"
	"sync"

	"github.com/roomcraft/roomcraft/internal/domain/user"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/shopspring/decimal"
)

var _ user.Repository = (*InMemoryUserStore)(nil)

// InMemoryUserStore is an in-memory implementation of user.Repository
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*user.User
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		users: make(map[string]*user.User),
	}
}

func (s *InMemoryUserStore) Create(ctx context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID]; exists {
		return ierr.NewError("user already exists").
			WithHint("A user with this ID already exists").
			Mark(ierr.ErrAlreadyExists)
	}

	copied := *u
	s.users[u.ID] = &copied
	return nil
}

func (s *InMemoryUserStore) GetByID(ctx context.Context, id string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ierr.NewError("user not found").
			WithHintf("User with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}

	copied := *u
	return &copied, nil
}

func (s *InMemoryUserStore) GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.StripeCustomerID == stripeCustomerID {
			copied := *u
			return &copied, nil
		}
	}

	return nil, ierr.NewError("user not found").
		WithHint("No user is linked to this Stripe customer").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryUserStore) ListIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *InMemoryUserStore) UpdateTotalCredits(ctx context.Context, id string, totalCredits decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ierr.NewError("user not found").
			WithHintf("User with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}

	u.TotalCredits = totalCredits
	return nil
}

func (s *InMemoryUserStore) IncrementTotalCredits(ctx context.Context, id string, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ierr.NewError("user not found").
			WithHintf("User with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}

	// Clamped at zero, matching the SQL GREATEST increment
	u.TotalCredits = decimal.Max(decimal.Zero, u.TotalCredits.Add(delta))
	return nil
}

func (s *InMemoryUserStore) UpdateStripeCustomerID(ctx context.Context, id string, stripeCustomerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ierr.NewError("user not found").
			WithHintf("User with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}

	u.StripeCustomerID = stripeCustomerID
	return nil
}
