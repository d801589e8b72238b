package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/roomcraft/roomcraft/internal/domain/creditpack"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/shopspring/decimal"
)

var _ creditpack.Repository = (*InMemoryCreditPackStore)(nil)

// InMemoryCreditPackStore is an in-memory implementation of
// creditpack.Repository
type InMemoryCreditPackStore struct {
	mu    sync.RWMutex
	packs map[string]*creditpack.CreditPack
}

func NewInMemoryCreditPackStore() *InMemoryCreditPackStore {
	return &InMemoryCreditPackStore{
		packs: make(map[string]*creditpack.CreditPack),
	}
}

func (s *InMemoryCreditPackStore) Create(ctx context.Context, p *creditpack.CreditPack) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.packs[p.ID]; exists {
		return ierr.NewError("credit pack already exists").
			WithHint("A credit pack with this ID already exists").
			Mark(ierr.ErrAlreadyExists)
	}

	copied := *p
	s.packs[p.ID] = &copied
	return nil
}

func (s *InMemoryCreditPackStore) GetByID(ctx context.Context, id string) (*creditpack.CreditPack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.packs[id]
	if !ok {
		return nil, ierr.NewError("credit pack not found").
			WithHintf("Credit pack with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}

	copied := *p
	return &copied, nil
}

func (s *InMemoryCreditPackStore) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*creditpack.CreditPack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.packs {
		if p.StripePaymentIntentID == paymentIntentID {
			copied := *p
			return &copied, nil
		}
	}

	return nil, ierr.NewError("credit pack not found").
		WithHint("No credit pack matches this payment intent").
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryCreditPackStore) ListActiveByUserID(ctx context.Context, userID string) ([]*creditpack.CreditPack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*creditpack.CreditPack
	for _, p := range s.packs {
		if p.UserID == userID && p.IsActive {
			copied := *p
			result = append(result, &copied)
		}
	}

	// Oldest first, the order spends are applied in
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *InMemoryCreditPackStore) ListExpired(ctx context.Context, now time.Time) ([]*creditpack.CreditPack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*creditpack.CreditPack
	for _, p := range s.packs {
		if p.IsActive && p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
			copied := *p
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *InMemoryCreditPackStore) UpdateCreditsRemaining(ctx context.Context, id string, remaining decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.packs[id]
	if !ok {
		return ierr.NewError("credit pack not found").
			WithHintf("Credit pack with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}

	p.CreditsRemaining = remaining
	return nil
}

func (s *InMemoryCreditPackStore) MarkExpired(ctx context.Context, id string, expiredAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.packs[id]
	if !ok || !p.IsActive {
		return ierr.NewError("credit pack not found").
			WithHintf("Active credit pack with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}

	p.IsActive = false
	p.ExpiredAt = &expiredAt
	return nil
}
