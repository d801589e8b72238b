package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/roomcraft/roomcraft/internal/domain/ledger"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/types"
	"github.com/shopspring/decimal"
)

var _ ledger.Repository = (*InMemoryLedgerStore)(nil)

// InMemoryLedgerStore is an in-memory implementation of ledger.Repository
type InMemoryLedgerStore struct {
	mu           sync.RWMutex
	transactions []*ledger.Transaction
}

func NewInMemoryLedgerStore() *InMemoryLedgerStore {
	return &InMemoryLedgerStore{}
}

func (s *InMemoryLedgerStore) Create(ctx context.Context, t *ledger.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.transactions {
		if existing.ID == t.ID {
			return ierr.NewError("transaction already exists").
				WithHint("A ledger entry with this ID already exists").
				Mark(ierr.ErrAlreadyExists)
		}
	}

	copied := *t
	s.transactions = append(s.transactions, &copied)
	return nil
}

func (s *InMemoryLedgerStore) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*ledger.Transaction
	for _, t := range s.transactions {
		if t.UserID == userID {
			copied := *t
			result = append(result, &copied)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (s *InMemoryLedgerStore) ExistsBySourceAndType(ctx context.Context, sourceID string, txType types.TransactionType) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.transactions {
		if t.SourceID == sourceID && t.Type == txType {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryLedgerStore) SumByUserID(ctx context.Context, userID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := decimal.Zero
	for _, t := range s.transactions {
		// Repair rows are corrections of the balance, not credit
		// movements, and stay out of the reconciliation sum
		if t.UserID == userID && t.Type != types.TransactionTypeBalanceReconciled {
			sum = sum.Add(t.Amount)
		}
	}
	return sum, nil
}

// CountByUserAndType returns how many ledger entries of the given type a
// user has, a convenience for test assertions
func (s *InMemoryLedgerStore) CountByUserAndType(userID string, txType types.TransactionType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, t := range s.transactions {
		if t.UserID == userID && t.Type == txType {
			count++
		}
	}
	return count
}
