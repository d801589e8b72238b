package ledger

import (
	"context"

	"github.com/roomcraft/roomcraft/internal/types"
	"github.com/shopspring/decimal"
)

// Repository defines the interface for ledger persistence operations.
// The ledger is append-only: there are no update or delete operations.
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*Transaction, error)

	// ExistsBySourceAndType reports whether a ledger entry of the given
	// type already references the source entity, used as an idempotency
	// guard
	ExistsBySourceAndType(ctx context.Context, sourceID string, txType types.TransactionType) (bool, error)

	// SumByUserID returns the sum of a user's signed amounts, the value
	// the denormalized balance reconciles against. Reconciliation repair
	// rows are excluded: they record a correction of the balance, not a
	// credit movement, and counting them would re-detect the same drift
	// on every run
	SumByUserID(ctx context.Context, userID string) (decimal.Decimal, error)
}
