package ledger

import (
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/types"
	"github.com/shopspring/decimal"
)

// Transaction is an immutable, append-only credit ledger entry. Amount is a
// signed delta; grants are positive, expiries and spends are negative.
// Rows are write-once and never updated.
type Transaction struct {
	ID          string                `db:"id" json:"id"`
	UserID      string                `db:"user_id" json:"user_id"`
	Type        types.TransactionType `db:"type" json:"type"`
	Amount      decimal.Decimal       `db:"amount" json:"amount"`
	SourceID    string                `db:"source_id" json:"source_id,omitempty"`
	Description string                `db:"description" json:"description,omitempty"`
	types.BaseModel
}

func (t *Transaction) TableName() string {
	return "credit_transactions"
}

func (t *Transaction) Validate() error {
	if t.UserID == "" {
		return ierr.NewError("user_id is required").
			WithHint("User ID is required").
			Mark(ierr.ErrValidation)
	}
	if t.Type == "" {
		return ierr.NewError("transaction type is required").
			WithHint("Transaction type is required").
			Mark(ierr.ErrValidation)
	}
	if t.Amount.IsZero() {
		return ierr.NewError("transaction amount cannot be zero").
			WithHint("A ledger entry must carry a non-zero delta").
			Mark(ierr.ErrValidation)
	}
	return nil
}
