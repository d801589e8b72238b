package user

import (
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/types"
	"github.com/shopspring/decimal"
)

// User holds the denormalized credit balance for an account.
// TotalCredits caches the sum of all active grants and must never go
// negative; the credit_transactions ledger is the record it reconciles
// against.
type User struct {
	ID               string          `db:"id" json:"id"`
	Email            string          `db:"email" json:"email"`
	TotalCredits     decimal.Decimal `db:"total_credits" json:"total_credits"`
	StripeCustomerID string          `db:"stripe_customer_id" json:"stripe_customer_id,omitempty"`
	types.BaseModel
}

func (u *User) TableName() string {
	return "users"
}

func (u *User) Validate() error {
	if u.ID == "" {
		return ierr.NewError("user id is required").
			WithHint("User ID is required").
			Mark(ierr.ErrValidation)
	}
	if u.Email == "" {
		return ierr.NewError("email is required").
			WithHint("Email is required").
			Mark(ierr.ErrValidation)
	}
	if u.TotalCredits.IsNegative() {
		return ierr.NewError("total credits cannot be negative").
			WithHint("Credit balance cannot be negative").
			WithReportableDetails(map[string]interface{}{
				"total_credits": u.TotalCredits,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
