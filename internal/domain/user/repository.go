package user

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository defines the interface for user persistence operations
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*User, error)
	ListIDs(ctx context.Context) ([]string, error)

	// UpdateTotalCredits overwrites the denormalized balance with a value
	// computed inside the caller's transaction
	UpdateTotalCredits(ctx context.Context, id string, totalCredits decimal.Decimal) error

	// IncrementTotalCredits applies a signed delta atomically in SQL,
	// floored at zero, so concurrent spends cannot drive the balance
	// negative
	IncrementTotalCredits(ctx context.Context, id string, delta decimal.Decimal) error

	UpdateStripeCustomerID(ctx context.Context, id string, stripeCustomerID string) error
}
