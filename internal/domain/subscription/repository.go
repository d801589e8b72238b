package subscription

import (
	"context"
	"time"
)

// Repository defines the interface for subscription persistence operations
type Repository interface {
	Create(ctx context.Context, s *Subscription) error
	GetByID(ctx context.Context, id string) (*Subscription, error)
	GetByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*Subscription, error)

	// GetActiveByUserID returns the user's subscriptions in status active
	// or trialing. The invariant is at most one active row per user; a
	// slice is returned so callers can repair violations.
	GetActiveByUserID(ctx context.Context, userID string) ([]*Subscription, error)

	// ListDueForReset returns active subscriptions whose next_reset_date
	// is at or before the given time
	ListDueForReset(ctx context.Context, now time.Time) ([]*Subscription, error)

	// ListDueTrials returns trialing subscriptions whose billing cycle has
	// ended at or before the given time
	ListDueTrials(ctx context.Context, now time.Time) ([]*Subscription, error)

	Update(ctx context.Context, s *Subscription) error
}
