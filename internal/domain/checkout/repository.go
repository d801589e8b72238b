package checkout

import (
	"context"
	"time"
)

// Repository defines the interface for checkout session persistence operations
type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByStripeSessionID(ctx context.Context, stripeSessionID string) (*Session, error)
	MarkCompleted(ctx context.Context, id string, completedAt time.Time) error
}
