package creditpack

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository defines the interface for credit pack persistence operations
type Repository interface {
	Create(ctx context.Context, p *CreditPack) error
	GetByID(ctx context.Context, id string) (*CreditPack, error)
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*CreditPack, error)

	// ListActiveByUserID returns the user's active packs ordered oldest
	// first, the order spends are applied in
	ListActiveByUserID(ctx context.Context, userID string) ([]*CreditPack, error)

	// ListExpired returns active packs whose expires_at is at or before
	// the given time
	ListExpired(ctx context.Context, now time.Time) ([]*CreditPack, error)

	UpdateCreditsRemaining(ctx context.Context, id string, remaining decimal.Decimal) error

	// MarkExpired deactivates the pack and stamps the expiry time
	MarkExpired(ctx context.Context, id string, expiredAt time.Time) error
}
