package creditpack

import (
	"time"

	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/types"
	"github.com/shopspring/decimal"
)

// CreditPack is a one-time, optionally expiring credit grant independent of
// any subscription. Many packs may coexist per user.
type CreditPack struct {
	ID                    string          `db:"id" json:"id"`
	UserID                string          `db:"user_id" json:"user_id"`
	StripePaymentIntentID string          `db:"stripe_payment_intent_id" json:"stripe_payment_intent_id,omitempty"`
	CreditsPurchased      decimal.Decimal `db:"credits_purchased" json:"credits_purchased"`
	CreditsRemaining      decimal.Decimal `db:"credits_remaining" json:"credits_remaining"`
	ExpiresAt             *time.Time      `db:"expires_at" json:"expires_at,omitempty"`
	ExpiredAt             *time.Time      `db:"expired_at" json:"expired_at,omitempty"`
	IsActive              bool            `db:"is_active" json:"is_active"`
	types.BaseModel
}

func (p *CreditPack) TableName() string {
	return "credit_packs"
}

func (p *CreditPack) Validate() error {
	if p.UserID == "" {
		return ierr.NewError("user_id is required").
			WithHint("User ID is required").
			Mark(ierr.ErrValidation)
	}
	if p.CreditsPurchased.LessThanOrEqual(decimal.Zero) {
		return ierr.NewError("credits purchased must be greater than 0").
			WithHint("A credit pack must contain a positive number of credits").
			Mark(ierr.ErrValidation)
	}
	if p.CreditsRemaining.IsNegative() {
		return ierr.NewError("credits remaining cannot be negative").
			WithHint("Remaining credits cannot be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsExpired reports whether the pack has an expiry in the past as of now
func (p *CreditPack) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && !p.ExpiresAt.After(now)
}
