package checkout

import (
	"time"

	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/types"
)

// Session is the internal record of a Stripe checkout session, created when
// the client requests a checkout and completed by the webhook adapter.
type Session struct {
	ID              string                      `db:"id" json:"id"`
	UserID          string                      `db:"user_id" json:"user_id"`
	StripeSessionID string                      `db:"stripe_session_id" json:"stripe_session_id"`
	Mode            types.CheckoutMode          `db:"mode" json:"mode"`
	PriceID         string                      `db:"price_id" json:"price_id"`
	Status          types.CheckoutSessionStatus `db:"status" json:"status"`
	CompletedAt     *time.Time                  `db:"completed_at" json:"completed_at,omitempty"`
	types.BaseModel
}

func (s *Session) TableName() string {
	return "checkout_sessions"
}

func (s *Session) Validate() error {
	if s.UserID == "" {
		return ierr.NewError("user_id is required").
			WithHint("User ID is required").
			Mark(ierr.ErrValidation)
	}
	if s.Mode != types.CheckoutModeSubscription && s.Mode != types.CheckoutModePack {
		return ierr.NewError("invalid checkout mode").
			WithHint("Checkout mode must be subscription or pack").
			WithReportableDetails(map[string]interface{}{
				"mode": s.Mode,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
