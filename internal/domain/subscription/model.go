package subscription

import (
	"time"

	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/types"
	"github.com/shopspring/decimal"
)

// Subscription is a recurring (or trial) credit grant. At most one
// subscription per user may be in status active at a time.
type Subscription struct {
	ID                            string                   `db:"id" json:"id"`
	UserID                        string                   `db:"user_id" json:"user_id"`
	StripeSubscriptionID          string                   `db:"stripe_subscription_id" json:"stripe_subscription_id,omitempty"`
	PriceID                       string                   `db:"price_id" json:"price_id,omitempty"`
	Status                        types.SubscriptionStatus `db:"status" json:"status"`
	MonthlyCredits                decimal.Decimal          `db:"monthly_credits" json:"monthly_credits"`
	CreditsUsedCurrentPeriod      decimal.Decimal          `db:"credits_used_current_period" json:"credits_used_current_period"`
	CreditsRemainingCurrentPeriod decimal.Decimal          `db:"credits_remaining_current_period" json:"credits_remaining_current_period"`
	BillingCycleStart             time.Time                `db:"billing_cycle_start" json:"billing_cycle_start"`
	BillingCycleEnd               time.Time                `db:"billing_cycle_end" json:"billing_cycle_end"`
	NextResetDate                 time.Time                `db:"next_reset_date" json:"next_reset_date"`
	IsTrial                       bool                     `db:"is_trial" json:"is_trial"`
	types.BaseModel
}

func (s *Subscription) TableName() string {
	return "subscriptions"
}

func (s *Subscription) Validate() error {
	if s.UserID == "" {
		return ierr.NewError("user_id is required").
			WithHint("User ID is required").
			Mark(ierr.ErrValidation)
	}
	if !s.Status.Validate() {
		return ierr.NewError("invalid subscription status").
			WithHint("Invalid subscription status").
			WithReportableDetails(map[string]interface{}{
				"status": s.Status,
			}).
			Mark(ierr.ErrValidation)
	}
	if s.MonthlyCredits.LessThanOrEqual(decimal.Zero) {
		return ierr.NewError("monthly credits must be greater than 0").
			WithHint("Monthly credit allotment must be a positive value").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsDueForReset reports whether the subscription's billing period has
// elapsed as of now
func (s *Subscription) IsDueForReset(now time.Time) bool {
	return s.Status == types.SubscriptionStatusActive && !s.NextResetDate.After(now)
}
