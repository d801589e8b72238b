package dto

import (
	"time"

	"github.com/roomcraft/roomcraft/internal/domain/subscription"
	"github.com/roomcraft/roomcraft/internal/types"
	"github.com/shopspring/decimal"
)

// SubscriptionResponse is the API representation of a subscription
type SubscriptionResponse struct {
	ID                            string                   `json:"id"`
	UserID                        string                   `json:"user_id"`
	Status                        types.SubscriptionStatus `json:"status"`
	MonthlyCredits                decimal.Decimal          `json:"monthly_credits"`
	CreditsUsedCurrentPeriod      decimal.Decimal          `json:"credits_used_current_period"`
	CreditsRemainingCurrentPeriod decimal.Decimal          `json:"credits_remaining_current_period"`
	BillingCycleStart             time.Time                `json:"billing_cycle_start"`
	BillingCycleEnd               time.Time                `json:"billing_cycle_end"`
	NextResetDate                 time.Time                `json:"next_reset_date"`
	IsTrial                       bool                     `json:"is_trial"`
}

// FromSubscription converts a domain subscription to a response
func FromSubscription(s *subscription.Subscription) *SubscriptionResponse {
	return &SubscriptionResponse{
		ID:                            s.ID,
		UserID:                        s.UserID,
		Status:                        s.Status,
		MonthlyCredits:                s.MonthlyCredits,
		CreditsUsedCurrentPeriod:      s.CreditsUsedCurrentPeriod,
		CreditsRemainingCurrentPeriod: s.CreditsRemainingCurrentPeriod,
		BillingCycleStart:             s.BillingCycleStart,
		BillingCycleEnd:               s.BillingCycleEnd,
		NextResetDate:                 s.NextResetDate,
		IsTrial:                       s.IsTrial,
	}
}

// SweepResponse reports the outcome of a scheduled sweep. One entity's
// failure does not abort the remaining entities, so successful + failed
// always equals total.
type SweepResponse struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	// Batches is the number of write batches committed, only set by
	// batched sweeps
	Batches int `json:"batches,omitempty"`
}
