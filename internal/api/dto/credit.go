package dto

import (
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/shopspring/decimal"
)

// BalanceResponse is the authoritative balance snapshot the client facade
// converges to
type BalanceResponse struct {
	UserID       string                `json:"user_id"`
	TotalCredits decimal.Decimal       `json:"total_credits"`
	Subscription *SubscriptionResponse `json:"subscription,omitempty"`
}

// ConsumeCreditsRequest deducts credits for an edit operation
type ConsumeCreditsRequest struct {
	Amount      int64  `json:"amount" binding:"required"`
	Description string `json:"description"`
}

func (r *ConsumeCreditsRequest) Validate() error {
	if r.Amount <= 0 {
		return ierr.NewError("amount must be greater than 0").
			WithHint("Credit amount must be a positive value").
			WithReportableDetails(map[string]interface{}{
				"amount": r.Amount,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ConsumeCreditsResponse returns the balance after the deduction
type ConsumeCreditsResponse struct {
	UserID       string          `json:"user_id"`
	Consumed     decimal.Decimal `json:"consumed"`
	TotalCredits decimal.Decimal `json:"total_credits"`
}

// ReconcileResponse reports a balance reconciliation against the ledger
type ReconcileResponse struct {
	UserID        string          `json:"user_id"`
	LedgerBalance decimal.Decimal `json:"ledger_balance"`
	CachedBalance decimal.Decimal `json:"cached_balance"`
	Drift         decimal.Decimal `json:"drift"`
	Repaired      bool            `json:"repaired"`
}
