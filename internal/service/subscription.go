package service

import (
	"context"
	"time"

	"github.com/roomcraft/roomcraft/internal/api/dto"
	"github.com/roomcraft/roomcraft/internal/cache"
	"github.com/roomcraft/roomcraft/internal/domain/ledger"
	"github.com/roomcraft/roomcraft/internal/domain/subscription"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/types"
	"github.com/shopspring/decimal"
)

// SubscriptionService owns the recurring-grant lifecycle: monthly period
// resets and the one-active-subscription-per-user invariant
type SubscriptionService interface {
	// ResetDueSubscriptions processes every active subscription whose
	// reset date has passed, each in its own transaction. One
	// subscription's failure never aborts the rest of the sweep.
	ResetDueSubscriptions(ctx context.Context, now time.Time) (*dto.SweepResponse, error)

	// ResetPeriod resets a single subscription's period counters, grants
	// the monthly allotment and appends a subscription_reset ledger entry
	ResetPeriod(ctx context.Context, subscriptionID string) error

	// CancelActiveSubscriptions marks the user's active subscriptions
	// canceled. Called before seeding a replacement subscription.
	CancelActiveSubscriptions(ctx context.Context, userID string) error

	GetActiveSubscription(ctx context.Context, userID string) (*subscription.Subscription, error)
}

type subscriptionService struct {
	ServiceParams
}

// NewSubscriptionService creates a new instance of SubscriptionService
func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{ServiceParams: params}
}

func (s *subscriptionService) ResetDueSubscriptions(ctx context.Context, now time.Time) (*dto.SweepResponse, error) {
	subs, err := s.SubRepo.ListDueForReset(ctx, now)
	if err != nil {
		// Only the outer query error is fatal for the sweep
		return nil, err
	}

	response := &dto.SweepResponse{Total: len(subs)}

	for _, sub := range subs {
		if err := s.resetPeriod(ctx, sub.ID, now); err != nil {
			s.Logger.Errorw("failed to reset subscription period",
				"subscription_id", sub.ID,
				"user_id", sub.UserID,
				"error", err,
			)
			response.Failed++
			continue
		}
		response.Successful++
	}

	s.Logger.Infow("completed subscription reset sweep",
		"total", response.Total,
		"successful", response.Successful,
		"failed", response.Failed,
	)
	return response, nil
}

func (s *subscriptionService) ResetPeriod(ctx context.Context, subscriptionID string) error {
	return s.resetPeriod(ctx, subscriptionID, time.Now().UTC())
}

func (s *subscriptionService) resetPeriod(ctx context.Context, subscriptionID string, now time.Time) error {
	var userID string

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		sub, err := s.SubRepo.GetByID(ctx, subscriptionID)
		if err != nil {
			return err
		}
		userID = sub.UserID

		if sub.Status != types.SubscriptionStatusActive {
			return ierr.NewError("subscription is not active").
				WithHint("Only active subscriptions can be reset").
				WithReportableDetails(map[string]interface{}{
					"subscription_id": subscriptionID,
					"status":          sub.Status,
				}).
				Mark(ierr.ErrInvalidOperation)
		}

		period := s.Config.Billing.BillingPeriodDays
		allotment := sub.MonthlyCredits

		sub.CreditsUsedCurrentPeriod = decimal.Zero
		sub.CreditsRemainingCurrentPeriod = allotment
		sub.BillingCycleStart = sub.BillingCycleEnd
		sub.BillingCycleEnd = sub.BillingCycleEnd.AddDate(0, 0, period)
		sub.NextResetDate = sub.NextResetDate.AddDate(0, 0, period)
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}

		if err := s.UserRepo.IncrementTotalCredits(ctx, sub.UserID, allotment); err != nil {
			return err
		}

		txn := &ledger.Transaction{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT_TRANSACTION),
			UserID:      sub.UserID,
			Type:        types.TransactionTypeSubscriptionReset,
			Amount:      allotment,
			SourceID:    sub.ID,
			Description: "monthly credit reset",
			BaseModel:   types.GetDefaultBaseModel(),
		}
		if err := s.LedgerRepo.Create(ctx, txn); err != nil {
			return err
		}

		s.Logger.Infow("reset subscription period",
			"subscription_id", sub.ID,
			"user_id", sub.UserID,
			"monthly_credits", allotment,
			"next_reset_date", sub.NextResetDate,
		)
		return nil
	})
	if err != nil {
		return err
	}

	s.Cache.Delete(ctx, cache.BalanceKey(userID))
	return nil
}

func (s *subscriptionService) CancelActiveSubscriptions(ctx context.Context, userID string) error {
	subs, err := s.SubRepo.GetActiveByUserID(ctx, userID)
	if err != nil {
		return err
	}

	for _, sub := range subs {
		sub.Status = types.SubscriptionStatusCanceled
		sub.CreditsRemainingCurrentPeriod = decimal.Zero
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}
		s.Logger.Infow("canceled prior subscription",
			"subscription_id", sub.ID,
			"user_id", userID,
		)
	}
	return nil
}

func (s *subscriptionService) GetActiveSubscription(ctx context.Context, userID string) (*subscription.Subscription, error) {
	subs, err := s.SubRepo.GetActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, nil
	}
	// At most one active subscription per user; the newest wins if the
	// invariant was ever violated
	return subs[0], nil
}
