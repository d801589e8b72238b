package service

import (
	"context"
	"time"

	"github.com/roomcraft/roomcraft/internal/api/dto"
	"github.com/roomcraft/roomcraft/internal/cache"
	"github.com/roomcraft/roomcraft/internal/domain/ledger"
	"github.com/roomcraft/roomcraft/internal/domain/subscription"
	"github.com/roomcraft/roomcraft/internal/domain/user"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/types"
	"github.com/shopspring/decimal"
)

// UserService provisions new accounts with their trial grant and retires
// trials when they lapse
type UserService interface {
	// ProvisionUser creates the user, its trial subscription and the
	// trial_created ledger entry in one transaction. Safe to retry: a
	// second invocation for the same user id is a no-op.
	ProvisionUser(ctx context.Context, req *dto.ProvisionUserRequest) (*dto.UserResponse, error)

	// ExpireTrial ends a trial subscription and removes its remaining
	// credits from the user's balance, floored at zero.
	ExpireTrial(ctx context.Context, subscriptionID string) error

	// ExpireDueTrials processes every trial whose period has lapsed, each
	// in its own transaction. One trial's failure never aborts the rest
	// of the sweep.
	ExpireDueTrials(ctx context.Context, now time.Time) (*dto.SweepResponse, error)
}

type userService struct {
	ServiceParams
}

// NewUserService creates a new instance of UserService
func NewUserService(params ServiceParams) UserService {
	return &userService{ServiceParams: params}
}

func (s *userService) ProvisionUser(ctx context.Context, req *dto.ProvisionUserRequest) (*dto.UserResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var u *user.User

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		// Existence guard: platform triggers can fire more than once for
		// the same account
		existing, err := s.UserRepo.GetByID(ctx, req.UserID)
		if err != nil && !ierr.IsNotFound(err) {
			return err
		}
		if existing != nil {
			s.Logger.Infow("user already provisioned, skipping",
				"user_id", req.UserID,
			)
			u = existing
			return nil
		}

		now := time.Now().UTC()
		trialCredits := decimal.NewFromInt(s.Config.Billing.TrialCredits)
		trialEnd := now.AddDate(0, 0, s.Config.Billing.TrialPeriodDays)

		u = &user.User{
			ID:           req.UserID,
			Email:        req.Email,
			TotalCredits: trialCredits,
			BaseModel:    types.GetDefaultBaseModel(),
		}
		if err := u.Validate(); err != nil {
			return err
		}
		if err := s.UserRepo.Create(ctx, u); err != nil {
			return err
		}

		sub := &subscription.Subscription{
			ID:                            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
			UserID:                        u.ID,
			Status:                        types.SubscriptionStatusTrialing,
			MonthlyCredits:                trialCredits,
			CreditsUsedCurrentPeriod:      decimal.Zero,
			CreditsRemainingCurrentPeriod: trialCredits,
			BillingCycleStart:             now,
			BillingCycleEnd:               trialEnd,
			NextResetDate:                 trialEnd,
			IsTrial:                       true,
			BaseModel:                     types.GetDefaultBaseModel(),
		}
		if err := s.SubRepo.Create(ctx, sub); err != nil {
			return err
		}

		txn := &ledger.Transaction{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT_TRANSACTION),
			UserID:      u.ID,
			Type:        types.TransactionTypeTrialCreated,
			Amount:      trialCredits,
			SourceID:    sub.ID,
			Description: "trial signup grant",
			BaseModel:   types.GetDefaultBaseModel(),
		}
		if err := s.LedgerRepo.Create(ctx, txn); err != nil {
			return err
		}

		s.Logger.Infow("provisioned user with trial",
			"user_id", u.ID,
			"subscription_id", sub.ID,
			"trial_credits", trialCredits,
			"trial_end", trialEnd,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return dto.FromUser(u), nil
}

func (s *userService) ExpireTrial(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return ierr.NewError("subscription_id is required").
			WithHint("Subscription ID is required").
			Mark(ierr.ErrValidation)
	}

	var userID string

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		sub, err := s.SubRepo.GetByID(ctx, subscriptionID)
		if err != nil {
			return err
		}
		userID = sub.UserID

		if !sub.IsTrial {
			return ierr.NewError("subscription is not a trial").
				WithHint("Only trial subscriptions can be expired this way").
				WithReportableDetails(map[string]interface{}{
					"subscription_id": subscriptionID,
				}).
				Mark(ierr.ErrInvalidOperation)
		}

		remaining := sub.CreditsRemainingCurrentPeriod

		sub.Status = types.SubscriptionStatusExpired
		sub.CreditsRemainingCurrentPeriod = decimal.Zero
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}

		// Clamp at zero: a concurrent spend may already have consumed
		// part of the trial's remaining balance
		u, err := s.UserRepo.GetByID(ctx, sub.UserID)
		if err != nil {
			return err
		}
		newTotal := decimal.Max(decimal.Zero, u.TotalCredits.Sub(remaining))
		if err := s.UserRepo.UpdateTotalCredits(ctx, u.ID, newTotal); err != nil {
			return err
		}

		txn := &ledger.Transaction{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT_TRANSACTION),
			UserID:      sub.UserID,
			Type:        types.TransactionTypeTrialExpired,
			Amount:      remaining.Neg(),
			SourceID:    sub.ID,
			Description: "trial expired",
			BaseModel:   types.GetDefaultBaseModel(),
		}
		if err := s.LedgerRepo.Create(ctx, txn); err != nil {
			return err
		}

		s.Logger.Infow("expired trial",
			"subscription_id", sub.ID,
			"user_id", sub.UserID,
			"credits_removed", remaining,
		)
		return nil
	})
	if err != nil {
		return err
	}

	s.Cache.Delete(ctx, cache.BalanceKey(userID))
	return nil
}

func (s *userService) ExpireDueTrials(ctx context.Context, now time.Time) (*dto.SweepResponse, error) {
	trials, err := s.SubRepo.ListDueTrials(ctx, now)
	if err != nil {
		// Only the outer query error is fatal for the sweep
		return nil, err
	}

	response := &dto.SweepResponse{Total: len(trials)}

	for _, trial := range trials {
		if err := s.ExpireTrial(ctx, trial.ID); err != nil {
			s.Logger.Errorw("failed to expire trial",
				"subscription_id", trial.ID,
				"user_id", trial.UserID,
				"error", err,
			)
			response.Failed++
			continue
		}
		response.Successful++
	}

	s.Logger.Infow("completed trial expiry sweep",
		"total", response.Total,
		"successful", response.Successful,
		"failed", response.Failed,
	)
	return response, nil
}
