package service

import (
	"context"
	"time"

	"github.com/roomcraft/roomcraft/internal/api/dto"
	"github.com/roomcraft/roomcraft/internal/cache"
	"github.com/roomcraft/roomcraft/internal/domain/ledger"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/types"
	"github.com/shopspring/decimal"
)

// balanceCacheTTL bounds how stale a cached balance snapshot can get before
// a read goes back to the database
const balanceCacheTTL = 30 * time.Second

// CreditService is the server side of the client facade: authoritative
// balance reads and credit spends
type CreditService interface {
	GetBalance(ctx context.Context, userID string) (*dto.BalanceResponse, error)

	// ConsumeCredits deducts credits for an edit operation, drawing from
	// the active subscription's period first and then from the oldest
	// active packs
	ConsumeCredits(ctx context.Context, userID string, req *dto.ConsumeCreditsRequest) (*dto.ConsumeCreditsResponse, error)

	// ReconcileBalance recomputes the balance from the ledger and repairs
	// the denormalized total when it has drifted
	ReconcileBalance(ctx context.Context, userID string) (*dto.ReconcileResponse, error)

	// ReconcileAllBalances runs ReconcileBalance over every user,
	// isolating per-user failures
	ReconcileAllBalances(ctx context.Context) (*dto.SweepResponse, error)
}

type creditService struct {
	ServiceParams
	subscriptionService SubscriptionService
}

// NewCreditService creates a new instance of CreditService
func NewCreditService(params ServiceParams, subscriptionService SubscriptionService) CreditService {
	return &creditService{
		ServiceParams:       params,
		subscriptionService: subscriptionService,
	}
}

func (s *creditService) GetBalance(ctx context.Context, userID string) (*dto.BalanceResponse, error) {
	if userID == "" {
		return nil, ierr.NewError("user_id is required").
			WithHint("User ID is required").
			Mark(ierr.ErrValidation)
	}

	if cached, ok := s.Cache.Get(ctx, cache.BalanceKey(userID)); ok {
		if resp, ok := cached.(*dto.BalanceResponse); ok {
			return resp, nil
		}
	}

	u, err := s.UserRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &dto.BalanceResponse{
		UserID:       u.ID,
		TotalCredits: u.TotalCredits,
	}

	sub, err := s.subscriptionService.GetActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub != nil {
		resp.Subscription = dto.FromSubscription(sub)
	}

	s.Cache.Set(ctx, cache.BalanceKey(userID), resp, balanceCacheTTL)
	return resp, nil
}

func (s *creditService) ConsumeCredits(ctx context.Context, userID string, req *dto.ConsumeCreditsRequest) (*dto.ConsumeCreditsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, ierr.NewError("user_id is required").
			WithHint("User ID is required").
			Mark(ierr.ErrValidation)
	}

	amount := decimal.NewFromInt(req.Amount)
	var response *dto.ConsumeCreditsResponse

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		u, err := s.UserRepo.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		if u.TotalCredits.LessThan(amount) {
			return ierr.NewError("insufficient credits").
				WithHintf("You need %s credits but only have %s", amount, u.TotalCredits).
				WithReportableDetails(map[string]interface{}{
					"requested": amount,
					"available": u.TotalCredits,
				}).
				Mark(ierr.ErrInvalidOperation)
		}

		// Draw down the subscription period first, then packs FIFO
		toConsume := amount

		sub, err := s.subscriptionService.GetActiveSubscription(ctx, userID)
		if err != nil {
			return err
		}
		if sub != nil && sub.CreditsRemainingCurrentPeriod.GreaterThan(decimal.Zero) {
			fromSub := decimal.Min(sub.CreditsRemainingCurrentPeriod, toConsume)
			sub.CreditsRemainingCurrentPeriod = sub.CreditsRemainingCurrentPeriod.Sub(fromSub)
			sub.CreditsUsedCurrentPeriod = sub.CreditsUsedCurrentPeriod.Add(fromSub)
			if err := s.SubRepo.Update(ctx, sub); err != nil {
				return err
			}
			toConsume = toConsume.Sub(fromSub)
		}

		if toConsume.GreaterThan(decimal.Zero) {
			packs, err := s.CreditPackRepo.ListActiveByUserID(ctx, userID)
			if err != nil {
				return err
			}
			for _, pack := range packs {
				if !toConsume.GreaterThan(decimal.Zero) {
					break
				}
				fromPack := decimal.Min(pack.CreditsRemaining, toConsume)
				if fromPack.IsZero() {
					continue
				}
				remaining := pack.CreditsRemaining.Sub(fromPack)
				if err := s.CreditPackRepo.UpdateCreditsRemaining(ctx, pack.ID, remaining); err != nil {
					return err
				}
				toConsume = toConsume.Sub(fromPack)
			}
		}

		if err := s.UserRepo.IncrementTotalCredits(ctx, userID, amount.Neg()); err != nil {
			return err
		}

		txn := &ledger.Transaction{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT_TRANSACTION),
			UserID:      userID,
			Type:        types.TransactionTypeCreditUsage,
			Amount:      amount.Neg(),
			Description: req.Description,
			BaseModel:   types.GetDefaultBaseModel(),
		}
		if err := s.LedgerRepo.Create(ctx, txn); err != nil {
			return err
		}

		response = &dto.ConsumeCreditsResponse{
			UserID:       userID,
			Consumed:     amount,
			TotalCredits: u.TotalCredits.Sub(amount),
		}

		s.Logger.Infow("consumed credits",
			"user_id", userID,
			"amount", amount,
			"remaining", response.TotalCredits,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Cache.Delete(ctx, cache.BalanceKey(userID))
	return response, nil
}

func (s *creditService) ReconcileBalance(ctx context.Context, userID string) (*dto.ReconcileResponse, error) {
	if userID == "" {
		return nil, ierr.NewError("user_id is required").
			WithHint("User ID is required").
			Mark(ierr.ErrValidation)
	}

	var response *dto.ReconcileResponse

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		u, err := s.UserRepo.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		ledgerSum, err := s.LedgerRepo.SumByUserID(ctx, userID)
		if err != nil {
			return err
		}
		// Spends clamp the denormalized balance at zero while the ledger
		// keeps the full signed history, so the reconciled target is also
		// floored
		ledgerBalance := decimal.Max(decimal.Zero, ledgerSum)

		drift := ledgerBalance.Sub(u.TotalCredits)
		response = &dto.ReconcileResponse{
			UserID:        userID,
			LedgerBalance: ledgerBalance,
			CachedBalance: u.TotalCredits,
			Drift:         drift,
		}

		if drift.IsZero() {
			return nil
		}

		if err := s.UserRepo.UpdateTotalCredits(ctx, userID, ledgerBalance); err != nil {
			return err
		}

		txn := &ledger.Transaction{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT_TRANSACTION),
			UserID:      userID,
			Type:        types.TransactionTypeBalanceReconciled,
			Amount:      drift,
			Description: "balance reconciled against ledger",
			BaseModel:   types.GetDefaultBaseModel(),
		}
		if err := s.LedgerRepo.Create(ctx, txn); err != nil {
			return err
		}

		response.Repaired = true
		s.Logger.Warnw("repaired drifted balance",
			"user_id", userID,
			"cached_balance", response.CachedBalance,
			"ledger_balance", ledgerBalance,
			"drift", drift,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if response.Repaired {
		s.Cache.Delete(ctx, cache.BalanceKey(userID))
	}
	return response, nil
}

func (s *creditService) ReconcileAllBalances(ctx context.Context) (*dto.SweepResponse, error) {
	ids, err := s.UserRepo.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	response := &dto.SweepResponse{Total: len(ids)}
	for _, id := range ids {
		if _, err := s.ReconcileBalance(ctx, id); err != nil {
			s.Logger.Errorw("failed to reconcile balance",
				"user_id", id,
				"error", err,
			)
			response.Failed++
			continue
		}
		response.Successful++
	}
	return response, nil
}
