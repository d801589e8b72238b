package service

import (
	"context"
	"time"

	"github.com/roomcraft/roomcraft/internal/api/dto"
	"github.com/roomcraft/roomcraft/internal/cache"
	"github.com/roomcraft/roomcraft/internal/domain/creditpack"
	"github.com/roomcraft/roomcraft/internal/domain/ledger"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// opsPerPackExpiry is the number of write operations one pack expiry stages:
// deactivate the pack, decrement the user balance, append the ledger entry
const opsPerPackExpiry = 3

// CreditPackService owns one-time credit grants: webhook-driven purchases
// and the scheduled expiry sweep
type CreditPackService interface {
	// GrantPack creates a pack plus its ledger entry and balance grant.
	// Idempotent by the external payment intent id: re-delivery of the
	// same payment event is a silent no-op.
	GrantPack(ctx context.Context, userID, paymentIntentID, priceID string) (*creditpack.CreditPack, error)

	// ExpirePacks deactivates every active pack whose expiry has passed.
	// Writes are grouped into batches bounded by the configured operation
	// ceiling; a batch commit failure is fatal, per-pack failures are
	// collected and the sweep continues.
	ExpirePacks(ctx context.Context, now time.Time) (*dto.SweepResponse, error)
}

type creditPackService struct {
	ServiceParams
}

// NewCreditPackService creates a new instance of CreditPackService
func NewCreditPackService(params ServiceParams) CreditPackService {
	return &creditPackService{ServiceParams: params}
}

func (s *creditPackService) GrantPack(ctx context.Context, userID, paymentIntentID, priceID string) (*creditpack.CreditPack, error) {
	if userID == "" || paymentIntentID == "" {
		return nil, ierr.NewError("user_id and payment_intent_id are required").
			WithHint("User ID and payment intent ID are required").
			Mark(ierr.ErrValidation)
	}

	packCfg, ok := s.Config.Stripe.Packs[priceID]
	if !ok {
		return nil, ierr.NewError("unknown pack price").
			WithHintf("No credit pack is configured for price %s", priceID).
			Mark(ierr.ErrValidation)
	}

	var pack *creditpack.CreditPack

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		// Idempotency guard keyed by the external payment intent id:
		// both checkout.session.completed and payment_intent.succeeded
		// can race to grant the same purchase
		existing, err := s.CreditPackRepo.GetByPaymentIntentID(ctx, paymentIntentID)
		if err != nil && !ierr.IsNotFound(err) {
			return err
		}
		if existing != nil {
			s.Logger.Infow("credit pack already granted, skipping",
				"payment_intent_id", paymentIntentID,
				"pack_id", existing.ID,
			)
			pack = existing
			return nil
		}

		now := time.Now().UTC()
		credits := decimal.NewFromInt(packCfg.Credits)

		var expiresAt *time.Time
		if packCfg.ExpiryDays > 0 {
			expiresAt = lo.ToPtr(now.AddDate(0, 0, packCfg.ExpiryDays))
		}

		pack = &creditpack.CreditPack{
			ID:                    types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT_PACK),
			UserID:                userID,
			StripePaymentIntentID: paymentIntentID,
			CreditsPurchased:      credits,
			CreditsRemaining:      credits,
			ExpiresAt:             expiresAt,
			IsActive:              true,
			BaseModel:             types.GetDefaultBaseModel(),
		}
		if err := pack.Validate(); err != nil {
			return err
		}
		if err := s.CreditPackRepo.Create(ctx, pack); err != nil {
			return err
		}

		if err := s.UserRepo.IncrementTotalCredits(ctx, userID, credits); err != nil {
			return err
		}

		txn := &ledger.Transaction{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT_TRANSACTION),
			UserID:      userID,
			Type:        types.TransactionTypePackPurchase,
			Amount:      credits,
			SourceID:    pack.ID,
			Description: packCfg.Name,
			BaseModel:   types.GetDefaultBaseModel(),
		}
		if err := s.LedgerRepo.Create(ctx, txn); err != nil {
			return err
		}

		s.Logger.Infow("granted credit pack",
			"pack_id", pack.ID,
			"user_id", userID,
			"credits", credits,
			"payment_intent_id", paymentIntentID,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Cache.Delete(ctx, cache.BalanceKey(userID))
	return pack, nil
}

func (s *creditPackService) ExpirePacks(ctx context.Context, now time.Time) (*dto.SweepResponse, error) {
	packs, err := s.CreditPackRepo.ListExpired(ctx, now)
	if err != nil {
		return nil, err
	}

	response := &dto.SweepResponse{Total: len(packs)}
	if len(packs) == 0 {
		return response, nil
	}

	// Group the writes into batches bounded by the platform operation
	// ceiling. Each batch commits as one unit; the three writes of a
	// single pack expiry always land in the same batch.
	packsPerBatch := s.Config.Billing.BatchOpCeiling / opsPerPackExpiry
	if packsPerBatch < 1 {
		packsPerBatch = 1
	}

	for _, batch := range lo.Chunk(packs, packsPerBatch) {
		var failed []string

		err := s.DB.WithTx(ctx, func(ctx context.Context) error {
			for _, pack := range batch {
				// Each pack runs under its own savepoint so a failed
				// pack rolls back its staged writes without poisoning
				// the rest of the batch
				packErr := s.DB.WithTx(ctx, func(ctx context.Context) error {
					return s.expirePack(ctx, pack, now)
				})
				if packErr != nil {
					s.Logger.Errorw("failed to expire credit pack",
						"pack_id", pack.ID,
						"user_id", pack.UserID,
						"error", packErr,
					)
					failed = append(failed, pack.ID)
				}
			}
			return nil
		})
		if err != nil {
			// A batch commit failure is fatal so the scheduler records
			// the run as failed; the candidate query re-selects the
			// remainder next run
			return nil, ierr.WithError(err).
				WithHint("Failed to commit pack expiry batch").
				Mark(ierr.ErrDatabase)
		}

		response.Batches++
		response.Failed += len(failed)
		response.Successful += len(batch) - len(failed)
	}

	for _, pack := range packs {
		s.Cache.Delete(ctx, cache.BalanceKey(pack.UserID))
	}

	s.Logger.Infow("completed credit pack expiry sweep",
		"total", response.Total,
		"successful", response.Successful,
		"failed", response.Failed,
		"batches", response.Batches,
	)
	return response, nil
}

// expirePack stages the three writes for one pack: deactivate it, take the
// remaining balance off the user via an atomic clamped increment, and append
// the pack_expired ledger entry
func (s *creditPackService) expirePack(ctx context.Context, pack *creditpack.CreditPack, now time.Time) error {
	if err := s.CreditPackRepo.MarkExpired(ctx, pack.ID, now); err != nil {
		return err
	}

	// A fully spent pack is only marked; there is no balance delta to
	// remove and a zero-amount ledger row is invalid
	if pack.CreditsRemaining.IsZero() {
		return nil
	}

	// Atomic increment by a negative delta rather than read-modify-write,
	// so a spend racing with the sweep cannot underflow the balance
	if err := s.UserRepo.IncrementTotalCredits(ctx, pack.UserID, pack.CreditsRemaining.Neg()); err != nil {
		return err
	}

	txn := &ledger.Transaction{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT_TRANSACTION),
		UserID:      pack.UserID,
		Type:        types.TransactionTypePackExpired,
		Amount:      pack.CreditsRemaining.Neg(),
		SourceID:    pack.ID,
		Description: "credit pack expired",
		BaseModel:   types.GetDefaultBaseModel(),
	}
	return s.LedgerRepo.Create(ctx, txn)
}
