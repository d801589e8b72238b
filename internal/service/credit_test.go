package service

import (
	"testing"
	"time"

	"github.com/roomcraft/roomcraft/internal/api/dto"
	"github.com/roomcraft/roomcraft/internal/domain/creditpack"
	"github.com/roomcraft/roomcraft/internal/domain/ledger"
	"github.com/roomcraft/roomcraft/internal/domain/subscription"
	"github.com/roomcraft/roomcraft/internal/domain/user"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/testutil"
	"github.com/roomcraft/roomcraft/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type CreditServiceSuite struct {
	testutil.BaseServiceTestSuite
	service CreditService
}

func TestCreditService(t *testing.T) {
	suite.Run(t, new(CreditServiceSuite))
}

func (s *CreditServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := s.newParams()
	s.service = NewCreditService(params, NewSubscriptionService(params))
}

func (s *CreditServiceSuite) newParams() ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:         s.GetLogger(),
		Config:         s.GetConfig(),
		DB:             s.GetDB(),
		Cache:          s.GetCache(),
		UserRepo:       stores.UserRepo,
		SubRepo:        stores.SubRepo,
		CreditPackRepo: stores.CreditPackRepo,
		LedgerRepo:     stores.LedgerRepo,
		CheckoutRepo:   stores.CheckoutRepo,
	}
}

func (s *CreditServiceSuite) seedUser(id string, credits int64) {
	u := &user.User{
		ID:           id,
		Email:        id + "@example.com",
		TotalCredits: decimal.NewFromInt(credits),
		BaseModel:    types.GetDefaultBaseModel(),
	}
	s.NoError(s.GetStores().UserRepo.Create(s.GetContext(), u))
}

func (s *CreditServiceSuite) seedSub(id, userID string, remaining int64) {
	sub := &subscription.Subscription{
		ID:                            id,
		UserID:                        userID,
		StripeSubscriptionID:          "sub_" + id,
		Status:                        types.SubscriptionStatusActive,
		MonthlyCredits:                decimal.NewFromInt(remaining),
		CreditsUsedCurrentPeriod:      decimal.Zero,
		CreditsRemainingCurrentPeriod: decimal.NewFromInt(remaining),
		BillingCycleStart:             s.GetNow().AddDate(0, 0, -15),
		BillingCycleEnd:               s.GetNow().AddDate(0, 0, 15),
		NextResetDate:                 s.GetNow().AddDate(0, 0, 15),
		BaseModel:                     types.GetDefaultBaseModel(),
	}
	s.NoError(s.GetStores().SubRepo.Create(s.GetContext(), sub))
}

func (s *CreditServiceSuite) seedPack(id, userID string, remaining int64, createdAt time.Time) {
	pack := &creditpack.CreditPack{
		ID:                    id,
		UserID:                userID,
		StripePaymentIntentID: "pi_" + id,
		CreditsPurchased:      decimal.NewFromInt(remaining),
		CreditsRemaining:      decimal.NewFromInt(remaining),
		IsActive:              true,
		BaseModel:             types.GetDefaultBaseModel(),
	}
	pack.CreatedAt = createdAt
	s.NoError(s.GetStores().CreditPackRepo.Create(s.GetContext(), pack))
}

func (s *CreditServiceSuite) seedLedger(userID string, amount int64, txType types.TransactionType) {
	txn := &ledger.Transaction{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT_TRANSACTION),
		UserID:    userID,
		Type:      txType,
		Amount:    decimal.NewFromInt(amount),
		BaseModel: types.GetDefaultBaseModel(),
	}
	s.NoError(s.GetStores().LedgerRepo.Create(s.GetContext(), txn))
}

func (s *CreditServiceSuite) TestGetBalance() {
	s.seedUser("user-1", 120)
	s.seedSub("subs-1", "user-1", 80)

	resp, err := s.service.GetBalance(s.GetContext(), "user-1")
	s.NoError(err)
	s.Equal("user-1", resp.UserID)
	s.True(resp.TotalCredits.Equal(decimal.NewFromInt(120)))
	s.NotNil(resp.Subscription)
	s.True(resp.Subscription.CreditsRemainingCurrentPeriod.Equal(decimal.NewFromInt(80)))
}

func (s *CreditServiceSuite) TestGetBalanceServesCachedSnapshot() {
	s.seedUser("user-1", 100)

	first, err := s.service.GetBalance(s.GetContext(), "user-1")
	s.NoError(err)

	// A direct balance change is invisible until the cache entry is
	// dropped by a mutator or the TTL lapses
	s.NoError(s.GetStores().UserRepo.UpdateTotalCredits(s.GetContext(), "user-1", decimal.NewFromInt(5)))

	second, err := s.service.GetBalance(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(second.TotalCredits.Equal(first.TotalCredits))
}

func (s *CreditServiceSuite) TestConsumeCreditsValidation() {
	s.seedUser("user-1", 100)

	_, err := s.service.ConsumeCredits(s.GetContext(), "user-1", &dto.ConsumeCreditsRequest{Amount: 0})
	s.Error(err)
	s.True(ierr.IsValidation(err))

	_, err = s.service.ConsumeCredits(s.GetContext(), "user-1", &dto.ConsumeCreditsRequest{Amount: -5})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *CreditServiceSuite) TestConsumeCreditsInsufficient() {
	s.seedUser("user-1", 2)

	_, err := s.service.ConsumeCredits(s.GetContext(), "user-1", &dto.ConsumeCreditsRequest{Amount: 3})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	// Nothing was deducted and no usage row was written
	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.Equal(decimal.NewFromInt(2)))

	ledgerStore := s.GetStores().LedgerRepo.(*testutil.InMemoryLedgerStore)
	s.Equal(0, ledgerStore.CountByUserAndType("user-1", types.TransactionTypeCreditUsage))
}

func (s *CreditServiceSuite) TestConsumeCreditsDrawsSubscriptionFirst() {
	s.seedUser("user-1", 150)
	s.seedSub("subs-1", "user-1", 100)
	s.seedPack("pack-1", "user-1", 50, s.GetNow().Add(-time.Hour))

	resp, err := s.service.ConsumeCredits(s.GetContext(), "user-1", &dto.ConsumeCreditsRequest{Amount: 40, Description: "room render"})
	s.NoError(err)
	s.True(resp.Consumed.Equal(decimal.NewFromInt(40)))
	s.True(resp.TotalCredits.Equal(decimal.NewFromInt(110)))

	sub, err := s.GetStores().SubRepo.GetByID(s.GetContext(), "subs-1")
	s.NoError(err)
	s.True(sub.CreditsRemainingCurrentPeriod.Equal(decimal.NewFromInt(60)))
	s.True(sub.CreditsUsedCurrentPeriod.Equal(decimal.NewFromInt(40)))

	// The pack is untouched while the period still has credits
	pack, err := s.GetStores().CreditPackRepo.GetByID(s.GetContext(), "pack-1")
	s.NoError(err)
	s.True(pack.CreditsRemaining.Equal(decimal.NewFromInt(50)))

	ledgerStore := s.GetStores().LedgerRepo.(*testutil.InMemoryLedgerStore)
	s.Equal(1, ledgerStore.CountByUserAndType("user-1", types.TransactionTypeCreditUsage))
}

func (s *CreditServiceSuite) TestConsumeCreditsSpillsIntoPacksFIFO() {
	s.seedUser("user-1", 130)
	s.seedSub("subs-1", "user-1", 30)
	s.seedPack("pack-old", "user-1", 60, s.GetNow().Add(-48*time.Hour))
	s.seedPack("pack-new", "user-1", 40, s.GetNow().Add(-time.Hour))

	_, err := s.service.ConsumeCredits(s.GetContext(), "user-1", &dto.ConsumeCreditsRequest{Amount: 100})
	s.NoError(err)

	sub, err := s.GetStores().SubRepo.GetByID(s.GetContext(), "subs-1")
	s.NoError(err)
	s.True(sub.CreditsRemainingCurrentPeriod.IsZero())

	// 30 from the period, 60 from the oldest pack, 10 from the newer one
	oldPack, err := s.GetStores().CreditPackRepo.GetByID(s.GetContext(), "pack-old")
	s.NoError(err)
	s.True(oldPack.CreditsRemaining.IsZero())

	newPack, err := s.GetStores().CreditPackRepo.GetByID(s.GetContext(), "pack-new")
	s.NoError(err)
	s.True(newPack.CreditsRemaining.Equal(decimal.NewFromInt(30)))

	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.Equal(decimal.NewFromInt(30)))
}

func (s *CreditServiceSuite) TestConsumeCreditsWithoutSubscription() {
	s.seedUser("user-1", 50)
	s.seedPack("pack-1", "user-1", 50, s.GetNow().Add(-time.Hour))

	resp, err := s.service.ConsumeCredits(s.GetContext(), "user-1", &dto.ConsumeCreditsRequest{Amount: 20})
	s.NoError(err)
	s.True(resp.TotalCredits.Equal(decimal.NewFromInt(30)))

	pack, err := s.GetStores().CreditPackRepo.GetByID(s.GetContext(), "pack-1")
	s.NoError(err)
	s.True(pack.CreditsRemaining.Equal(decimal.NewFromInt(30)))
}

func (s *CreditServiceSuite) TestConsumeCreditsInvalidatesCachedBalance() {
	s.seedUser("user-1", 100)

	_, err := s.service.GetBalance(s.GetContext(), "user-1")
	s.NoError(err)

	_, err = s.service.ConsumeCredits(s.GetContext(), "user-1", &dto.ConsumeCreditsRequest{Amount: 10})
	s.NoError(err)

	resp, err := s.service.GetBalance(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(resp.TotalCredits.Equal(decimal.NewFromInt(90)))
}

func (s *CreditServiceSuite) TestReconcileBalanceNoDrift() {
	s.seedUser("user-1", 70)
	s.seedLedger("user-1", 100, types.TransactionTypeTrialCreated)
	s.seedLedger("user-1", -30, types.TransactionTypeCreditUsage)

	resp, err := s.service.ReconcileBalance(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(resp.Drift.IsZero())
	s.False(resp.Repaired)

	ledgerStore := s.GetStores().LedgerRepo.(*testutil.InMemoryLedgerStore)
	s.Equal(0, ledgerStore.CountByUserAndType("user-1", types.TransactionTypeBalanceReconciled))
}

func (s *CreditServiceSuite) TestReconcileBalanceRepairsDrift() {
	s.seedUser("user-1", 40)
	s.seedLedger("user-1", 100, types.TransactionTypeTrialCreated)
	s.seedLedger("user-1", -30, types.TransactionTypeCreditUsage)

	resp, err := s.service.ReconcileBalance(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(resp.Repaired)
	s.True(resp.LedgerBalance.Equal(decimal.NewFromInt(70)))
	s.True(resp.CachedBalance.Equal(decimal.NewFromInt(40)))
	s.True(resp.Drift.Equal(decimal.NewFromInt(30)))

	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.Equal(decimal.NewFromInt(70)))

	ledgerStore := s.GetStores().LedgerRepo.(*testutil.InMemoryLedgerStore)
	s.Equal(1, ledgerStore.CountByUserAndType("user-1", types.TransactionTypeBalanceReconciled))
}

func (s *CreditServiceSuite) TestReconcileBalanceRepairIsIdempotent() {
	s.seedUser("user-1", 40)
	s.seedLedger("user-1", 100, types.TransactionTypeTrialCreated)
	s.seedLedger("user-1", -30, types.TransactionTypeCreditUsage)

	first, err := s.service.ReconcileBalance(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(first.Repaired)

	// The repair row must not feed back into the next run's sum, or the
	// same drift gets re-applied on every sweep
	second, err := s.service.ReconcileBalance(s.GetContext(), "user-1")
	s.NoError(err)
	s.False(second.Repaired)
	s.True(second.Drift.IsZero())

	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.Equal(decimal.NewFromInt(70)))

	ledgerStore := s.GetStores().LedgerRepo.(*testutil.InMemoryLedgerStore)
	s.Equal(1, ledgerStore.CountByUserAndType("user-1", types.TransactionTypeBalanceReconciled))
}

func (s *CreditServiceSuite) TestReconcileBalanceFloorsNegativeLedgerSum() {
	// Clamped spends can leave the signed ledger sum below zero; the
	// reconciled target never goes negative
	s.seedUser("user-1", 10)
	s.seedLedger("user-1", 5, types.TransactionTypeTrialCreated)
	s.seedLedger("user-1", -20, types.TransactionTypeTrialExpired)

	resp, err := s.service.ReconcileBalance(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(resp.LedgerBalance.IsZero())
	s.True(resp.Repaired)

	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.IsZero())
}

func (s *CreditServiceSuite) TestReconcileAllBalancesSweep() {
	s.seedUser("user-1", 40)
	s.seedLedger("user-1", 100, types.TransactionTypeTrialCreated)
	s.seedUser("user-2", 25)
	s.seedLedger("user-2", 25, types.TransactionTypeTrialCreated)

	resp, err := s.service.ReconcileAllBalances(s.GetContext())
	s.NoError(err)
	s.Equal(2, resp.Total)
	s.Equal(2, resp.Successful)
	s.Equal(0, resp.Failed)

	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.Equal(decimal.NewFromInt(100)))
}
