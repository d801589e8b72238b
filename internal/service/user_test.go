package service

import (
	"testing"
	"time"

	"github.com/roomcraft/roomcraft/internal/api/dto"
	"github.com/roomcraft/roomcraft/internal/domain/subscription"
	"github.com/roomcraft/roomcraft/internal/domain/user"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/testutil"
	"github.com/roomcraft/roomcraft/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type UserServiceSuite struct {
	testutil.BaseServiceTestSuite
	service UserService
}

func TestUserService(t *testing.T) {
	suite.Run(t, new(UserServiceSuite))
}

func (s *UserServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewUserService(s.newParams())
}

func (s *UserServiceSuite) newParams() ServiceParams {
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

func (s *UserServiceSuite) TestProvisionUser() {
	resp, err := s.service.ProvisionUser(s.GetContext(), &dto.ProvisionUserRequest{
		UserID: "user-1",
		Email:  "designer@example.com",
	})
	s.NoError(err)
	s.NotNil(resp)
	s.Equal("user-1", resp.ID)
	s.True(resp.TotalCredits.Equal(decimal.NewFromInt(10)))

	subs, err := s.GetStores().SubRepo.GetActiveByUserID(s.GetContext(), "user-1")
	s.NoError(err)
	s.Len(subs, 1)
	s.True(subs[0].IsTrial)
	s.Equal(types.SubscriptionStatusTrialing, subs[0].Status)

	ledgerStore := s.GetStores().LedgerRepo.(*testutil.InMemoryLedgerStore)
	s.Equal(1, ledgerStore.CountByUserAndType("user-1", types.TransactionTypeTrialCreated))
}

func (s *UserServiceSuite) TestProvisionUserIdempotent() {
	req := &dto.ProvisionUserRequest{
		UserID: "user-1",
		Email:  "designer@example.com",
	}

	_, err := s.service.ProvisionUser(s.GetContext(), req)
	s.NoError(err)

	// Duplicate trigger delivery is a silent no-op
	resp, err := s.service.ProvisionUser(s.GetContext(), req)
	s.NoError(err)
	s.Equal("user-1", resp.ID)

	subs, err := s.GetStores().SubRepo.GetActiveByUserID(s.GetContext(), "user-1")
	s.NoError(err)
	s.Len(subs, 1)

	ledgerStore := s.GetStores().LedgerRepo.(*testutil.InMemoryLedgerStore)
	s.Equal(1, ledgerStore.CountByUserAndType("user-1", types.TransactionTypeTrialCreated))
}

func (s *UserServiceSuite) TestProvisionUserValidation() {
	_, err := s.service.ProvisionUser(s.GetContext(), &dto.ProvisionUserRequest{
		UserID: "",
		Email:  "designer@example.com",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *UserServiceSuite) TestExpireTrial() {
	resp, err := s.service.ProvisionUser(s.GetContext(), &dto.ProvisionUserRequest{
		UserID: "user-1",
		Email:  "designer@example.com",
	})
	s.NoError(err)
	s.True(resp.TotalCredits.Equal(decimal.NewFromInt(10)))

	subs, err := s.GetStores().SubRepo.GetActiveByUserID(s.GetContext(), "user-1")
	s.NoError(err)
	s.Len(subs, 1)

	err = s.service.ExpireTrial(s.GetContext(), subs[0].ID)
	s.NoError(err)

	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.IsZero())

	expired, err := s.GetStores().SubRepo.GetByID(s.GetContext(), subs[0].ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusExpired, expired.Status)
	s.True(expired.CreditsRemainingCurrentPeriod.IsZero())

	ledgerStore := s.GetStores().LedgerRepo.(*testutil.InMemoryLedgerStore)
	s.Equal(1, ledgerStore.CountByUserAndType("user-1", types.TransactionTypeTrialExpired))
}

func (s *UserServiceSuite) TestExpireTrialClampsAtZero() {
	// The user spent more than the trial left behind; expiry must not
	// drive the balance negative
	u := &user.User{
		ID:           "user-1",
		Email:        "designer@example.com",
		TotalCredits: decimal.NewFromInt(3),
		BaseModel:    types.GetDefaultBaseModel(),
	}
	s.NoError(s.GetStores().UserRepo.Create(s.GetContext(), u))

	sub := &subscription.Subscription{
		ID:                            "subs-trial",
		UserID:                        "user-1",
		Status:                        types.SubscriptionStatusTrialing,
		MonthlyCredits:                decimal.NewFromInt(10),
		CreditsRemainingCurrentPeriod: decimal.NewFromInt(10),
		BillingCycleStart:             s.GetNow().AddDate(0, 0, -7),
		BillingCycleEnd:               s.GetNow(),
		NextResetDate:                 s.GetNow(),
		IsTrial:                       true,
		BaseModel:                     types.GetDefaultBaseModel(),
	}
	s.NoError(s.GetStores().SubRepo.Create(s.GetContext(), sub))

	s.NoError(s.service.ExpireTrial(s.GetContext(), sub.ID))

	updated, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(updated.TotalCredits.IsZero())
}

func (s *UserServiceSuite) TestExpireTrialRejectsNonTrial() {
	u := &user.User{
		ID:           "user-1",
		Email:        "designer@example.com",
		TotalCredits: decimal.NewFromInt(100),
		BaseModel:    types.GetDefaultBaseModel(),
	}
	s.NoError(s.GetStores().UserRepo.Create(s.GetContext(), u))

	sub := &subscription.Subscription{
		ID:                            "subs-paid",
		UserID:                        "user-1",
		Status:                        types.SubscriptionStatusActive,
		MonthlyCredits:                decimal.NewFromInt(100),
		CreditsRemainingCurrentPeriod: decimal.NewFromInt(100),
		BillingCycleStart:             s.GetNow(),
		BillingCycleEnd:               s.GetNow().AddDate(0, 0, 30),
		NextResetDate:                 s.GetNow().AddDate(0, 0, 30),
		BaseModel:                     types.GetDefaultBaseModel(),
	}
	s.NoError(s.GetStores().SubRepo.Create(s.GetContext(), sub))

	err := s.service.ExpireTrial(s.GetContext(), sub.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *UserServiceSuite) TestExpireDueTrialsSweep() {
	for _, id := range []string{"user-1", "user-2", "user-3"} {
		u := &user.User{
			ID:           id,
			Email:        id + "@example.com",
			TotalCredits: decimal.NewFromInt(10),
			BaseModel:    types.GetDefaultBaseModel(),
		}
		s.NoError(s.GetStores().UserRepo.Create(s.GetContext(), u))

		sub := &subscription.Subscription{
			ID:                            "subs-" + id,
			UserID:                        id,
			Status:                        types.SubscriptionStatusTrialing,
			MonthlyCredits:                decimal.NewFromInt(10),
			CreditsRemainingCurrentPeriod: decimal.NewFromInt(10),
			BillingCycleStart:             s.GetNow().AddDate(0, 0, -8),
			BillingCycleEnd:               s.GetNow().Add(-time.Hour),
			NextResetDate:                 s.GetNow().Add(-time.Hour),
			IsTrial:                       true,
			BaseModel:                     types.GetDefaultBaseModel(),
		}
		s.NoError(s.GetStores().SubRepo.Create(s.GetContext(), sub))
	}

	resp, err := s.service.ExpireDueTrials(s.GetContext(), s.GetNow())
	s.NoError(err)
	s.Equal(3, resp.Total)
	s.Equal(3, resp.Successful)
	s.Equal(0, resp.Failed)

	for _, id := range []string{"user-1", "user-2", "user-3"} {
		u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), id)
		s.NoError(err)
		s.True(u.TotalCredits.IsZero())
	}
}
