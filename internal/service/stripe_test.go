package service

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/roomcraft/roomcraft/internal/config"
	"github.com/roomcraft/roomcraft/internal/domain/checkout"
	"github.com/roomcraft/roomcraft/internal/domain/subscription"
	"github.com/roomcraft/roomcraft/internal/domain/user"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/testutil"
	"github.com/roomcraft/roomcraft/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v82"
)

type WebhookServiceSuite struct {
	testutil.BaseServiceTestSuite
	service WebhookService
}

func TestWebhookService(t *testing.T) {
	suite.Run(t, new(WebhookServiceSuite))
}

func (s *WebhookServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := s.newParams()
	s.service = NewWebhookService(
		params,
		NewSubscriptionService(params),
		NewCreditPackService(params),
	)
}

func (s *WebhookServiceSuite) newParams() ServiceParams {
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

func (s *WebhookServiceSuite) newEvent(eventType, payload string) *stripe.Event {
	return &stripe.Event{
		ID:   "evt_" + types.GenerateUUID(),
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: json.RawMessage(payload)},
	}
}

func (s *WebhookServiceSuite) seedUser(id string, credits int64) {
	u := &user.User{
		ID:               id,
		Email:            id + "@example.com",
		StripeCustomerID: "cus_" + id,
		TotalCredits:     decimal.NewFromInt(credits),
		BaseModel:        types.GetDefaultBaseModel(),
	}
	s.NoError(s.GetStores().UserRepo.Create(s.GetContext(), u))
}

func (s *WebhookServiceSuite) seedCheckoutSession(id, userID string, mode types.CheckoutMode, priceID string) {
	session := &checkout.Session{
		ID:              id,
		UserID:          userID,
		StripeSessionID: "cs_" + id,
		Mode:            mode,
		PriceID:         priceID,
		Status:          types.CheckoutSessionStatusPending,
		BaseModel:       types.GetDefaultBaseModel(),
	}
	s.NoError(s.GetStores().CheckoutRepo.Create(s.GetContext(), session))
}

func (s *WebhookServiceSuite) seedSub(id, userID string, status types.SubscriptionStatus, monthly, remaining int64, isTrial bool) {
	sub := &subscription.Subscription{
		ID:                            id,
		UserID:                        userID,
		StripeSubscriptionID:          "sub_" + id,
		Status:                        status,
		MonthlyCredits:                decimal.NewFromInt(monthly),
		CreditsUsedCurrentPeriod:      decimal.NewFromInt(monthly - remaining),
		CreditsRemainingCurrentPeriod: decimal.NewFromInt(remaining),
		BillingCycleStart:             s.GetNow().AddDate(0, 0, -15),
		BillingCycleEnd:               s.GetNow().AddDate(0, 0, 15),
		NextResetDate:                 s.GetNow().AddDate(0, 0, 15),
		IsTrial:                       isTrial,
		BaseModel:                     types.GetDefaultBaseModel(),
	}
	s.NoError(s.GetStores().SubRepo.Create(s.GetContext(), sub))
}

func (s *WebhookServiceSuite) ledgerCount(userID string, txType types.TransactionType) int {
	return s.GetStores().LedgerRepo.(*testutil.InMemoryLedgerStore).CountByUserAndType(userID, txType)
}

func (s *WebhookServiceSuite) TestUnhandledEventTypeIgnored() {
	event := s.newEvent("customer.updated", `{"id":"cus_1"}`)
	s.NoError(s.service.HandleEvent(s.GetContext(), event))
}

func (s *WebhookServiceSuite) TestCheckoutSessionCompletedGrantsPack() {
	s.seedUser("user-1", 10)
	s.seedCheckoutSession("chk-1", "user-1", types.CheckoutModePack, "price_pack_small")

	event := s.newEvent(types.WebhookEventCheckoutSessionCompleted,
		`{"id":"cs_chk-1","payment_intent":{"id":"pi_1"}}`)
	s.NoError(s.service.HandleEvent(s.GetContext(), event))

	session, err := s.GetStores().CheckoutRepo.GetByStripeSessionID(s.GetContext(), "cs_chk-1")
	s.NoError(err)
	s.Equal(types.CheckoutSessionStatusCompleted, session.Status)
	s.NotNil(session.CompletedAt)

	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.Equal(decimal.NewFromInt(60)))
	s.Equal(1, s.ledgerCount("user-1", types.TransactionTypePackPurchase))
}

func (s *WebhookServiceSuite) TestCheckoutSessionCompletedReplayIsNoop() {
	s.seedUser("user-1", 0)
	s.seedCheckoutSession("chk-1", "user-1", types.CheckoutModePack, "price_pack_small")

	event := s.newEvent(types.WebhookEventCheckoutSessionCompleted,
		`{"id":"cs_chk-1","payment_intent":{"id":"pi_1"}}`)
	s.NoError(s.service.HandleEvent(s.GetContext(), event))
	s.NoError(s.service.HandleEvent(s.GetContext(), event))

	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.Equal(decimal.NewFromInt(50)))
	s.Equal(1, s.ledgerCount("user-1", types.TransactionTypePackPurchase))
}

func (s *WebhookServiceSuite) TestCheckoutSessionFailedGrantStaysPending() {
	s.seedUser("user-1", 0)
	s.seedCheckoutSession("chk-1", "user-1", types.CheckoutModePack, "price_pack_flash")

	// The pack price is not configured yet, so the grant fails. The
	// session must stay pending so Stripe's retry can grant the paid
	// pack instead of short-circuiting at the completed guard.
	event := s.newEvent(types.WebhookEventCheckoutSessionCompleted,
		`{"id":"cs_chk-1","payment_intent":{"id":"pi_1"}}`)
	s.Error(s.service.HandleEvent(s.GetContext(), event))

	session, err := s.GetStores().CheckoutRepo.GetByStripeSessionID(s.GetContext(), "cs_chk-1")
	s.NoError(err)
	s.Equal(types.CheckoutSessionStatusPending, session.Status)

	s.GetConfig().Stripe.Packs["price_pack_flash"] = config.PackConfig{Name: "Flash Pack", Credits: 25, ExpiryDays: 30}
	defer delete(s.GetConfig().Stripe.Packs, "price_pack_flash")

	s.NoError(s.service.HandleEvent(s.GetContext(), event))

	session, err = s.GetStores().CheckoutRepo.GetByStripeSessionID(s.GetContext(), "cs_chk-1")
	s.NoError(err)
	s.Equal(types.CheckoutSessionStatusCompleted, session.Status)

	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.Equal(decimal.NewFromInt(25)))
	s.Equal(1, s.ledgerCount("user-1", types.TransactionTypePackPurchase))
}

func (s *WebhookServiceSuite) TestCheckoutSessionCompletedUnknownSession() {
	// Sessions created outside this system are acknowledged without effect
	event := s.newEvent(types.WebhookEventCheckoutSessionCompleted,
		`{"id":"cs_elsewhere","payment_intent":{"id":"pi_1"}}`)
	s.NoError(s.service.HandleEvent(s.GetContext(), event))
}

func (s *WebhookServiceSuite) TestCheckoutSessionCompletedSubscriptionMode() {
	// Subscription checkouts only close the session record; the grant
	// arrives with customer.subscription.created
	s.seedUser("user-1", 0)
	s.seedCheckoutSession("chk-1", "user-1", types.CheckoutModeSubscription, "price_basic")

	event := s.newEvent(types.WebhookEventCheckoutSessionCompleted, `{"id":"cs_chk-1"}`)
	s.NoError(s.service.HandleEvent(s.GetContext(), event))

	session, err := s.GetStores().CheckoutRepo.GetByStripeSessionID(s.GetContext(), "cs_chk-1")
	s.NoError(err)
	s.Equal(types.CheckoutSessionStatusCompleted, session.Status)

	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.IsZero())
}

func (s *WebhookServiceSuite) TestSubscriptionCreated() {
	s.seedUser("user-1", 10)
	s.seedSub("trial-1", "user-1", types.SubscriptionStatusTrialing, 10, 10, true)

	event := s.newEvent(types.WebhookEventCustomerSubCreated,
		`{"id":"sub_str_1","metadata":{"user_id":"user-1"},"items":{"data":[{"price":{"id":"price_basic"}}]}}`)
	s.NoError(s.service.HandleEvent(s.GetContext(), event))

	sub, err := s.GetStores().SubRepo.GetByStripeSubscriptionID(s.GetContext(), "sub_str_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.Status)
	s.True(sub.MonthlyCredits.Equal(decimal.NewFromInt(100)))
	s.True(sub.CreditsRemainingCurrentPeriod.Equal(decimal.NewFromInt(100)))
	s.False(sub.IsTrial)

	// The trial was canceled so only one subscription stays active
	trial, err := s.GetStores().SubRepo.GetByID(s.GetContext(), "trial-1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCanceled, trial.Status)

	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.Equal(decimal.NewFromInt(110)))
	s.Equal(1, s.ledgerCount("user-1", types.TransactionTypeSubscriptionCreated))
}

func (s *WebhookServiceSuite) TestSubscriptionCreatedReplayIsNoop() {
	s.seedUser("user-1", 0)

	event := s.newEvent(types.WebhookEventCustomerSubCreated,
		`{"id":"sub_str_1","metadata":{"user_id":"user-1"},"items":{"data":[{"price":{"id":"price_basic"}}]}}`)
	s.NoError(s.service.HandleEvent(s.GetContext(), event))
	s.NoError(s.service.HandleEvent(s.GetContext(), event))

	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.Equal(decimal.NewFromInt(100)))
	s.Equal(1, s.ledgerCount("user-1", types.TransactionTypeSubscriptionCreated))
}

func (s *WebhookServiceSuite) TestSubscriptionCreatedResolvesUserByCustomer() {
	s.seedUser("user-1", 0)

	event := s.newEvent(types.WebhookEventCustomerSubCreated,
		`{"id":"sub_str_1","customer":{"id":"cus_user-1"},"items":{"data":[{"price":{"id":"price_pro"}}]}}`)
	s.NoError(s.service.HandleEvent(s.GetContext(), event))

	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.Equal(decimal.NewFromInt(1000)))
}

func (s *WebhookServiceSuite) TestSubscriptionCreatedUnknownPrice() {
	s.seedUser("user-1", 0)

	event := s.newEvent(types.WebhookEventCustomerSubCreated,
		`{"id":"sub_str_1","metadata":{"user_id":"user-1"},"items":{"data":[{"price":{"id":"price_mystery"}}]}}`)
	err := s.service.HandleEvent(s.GetContext(), event)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *WebhookServiceSuite) TestSubscriptionDeleted() {
	s.seedUser("user-1", 100)
	s.seedSub("subs-1", "user-1", types.SubscriptionStatusActive, 100, 60, false)

	event := s.newEvent(types.WebhookEventCustomerSubDeleted, `{"id":"sub_subs-1"}`)
	s.NoError(s.service.HandleEvent(s.GetContext(), event))

	sub, err := s.GetStores().SubRepo.GetByID(s.GetContext(), "subs-1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusExpired, sub.Status)
	s.True(sub.CreditsRemainingCurrentPeriod.IsZero())

	// Unused period credits die with the subscription
	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.Equal(decimal.NewFromInt(40)))
	s.Equal(1, s.ledgerCount("user-1", types.TransactionTypeSubscriptionCanceled))
}

func (s *WebhookServiceSuite) TestSubscriptionDeletedReplayIsNoop() {
	s.seedUser("user-1", 100)
	s.seedSub("subs-1", "user-1", types.SubscriptionStatusActive, 100, 60, false)

	event := s.newEvent(types.WebhookEventCustomerSubDeleted, `{"id":"sub_subs-1"}`)
	s.NoError(s.service.HandleEvent(s.GetContext(), event))
	s.NoError(s.service.HandleEvent(s.GetContext(), event))

	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.Equal(decimal.NewFromInt(40)))
	s.Equal(1, s.ledgerCount("user-1", types.TransactionTypeSubscriptionCanceled))
}

func (s *WebhookServiceSuite) TestSubscriptionDeletedUnknownSubscription() {
	event := s.newEvent(types.WebhookEventCustomerSubDeleted, `{"id":"sub_elsewhere"}`)
	s.NoError(s.service.HandleEvent(s.GetContext(), event))
}

func (s *WebhookServiceSuite) TestInvoicePaymentSkipsInitialInvoice() {
	s.seedUser("user-1", 50)
	s.seedSub("subs-1", "user-1", types.SubscriptionStatusActive, 100, 50, false)

	// The create handler already seeded the first period
	event := s.newEvent(types.WebhookEventInvoicePaymentSucceeded,
		`{"id":"in_1","billing_reason":"subscription_create","parent":{"subscription_details":{"subscription":{"id":"sub_subs-1"}}}}`)
	s.NoError(s.service.HandleEvent(s.GetContext(), event))

	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.Equal(decimal.NewFromInt(50)))
	s.Equal(0, s.ledgerCount("user-1", types.TransactionTypeSubscriptionReset))
}

func (s *WebhookServiceSuite) TestInvoicePaymentResetsRenewalPeriod() {
	s.seedUser("user-1", 50)
	s.seedSub("subs-1", "user-1", types.SubscriptionStatusActive, 100, 50, false)

	event := s.newEvent(types.WebhookEventInvoicePaymentSucceeded,
		`{"id":"in_2","billing_reason":"subscription_cycle","parent":{"subscription_details":{"subscription":{"id":"sub_subs-1"}}}}`)
	s.NoError(s.service.HandleEvent(s.GetContext(), event))

	sub, err := s.GetStores().SubRepo.GetByID(s.GetContext(), "subs-1")
	s.NoError(err)
	s.True(sub.CreditsUsedCurrentPeriod.IsZero())
	s.True(sub.CreditsRemainingCurrentPeriod.Equal(decimal.NewFromInt(100)))

	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.Equal(decimal.NewFromInt(150)))
	s.Equal(1, s.ledgerCount("user-1", types.TransactionTypeSubscriptionReset))
}

func (s *WebhookServiceSuite) TestInvoicePaymentForInactiveSubscriptionIgnored() {
	s.seedUser("user-1", 40)
	s.seedSub("subs-1", "user-1", types.SubscriptionStatusCanceled, 100, 0, false)

	// A renewal racing the local cancellation is acknowledged, not
	// errored, so Stripe stops redelivering it
	event := s.newEvent(types.WebhookEventInvoicePaymentSucceeded,
		`{"id":"in_4","billing_reason":"subscription_cycle","parent":{"subscription_details":{"subscription":{"id":"sub_subs-1"}}}}`)
	s.NoError(s.service.HandleEvent(s.GetContext(), event))

	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.Equal(decimal.NewFromInt(40)))
	s.Equal(0, s.ledgerCount("user-1", types.TransactionTypeSubscriptionReset))
}

func (s *WebhookServiceSuite) TestInvoicePaymentUnknownSubscriptionIgnored() {
	event := s.newEvent(types.WebhookEventInvoicePaymentSucceeded,
		`{"id":"in_3","billing_reason":"subscription_cycle","parent":{"subscription_details":{"subscription":{"id":"sub_elsewhere"}}}}`)
	s.NoError(s.service.HandleEvent(s.GetContext(), event))
}

func (s *WebhookServiceSuite) TestPaymentIntentSucceededFallbackGrant() {
	s.seedUser("user-1", 0)

	event := s.newEvent(types.WebhookEventPaymentIntentSucceeded,
		`{"id":"pi_1","metadata":{"mode":"pack","user_id":"user-1","price_id":"price_pack_large"}}`)
	s.NoError(s.service.HandleEvent(s.GetContext(), event))

	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.Equal(decimal.NewFromInt(200)))
	s.Equal(1, s.ledgerCount("user-1", types.TransactionTypePackPurchase))
}

func (s *WebhookServiceSuite) TestPaymentIntentIdempotentWithCheckoutPath() {
	s.seedUser("user-1", 0)
	s.seedCheckoutSession("chk-1", "user-1", types.CheckoutModePack, "price_pack_small")

	sessionEvent := s.newEvent(types.WebhookEventCheckoutSessionCompleted,
		fmt.Sprintf(`{"id":"cs_chk-1","payment_intent":{"id":"%s"}}`, "pi_1"))
	s.NoError(s.service.HandleEvent(s.GetContext(), sessionEvent))

	// The fallback path sees the same payment intent and grants nothing
	intentEvent := s.newEvent(types.WebhookEventPaymentIntentSucceeded,
		`{"id":"pi_1","metadata":{"mode":"pack","user_id":"user-1","price_id":"price_pack_small"}}`)
	s.NoError(s.service.HandleEvent(s.GetContext(), intentEvent))

	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.Equal(decimal.NewFromInt(50)))
	s.Equal(1, s.ledgerCount("user-1", types.TransactionTypePackPurchase))
}

func (s *WebhookServiceSuite) TestPaymentIntentNonPackIgnored() {
	s.seedUser("user-1", 0)

	event := s.newEvent(types.WebhookEventPaymentIntentSucceeded,
		`{"id":"pi_1","metadata":{"mode":"subscription"}}`)
	s.NoError(s.service.HandleEvent(s.GetContext(), event))

	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), "user-1")
	s.NoError(err)
	s.True(u.TotalCredits.IsZero())
}

func (s *WebhookServiceSuite) TestMalformedPayloadRejected() {
	event := s.newEvent(types.WebhookEventCustomerSubCreated, `{not json`)
	err := s.service.HandleEvent(s.GetContext(), event)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
