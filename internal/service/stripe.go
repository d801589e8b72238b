package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/roomcraft/roomcraft/internal/cache"
	"github.com/roomcraft/roomcraft/internal/domain/ledger"
	"github.com/roomcraft/roomcraft/internal/domain/subscription"
	"github.com/roomcraft/roomcraft/internal/domain/user"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
)

// WebhookService translates Stripe webhook events into billing state
// transitions. Every handler is idempotent: Stripe retries delivery and the
// same event may arrive more than once.
type WebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type webhookService struct {
	ServiceParams
	subscriptionService SubscriptionService
	creditPackService   CreditPackService
}

// NewWebhookService creates a new instance of WebhookService
func NewWebhookService(
	params ServiceParams,
	subscriptionService SubscriptionService,
	creditPackService CreditPackService,
) WebhookService {
	return &webhookService{
		ServiceParams:       params,
		subscriptionService: subscriptionService,
		creditPackService:   creditPackService,
	}
}

func (s *webhookService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	s.Logger.Infow("processing stripe webhook event",
		"event_id", event.ID,
		"event_type", event.Type,
	)

	switch string(event.Type) {
	case types.WebhookEventCheckoutSessionCompleted:
		return s.handleCheckoutSessionCompleted(ctx, event)
	case types.WebhookEventCustomerSubCreated:
		return s.handleSubscriptionCreated(ctx, event)
	case types.WebhookEventCustomerSubDeleted:
		return s.handleSubscriptionDeleted(ctx, event)
	case types.WebhookEventInvoicePaymentSucceeded:
		return s.handleInvoicePaymentSucceeded(ctx, event)
	case types.WebhookEventPaymentIntentSucceeded:
		return s.handlePaymentIntentSucceeded(ctx, event)
	default:
		s.Logger.Debugw("ignoring unhandled stripe event type",
			"event_id", event.ID,
			"event_type", event.Type,
		)
		return nil
	}
}

// handleCheckoutSessionCompleted marks the internal checkout session record
// complete and, for pack checkouts, grants the purchased pack
func (s *webhookService) handleCheckoutSessionCompleted(ctx context.Context, event *stripe.Event) error {
	var stripeSession stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &stripeSession); err != nil {
		s.Logger.Errorw("failed to parse checkout session from webhook", "error", err)
		return ierr.NewError("failed to parse checkout session data").
			WithHint("Invalid checkout session data in webhook").
			Mark(ierr.ErrValidation)
	}

	session, err := s.CheckoutRepo.GetByStripeSessionID(ctx, stripeSession.ID)
	if err != nil {
		if ierr.IsNotFound(err) {
			// Checkout started outside this system, nothing to complete
			s.Logger.Warnw("no checkout session record for stripe session",
				"stripe_session_id", stripeSession.ID,
			)
			return nil
		}
		return err
	}

	if session.Status == types.CheckoutSessionStatusCompleted {
		s.Logger.Infow("checkout session already completed, skipping",
			"stripe_session_id", stripeSession.ID,
		)
		return nil
	}

	// The grant runs before the session is marked completed and in the
	// same transaction. If the session were completed first, a failed
	// grant would 500 but the retry would short-circuit at the
	// already-completed guard above and the paid pack would be lost.
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if session.Mode == types.CheckoutModePack {
			paymentIntentID := ""
			if stripeSession.PaymentIntent != nil {
				paymentIntentID = stripeSession.PaymentIntent.ID
			}
			if paymentIntentID == "" {
				return ierr.NewError("pack checkout session has no payment intent").
					WithHint("Cannot grant a credit pack without a payment intent ID").
					WithReportableDetails(map[string]interface{}{
						"stripe_session_id": stripeSession.ID,
					}).
					Mark(ierr.ErrIntegration)
			}
			if _, err := s.creditPackService.GrantPack(ctx, session.UserID, paymentIntentID, session.PriceID); err != nil {
				return err
			}
		}
		return s.CheckoutRepo.MarkCompleted(ctx, session.ID, time.Now().UTC())
	})
	if err != nil {
		return err
	}

	s.Logger.Infow("completed checkout session",
		"stripe_session_id", stripeSession.ID,
		"user_id", session.UserID,
		"mode", session.Mode,
	)
	return nil
}

// handleSubscriptionCreated seeds the internal subscription with its first
// period allotment. Any prior active subscription (including the trial) is
// canceled in the same transaction so the one-active invariant holds.
func (s *webhookService) handleSubscriptionCreated(ctx context.Context, event *stripe.Event) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		s.Logger.Errorw("failed to parse subscription from webhook", "error", err)
		return ierr.NewError("failed to parse subscription data").
			WithHint("Invalid subscription data in webhook").
			Mark(ierr.ErrValidation)
	}

	existing, err := s.SubRepo.GetByStripeSubscriptionID(ctx, stripeSub.ID)
	if err != nil && !ierr.IsNotFound(err) {
		return err
	}
	if existing != nil {
		s.Logger.Infow("subscription already recorded, skipping",
			"stripe_subscription_id", stripeSub.ID,
		)
		return nil
	}

	u, err := s.resolveUser(ctx, stripeSub.Metadata, stripeSub.Customer)
	if err != nil {
		return err
	}

	priceID := ""
	if stripeSub.Items != nil && len(stripeSub.Items.Data) > 0 && stripeSub.Items.Data[0].Price != nil {
		priceID = stripeSub.Items.Data[0].Price.ID
	}
	planCfg, ok := s.Config.Stripe.Plans[priceID]
	if !ok {
		return ierr.NewError("unknown plan price").
			WithHintf("No plan is configured for price %s", priceID).
			WithReportableDetails(map[string]interface{}{
				"stripe_subscription_id": stripeSub.ID,
				"price_id":               priceID,
			}).
			Mark(ierr.ErrValidation)
	}

	now := time.Now().UTC()
	period := s.Config.Billing.BillingPeriodDays
	allotment := decimal.NewFromInt(planCfg.MonthlyCredits)

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.subscriptionService.CancelActiveSubscriptions(ctx, u.ID); err != nil {
			return err
		}

		sub := &subscription.Subscription{
			ID:                            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
			UserID:                        u.ID,
			StripeSubscriptionID:          stripeSub.ID,
			PriceID:                       priceID,
			Status:                        types.SubscriptionStatusActive,
			MonthlyCredits:                allotment,
			CreditsUsedCurrentPeriod:      decimal.Zero,
			CreditsRemainingCurrentPeriod: allotment,
			BillingCycleStart:             now,
			BillingCycleEnd:               now.AddDate(0, 0, period),
			NextResetDate:                 now.AddDate(0, 0, period),
			IsTrial:                       false,
			BaseModel:                     types.GetDefaultBaseModel(),
		}
		if err := s.SubRepo.Create(ctx, sub); err != nil {
			return err
		}

		if err := s.UserRepo.IncrementTotalCredits(ctx, u.ID, allotment); err != nil {
			return err
		}

		txn := &ledger.Transaction{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT_TRANSACTION),
			UserID:      u.ID,
			Type:        types.TransactionTypeSubscriptionCreated,
			Amount:      allotment,
			SourceID:    sub.ID,
			Description: "subscription started: " + planCfg.Name,
			BaseModel:   types.GetDefaultBaseModel(),
		}
		return s.LedgerRepo.Create(ctx, txn)
	})
	if err != nil {
		return err
	}

	s.Cache.Delete(ctx, cache.BalanceKey(u.ID))
	s.Logger.Infow("created subscription from webhook",
		"stripe_subscription_id", stripeSub.ID,
		"user_id", u.ID,
		"plan", planCfg.Name,
		"monthly_credits", allotment,
	)
	return nil
}

// handleSubscriptionDeleted marks the internal subscription expired. Period
// credits die with the subscription; purchased packs survive.
func (s *webhookService) handleSubscriptionDeleted(ctx context.Context, event *stripe.Event) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		s.Logger.Errorw("failed to parse subscription from webhook", "error", err)
		return ierr.NewError("failed to parse subscription data").
			WithHint("Invalid subscription data in webhook").
			Mark(ierr.ErrValidation)
	}

	sub, err := s.SubRepo.GetByStripeSubscriptionID(ctx, stripeSub.ID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Warnw("no subscription record for stripe subscription",
				"stripe_subscription_id", stripeSub.ID,
			)
			return nil
		}
		return err
	}

	if sub.Status == types.SubscriptionStatusExpired || sub.Status == types.SubscriptionStatusCanceled {
		return nil
	}

	remaining := sub.CreditsRemainingCurrentPeriod

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		sub.Status = types.SubscriptionStatusExpired
		sub.CreditsRemainingCurrentPeriod = decimal.Zero
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}

		if remaining.GreaterThan(decimal.Zero) {
			if err := s.UserRepo.IncrementTotalCredits(ctx, sub.UserID, remaining.Neg()); err != nil {
				return err
			}
			txn := &ledger.Transaction{
				ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT_TRANSACTION),
				UserID:      sub.UserID,
				Type:        types.TransactionTypeSubscriptionCanceled,
				Amount:      remaining.Neg(),
				SourceID:    sub.ID,
				Description: "subscription ended, unused period credits removed",
				BaseModel:   types.GetDefaultBaseModel(),
			}
			return s.LedgerRepo.Create(ctx, txn)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Cache.Delete(ctx, cache.BalanceKey(sub.UserID))
	s.Logger.Infow("expired subscription from webhook",
		"stripe_subscription_id", stripeSub.ID,
		"user_id", sub.UserID,
	)
	return nil
}

// handleInvoicePaymentSucceeded resets the subscription period on renewal
// invoices. The first invoice of a subscription is skipped since the create
// handler already seeded the first period.
func (s *webhookService) handleInvoicePaymentSucceeded(ctx context.Context, event *stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		s.Logger.Errorw("failed to parse invoice from webhook", "error", err)
		return ierr.NewError("failed to parse invoice data").
			WithHint("Invalid invoice data in webhook").
			Mark(ierr.ErrValidation)
	}

	if invoice.BillingReason == stripe.InvoiceBillingReasonSubscriptionCreate {
		s.Logger.Debugw("skipping initial subscription invoice", "invoice_id", invoice.ID)
		return nil
	}

	stripeSubID := ""
	if invoice.Parent != nil && invoice.Parent.SubscriptionDetails != nil &&
		invoice.Parent.SubscriptionDetails.Subscription != nil {
		stripeSubID = invoice.Parent.SubscriptionDetails.Subscription.ID
	}
	if stripeSubID == "" {
		s.Logger.Debugw("invoice has no subscription, skipping", "invoice_id", invoice.ID)
		return nil
	}

	sub, err := s.SubRepo.GetByStripeSubscriptionID(ctx, stripeSubID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Warnw("no subscription record for invoice",
				"invoice_id", invoice.ID,
				"stripe_subscription_id", stripeSubID,
			)
			return nil
		}
		return err
	}

	// A renewal invoice can race the local cancellation. Resetting a
	// non-active subscription would error and keep Stripe retrying the
	// same event, so it is acknowledged and dropped.
	if sub.Status != types.SubscriptionStatusActive {
		s.Logger.Infow("skipping period reset for inactive subscription",
			"invoice_id", invoice.ID,
			"subscription_id", sub.ID,
			"status", sub.Status,
		)
		return nil
	}

	return s.subscriptionService.ResetPeriod(ctx, sub.ID)
}

// handlePaymentIntentSucceeded is the fallback grant path for pack
// purchases. GrantPack's payment intent idempotency makes it safe alongside
// the checkout.session.completed handler.
func (s *webhookService) handlePaymentIntentSucceeded(ctx context.Context, event *stripe.Event) error {
	var paymentIntent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
		s.Logger.Errorw("failed to parse payment intent from webhook", "error", err)
		return ierr.NewError("failed to parse payment intent data").
			WithHint("Invalid payment intent data in webhook").
			Mark(ierr.ErrValidation)
	}

	if paymentIntent.Metadata["mode"] != string(types.CheckoutModePack) {
		s.Logger.Debugw("payment intent is not a pack purchase, skipping",
			"payment_intent_id", paymentIntent.ID,
		)
		return nil
	}

	userID := paymentIntent.Metadata["user_id"]
	priceID := paymentIntent.Metadata["price_id"]
	if userID == "" || priceID == "" {
		s.Logger.Warnw("pack payment intent missing metadata, skipping",
			"payment_intent_id", paymentIntent.ID,
		)
		return nil
	}

	_, err := s.creditPackService.GrantPack(ctx, userID, paymentIntent.ID, priceID)
	return err
}

// resolveUser finds the internal user for a webhook object, preferring the
// user_id metadata stamped at checkout and falling back to the Stripe
// customer mapping
func (s *webhookService) resolveUser(ctx context.Context, metadata map[string]string, customer *stripe.Customer) (*user.User, error) {
	if userID := metadata["user_id"]; userID != "" {
		return s.UserRepo.GetByID(ctx, userID)
	}

	if customer != nil && customer.ID != "" {
		return s.UserRepo.GetByStripeCustomerID(ctx, customer.ID)
	}

	return nil, ierr.NewError("cannot resolve user for webhook event").
		WithHint("Event carries neither user metadata nor a known customer").
		Mark(ierr.ErrIntegration)
}
