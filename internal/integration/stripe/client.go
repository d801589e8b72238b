package stripe

import (
	"context"

	"github.com/roomcraft/roomcraft/internal/config"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/logger"
	"github.com/roomcraft/roomcraft/internal/types"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Client wraps the Stripe API client. It is constructed once at process
// start and injected everywhere Stripe is needed.
type Client struct {
	api    *stripe.Client
	cfg    *config.Configuration
	logger *logger.Logger
}

// NewClient creates a new Stripe client from configuration
func NewClient(cfg *config.Configuration, logger *logger.Logger) *Client {
	return &Client{
		api:    stripe.NewClient(cfg.Stripe.SecretKey, nil),
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCustomer creates a Stripe customer for the given user
func (c *Client) CreateCustomer(ctx context.Context, userID, email string) (*stripe.Customer, error) {
	params := &stripe.CustomerCreateParams{
		Email: stripe.String(email),
		Metadata: map[string]string{
			"user_id": userID,
		},
	}

	customer, err := c.api.V1Customers.Create(ctx, params)
	if err != nil {
		c.logger.Errorw("failed to create stripe customer",
			"error", err,
			"user_id", userID,
		)
		return nil, ierr.WithError(err).
			WithHint("Unable to create Stripe customer").
			Mark(ierr.ErrIntegration)
	}
	return customer, nil
}

// CreateCheckoutSession creates a Stripe checkout session. Mode subscription
// starts a recurring plan, mode pack is a one-time payment whose payment
// intent id later keys the credit pack grant.
func (c *Client) CreateCheckoutSession(ctx context.Context, customerID, userID, priceID string, mode types.CheckoutMode) (*stripe.CheckoutSession, error) {
	metadata := map[string]string{
		"user_id":  userID,
		"mode":     string(mode),
		"price_id": priceID,
	}

	stripeMode := "subscription"
	if mode == types.CheckoutModePack {
		stripeMode = "payment"
	}

	params := &stripe.CheckoutSessionCreateParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(stripeMode),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(c.cfg.Stripe.SuccessURL),
		CancelURL:  stripe.String(c.cfg.Stripe.CancelURL),
		Metadata:   metadata,
	}

	if mode == types.CheckoutModePack {
		params.PaymentIntentData = &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: metadata,
		}
	} else {
		params.SubscriptionData = &stripe.CheckoutSessionCreateSubscriptionDataParams{
			Metadata: metadata,
		}
	}

	session, err := c.api.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		c.logger.Errorw("failed to create stripe checkout session",
			"error", err,
			"user_id", userID,
			"price_id", priceID,
		)
		return nil, ierr.WithError(err).
			WithHint("Unable to create Stripe checkout session").
			WithReportableDetails(map[string]interface{}{
				"price_id": priceID,
			}).
			Mark(ierr.ErrIntegration)
	}
	return session, nil
}

// CreateBillingPortalSession creates a Stripe billing portal session for the
// given customer
func (c *Client) CreateBillingPortalSession(ctx context.Context, customerID string) (*stripe.BillingPortalSession, error) {
	params := &stripe.BillingPortalSessionCreateParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(c.cfg.Stripe.SuccessURL),
	}

	session, err := c.api.V1BillingPortalSessions.Create(ctx, params)
	if err != nil {
		c.logger.Errorw("failed to create billing portal session",
			"error", err,
			"customer_id", customerID,
		)
		return nil, ierr.WithError(err).
			WithHint("Unable to create billing portal session").
			Mark(ierr.ErrIntegration)
	}
	return session, nil
}

// ParseWebhookEvent parses a Stripe webhook event with signature verification
func (c *Client) ParseWebhookEvent(payload []byte, signature string) (*stripe.Event, error) {
	options := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.cfg.Stripe.WebhookSecret, options)
	if err != nil {
		c.logger.Errorw("stripe webhook verification failed", "error", err)
		return nil, ierr.NewError("failed to verify webhook signature").
			WithHint("Invalid webhook signature or payload").
			Mark(ierr.ErrValidation)
	}
	return &event, nil
}
