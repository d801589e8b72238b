package service

import (
	"context"

	"github.com/roomcraft/roomcraft/internal/api/dto"
	"github.com/roomcraft/roomcraft/internal/domain/checkout"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	stripeintg "github.com/roomcraft/roomcraft/internal/integration/stripe"
	"github.com/roomcraft/roomcraft/internal/types"
)

// CheckoutService creates Stripe checkout and billing portal sessions
type CheckoutService interface {
	// CreateSubscriptionCheckout starts a checkout for a recurring plan
	// price configured in Stripe.Plans
	CreateSubscriptionCheckout(ctx context.Context, userID string, req *dto.CreateCheckoutRequest) (*dto.CheckoutSessionResponse, error)

	// CreatePackCheckout starts a one-time checkout for a credit pack
	// price configured in Stripe.Packs
	CreatePackCheckout(ctx context.Context, userID string, req *dto.CreateCheckoutRequest) (*dto.CheckoutSessionResponse, error)

	// CreateBillingPortalSession returns a Stripe billing portal URL for
	// the user's existing customer
	CreateBillingPortalSession(ctx context.Context, userID string) (*dto.PortalSessionResponse, error)
}

type checkoutService struct {
	ServiceParams
	stripeClient *stripeintg.Client
}

// NewCheckoutService creates a new instance of CheckoutService
func NewCheckoutService(params ServiceParams, stripeClient *stripeintg.Client) CheckoutService {
	return &checkoutService{
		ServiceParams: params,
		stripeClient:  stripeClient,
	}
}

func (s *checkoutService) CreateSubscriptionCheckout(ctx context.Context, userID string, req *dto.CreateCheckoutRequest) (*dto.CheckoutSessionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, ok := s.Config.Stripe.Plans[req.PriceID]; !ok {
		return nil, ierr.NewError("unknown plan price").
			WithHintf("Price %s is not a configured subscription plan", req.PriceID).
			Mark(ierr.ErrValidation)
	}
	return s.createCheckout(ctx, userID, req.PriceID, types.CheckoutModeSubscription)
}

func (s *checkoutService) CreatePackCheckout(ctx context.Context, userID string, req *dto.CreateCheckoutRequest) (*dto.CheckoutSessionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, ok := s.Config.Stripe.Packs[req.PriceID]; !ok {
		return nil, ierr.NewError("unknown pack price").
			WithHintf("Price %s is not a configured credit pack", req.PriceID).
			Mark(ierr.ErrValidation)
	}
	return s.createCheckout(ctx, userID, req.PriceID, types.CheckoutModePack)
}

func (s *checkoutService) createCheckout(ctx context.Context, userID, priceID string, mode types.CheckoutMode) (*dto.CheckoutSessionResponse, error) {
	u, err := s.UserRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	customerID, err := s.ensureStripeCustomer(ctx, u.ID, u.Email, u.StripeCustomerID)
	if err != nil {
		return nil, err
	}

	stripeSession, err := s.stripeClient.CreateCheckoutSession(ctx, customerID, userID, priceID, mode)
	if err != nil {
		return nil, err
	}

	session := &checkout.Session{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CHECKOUT_SESSION),
		UserID:          userID,
		StripeSessionID: stripeSession.ID,
		Mode:            mode,
		PriceID:         priceID,
		Status:          types.CheckoutSessionStatusPending,
		BaseModel:       types.GetDefaultBaseModel(),
	}
	if err := s.CheckoutRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.Logger.Infow("created checkout session",
		"user_id", userID,
		"stripe_session_id", stripeSession.ID,
		"mode", mode,
		"price_id", priceID,
	)

	return &dto.CheckoutSessionResponse{
		SessionID: stripeSession.ID,
		URL:       stripeSession.URL,
	}, nil
}

func (s *checkoutService) CreateBillingPortalSession(ctx context.Context, userID string) (*dto.PortalSessionResponse, error) {
	u, err := s.UserRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if u.StripeCustomerID == "" {
		return nil, ierr.NewError("user has no billing account").
			WithHint("Complete a checkout before opening the billing portal").
			Mark(ierr.ErrInvalidOperation)
	}

	portal, err := s.stripeClient.CreateBillingPortalSession(ctx, u.StripeCustomerID)
	if err != nil {
		return nil, err
	}

	return &dto.PortalSessionResponse{URL: portal.URL}, nil
}

// ensureStripeCustomer lazily creates the Stripe customer on first checkout
// and persists its ID on the user
func (s *checkoutService) ensureStripeCustomer(ctx context.Context, userID, email, existing string) (string, error) {
	if existing != "" {
		return existing, nil
	}

	customer, err := s.stripeClient.CreateCustomer(ctx, userID, email)
	if err != nil {
		return "", err
	}

	if err := s.UserRepo.UpdateStripeCustomerID(ctx, userID, customer.ID); err != nil {
		return "", err
	}

	s.Logger.Infow("created stripe customer",
		"user_id", userID,
		"stripe_customer_id", customer.ID,
	)
	return customer.ID, nil
}
