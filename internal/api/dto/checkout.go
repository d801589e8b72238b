package dto

import (
	ierr "github.com/roomcraft/roomcraft/internal/errors"
)

// CreateCheckoutRequest starts a Stripe checkout for a subscription plan or
// a one-time credit pack, identified by its configured price ID
type CreateCheckoutRequest struct {
	PriceID string `json:"price_id" binding:"required"`
}

func (r *CreateCheckoutRequest) Validate() error {
	if r.PriceID == "" {
		return ierr.NewError("price_id is required").
			WithHint("Price ID is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CheckoutSessionResponse points the client at the hosted checkout page
type CheckoutSessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// PortalSessionResponse points the client at the hosted billing portal
type PortalSessionResponse struct {
	URL string `json:"url"`
}
