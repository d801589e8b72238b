package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roomcraft/roomcraft/internal/api/dto"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/logger"
	"github.com/roomcraft/roomcraft/internal/service"
	"github.com/roomcraft/roomcraft/internal/types"
)

type CheckoutHandler struct {
	service service.CheckoutService
	log     *logger.Logger
}

func NewCheckoutHandler(
	service service.CheckoutService,
	log *logger.Logger,
) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		log:     log,
	}
}

// @Summary Start a subscription checkout
// @Description Create a Stripe checkout session for a recurring plan
// @Tags Checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCheckoutRequest true "Checkout"
// @Success 200 {object} dto.CheckoutSessionResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /checkout/subscriptions [post]
func (h *CheckoutHandler) CreateSubscriptionCheckout(c *gin.Context) {
	h.createCheckout(c, h.service.CreateSubscriptionCheckout)
}

// @Summary Start a credit pack checkout
// @Description Create a Stripe checkout session for a one-time credit pack
// @Tags Checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCheckoutRequest true "Checkout"
// @Success 200 {object} dto.CheckoutSessionResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /checkout/packs [post]
func (h *CheckoutHandler) CreatePackCheckout(c *gin.Context) {
	h.createCheckout(c, h.service.CreatePackCheckout)
}

func (h *CheckoutHandler) createCheckout(
	c *gin.Context,
	create func(ctx context.Context, userID string, req *dto.CreateCheckoutRequest) (*dto.CheckoutSessionResponse, error),
) {
	var req dto.CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	userID := types.GetUserID(c.Request.Context())

	resp, err := create(c.Request.Context(), userID, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Open the billing portal
// @Description Create a Stripe billing portal session for the caller
// @Tags Checkout
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.PortalSessionResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /portal [post]
func (h *CheckoutHandler) CreateBillingPortalSession(c *gin.Context) {
	userID := types.GetUserID(c.Request.Context())

	resp, err := h.service.CreateBillingPortalSession(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
