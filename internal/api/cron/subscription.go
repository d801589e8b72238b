package cron

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/roomcraft/roomcraft/internal/logger"
	"github.com/roomcraft/roomcraft/internal/service"
)

// SubscriptionHandler handles subscription related cron jobs
type SubscriptionHandler struct {
	subscriptionService service.SubscriptionService
	userService         service.UserService
	logger              *logger.Logger
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(
	subscriptionService service.SubscriptionService,
	userService service.UserService,
	logger *logger.Logger,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		userService:         userService,
		logger:              logger,
	}
}

// ResetDueSubscriptions resets the billing period of every active
// subscription whose reset date has passed. Invoked hourly.
func (h *SubscriptionHandler) ResetDueSubscriptions(c *gin.Context) {
	h.logger.Infow("starting subscription reset cron job")

	response, err := h.subscriptionService.ResetDueSubscriptions(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Errorw("failed to reset due subscriptions",
			"error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ExpireDueTrials retires every trial whose period has lapsed. Invoked
// hourly.
func (h *SubscriptionHandler) ExpireDueTrials(c *gin.Context) {
	h.logger.Infow("starting trial expiry cron job")

	response, err := h.userService.ExpireDueTrials(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Errorw("failed to expire due trials",
			"error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response)
}
