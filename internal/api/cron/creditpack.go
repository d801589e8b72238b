package cron

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/roomcraft/roomcraft/internal/logger"
	"github.com/roomcraft/roomcraft/internal/service"
)

// CreditPackHandler handles credit pack related cron jobs
type CreditPackHandler struct {
	creditPackService service.CreditPackService
	logger            *logger.Logger
}

// NewCreditPackHandler creates a new credit pack handler
func NewCreditPackHandler(
	creditPackService service.CreditPackService,
	logger *logger.Logger,
) *CreditPackHandler {
	return &CreditPackHandler{
		creditPackService: creditPackService,
		logger:            logger,
	}
}

// ExpirePacks deactivates every credit pack whose expiry has passed.
// Invoked daily.
func (h *CreditPackHandler) ExpirePacks(c *gin.Context) {
	h.logger.Infow("starting credit pack expiry cron job")

	response, err := h.creditPackService.ExpirePacks(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Errorw("failed to expire credit packs",
			"error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response)
}
