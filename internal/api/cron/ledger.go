package cron

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roomcraft/roomcraft/internal/logger"
	"github.com/roomcraft/roomcraft/internal/service"
)

// LedgerHandler handles ledger related cron jobs
type LedgerHandler struct {
	creditService service.CreditService
	logger        *logger.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(
	creditService service.CreditService,
	logger *logger.Logger,
) *LedgerHandler {
	return &LedgerHandler{
		creditService: creditService,
		logger:        logger,
	}
}

// ReconcileBalances repairs denormalized balances that drifted from the
// ledger. Invoked daily.
func (h *LedgerHandler) ReconcileBalances(c *gin.Context) {
	h.logger.Infow("starting balance reconciliation cron job")

	response, err := h.creditService.ReconcileAllBalances(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to reconcile balances",
			"error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ReconcileUserBalance reconciles a single user's balance on demand, for
// operators chasing a reported discrepancy.
func (h *LedgerHandler) ReconcileUserBalance(c *gin.Context) {
	response, err := h.creditService.ReconcileBalance(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response)
}
