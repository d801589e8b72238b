package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roomcraft/roomcraft/internal/api/dto"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/logger"
	"github.com/roomcraft/roomcraft/internal/service"
	"github.com/roomcraft/roomcraft/internal/types"
)

type CreditHandler struct {
	service service.CreditService
	log     *logger.Logger
}

func NewCreditHandler(
	service service.CreditService,
	log *logger.Logger,
) *CreditHandler {
	return &CreditHandler{
		service: service,
		log:     log,
	}
}

// @Summary Get credit balance
// @Description Get the caller's credit balance and active subscription snapshot
// @Tags Credits
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.BalanceResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /credits/balance [get]
func (h *CreditHandler) GetBalance(c *gin.Context) {
	userID := types.GetUserID(c.Request.Context())

	resp, err := h.service.GetBalance(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Consume credits
// @Description Deduct credits from the caller's balance for an edit operation
// @Tags Credits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ConsumeCreditsRequest true "Consumption"
// @Success 200 {object} dto.ConsumeCreditsResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /credits/consume [post]
func (h *CreditHandler) ConsumeCredits(c *gin.Context) {
	var req dto.ConsumeCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	userID := types.GetUserID(c.Request.Context())

	resp, err := h.service.ConsumeCredits(c.Request.Context(), userID, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
