package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roomcraft/roomcraft/internal/api/dto"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/roomcraft/roomcraft/internal/logger"
	"github.com/roomcraft/roomcraft/internal/service"
)

type UserHandler struct {
	service service.UserService
	log     *logger.Logger
}

func NewUserHandler(
	service service.UserService,
	log *logger.Logger,
) *UserHandler {
	return &UserHandler{
		service: service,
		log:     log,
	}
}

// @Summary Provision a user
// @Description Create a user with their trial subscription and starting credits. Idempotent.
// @Tags Users
// @Accept json
// @Produce json
// @Param user body dto.ProvisionUserRequest true "User"
// @Success 201 {object} dto.UserResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /users/provision [post]
func (h *UserHandler) ProvisionUser(c *gin.Context) {
	var req dto.ProvisionUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ProvisionUser(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}
