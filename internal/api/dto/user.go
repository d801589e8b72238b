package dto

import (
	"github.com/roomcraft/roomcraft/internal/domain/user"
	ierr "github.com/roomcraft/roomcraft/internal/errors"
	"github.com/shopspring/decimal"
)

// ProvisionUserRequest is sent by the identity provider hook when a new
// account is created
type ProvisionUserRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Email  string `json:"email" binding:"required,email"`
}

func (r *ProvisionUserRequest) Validate() error {
	if r.UserID == "" {
		return ierr.NewError("user_id is required").
			WithHint("User ID is required").
			Mark(ierr.ErrValidation)
	}
	if r.Email == "" {
		return ierr.NewError("email is required").
			WithHint("Email is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// UserResponse is the API representation of a user
type UserResponse struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	TotalCredits decimal.Decimal `json:"total_credits"`
}

// FromUser converts a domain user to a response
func FromUser(u *user.User) *UserResponse {
	return &UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		TotalCredits: u.TotalCredits,
	}
}
