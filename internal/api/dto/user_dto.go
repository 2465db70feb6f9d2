package dto

import (
	"time"

	"github.com/spec-kit/pharmacy-helpdesk/internal/domain"
)

// UserRegisterRequest payload for new customers.
type UserRegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,notblank,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        int64         `json:"id"`
	Email     string        `json:"email"`
	Username  string        `json:"username"`
	Roles     []domain.Role `json:"roles"`
	CreatedAt time.Time     `json:"created_at"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

func NewUserResponse(user *domain.User) UserResponse {
	roles := user.Roles
	if roles == nil {
		roles = []domain.Role{}
	}
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		Roles:     roles,
		CreatedAt: user.CreatedAt,
	}
}
