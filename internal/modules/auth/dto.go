package auth

import "reppyroute/internal/domain"

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"required,min=2,max=120"`
	UserType string `json:"user_type" validate:"required"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// NewAccount is an account created by an operator rather than the user.
type NewAccount struct {
	Email    string
	Password string
	FullName string
	Role     domain.Role
	Phone    string
}

type AuthResponse struct {
	Token     string          `json:"token"`
	ExpiresIn int64           `json:"expires_in"`
	Profile   *domain.Profile `json:"profile"`
}
