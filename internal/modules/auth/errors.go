package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrRoleNotAllowed     = errors.New("role cannot be self-registered")
	ErrInvalidRole        = errors.New("unknown role")
	ErrAccountBanned      = errors.New("account banned")
)
