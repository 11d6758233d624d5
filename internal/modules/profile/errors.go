package profile

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
	ErrNotMechanic    = errors.New("profile is not a mechanic")
	ErrInvalidAvatar  = errors.New("invalid avatar")
)
