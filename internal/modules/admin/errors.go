package admin

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
	ErrSelfAction     = errors.New("admins cannot change their own role or ban themselves")
)
