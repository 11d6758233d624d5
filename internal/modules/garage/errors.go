package garage

import "errors"

var (
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrNotFound        = errors.New("not_found")
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrUpload          = errors.New("upload rejected")
)
