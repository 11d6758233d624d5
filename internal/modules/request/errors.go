package request

import (
	"errors"
	"strings"
)

var (
	ErrInvalidRequest    = errors.New("invalid_request")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not_found")
	ErrRequestNotOpen    = errors.New("request_not_open")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrQuoteLocked       = errors.New("quote_locked")
	ErrUpload            = errors.New("upload_failed")
)

// ValidationError lists the offending fields of a create or quote payload.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		parts = append(parts, k+": "+v)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRequest }
