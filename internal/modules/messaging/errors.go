package messaging

import "errors"

var (
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrNotFound        = errors.New("thread not found")
	ErrNotParticipant  = errors.New("you are not a participant of this thread")
	ErrNotAllowed      = errors.New("you cannot open a thread on this request")
	ErrEmptyContent    = errors.New("message content cannot be empty")
	ErrContentTooLong  = errors.New("message content is too long")
	ErrRequestNotFound = errors.New("repair request not found")
)
