package messaging

import "reppyroute/internal/domain"

const maxContentRunes = 4000

type OpenThreadRequest struct {
	RepairRequestID int64 `json:"repair_request_id" validate:"required,gt=0"`
	// MechanicID is required when the owner opens the thread.
	MechanicID     *int64 `json:"mechanic_id"`
	InitialMessage string `json:"initial_message" validate:"max=4000"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

type OpenThreadResponse struct {
	Thread  *domain.Thread  `json:"thread"`
	Message *domain.Message `json:"message,omitempty"`
}

type MarkReadResponse struct {
	ThreadID    int64 `json:"thread_id"`
	LastReadID  int64 `json:"last_read_id"`
	UnreadTotal int64 `json:"unread_total"`
}
