package notification

import "reppyroute/internal/domain"

type ListResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unread_count"`
}

type MarkAllReadRequest struct {
	UpToID int64 `json:"up_to_id" validate:"gte=0"`
}
