package messaging

import (
	"context"

	"gorm.io/gorm"

	"reppyroute/internal/domain"
	"reppyroute/internal/realtime"
)

type Notifier interface {
	AppendTx(ctx context.Context, tx *gorm.DB, n *domain.Notification) error
	Publish(ns ...domain.Notification)
}

type Publisher interface {
	SendToUser(userID int64, event realtime.Event)
}
