package review

import (
	"context"

	"gorm.io/gorm"

	"reppyroute/internal/domain"
)

type Notifier interface {
	AppendTx(ctx context.Context, tx *gorm.DB, n *domain.Notification) error
	Publish(ns ...domain.Notification)
}
