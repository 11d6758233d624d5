package request

import (
	"context"

	"gorm.io/gorm"

	"reppyroute/internal/domain"
)

// Notifier appends notifications inside a transaction and publishes them
// after commit.
type Notifier interface {
	AppendTx(ctx context.Context, tx *gorm.DB, n *domain.Notification) error
	Publish(ns ...domain.Notification)
}
