// Package notification is the single notifier used by every module. Rows
// are written inside the caller's transaction and pushed to connected
// clients once that transaction commits.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"reppyroute/internal/domain"
	"reppyroute/internal/realtime"
	"reppyroute/internal/repository"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Publisher pushes events to a user's live connections.
type Publisher interface {
	SendToUser(userID int64, event realtime.Event)
}

type Service struct {
	repo *repository.NotificationRepository
	pub  Publisher
	log  *slog.Logger
}

func NewService(repo *repository.NotificationRepository, pub Publisher) *Service {
	return &Service{repo: repo, pub: pub, log: slog.Default().With("module", "notification")}
}

// AppendTx inserts n using tx. Call Publish after the transaction commits.
func (s *Service) AppendTx(ctx context.Context, tx *gorm.DB, n *domain.Notification) error {
	if n.UserID <= 0 || n.Type == "" || n.Message == "" {
		return ErrInvalidRequest
	}
	if err := s.repo.WithTx(tx).Create(ctx, n); err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	return nil
}

// Notify appends and publishes outside any transaction.
func (s *Service) Notify(ctx context.Context, n *domain.Notification) error {
	if n.UserID <= 0 || n.Type == "" || n.Message == "" {
		return ErrInvalidRequest
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	s.Publish(*n)
	return nil
}

func (s *Service) Publish(ns ...domain.Notification) {
	if s.pub == nil {
		return
	}
	for _, n := range ns {
		s.pub.SendToUser(n.UserID, realtime.Event{
			Type:     realtime.EventNotification,
			ThreadID: derefID(n.ThreadID),
			Payload:  n,
		})
	}
}

func (s *Service) List(ctx context.Context, userID int64, limit int, unreadOnly bool) (*ListResponse, error) {
	if userID <= 0 {
		return nil, ErrInvalidRequest
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	list, err := s.repo.ListByUser(ctx, userID, limit, unreadOnly)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ListResponse{Notifications: list, UnreadCount: unread}, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, id int64) error {
	if userID <= 0 || id <= 0 {
		return ErrInvalidRequest
	}
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// MarkAllRead marks the user's unread notifications read. With upToID > 0
// notifications created after the client last fetched stay unread.
func (s *Service) MarkAllRead(ctx context.Context, userID, upToID int64) (int64, error) {
	if userID <= 0 || upToID < 0 {
		return 0, ErrInvalidRequest
	}
	return s.repo.MarkAllRead(ctx, userID, upToID)
}

func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if userID <= 0 || id <= 0 {
		return ErrInvalidRequest
	}
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
