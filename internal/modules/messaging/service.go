// Package messaging carries conversations between a request owner and the
// mechanics working on it.
package messaging

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"reppyroute/internal/domain"
	"reppyroute/internal/pkg/tracing"
	"reppyroute/internal/realtime"
	"reppyroute/internal/repository"
)

const notificationPreview = 200

type Service struct {
	db       *gorm.DB
	threads  *repository.ThreadRepository
	messages *repository.MessageRepository
	requests *repository.RequestRepository
	quotes   *repository.QuoteRepository
	notifier Notifier
	pub      Publisher
	log      *slog.Logger
}

func NewService(
	db *gorm.DB,
	threads *repository.ThreadRepository,
	messages *repository.MessageRepository,
	requests *repository.RequestRepository,
	quotes *repository.QuoteRepository,
	notifier Notifier,
	pub Publisher,
) *Service {
	return &Service{
		db:       db,
		threads:  threads,
		messages: messages,
		requests: requests,
		quotes:   quotes,
		notifier: notifier,
		pub:      pub,
		log:      slog.Default().With("module", "messaging"),
	}
}

// ============================================================
// THREADS
// ============================================================

// OpenThread returns the thread between the request owner and a mechanic,
// creating it on first use. Owners may talk to mechanics involved with the
// request; mechanics may talk about open requests they can see or requests
// they quoted on.
func (s *Service) OpenThread(ctx context.Context, userID int64, role domain.Role, in OpenThreadRequest) (*OpenThreadResponse, error) {
	if userID <= 0 || in.RepairRequestID <= 0 {
		return nil, ErrInvalidRequest
	}
	req, err := s.requests.GetByID(ctx, in.RepairRequestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	var mechanicID int64
	switch {
	case req.CarOwnerID == userID:
		if in.MechanicID == nil || *in.MechanicID <= 0 || *in.MechanicID == userID {
			return nil, ErrInvalidRequest
		}
		mechanicID = *in.MechanicID
	case role == domain.RoleMechanic:
		if in.MechanicID != nil && *in.MechanicID != userID {
			return nil, ErrInvalidRequest
		}
		mechanicID = userID
	default:
		return nil, ErrNotAllowed
	}

	ok, err := s.involved(ctx, req, mechanicID, req.CarOwnerID != userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAllowed
	}

	t, err := s.threads.GetOrCreate(ctx, req.ID, req.CarOwnerID, mechanicID)
	if err != nil {
		return nil, err
	}
	out := &OpenThreadResponse{Thread: t}

	if strings.TrimSpace(in.InitialMessage) != "" {
		msg, err := s.Send(ctx, userID, t.ID, in.InitialMessage)
		if err != nil {
			return nil, err
		}
		out.Message = msg
		if t, err = s.threads.GetByID(ctx, t.ID); err == nil {
			out.Thread = t
		}
	}
	return out, nil
}

// involved reports whether the mechanic has a stake in the request. A
// mechanic opening a thread on their own may also approach any open request
// visible to them.
func (s *Service) involved(ctx context.Context, req *domain.RepairRequest, mechanicID int64, selfInitiated bool) (bool, error) {
	if req.AssignedMechanicID != nil && *req.AssignedMechanicID == mechanicID {
		return true, nil
	}
	if req.TargetMechanicID != nil && *req.TargetMechanicID == mechanicID {
		return true, nil
	}
	if selfInitiated && req.Status == domain.RequestOpen && !req.IsDirect() {
		return true, nil
	}
	return s.quotes.HasQuote(ctx, req.ID, mechanicID)
}

func (s *Service) participantThread(ctx context.Context, userID, threadID int64) (*domain.Thread, error) {
	t, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !t.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return t, nil
}

func (s *Service) Conversations(ctx context.Context, userID int64) ([]repository.ThreadSummary, error) {
	return s.threads.ListSummaries(ctx, userID)
}

func (s *Service) UnreadTotal(ctx context.Context, userID int64) (int64, error) {
	return s.threads.UnreadTotal(ctx, userID)
}

// ============================================================
// MESSAGES
// ============================================================

func (s *Service) ListMessages(ctx context.Context, userID, threadID, afterID int64, limit int) ([]domain.Message, error) {
	if afterID < 0 {
		return nil, ErrInvalidRequest
	}
	if _, err := s.participantThread(ctx, userID, threadID); err != nil {
		return nil, err
	}
	return s.messages.ListByThread(ctx, threadID, afterID, limit)
}

// Send stores a message for the other participant. The message, the thread
// summary and the recipient's notification commit together; realtime pushes
// happen afterwards.
func (s *Service) Send(ctx context.Context, senderID, threadID int64, content string) (_ *domain.Message, err error) {
	ctx, span := tracing.Start(ctx, "messaging.send", attribute.Int64("thread_id", threadID))
	defer func() { tracing.End(span, err) }()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > maxContentRunes {
		return nil, ErrContentTooLong
	}

	var msg *domain.Message
	var n *domain.Notification
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		threads := s.threads.WithTx(tx)

		t, err := threads.GetByID(ctx, threadID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !t.HasParticipant(senderID) {
			return ErrNotParticipant
		}

		msg = &domain.Message{
			ThreadID:    t.ID,
			SenderID:    senderID,
			RecipientID: t.Counterpart(senderID),
			Content:     content,
		}
		if err := s.messages.WithTx(tx).Create(ctx, msg); err != nil {
			return err
		}
		if err := threads.RecordMessage(ctx, t, msg); err != nil {
			return err
		}

		preview := content
		if utf8.RuneCountInString(preview) > notificationPreview {
			preview = string([]rune(preview)[:notificationPreview]) + "…"
		}
		n = &domain.Notification{
			UserID:          msg.RecipientID,
			Type:            domain.NotifMessage,
			Message:         preview,
			RepairRequestID: &t.RepairRequestID,
			ThreadID:        &t.ID,
			Data:            map[string]any{"message_id": msg.ID, "sender_id": senderID},
		}
		return s.notifier.AppendTx(ctx, tx, n)
	})
	if err != nil {
		return nil, err
	}

	if s.pub != nil {
		ev := realtime.Event{Type: realtime.EventMessage, ThreadID: threadID, Payload: msg}
		s.pub.SendToUser(msg.RecipientID, ev)
		s.pub.SendToUser(senderID, ev)
	}
	s.notifier.Publish(*n)
	return msg, nil
}

// MarkRead moves the reader's watermark to the newest message in the thread.
func (s *Service) MarkRead(ctx context.Context, userID, threadID int64) (*MarkReadResponse, error) {
	t, err := s.participantThread(ctx, userID, threadID)
	if err != nil {
		return nil, err
	}
	latest, err := s.messages.LatestID(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if err := s.threads.MarkRead(ctx, t, userID, latest); err != nil {
		return nil, err
	}

	total, err := s.threads.UnreadTotal(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.pub != nil {
		ev := realtime.Event{Type: realtime.EventThreadRead, ThreadID: t.ID, Payload: map[string]int64{"reader_id": userID, "last_read_id": latest}}
		s.pub.SendToUser(userID, ev)
		s.pub.SendToUser(t.Counterpart(userID), ev)
	}
	return &MarkReadResponse{ThreadID: t.ID, LastReadID: latest, UnreadTotal: total}, nil
}
