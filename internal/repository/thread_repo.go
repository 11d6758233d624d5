package repository

import (
	"context"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reppyroute/internal/domain"
)

const previewLen = 120

// ThreadSummary is one inbox row for a participant.
type ThreadSummary struct {
	ThreadID           int64      `gorm:"column:thread_id" json:"thread_id"`
	RepairRequestID    int64      `gorm:"column:repair_request_id" json:"repair_request_id"`
	CarMake            string     `gorm:"column:car_make" json:"car_make"`
	CarModel           string     `gorm:"column:car_model" json:"car_model"`
	CarYear            int        `gorm:"column:car_year" json:"car_year"`
	RequestStatus      string     `gorm:"column:request_status" json:"request_status"`
	CounterpartID      int64      `gorm:"column:counterpart_id" json:"counterpart_id"`
	CounterpartName    string     `gorm:"column:counterpart_name" json:"counterpart_name"`
	LastMessagePreview string     `gorm:"column:last_message_preview" json:"last_message_preview"`
	LastMessageAt      *time.Time `gorm:"column:last_message_at" json:"last_message_at,omitempty"`
	UnreadCount        int64      `gorm:"column:unread_count" json:"unread_count"`
}

type ThreadRepository struct {
	db *gorm.DB
}

func NewThreadRepository(db *gorm.DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

func (r *ThreadRepository) WithTx(tx *gorm.DB) *ThreadRepository {
	return &ThreadRepository{db: tx}
}

// GetOrCreate returns the thread for (request, mechanic), creating it if
// needed. The unique index makes concurrent opens converge.
func (r *ThreadRepository) GetOrCreate(ctx context.Context, requestID, ownerID, mechanicID int64) (*domain.Thread, error) {
	t := domain.Thread{RepairRequestID: requestID, OwnerID: ownerID, MechanicID: mechanicID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "repair_request_id"}, {Name: "mechanic_id"}},
			DoNothing: true,
		}).
		Create(&t).Error
	if err != nil {
		return nil, err
	}

	var out domain.Thread
	err = r.db.WithContext(ctx).
		Where("repair_request_id = ? AND mechanic_id = ?", requestID, mechanicID).
		First(&out).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (r *ThreadRepository) GetByID(ctx context.Context, id int64) (*domain.Thread, error) {
	var t domain.Thread
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// RecordMessage advances the thread summary to msg and marks it read for the
// sender.
func (r *ThreadRepository) RecordMessage(ctx context.Context, t *domain.Thread, msg *domain.Message) error {
	preview := msg.Content
	if utf8.RuneCountInString(preview) > previewLen {
		preview = string([]rune(preview)[:previewLen])
	}
	updates := map[string]any{
		"last_message_id":      msg.ID,
		"last_message_at":      msg.CreatedAt,
		"last_message_preview": preview,
	}
	if msg.SenderID == t.OwnerID {
		updates["owner_last_read_id"] = msg.ID
	} else {
		updates["mechanic_last_read_id"] = msg.ID
	}
	return r.db.WithContext(ctx).Model(&domain.Thread{}).Where("id = ?", t.ID).Updates(updates).Error
}

// MarkRead moves the participant's watermark forward to upToID. It never
// moves backwards.
func (r *ThreadRepository) MarkRead(ctx context.Context, t *domain.Thread, userID, upToID int64) error {
	column := "mechanic_last_read_id"
	if userID == t.OwnerID {
		column = "owner_last_read_id"
	}
	return r.db.WithContext(ctx).Model(&domain.Thread{}).
		Where("id = ? AND "+column+" < ?", t.ID, upToID).
		Update(column, upToID).Error
}

const unreadExpr = `(SELECT COUNT(*) FROM messages m
	WHERE m.thread_id = t.id AND m.sender_id <> @user
	AND m.id > CASE WHEN t.owner_id = @user THEN t.owner_last_read_id ELSE t.mechanic_last_read_id END)`

// ListSummaries builds the user's inbox in one query: every thread they
// take part in with request info, counterpart name, last message and unread
// count, most recent activity first.
func (r *ThreadRepository) ListSummaries(ctx context.Context, userID int64) ([]ThreadSummary, error) {
	out := []ThreadSummary{}
	err := r.db.WithContext(ctx).Raw(`
		SELECT t.id AS thread_id, t.repair_request_id,
			rq.car_make, rq.car_model, rq.car_year, rq.status AS request_status,
			p.id AS counterpart_id, p.full_name AS counterpart_name,
			t.last_message_preview, t.last_message_at,
			`+unreadExpr+` AS unread_count
		FROM message_threads t
		JOIN repair_requests rq ON rq.id = t.repair_request_id
		JOIN profiles p ON p.id = CASE WHEN t.owner_id = @user THEN t.mechanic_id ELSE t.owner_id END
		WHERE t.owner_id = @user OR t.mechanic_id = @user
		ORDER BY t.last_message_id DESC, t.id DESC`,
		map[string]any{"user": userID},
	).Scan(&out).Error
	return out, err
}

func (r *ThreadRepository) UnreadTotal(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(`+unreadExpr+`), 0)
		FROM message_threads t
		WHERE t.owner_id = @user OR t.mechanic_id = @user`,
		map[string]any{"user": userID},
	).Scan(&n).Error
	return n, err
}

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) WithTx(tx *gorm.DB) *MessageRepository {
	return &MessageRepository{db: tx}
}

func (r *MessageRepository) Create(ctx context.Context, m *domain.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListByThread returns messages with id > afterID in ascending order.
func (r *MessageRepository) ListByThread(ctx context.Context, threadID, afterID int64, limit int) ([]domain.Message, error) {
	limit, _ = clampPage(limit, 0, 200, 500)
	out := []domain.Message{}
	err := r.db.WithContext(ctx).
		Where("thread_id = ? AND id > ?", threadID, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *MessageRepository) LatestID(ctx context.Context, threadID int64) (int64, error) {
	var id int64
	err := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("thread_id = ?", threadID).
		Select("COALESCE(MAX(id), 0)").
		Scan(&id).Error
	return id, err
}

func (r *MessageRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Message{}).Count(&n).Error
	return n, err
}
