package domain

import "time"

// Thread pairs one repair request with one mechanic and the request owner.
// Each side keeps its own read watermark as the last message id it has seen.
type Thread struct {
	ID                 int64      `gorm:"column:id;primaryKey" json:"id"`
	RepairRequestID    int64      `gorm:"column:repair_request_id;not null;uniqueIndex:ux_thread_request_mechanic" json:"repair_request_id"`
	OwnerID            int64      `gorm:"column:owner_id;not null;index" json:"owner_id"`
	MechanicID         int64      `gorm:"column:mechanic_id;not null;uniqueIndex:ux_thread_request_mechanic;index" json:"mechanic_id"`
	OwnerLastReadID    int64      `gorm:"column:owner_last_read_id;not null;default:0" json:"-"`
	MechanicLastReadID int64      `gorm:"column:mechanic_last_read_id;not null;default:0" json:"-"`
	LastMessageID      int64      `gorm:"column:last_message_id;not null;default:0" json:"last_message_id"`
	LastMessageAt      *time.Time `gorm:"column:last_message_at" json:"last_message_at,omitempty"`
	LastMessagePreview string     `gorm:"column:last_message_preview" json:"last_message_preview,omitempty"`
	CreatedAt          time.Time  `gorm:"column:created_at" json:"created_at"`
}

func (Thread) TableName() string { return "message_threads" }

func (t *Thread) HasParticipant(userID int64) bool {
	return t.OwnerID == userID || t.MechanicID == userID
}

func (t *Thread) Counterpart(userID int64) int64 {
	if t.OwnerID == userID {
		return t.MechanicID
	}
	return t.OwnerID
}

type Message struct {
	ID          int64     `gorm:"column:id;primaryKey" json:"id"`
	ThreadID    int64     `gorm:"column:thread_id;not null;index" json:"thread_id"`
	SenderID    int64     `gorm:"column:sender_id;not null" json:"sender_id"`
	RecipientID int64     `gorm:"column:recipient_id;not null" json:"recipient_id"`
	Content     string    `gorm:"column:content;not null" json:"content"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Message) TableName() string { return "messages" }
