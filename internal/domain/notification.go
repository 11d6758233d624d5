package domain

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotifQuote         NotificationType = "quote"
	NotifQuoteAccepted NotificationType = "quote_accepted"
	NotifQuoteRejected NotificationType = "quote_rejected"
	NotifJobRequest    NotificationType = "job_request"
	NotifStatusChange  NotificationType = "status_change"
	NotifMessage       NotificationType = "message"
	NotifNewReview     NotificationType = "new_review"
	NotifLeadSold      NotificationType = "lead_sold"
)

type Notification struct {
	ID              int64             `gorm:"column:id;primaryKey" json:"id"`
	UserID          int64             `gorm:"column:user_id;not null;index:ix_notifications_user_read" json:"user_id"`
	Type            NotificationType  `gorm:"column:type;not null" json:"type"`
	Message         string            `gorm:"column:message;not null" json:"message"`
	RepairRequestID *int64            `gorm:"column:repair_request_id" json:"repair_request_id,omitempty"`
	ThreadID        *int64            `gorm:"column:thread_id" json:"thread_id,omitempty"`
	Data            datatypes.JSONMap `gorm:"column:data" json:"data,omitempty"`
	IsRead          bool              `gorm:"column:is_read;not null;default:false;index:ix_notifications_user_read" json:"is_read"`
	ReadAt          *time.Time        `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt       time.Time         `gorm:"column:created_at;index" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
