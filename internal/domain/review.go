package domain

import "time"

type Review struct {
	ID              int64     `gorm:"column:id;primaryKey" json:"id"`
	MechanicID      int64     `gorm:"column:mechanic_id;not null;index" json:"mechanic_id"`
	UserID          int64     `gorm:"column:user_id;not null;uniqueIndex:ux_review_user_request" json:"user_id"`
	RepairRequestID int64     `gorm:"column:repair_request_id;not null;uniqueIndex:ux_review_user_request" json:"repair_request_id"`
	Rating          int       `gorm:"column:rating;not null" json:"rating"`
	Comment         string    `gorm:"column:comment" json:"comment,omitempty"`
	IsHidden        bool      `gorm:"column:is_hidden;not null;default:false" json:"is_hidden"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Review) TableName() string { return "reviews" }
