package domain

import "time"

type IdempotencyKey struct {
	Key       string    `gorm:"column:key;primaryKey" json:"key"`
	UserID    int64     `gorm:"column:user_id;not null" json:"user_id"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (IdempotencyKey) TableName() string { return "idempotency_keys" }

// Models lists every persisted entity in migration order.
func Models() []any {
	return []any{
		&Profile{}, &Mechanic{}, &Vehicle{}, &Document{},
		&RepairRequest{}, &RepairQuote{},
		&Thread{}, &Message{},
		&Notification{}, &Review{},
		&AgencyAgent{}, &Campaign{}, &Lead{},
		&IdempotencyKey{},
	}
}
