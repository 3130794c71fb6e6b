package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IdempotencyKey snapshots the response of a completed mutating request so
// a retry with the same key replays it instead of executing twice.
type IdempotencyKey struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	UserID       string    `gorm:"size:36;not null;uniqueIndex:idx_idem_user_endpoint_key" json:"user_id"`
	Endpoint     string    `gorm:"size:100;not null;uniqueIndex:idx_idem_user_endpoint_key" json:"endpoint"`
	KeyHash      string    `gorm:"size:64;not null;uniqueIndex:idx_idem_user_endpoint_key" json:"-"`
	RequestHash  string    `gorm:"size:64;not null" json:"-"`
	ResponseJSON string    `gorm:"type:text;not null" json:"-"`
	StatusCode   int       `gorm:"not null" json:"status_code"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for IdempotencyKey model
func (IdempotencyKey) TableName() string {
	return "idempotency_keys"
}

// BeforeCreate assigns a UUID primary key
func (k *IdempotencyKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}
