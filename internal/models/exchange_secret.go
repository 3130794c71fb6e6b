package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExchangeSecret stores a user's API credentials for one exchange.
// Key and secret are AES-GCM encrypted before they reach this row.
type ExchangeSecret struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	UserID             string    `gorm:"size:36;not null;uniqueIndex:idx_secret_user_exchange" json:"user_id"`
	Exchange           Exchange  `gorm:"size:20;not null;uniqueIndex:idx_secret_user_exchange" json:"exchange"`
	APIKeyEncrypted    string    `gorm:"size:512;not null" json:"-"`
	APISecretEncrypted string    `gorm:"size:512;not null" json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName specifies the table name for ExchangeSecret model
func (ExchangeSecret) TableName() string {
	return "exchange_secrets"
}

// BeforeCreate assigns a UUID primary key
func (s *ExchangeSecret) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
