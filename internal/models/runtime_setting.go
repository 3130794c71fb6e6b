package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SettingTradingEnabled is the global kill-switch row key
const SettingTradingEnabled = "trading_enabled"

// RuntimeSetting is a key/value row for operator-togglable flags
type RuntimeSetting struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Key       string    `gorm:"size:50;not null;uniqueIndex" json:"key"`
	BoolValue *bool     `json:"bool_value,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for RuntimeSetting model
func (RuntimeSetting) TableName() string {
	return "runtime_settings"
}

// BeforeCreate assigns a UUID primary key
func (s *RuntimeSetting) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
