package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Strategy identifiers the platform ships with
const (
	StrategySwingV1    = "SWING_V1"
	StrategyIntradayV1 = "INTRADAY_V1"
)

// KnownStrategy reports whether the id belongs to a shipped strategy
func KnownStrategy(id string) bool {
	return id == StrategySwingV1 || id == StrategyIntradayV1
}

// StrategyAssignment pins a strategy to a user on one exchange
type StrategyAssignment struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     string    `gorm:"size:36;not null;uniqueIndex:idx_strategy_user_exchange" json:"user_id"`
	Exchange   Exchange  `gorm:"size:20;not null;uniqueIndex:idx_strategy_user_exchange" json:"exchange"`
	StrategyID string    `gorm:"size:50;not null" json:"strategy_id"`
	Enabled    bool      `gorm:"not null;default:true" json:"enabled"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for StrategyAssignment model
func (StrategyAssignment) TableName() string {
	return "strategy_assignments"
}

// BeforeCreate assigns a UUID primary key
func (a *StrategyAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
