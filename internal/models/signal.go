package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SignalSide is the direction a signal proposes
type SignalSide string

const (
	SignalSideBuy  SignalSide = "BUY"
	SignalSideSell SignalSide = "SELL"
)

// SignalStatus tracks a signal through the execution pipeline
type SignalStatus string

const (
	SignalStatusCreated   SignalStatus = "CREATED"
	SignalStatusExecuting SignalStatus = "EXECUTING"
	SignalStatusOpened    SignalStatus = "OPENED"
	SignalStatusCompleted SignalStatus = "COMPLETED"
)

// Signal represents a trade intent produced by a strategy module
type Signal struct {
	ID              string       `gorm:"primaryKey;size:36" json:"id"`
	UserID          string       `gorm:"size:36;index;not null" json:"user_id"`
	Symbol          string       `gorm:"size:20;not null" json:"symbol"`
	Side            SignalSide   `gorm:"size:10;not null" json:"side"`
	Status          SignalStatus `gorm:"size:20;not null;index" json:"status"`
	Module          string       `gorm:"size:50" json:"module"`
	BaseRiskPercent *float64     `gorm:"type:decimal(10,4)" json:"base_risk_percent,omitempty"`
	EntryPrice      *float64     `gorm:"type:decimal(20,8)" json:"entry_price,omitempty"`
	StopLoss        *float64     `gorm:"type:decimal(20,8)" json:"stop_loss,omitempty"`
	TakeProfit      *float64     `gorm:"type:decimal(20,8)" json:"take_profit,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// TableName specifies the table name for Signal model
func (Signal) TableName() string {
	return "signals"
}

// BeforeCreate assigns a UUID primary key
func (s *Signal) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
