package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PositionSide represents the position side
type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

// PositionStatus tracks whether a position is still on the book
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "OPEN"
	PositionStatusClosed PositionStatus = "CLOSED"
)

// Position represents a position opened from an executing signal
type Position struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	UserID      string         `gorm:"size:36;index;not null" json:"user_id"`
	SignalID    string         `gorm:"size:36;uniqueIndex;not null" json:"signal_id"`
	Symbol      string         `gorm:"size:20;not null;index" json:"symbol"`
	Exchange    Exchange       `gorm:"size:20;not null" json:"exchange"`
	Side        PositionSide   `gorm:"size:10;not null" json:"side"`
	Qty         float64        `gorm:"type:decimal(20,8);not null" json:"qty"`
	EntryPrice  float64        `gorm:"type:decimal(20,8);not null" json:"entry_price"`
	StopLoss    *float64       `gorm:"type:decimal(20,8)" json:"stop_loss,omitempty"`
	TakeProfit  *float64       `gorm:"type:decimal(20,8)" json:"take_profit,omitempty"`
	Status      PositionStatus `gorm:"size:10;not null;index" json:"status"`
	OpenedAt    time.Time      `json:"opened_at"`
	ClosedAt    *time.Time     `json:"closed_at,omitempty"`
	ExitPrice   *float64       `gorm:"type:decimal(20,8)" json:"exit_price,omitempty"`
	RealizedPnL *float64       `gorm:"type:decimal(20,8)" json:"realized_pnl,omitempty"`
	Fees        *float64       `gorm:"type:decimal(20,8)" json:"fees,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	// Relations
	Signal Signal `gorm:"foreignKey:SignalID" json:"-"`
}

// TableName specifies the table name for Position model
func (Position) TableName() string {
	return "positions"
}

// BeforeCreate assigns a UUID primary key
func (p *Position) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// CalculateRealizedPnL computes the realized result for an exit fill
func (p *Position) CalculateRealizedPnL(exitPrice, fees float64) float64 {
	if p.Side == PositionSideLong {
		return (exitPrice-p.EntryPrice)*p.Qty - fees
	}
	return (p.EntryPrice-exitPrice)*p.Qty - fees
}
