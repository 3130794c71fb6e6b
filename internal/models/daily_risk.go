package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DailyRiskState accumulates per-user risk counters for one trading day.
// Day is the trading-calendar date in the configured timezone, not UTC.
type DailyRiskState struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	UserID           string    `gorm:"size:36;not null;uniqueIndex:idx_daily_risk_user_day" json:"user_id"`
	Day              string    `gorm:"size:10;not null;uniqueIndex:idx_daily_risk_user_day" json:"day"`
	TradesToday      int       `gorm:"not null;default:0" json:"trades_today"`
	RealizedPnLToday float64   `gorm:"type:decimal(20,8);not null;default:0" json:"realized_pnl_today"`
	DailyStop        float64   `gorm:"type:decimal(10,4);not null" json:"daily_stop"`
	MaxTrades        int       `gorm:"not null" json:"max_trades"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName specifies the table name for DailyRiskState model
func (DailyRiskState) TableName() string {
	return "daily_risk_states"
}

// BeforeCreate assigns a UUID primary key
func (d *DailyRiskState) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// StopReached reports whether realized losses consumed the daily budget
func (d *DailyRiskState) StopReached() bool {
	return d.RealizedPnLToday <= d.DailyStop
}

// TradesExhausted reports whether the per-day trade count is used up
func (d *DailyRiskState) TradesExhausted() bool {
	return d.TradesToday >= d.MaxTrades
}
