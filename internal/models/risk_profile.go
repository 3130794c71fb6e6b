package models

import (
	"time"
)

// RiskProfile is a named bundle of risk limits. Profiles live in code;
// only the per-user override pointing at one is persisted.
type RiskProfile struct {
	Name               string  `json:"name"`
	RiskPerTradePct    float64 `json:"risk_per_trade_pct"`
	MaxDailyLossPct    float64 `json:"max_daily_loss_pct"`
	MaxTradesPerDay    int     `json:"max_trades_per_day"`
	MaxOpenPositions   int     `json:"max_open_positions"`
	CooldownMinutes    int     `json:"cooldown_minutes"`
	MaxLeverage        float64 `json:"max_leverage"`
	RequireStopLoss    bool    `json:"require_stop_loss"`
	MinRiskRewardRatio float64 `json:"min_risk_reward_ratio"`
}

// DailyStop converts the loss budget into the threshold stored on the
// daily state row, always negative.
func (p RiskProfile) DailyStop() float64 {
	v := p.MaxDailyLossPct
	if v < 0 {
		v = -v
	}
	return -v
}

// RiskProfileOverride pins a user to a specific profile regardless of
// the configured email mapping.
type RiskProfileOverride struct {
	UserID      string    `gorm:"primaryKey;size:36" json:"user_id"`
	ProfileName string    `gorm:"size:50;not null" json:"profile_name"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for RiskProfileOverride model
func (RiskProfileOverride) TableName() string {
	return "risk_profile_overrides"
}
