package service

import (
	"strings"

	"github.com/riskgate/internal/config"
	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/repository"
)

// ControlsService owns the global kill-switch and the exposure caps.
// The kill-switch is a database-backed toggle so an admin can halt all
// trading without a deploy; the config value only seeds the default.
type ControlsService struct {
	settings *repository.RuntimeSettingRepository
	audit    *AuditService
	cfg      config.TradingConfig
}

// NewControlsService creates a new ControlsService
func NewControlsService(settings *repository.RuntimeSettingRepository, audit *AuditService, cfg config.TradingConfig) *ControlsService {
	return &ControlsService{
		settings: settings,
		audit:    audit,
		cfg:      cfg,
	}
}

// TradingEnabled reads the kill-switch, falling back to the configured
// default when no runtime row exists yet
func (s *ControlsService) TradingEnabled() (bool, error) {
	value, err := s.settings.GetBool(models.SettingTradingEnabled)
	if err != nil {
		return false, err
	}
	if value == nil {
		return s.cfg.EnabledDefault, nil
	}
	return *value, nil
}

// SetTradingEnabled flips the kill-switch and audits who did it
func (s *ControlsService) SetTradingEnabled(actor *models.User, enabled bool) error {
	if err := s.settings.SetBool(models.SettingTradingEnabled, enabled); err != nil {
		return err
	}
	return s.audit.Record(nil, "ops.trading_enabled.updated", actor.ID, "runtime_setting", "", map[string]interface{}{
		"enabled": enabled,
	})
}

// AssertTradingEnabled blocks with an audit entry when the kill-switch
// is off. action names the operation that was attempted.
func (s *ControlsService) AssertTradingEnabled(userID, action string, exchange models.Exchange) error {
	enabled, err := s.TradingEnabled()
	if err != nil {
		return err
	}
	if enabled {
		return nil
	}
	if err := s.audit.Record(nil, "execution.blocked.kill_switch", userID, "execution", "", map[string]interface{}{
		"action":   action,
		"exchange": exchange,
	}); err != nil {
		warnf("audit kill_switch block: %v", err)
	}
	return &RiskBlockError{
		Action: "execution.blocked.kill_switch",
		Reason: "trading is globally disabled by admin kill-switch",
	}
}

// SymbolQtyCap returns the open-quantity ceiling for a symbol.
// Zero means unlimited. The "*" entry acts as a catch-all.
func (s *ControlsService) SymbolQtyCap(symbol string) float64 {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	if limit, ok := s.cfg.MaxQtyPerSymbol[upper]; ok {
		return limit
	}
	return s.cfg.MaxQtyPerSymbol["*"]
}

// ExchangeNotionalCap returns the open-notional ceiling for an exchange.
// Zero means unlimited.
func (s *ControlsService) ExchangeNotionalCap(exchange models.Exchange) float64 {
	return s.cfg.MaxNotionalPerExchange[string(exchange)]
}
