package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/repository"
)

// PretradeRequest carries the market snapshot a caller proposes to trade
// on. Liquidity fields apply to Binance, session fields to IBKR; the
// engine ignores whichever set does not match the exchange.
type PretradeRequest struct {
	Symbol            string  `json:"symbol" binding:"required"`
	Side              string  `json:"side" binding:"required,oneof=BUY SELL"`
	Qty               float64 `json:"qty" binding:"required,gt=0"`
	RREstimate        float64 `json:"rr_estimate"`
	TrendTF           string  `json:"trend_tf"`
	SignalTF          string  `json:"signal_tf"`
	TimingTF          string  `json:"timing_tf"`
	Volume24hUSDT     float64 `json:"volume_24h_usdt"`
	SpreadBps         float64 `json:"spread_bps"`
	SlippageBps       float64 `json:"slippage_bps"`
	InRTH             bool    `json:"in_rth"`
	MacroEventBlock   bool    `json:"macro_event_block"`
	EarningsWithin24h bool    `json:"earnings_within_24h"`
}

// PretradeResult reports every check in evaluation order. Passed is the
// conjunction of all checks; no check short-circuits, so a failing
// caller still sees every violation in one response.
type PretradeResult struct {
	Passed         bool            `json:"passed"`
	Exchange       models.Exchange `json:"exchange"`
	StrategyID     string          `json:"strategy_id"`
	StrategySource string          `json:"strategy_source"`
	RiskProfile    string          `json:"risk_profile"`
	Checks         []CheckResult   `json:"checks"`
}

// PretradeService runs the ordered pre-trade check battery: account
// gates, daily risk limits, cooldown, then strategy timeframe rules and
// exchange-specific liquidity or session rules.
type PretradeService struct {
	strategy  *StrategyService
	profiles  *ProfileService
	dailyRisk *DailyRiskService
	controls  *ControlsService
	secrets   *repository.ExchangeSecretRepository
	positions *repository.PositionRepository
	audit     *AuditService
}

// NewPretradeService creates a new PretradeService
func NewPretradeService(
	strategy *StrategyService,
	profiles *ProfileService,
	dailyRisk *DailyRiskService,
	controls *ControlsService,
	secrets *repository.ExchangeSecretRepository,
	positions *repository.PositionRepository,
	audit *AuditService,
) *PretradeService {
	return &PretradeService{
		strategy:  strategy,
		profiles:  profiles,
		dailyRisk: dailyRisk,
		controls:  controls,
		secrets:   secrets,
		positions: positions,
		audit:     audit,
	}
}

// Evaluate runs the full battery for one proposed trade. The evaluation
// is audited whether it passes or not; the audit write is part of the
// contract, not a side detail.
func (s *PretradeService) Evaluate(user *models.User, exchange models.Exchange, req *PretradeRequest) (*PretradeResult, error) {
	if err := s.controls.AssertTradingEnabled(user.ID, "pretrade.check", exchange); err != nil {
		return nil, err
	}

	resolution, err := s.strategy.Resolve(user.ID, exchange)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.Resolve(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	checks := make([]CheckResult, 0, 13)

	checks = append(checks, CheckResult{
		Name:   "strategy_enabled",
		Passed: resolution.Enabled,
		Detail: fmt.Sprintf("%s (%s)", resolution.StrategyID, resolution.Source),
	})

	hasSecret, err := s.secrets.Exists(user.ID, exchange)
	if err != nil {
		return nil, err
	}
	checks = append(checks, CheckResult{
		Name:   "exchange_secret_configured",
		Passed: hasSecret,
		Detail: string(exchange),
	})

	// Daily counters come from today's row when it exists; thresholds
	// always come from the currently resolved profile.
	state, err := s.dailyRisk.Get(user.ID, s.dailyRisk.Today())
	if err != nil {
		return nil, err
	}
	tradesToday := 0
	realizedPnLToday := 0.0
	if state != nil {
		tradesToday = state.TradesToday
		realizedPnLToday = state.RealizedPnLToday
	}
	dailyStop := profile.DailyStop()
	maxTrades := profile.MaxTradesPerDay

	checks = append(checks, CheckResult{
		Name:   "daily_stop_not_reached",
		Passed: realizedPnLToday > dailyStop,
		Detail: fmt.Sprintf("pnl=%g threshold=%g", realizedPnLToday, dailyStop),
	})
	checks = append(checks, CheckResult{
		Name:   "max_trades_not_reached",
		Passed: tradesToday < maxTrades,
		Detail: fmt.Sprintf("trades=%d/%d", tradesToday, maxTrades),
	})

	openCount, err := s.positions.CountOpenByUserID(user.ID)
	if err != nil {
		return nil, err
	}
	checks = append(checks, CheckResult{
		Name:   "max_open_positions_not_reached",
		Passed: int(openCount) < profile.MaxOpenPositions,
		Detail: fmt.Sprintf("open=%d/%d", openCount, profile.MaxOpenPositions),
	})

	lastActivity, err := s.positions.LastActivityAt(user.ID)
	if err != nil {
		return nil, err
	}
	cooldownPassed := true
	cooldownDetail := "no previous trade"
	if lastActivity != nil {
		elapsed := time.Since(*lastActivity).Minutes()
		cooldownPassed = elapsed >= float64(profile.CooldownMinutes)
		cooldownDetail = fmt.Sprintf("elapsed=%.2fm required=%dm", elapsed, profile.CooldownMinutes)
	}
	checks = append(checks, CheckResult{
		Name:   "cooldown_passed",
		Passed: cooldownPassed,
		Detail: cooldownDetail,
	})

	checks = append(checks, buildStrategyChecks(exchange, resolution.StrategyID, req)...)

	passed := allPassed(checks)
	action := "pretrade.check.blocked"
	if passed {
		action = "pretrade.check.passed"
	}
	if err := s.audit.Record(nil, action, user.ID, "pretrade", "", map[string]interface{}{
		"exchange":        exchange,
		"strategy_id":     resolution.StrategyID,
		"strategy_source": resolution.Source,
		"request": map[string]interface{}{
			"symbol":      req.Symbol,
			"side":        req.Side,
			"qty":         req.Qty,
			"rr_estimate": req.RREstimate,
			"trend_tf":    req.TrendTF,
			"signal_tf":   req.SignalTF,
			"timing_tf":   req.TimingTF,
		},
		"checks": checks,
	}); err != nil {
		return nil, err
	}

	return &PretradeResult{
		Passed:         passed,
		Exchange:       exchange,
		StrategyID:     resolution.StrategyID,
		StrategySource: resolution.Source,
		RiskProfile:    profile.Name,
		Checks:         checks,
	}, nil
}

// strategyLimits are the per-strategy-per-exchange timeframe and RR rules
type strategyLimits struct {
	rrMin     float64
	trendTFs  []string
	signalTFs []string
	timingTFs []string
}

func limitsFor(exchange models.Exchange, strategyID string) strategyLimits {
	if strings.ToUpper(strategyID) == models.StrategyIntradayV1 {
		return strategyLimits{
			rrMin:     1.3,
			trendTFs:  []string{"1H"},
			signalTFs: []string{"15M"},
			timingTFs: []string{"15M", "5M"},
		}
	}
	if exchange == models.ExchangeIBKR {
		return strategyLimits{
			rrMin:     1.5,
			trendTFs:  []string{"1D", "4H"},
			signalTFs: []string{"1H", "30M"},
			timingTFs: []string{"15M", "5M"},
		}
	}
	return strategyLimits{
		rrMin:     1.5,
		trendTFs:  []string{"4H"},
		signalTFs: []string{"1H"},
		timingTFs: []string{"15M"},
	}
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func buildStrategyChecks(exchange models.Exchange, strategyID string, req *PretradeRequest) []CheckResult {
	limits := limitsFor(exchange, strategyID)
	checks := []CheckResult{
		{
			Name:   "strategy_rr_min",
			Passed: req.RREstimate >= limits.rrMin,
			Detail: fmt.Sprintf("rr=%g required>=%g", req.RREstimate, limits.rrMin),
		},
		{
			Name:   "strategy_trend_tf",
			Passed: contains(limits.trendTFs, req.TrendTF),
			Detail: fmt.Sprintf("value=%s allowed=%v", req.TrendTF, limits.trendTFs),
		},
		{
			Name:   "strategy_signal_tf",
			Passed: contains(limits.signalTFs, req.SignalTF),
			Detail: fmt.Sprintf("value=%s allowed=%v", req.SignalTF, limits.signalTFs),
		},
		{
			Name:   "strategy_timing_tf",
			Passed: contains(limits.timingTFs, req.TimingTF),
			Detail: fmt.Sprintf("value=%s allowed=%v", req.TimingTF, limits.timingTFs),
		},
	}

	if exchange == models.ExchangeBinance {
		minVolume := 50_000_000.0
		maxSpread := 10.0
		maxSlippage := 15.0
		if strings.ToUpper(strategyID) == models.StrategyIntradayV1 {
			minVolume = 80_000_000.0
			maxSpread = 8.0
			maxSlippage = 12.0
		}
		checks = append(checks,
			CheckResult{
				Name:   "liq_volume_24h",
				Passed: req.Volume24hUSDT >= minVolume,
				Detail: fmt.Sprintf("value=%g required>=%g", req.Volume24hUSDT, minVolume),
			},
			CheckResult{
				Name:   "liq_spread_bps",
				Passed: req.SpreadBps <= maxSpread,
				Detail: fmt.Sprintf("value=%g required<=%g", req.SpreadBps, maxSpread),
			},
			CheckResult{
				Name:   "liq_slippage_bps",
				Passed: req.SlippageBps <= maxSlippage,
				Detail: fmt.Sprintf("value=%g required<=%g", req.SlippageBps, maxSlippage),
			},
		)
	} else {
		checks = append(checks,
			CheckResult{
				Name:   "ibkr_in_rth",
				Passed: req.InRTH,
				Detail: "must be true",
			},
			CheckResult{
				Name:   "ibkr_no_macro_block",
				Passed: !req.MacroEventBlock,
				Detail: fmt.Sprintf("macro_event_block=%t", req.MacroEventBlock),
			},
			CheckResult{
				Name:   "ibkr_no_earnings_24h",
				Passed: !req.EarningsWithin24h,
				Detail: fmt.Sprintf("earnings_within_24h=%t", req.EarningsWithin24h),
			},
		)
	}

	return checks
}
