package service

import (
	"fmt"
	"strings"

	"github.com/riskgate/internal/models"
)

// ExitRequest is the snapshot of an open position the exit engine
// evaluates. Side is the original entry side: BUY positions exit on
// price falling to the stop, SELL positions on price rising to it.
type ExitRequest struct {
	Side              string  `json:"side" binding:"required,oneof=BUY SELL"`
	EntryPrice        float64 `json:"entry_price" binding:"required,gt=0"`
	CurrentPrice      float64 `json:"current_price" binding:"required,gt=0"`
	StopLoss          float64 `json:"stop_loss" binding:"required,gt=0"`
	TakeProfit        float64 `json:"take_profit" binding:"required,gt=0"`
	OpenedMinutes     int     `json:"opened_minutes" binding:"gte=0"`
	TrendBreak        bool    `json:"trend_break"`
	SignalReverse     bool    `json:"signal_reverse"`
	MacroEventBlock   bool    `json:"macro_event_block"`
	EarningsWithin24h bool    `json:"earnings_within_24h"`
}

// ExitResult reports the exit decision. Reasons are deduplicated
// preserving first-occurrence order; ShouldExit is true when any reason
// fired. For exit checks, Passed on a CheckResult means "triggered".
type ExitResult struct {
	ShouldExit     bool            `json:"should_exit"`
	Exchange       models.Exchange `json:"exchange"`
	StrategyID     string          `json:"strategy_id"`
	StrategySource string          `json:"strategy_source"`
	Reasons        []string        `json:"reasons"`
	Checks         []CheckResult   `json:"checks"`
}

// Max hold times before a forced time exit.
const (
	maxHoldMinutesIntraday = 240
	maxHoldMinutesDefault  = 480
)

// ExitService evaluates stop/target/time/trend/event conditions to
// decide whether an open position must be force-closed.
type ExitService struct {
	strategy *StrategyService
	audit    *AuditService
}

// NewExitService creates a new ExitService
func NewExitService(strategy *StrategyService, audit *AuditService) *ExitService {
	return &ExitService{
		strategy: strategy,
		audit:    audit,
	}
}

// Evaluate runs the exit battery for one position snapshot. The exchange
// must be enabled for the user; the evaluation is audited either way the
// decision goes.
func (s *ExitService) Evaluate(user *models.User, exchange models.Exchange, req *ExitRequest) (*ExitResult, error) {
	if err := s.strategy.AssertEnabled(user.ID, exchange); err != nil {
		return nil, err
	}

	resolution, err := s.strategy.Resolve(user.ID, exchange)
	if err != nil {
		return nil, err
	}

	checks, reasons := buildExitChecks(exchange, resolution.StrategyID, req)
	shouldExit := len(reasons) > 0

	action := "exit.check.hold"
	if shouldExit {
		action = "exit.check.triggered"
	}
	if err := s.audit.Record(nil, action, user.ID, "exit", "", map[string]interface{}{
		"exchange":        exchange,
		"strategy_id":     resolution.StrategyID,
		"strategy_source": resolution.Source,
		"should_exit":     shouldExit,
		"reasons":         reasons,
		"checks":          checks,
	}); err != nil {
		return nil, err
	}

	return &ExitResult{
		ShouldExit:     shouldExit,
		Exchange:       exchange,
		StrategyID:     resolution.StrategyID,
		StrategySource: resolution.Source,
		Reasons:        reasons,
		Checks:         checks,
	}, nil
}

func buildExitChecks(exchange models.Exchange, strategyID string, req *ExitRequest) ([]CheckResult, []string) {
	checks := make([]CheckResult, 0, 6)
	reasons := make([]string, 0, 4)

	side := strings.ToUpper(req.Side)
	var slHit, tpHit bool
	if side == "BUY" {
		slHit = req.CurrentPrice <= req.StopLoss
		tpHit = req.CurrentPrice >= req.TakeProfit
	} else {
		slHit = req.CurrentPrice >= req.StopLoss
		tpHit = req.CurrentPrice <= req.TakeProfit
	}

	checks = append(checks, CheckResult{
		Name:   "exit_stop_loss_hit",
		Passed: slHit,
		Detail: fmt.Sprintf("current=%g stop=%g", req.CurrentPrice, req.StopLoss),
	})
	checks = append(checks, CheckResult{
		Name:   "exit_take_profit_hit",
		Passed: tpHit,
		Detail: fmt.Sprintf("current=%g take_profit=%g", req.CurrentPrice, req.TakeProfit),
	})
	if slHit {
		reasons = append(reasons, "stop_loss_hit")
	}
	if tpHit {
		reasons = append(reasons, "take_profit_hit")
	}

	maxHold := maxHoldMinutesDefault
	if strings.ToUpper(strategyID) == models.StrategyIntradayV1 {
		maxHold = maxHoldMinutesIntraday
	}
	timeout := req.OpenedMinutes >= maxHold
	checks = append(checks, CheckResult{
		Name:   "exit_time_limit",
		Passed: timeout,
		Detail: fmt.Sprintf("opened_minutes=%d limit=%d", req.OpenedMinutes, maxHold),
	})
	if timeout {
		reasons = append(reasons, "time_limit_reached")
	}

	checks = append(checks, CheckResult{
		Name:   "exit_trend_break",
		Passed: req.TrendBreak,
		Detail: fmt.Sprintf("trend_break=%t", req.TrendBreak),
	})
	checks = append(checks, CheckResult{
		Name:   "exit_signal_reverse",
		Passed: req.SignalReverse,
		Detail: fmt.Sprintf("signal_reverse=%t", req.SignalReverse),
	})
	if req.TrendBreak {
		reasons = append(reasons, "trend_break")
	}
	if req.SignalReverse {
		reasons = append(reasons, "signal_reverse")
	}

	if exchange == models.ExchangeIBKR {
		eventExit := req.MacroEventBlock || req.EarningsWithin24h
		checks = append(checks, CheckResult{
			Name:   "exit_event_risk",
			Passed: eventExit,
			Detail: fmt.Sprintf("macro_event_block=%t earnings_within_24h=%t", req.MacroEventBlock, req.EarningsWithin24h),
		})
		if eventExit {
			reasons = append(reasons, "event_risk_exit")
		}
	}

	return checks, dedupPreservingOrder(reasons)
}

// dedupPreservingOrder removes duplicate reasons keeping the first
// occurrence of each in place
func dedupPreservingOrder(reasons []string) []string {
	seen := make(map[string]struct{}, len(reasons))
	out := make([]string, 0, len(reasons))
	for _, r := range reasons {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
