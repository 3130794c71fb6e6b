package service_test

import (
	"testing"

	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func holdingExitRequest() *service.ExitRequest {
	return &service.ExitRequest{
		Side:          "BUY",
		EntryPrice:    100,
		CurrentPrice:  102,
		StopLoss:      95,
		TakeProfit:    110,
		OpenedMinutes: 30,
	}
}

func TestExitHoldWhenNothingTriggers(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "hold@firm.com")

	result, err := env.exits.Evaluate(user, models.ExchangeBinance, holdingExitRequest())
	require.NoError(t, err)

	assert.False(t, result.ShouldExit)
	assert.Empty(t, result.Reasons)
	assert.Equal(t, []string{
		"exit_stop_loss_hit",
		"exit_take_profit_hit",
		"exit_time_limit",
		"exit_trend_break",
		"exit_signal_reverse",
	}, checkNames(result.Checks))

	actions := env.auditActions(t, user.ID)
	assert.Contains(t, actions, "exit.check.hold")
}

func TestExitStopLossDirectionBySide(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "sides@firm.com")

	// BUY exits when price falls to the stop.
	req := holdingExitRequest()
	req.CurrentPrice = 94
	result, err := env.exits.Evaluate(user, models.ExchangeBinance, req)
	require.NoError(t, err)
	assert.True(t, result.ShouldExit)
	assert.Equal(t, []string{"stop_loss_hit"}, result.Reasons)

	// SELL stops sit above entry and trigger on price rising.
	req = &service.ExitRequest{
		Side:          "SELL",
		EntryPrice:    100,
		CurrentPrice:  106,
		StopLoss:      105,
		TakeProfit:    90,
		OpenedMinutes: 10,
	}
	result, err = env.exits.Evaluate(user, models.ExchangeBinance, req)
	require.NoError(t, err)
	assert.True(t, result.ShouldExit)
	assert.Equal(t, []string{"stop_loss_hit"}, result.Reasons)
}

func TestExitReasonsOrderedAndDeduplicated(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "multi@firm.com")

	req := holdingExitRequest()
	req.CurrentPrice = 94 // stop hit
	req.OpenedMinutes = 500
	req.TrendBreak = true
	req.SignalReverse = true

	result, err := env.exits.Evaluate(user, models.ExchangeBinance, req)
	require.NoError(t, err)
	assert.True(t, result.ShouldExit)
	assert.Equal(t, []string{
		"stop_loss_hit",
		"time_limit_reached",
		"trend_break",
		"signal_reverse",
	}, result.Reasons)
}

func TestExitTimeLimitByStrategy(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin-exit@riskgate.io")
	user := env.createUser(t, "timed@firm.com")

	req := holdingExitRequest()
	req.OpenedMinutes = 300

	// Default swing limit is 480 minutes: holding.
	result, err := env.exits.Evaluate(user, models.ExchangeBinance, req)
	require.NoError(t, err)
	assert.False(t, result.ShouldExit)

	enabled := true
	_, err = env.strategy.Assign(admin, &service.AssignRequest{
		UserEmail:  user.Email,
		Exchange:   "BINANCE",
		StrategyID: models.StrategyIntradayV1,
		Enabled:    &enabled,
	})
	require.NoError(t, err)

	// Intraday tightens the limit to 240 minutes.
	result, err = env.exits.Evaluate(user, models.ExchangeBinance, req)
	require.NoError(t, err)
	assert.True(t, result.ShouldExit)
	assert.Equal(t, []string{"time_limit_reached"}, result.Reasons)

	actions := env.auditActions(t, user.ID)
	assert.Contains(t, actions, "exit.check.triggered")
}

func TestExitEventRiskIsIBKROnly(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "event@firm.com")

	req := holdingExitRequest()
	req.EarningsWithin24h = true

	result, err := env.exits.Evaluate(user, models.ExchangeBinance, req)
	require.NoError(t, err)
	assert.False(t, result.ShouldExit)
	assert.NotContains(t, checkNames(result.Checks), "exit_event_risk")

	result, err = env.exits.Evaluate(user, models.ExchangeIBKR, req)
	require.NoError(t, err)
	assert.True(t, result.ShouldExit)
	assert.Equal(t, []string{"event_risk_exit"}, result.Reasons)
	assert.Contains(t, checkNames(result.Checks), "exit_event_risk")
}

func TestExitBlockedWhenExchangeDisabled(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin-exch@riskgate.io")
	user := env.createUser(t, "offline@firm.com")

	enabled := false
	_, err := env.strategy.Assign(admin, &service.AssignRequest{
		UserEmail:  user.Email,
		Exchange:   "IBKR",
		StrategyID: models.StrategySwingV1,
		Enabled:    &enabled,
	})
	require.NoError(t, err)

	_, err = env.exits.Evaluate(user, models.ExchangeIBKR, holdingExitRequest())
	var block *service.RiskBlockError
	require.ErrorAs(t, err, &block)
	assert.Equal(t, "execution.blocked.exchange_disabled", block.Action)
	assert.True(t, block.Forbidden)
}
