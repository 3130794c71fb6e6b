package service_test

import (
	"testing"

	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passingBinanceRequest() *service.PretradeRequest {
	return &service.PretradeRequest{
		Symbol:        "BTCUSDT",
		Side:          "BUY",
		Qty:           0.5,
		RREstimate:    1.6,
		TrendTF:       "4H",
		SignalTF:      "1H",
		TimingTF:      "15M",
		Volume24hUSDT: 100_000_000,
		SpreadBps:     5,
		SlippageBps:   8,
	}
}

func checkNames(checks []service.CheckResult) []string {
	names := make([]string, 0, len(checks))
	for _, c := range checks {
		names = append(names, c.Name)
	}
	return names
}

func checkByName(t *testing.T, checks []service.CheckResult, name string) service.CheckResult {
	t.Helper()
	for _, c := range checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q not found", name)
	return service.CheckResult{}
}

func TestPretradeBinancePassesWithFullBattery(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "pre@firm.com")
	require.NoError(t, env.secrets.Save(user, models.ExchangeBinance, "api-key-12345", "api-secret-12345"))

	result, err := env.pretrade.Evaluate(user, models.ExchangeBinance, passingBinanceRequest())
	require.NoError(t, err)

	assert.True(t, result.Passed)
	assert.Equal(t, models.ExchangeBinance, result.Exchange)
	assert.Equal(t, "SWING_V1", result.StrategyID)
	assert.Equal(t, "default", result.StrategySource)
	assert.Equal(t, "conservative_v2", result.RiskProfile)

	assert.Equal(t, []string{
		"strategy_enabled",
		"exchange_secret_configured",
		"daily_stop_not_reached",
		"max_trades_not_reached",
		"max_open_positions_not_reached",
		"cooldown_passed",
		"strategy_rr_min",
		"strategy_trend_tf",
		"strategy_signal_tf",
		"strategy_timing_tf",
		"liq_volume_24h",
		"liq_spread_bps",
		"liq_slippage_bps",
	}, checkNames(result.Checks))

	actions := env.auditActions(t, user.ID)
	assert.Contains(t, actions, "pretrade.check.passed")
}

func TestPretradeNoShortCircuit(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "fails@firm.com")
	// No secret saved, bad RR, thin liquidity: every violation reports.

	req := passingBinanceRequest()
	req.RREstimate = 1.1
	req.Volume24hUSDT = 1_000_000

	result, err := env.pretrade.Evaluate(user, models.ExchangeBinance, req)
	require.NoError(t, err)

	assert.False(t, result.Passed)
	assert.Len(t, result.Checks, 13)
	assert.False(t, checkByName(t, result.Checks, "exchange_secret_configured").Passed)
	assert.False(t, checkByName(t, result.Checks, "strategy_rr_min").Passed)
	assert.False(t, checkByName(t, result.Checks, "liq_volume_24h").Passed)
	assert.True(t, checkByName(t, result.Checks, "liq_spread_bps").Passed)

	actions := env.auditActions(t, user.ID)
	assert.Contains(t, actions, "pretrade.check.blocked")
}

func TestPretradeIntradayTightensThresholds(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin-pre@riskgate.io")
	user := env.createUser(t, "intraday@firm.com")
	require.NoError(t, env.secrets.Save(user, models.ExchangeBinance, "api-key-12345", "api-secret-12345"))

	enabled := true
	_, err := env.strategy.Assign(admin, &service.AssignRequest{
		UserEmail:  user.Email,
		Exchange:   "BINANCE",
		StrategyID: models.StrategyIntradayV1,
		Enabled:    &enabled,
	})
	require.NoError(t, err)

	// rr 1.4 passes SWING (>=1.3 would too) but the intraday battery also
	// demands 1H trend, 15M signal and 80M volume.
	req := &service.PretradeRequest{
		Symbol:        "BTCUSDT",
		Side:          "BUY",
		Qty:           0.5,
		RREstimate:    1.2,
		TrendTF:       "1H",
		SignalTF:      "15M",
		TimingTF:      "5M",
		Volume24hUSDT: 90_000_000,
		SpreadBps:     7,
		SlippageBps:   10,
	}

	result, err := env.pretrade.Evaluate(user, models.ExchangeBinance, req)
	require.NoError(t, err)

	assert.False(t, result.Passed)
	assert.Equal(t, models.StrategyIntradayV1, result.StrategyID)
	assert.Equal(t, "assignment", result.StrategySource)
	assert.False(t, checkByName(t, result.Checks, "strategy_rr_min").Passed, "intraday floor is 1.3")
	assert.True(t, checkByName(t, result.Checks, "strategy_trend_tf").Passed)
	assert.True(t, checkByName(t, result.Checks, "strategy_signal_tf").Passed)
	assert.True(t, checkByName(t, result.Checks, "strategy_timing_tf").Passed)
	assert.True(t, checkByName(t, result.Checks, "liq_volume_24h").Passed)

	req.RREstimate = 1.3
	result, err = env.pretrade.Evaluate(user, models.ExchangeBinance, req)
	require.NoError(t, err)
	assert.True(t, result.Passed)
}

func TestPretradeIBKRSessionChecks(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "ibkr@firm.com")
	require.NoError(t, env.secrets.Save(user, models.ExchangeIBKR, "api-key-12345", "api-secret-12345"))

	req := &service.PretradeRequest{
		Symbol:            "AAPL",
		Side:              "BUY",
		Qty:               10,
		RREstimate:        1.6,
		TrendTF:           "1D",
		SignalTF:          "1H",
		TimingTF:          "5M",
		InRTH:             true,
		MacroEventBlock:   false,
		EarningsWithin24h: true,
	}

	result, err := env.pretrade.Evaluate(user, models.ExchangeIBKR, req)
	require.NoError(t, err)

	assert.False(t, result.Passed)
	names := checkNames(result.Checks)
	assert.Contains(t, names, "ibkr_in_rth")
	assert.Contains(t, names, "ibkr_no_macro_block")
	assert.Contains(t, names, "ibkr_no_earnings_24h")
	assert.NotContains(t, names, "liq_volume_24h")
	assert.True(t, checkByName(t, result.Checks, "ibkr_in_rth").Passed)
	assert.False(t, checkByName(t, result.Checks, "ibkr_no_earnings_24h").Passed)
}

func TestPretradeBlockedByKillSwitch(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin-kill@riskgate.io")
	user := env.createUser(t, "halted@firm.com")
	require.NoError(t, env.controls.SetTradingEnabled(admin, false))

	_, err := env.pretrade.Evaluate(user, models.ExchangeBinance, passingBinanceRequest())
	var block *service.RiskBlockError
	require.ErrorAs(t, err, &block)
	assert.Equal(t, "execution.blocked.kill_switch", block.Action)
	assert.False(t, block.Forbidden)

	actions := env.auditActions(t, user.ID)
	assert.Contains(t, actions, "execution.blocked.kill_switch")
}

func TestPretradeDisabledStrategyStillEvaluates(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin-dis@riskgate.io")
	user := env.createUser(t, "disabled-strat@firm.com")
	require.NoError(t, env.secrets.Save(user, models.ExchangeBinance, "api-key-12345", "api-secret-12345"))

	enabled := false
	_, err := env.strategy.Assign(admin, &service.AssignRequest{
		UserEmail:  user.Email,
		Exchange:   "BINANCE",
		StrategyID: models.StrategySwingV1,
		Enabled:    &enabled,
	})
	require.NoError(t, err)

	result, err := env.pretrade.Evaluate(user, models.ExchangeBinance, passingBinanceRequest())
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.False(t, checkByName(t, result.Checks, "strategy_enabled").Passed)
}
