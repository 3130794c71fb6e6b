package service_test

import (
	"net/http"
	"sync"
	"testing"

	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/repository"
	"github.com/riskgate/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenPositionHappyPath(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "open@firm.com")
	signal := env.createExecutingSignal(t, user.ID, "BTCUSDT", 100)

	result, err := env.positions.Open(user, &service.OpenPositionRequest{SignalID: signal.ID, Qty: 2}, "open-key-1")
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, result.StatusCode)
	assert.False(t, result.Replayed)
	require.NotNil(t, result.Position)
	assert.Equal(t, models.PositionStatusOpen, result.Position.Status)
	assert.Equal(t, models.ExchangeBinance, result.Position.Exchange)
	assert.Equal(t, models.PositionSideLong, result.Position.Side)
	assert.Equal(t, 100.0, result.Position.EntryPrice)

	reloaded, err := env.signalRepo.GetByID(signal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SignalStatusOpened, reloaded.Status)

	actions := env.auditActions(t, user.ID)
	assert.Contains(t, actions, "position.open")
}

func TestOpenPositionIdempotentReplay(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "replay@firm.com")
	signal := env.createExecutingSignal(t, user.ID, "BTCUSDT", 100)
	req := &service.OpenPositionRequest{SignalID: signal.ID, Qty: 2}

	first, err := env.positions.Open(user, req, "replay-key")
	require.NoError(t, err)

	// The signal is now OPENED; only the stored envelope can answer.
	second, err := env.positions.Open(user, req, "replay-key")
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.StatusCode, second.StatusCode)
	assert.Equal(t, first.Body, second.Body)

	count, err := env.positionRepo.CountOpenByUserID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Same key with a mutated payload must not replay.
	_, err = env.positions.Open(user, &service.OpenPositionRequest{SignalID: signal.ID, Qty: 3}, "replay-key")
	assert.ErrorIs(t, err, service.ErrIdempotencyConflict)
}

func TestOpenPositionSignalPreconditions(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "precond@firm.com")
	other := env.createUser(t, "other@firm.com")

	t.Run("signal must exist", func(t *testing.T) {
		_, err := env.positions.Open(user, &service.OpenPositionRequest{SignalID: "missing", Qty: 1}, "")
		assert.ErrorIs(t, err, repository.ErrSignalNotFound)
	})

	t.Run("foreign signal reads as not found", func(t *testing.T) {
		signal := env.createExecutingSignal(t, other.ID, "BTCUSDT", 100)
		_, err := env.positions.Open(user, &service.OpenPositionRequest{SignalID: signal.ID, Qty: 1}, "")
		assert.ErrorIs(t, err, repository.ErrSignalNotFound)
	})

	t.Run("signal must be executing", func(t *testing.T) {
		entry := 100.0
		signal := &models.Signal{
			UserID:     user.ID,
			Symbol:     "BTCUSDT",
			Side:       models.SignalSideBuy,
			Status:     models.SignalStatusCreated,
			EntryPrice: &entry,
		}
		require.NoError(t, env.signalRepo.Create(signal))
		_, err := env.positions.Open(user, &service.OpenPositionRequest{SignalID: signal.ID, Qty: 1}, "")
		assert.ErrorIs(t, err, service.ErrSignalNotExecuting)
	})

	t.Run("signal must carry an entry price", func(t *testing.T) {
		signal := &models.Signal{
			UserID: user.ID,
			Symbol: "BTCUSDT",
			Side:   models.SignalSideBuy,
			Status: models.SignalStatusExecuting,
		}
		require.NoError(t, env.signalRepo.Create(signal))
		_, err := env.positions.Open(user, &service.OpenPositionRequest{SignalID: signal.ID, Qty: 1}, "")
		assert.ErrorIs(t, err, service.ErrSignalMissingEntry)
	})
}

func TestOpenPositionBlockedByKillSwitch(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin-pos@riskgate.io")
	user := env.createUser(t, "killed@firm.com")
	signal := env.createExecutingSignal(t, user.ID, "BTCUSDT", 100)

	require.NoError(t, env.controls.SetTradingEnabled(admin, false))

	_, err := env.positions.Open(user, &service.OpenPositionRequest{SignalID: signal.ID, Qty: 1}, "")
	var block *service.RiskBlockError
	require.ErrorAs(t, err, &block)
	assert.Equal(t, "execution.blocked.kill_switch", block.Action)

	actions := env.auditActions(t, user.ID)
	assert.Contains(t, actions, "execution.blocked.kill_switch")
}

func TestOpenPositionBlockedByMaxOpenPositions(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "maxopen@firm.com")

	for i := 0; i < 2; i++ {
		signal := env.createExecutingSignal(t, user.ID, "ETHUSDT", 100)
		_, err := env.positions.Open(user, &service.OpenPositionRequest{SignalID: signal.ID, Qty: 1}, "")
		require.NoError(t, err)
		env.backdatePositionTimes(t, user.ID)
	}

	signal := env.createExecutingSignal(t, user.ID, "ETHUSDT", 100)
	_, err := env.positions.Open(user, &service.OpenPositionRequest{SignalID: signal.ID, Qty: 1}, "")
	var block *service.RiskBlockError
	require.ErrorAs(t, err, &block)
	assert.Equal(t, "position.open.blocked.max_open_positions", block.Action)
}

func TestOpenPositionBlockedByCooldown(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "cool@firm.com")

	first := env.createExecutingSignal(t, user.ID, "ETHUSDT", 100)
	_, err := env.positions.Open(user, &service.OpenPositionRequest{SignalID: first.ID, Qty: 1}, "")
	require.NoError(t, err)

	second := env.createExecutingSignal(t, user.ID, "ETHUSDT", 100)
	_, err = env.positions.Open(user, &service.OpenPositionRequest{SignalID: second.ID, Qty: 1}, "")
	var block *service.RiskBlockError
	require.ErrorAs(t, err, &block)
	assert.Equal(t, "position.open.blocked.cooldown", block.Action)
}

func TestOpenPositionBlockedByDailyStop(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "stopped@firm.com")

	state, err := env.dailyRisk.GetOrCreate(nil, user.ID, env.dailyRisk.Today(), service.ProfileConservativeV2)
	require.NoError(t, err)
	require.NoError(t, env.dailyRisk.RecordClose(nil, state, -2.0))

	signal := env.createExecutingSignal(t, user.ID, "ETHUSDT", 100)
	_, err = env.positions.Open(user, &service.OpenPositionRequest{SignalID: signal.ID, Qty: 1}, "")
	var block *service.RiskBlockError
	require.ErrorAs(t, err, &block)
	assert.Equal(t, "position.open.blocked.daily_stop", block.Action)
}

func TestOpenPositionBlockedByMaxTrades(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "exhausted@firm.com")

	state, err := env.dailyRisk.GetOrCreate(nil, user.ID, env.dailyRisk.Today(), service.ProfileConservativeV2)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, env.dailyRisk.RecordClose(nil, state, 0.1))
	}

	signal := env.createExecutingSignal(t, user.ID, "ETHUSDT", 100)
	_, err = env.positions.Open(user, &service.OpenPositionRequest{SignalID: signal.ID, Qty: 1}, "")
	var block *service.RiskBlockError
	require.ErrorAs(t, err, &block)
	assert.Equal(t, "position.open.blocked.max_trades", block.Action)
}

func TestOpenPositionExposureCaps(t *testing.T) {
	env := newTestEnv(t)

	t.Run("symbol quantity cap", func(t *testing.T) {
		user := env.createUser(t, "qtycap@firm.com")
		signal := env.createExecutingSignal(t, user.ID, "BTCUSDT", 100)
		_, err := env.positions.Open(user, &service.OpenPositionRequest{SignalID: signal.ID, Qty: 6}, "")
		var block *service.RiskBlockError
		require.ErrorAs(t, err, &block)
		assert.Equal(t, "execution.blocked.exposure.symbol_qty", block.Action)
	})

	t.Run("exchange notional cap", func(t *testing.T) {
		user := env.createUser(t, "notionalcap@firm.com")
		signal := env.createExecutingSignal(t, user.ID, "BTCUSDT", 60000)
		_, err := env.positions.Open(user, &service.OpenPositionRequest{SignalID: signal.ID, Qty: 5}, "")
		var block *service.RiskBlockError
		require.ErrorAs(t, err, &block)
		assert.Equal(t, "execution.blocked.exposure.exchange_notional", block.Action)
	})
}

func TestClosePositionRealizesPnL(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "close@firm.com")
	signal := env.createExecutingSignal(t, user.ID, "BTCUSDT", 100)

	opened, err := env.positions.Open(user, &service.OpenPositionRequest{SignalID: signal.ID, Qty: 2}, "")
	require.NoError(t, err)

	result, err := env.positions.Close(user, opened.Position.ID,
		&service.ClosePositionRequest{ExitPrice: 110, Fees: 1}, "close-key")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, result.StatusCode)
	require.NotNil(t, result.Position.RealizedPnL)
	assert.Equal(t, 19.0, *result.Position.RealizedPnL)
	assert.Equal(t, models.PositionStatusClosed, result.Position.Status)
	require.NotNil(t, result.Position.ClosedAt)

	reloadedSignal, err := env.signalRepo.GetByID(signal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SignalStatusCompleted, reloadedSignal.Status)

	state, err := env.dailyRisk.Get(user.ID, env.dailyRisk.Today())
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, 1, state.TradesToday)
	assert.Equal(t, 19.0, state.RealizedPnLToday)

	// A retried close replays the stored envelope byte for byte.
	replay, err := env.positions.Close(user, opened.Position.ID,
		&service.ClosePositionRequest{ExitPrice: 110, Fees: 1}, "close-key")
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, result.Body, replay.Body)

	state, err = env.dailyRisk.Get(user.ID, env.dailyRisk.Today())
	require.NoError(t, err)
	assert.Equal(t, 1, state.TradesToday, "replay must not double-count")
}

func TestClosePositionPreconditions(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "closepre@firm.com")
	other := env.createUser(t, "closeother@firm.com")

	signal := env.createExecutingSignal(t, user.ID, "BTCUSDT", 100)
	opened, err := env.positions.Open(user, &service.OpenPositionRequest{SignalID: signal.ID, Qty: 1}, "")
	require.NoError(t, err)

	t.Run("foreign position reads as not found", func(t *testing.T) {
		_, err := env.positions.Close(other, opened.Position.ID, &service.ClosePositionRequest{ExitPrice: 110}, "")
		assert.ErrorIs(t, err, repository.ErrPositionNotFound)
	})

	t.Run("already closed positions cannot close again", func(t *testing.T) {
		_, err := env.positions.Close(user, opened.Position.ID, &service.ClosePositionRequest{ExitPrice: 110}, "")
		require.NoError(t, err)
		_, err = env.positions.Close(user, opened.Position.ID, &service.ClosePositionRequest{ExitPrice: 120}, "")
		assert.ErrorIs(t, err, service.ErrPositionNotOpen)
	})
}

// Concurrent opens through the per-user lock must never exceed the
// profile's max open positions, whatever the interleaving.
func TestOpenPositionConcurrencyRespectsLimit(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "race@firm.com")

	signals := make([]*models.Signal, 4)
	for i := range signals {
		signals[i] = env.createExecutingSignal(t, user.ID, "ETHUSDT", 100)
	}

	var wg sync.WaitGroup
	for _, signal := range signals {
		wg.Add(1)
		go func(signalID string) {
			defer wg.Done()
			// Blocked opens are expected here; only the invariant matters.
			_, _ = env.positions.Open(user, &service.OpenPositionRequest{SignalID: signalID, Qty: 1}, "")
		}(signal.ID)
	}
	wg.Wait()

	count, err := env.positionRepo.CountOpenByUserID(user.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, count, int64(2))
	assert.GreaterOrEqual(t, count, int64(1))
}
