package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/repository"
	"github.com/riskgate/pkg/response"
	"gorm.io/gorm"
)

var (
	ErrSignalNotExecuting = errors.New("signal status must be EXECUTING")
	ErrSignalMissingEntry = errors.New("signal missing entry_price")
	ErrPositionNotOpen    = errors.New("position status must be OPEN")
)

// Idempotency endpoint labels for the two mutating operations.
const (
	endpointPositionOpen  = "position.open"
	endpointPositionClose = "position.close"
)

// OpenPositionRequest opens a position from a claimed signal
type OpenPositionRequest struct {
	SignalID string  `json:"signal_id" binding:"required"`
	Qty      float64 `json:"qty" binding:"required,gt=0"`
}

// ClosePositionRequest closes an open position at a fill price
type ClosePositionRequest struct {
	ExitPrice float64 `json:"exit_price" binding:"required,gt=0"`
	Fees      float64 `json:"fees" binding:"gte=0"`
}

// closeRequestPayload is the canonical request used for close
// idempotency hashing; the position id is part of the identity.
type closeRequestPayload struct {
	PositionID string  `json:"position_id"`
	ExitPrice  float64 `json:"exit_price"`
	Fees       float64 `json:"fees"`
}

// PositionResult is the outcome of an open or close. Body holds the
// exact response envelope bytes so idempotent replays are byte-identical
// with the first execution.
type PositionResult struct {
	StatusCode int
	Body       []byte
	Replayed   bool
	Position   *models.Position
}

// PositionService is the open-close gate. Each mutation runs under the
// caller's per-user lock with the risk checks and the commit inside the
// same critical section, then a single transaction wraps every row
// write so no partial state is ever visible.
type PositionService struct {
	db        *gorm.DB
	positions *repository.PositionRepository
	signals   *repository.SignalRepository
	profiles  *ProfileService
	dailyRisk *DailyRiskService
	controls  *ControlsService
	idem      *IdempotencyService
	audit     *AuditService
	locks     *userLocks
}

// NewPositionService creates a new PositionService
func NewPositionService(
	db *gorm.DB,
	positions *repository.PositionRepository,
	signals *repository.SignalRepository,
	profiles *ProfileService,
	dailyRisk *DailyRiskService,
	controls *ControlsService,
	idem *IdempotencyService,
	audit *AuditService,
) *PositionService {
	return &PositionService{
		db:        db,
		positions: positions,
		signals:   signals,
		profiles:  profiles,
		dailyRisk: dailyRisk,
		controls:  controls,
		idem:      idem,
		audit:     audit,
		locks:     newUserLocks(),
	}
}

// Open opens a position from an EXECUTING signal owned by the caller.
// Preconditions run in a fixed order and the first failing one aborts;
// every risk block is audited with its own action before the error
// returns.
func (s *PositionService) Open(user *models.User, req *OpenPositionRequest, idemKey string) (*PositionResult, error) {
	release := s.locks.Acquire(user.ID)
	defer release()

	if cached, err := s.idem.Consume(user.ID, endpointPositionOpen, idemKey, req); err != nil {
		return nil, err
	} else if cached != nil {
		return &PositionResult{StatusCode: cached.StatusCode, Body: cached.Body, Replayed: true}, nil
	}

	signal, err := s.signals.GetByID(req.SignalID)
	if err != nil {
		return nil, err
	}
	if signal.UserID != user.ID {
		// Not-owned reads as not-found so signal ids don't leak.
		return nil, repository.ErrSignalNotFound
	}
	if signal.Status != models.SignalStatusExecuting {
		return nil, fmt.Errorf("%w (got %s)", ErrSignalNotExecuting, signal.Status)
	}
	if signal.EntryPrice == nil {
		return nil, ErrSignalMissingEntry
	}

	exchange := models.InferExchange(signal.Symbol)
	if err := s.controls.AssertTradingEnabled(user.ID, endpointPositionOpen, exchange); err != nil {
		return nil, err
	}
	if err := s.assertExposureLimits(user, exchange, signal.Symbol, req.Qty, *signal.EntryPrice); err != nil {
		return nil, err
	}

	profile, err := s.profiles.Resolve(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	openCount, err := s.positions.CountOpenByUserID(user.ID)
	if err != nil {
		return nil, err
	}
	if int(openCount) >= profile.MaxOpenPositions {
		return nil, s.block(user.ID, "position.open.blocked.max_open_positions", map[string]interface{}{
			"open":               int(openCount),
			"max_open_positions": profile.MaxOpenPositions,
			"signal_id":          signal.ID,
		}, fmt.Sprintf("risk block: max open positions reached (%d/%d)", openCount, profile.MaxOpenPositions))
	}

	lastActivity, err := s.positions.LastActivityAt(user.ID)
	if err != nil {
		return nil, err
	}
	if lastActivity != nil {
		elapsed := time.Since(*lastActivity).Minutes()
		if elapsed < float64(profile.CooldownMinutes) {
			return nil, s.block(user.ID, "position.open.blocked.cooldown", map[string]interface{}{
				"elapsed_minutes":  elapsed,
				"required_minutes": profile.CooldownMinutes,
				"signal_id":        signal.ID,
			}, fmt.Sprintf("risk block: cooldown not elapsed (%.2fm < %dm)", elapsed, profile.CooldownMinutes))
		}
	}

	// The row is created here on first activity of the day; thresholds
	// are refreshed from the current profile before the limits apply.
	state, err := s.dailyRisk.GetOrCreate(nil, user.ID, s.dailyRisk.Today(), profile)
	if err != nil {
		return nil, err
	}
	if state.StopReached() {
		return nil, s.block(user.ID, "position.open.blocked.daily_stop", map[string]interface{}{
			"realized_pnl_today": state.RealizedPnLToday,
			"daily_stop":         state.DailyStop,
			"signal_id":          signal.ID,
		}, "risk block: daily stop reached")
	}
	if state.TradesExhausted() {
		return nil, s.block(user.ID, "position.open.blocked.max_trades", map[string]interface{}{
			"trades_today": state.TradesToday,
			"max_trades":   state.MaxTrades,
			"signal_id":    signal.ID,
		}, "risk block: max trades reached")
	}

	side := models.PositionSideLong
	if signal.Side == models.SignalSideSell {
		side = models.PositionSideShort
	}

	position := &models.Position{
		UserID:     user.ID,
		SignalID:   signal.ID,
		Symbol:     signal.Symbol,
		Exchange:   exchange,
		Side:       side,
		Qty:        req.Qty,
		EntryPrice: *signal.EntryPrice,
		StopLoss:   signal.StopLoss,
		TakeProfit: signal.TakeProfit,
		Status:     models.PositionStatusOpen,
		OpenedAt:   time.Now().UTC(),
	}

	var body []byte
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.positions.WithTx(tx).Create(position); err != nil {
			return err
		}
		signal.Status = models.SignalStatusOpened
		if err := s.signals.WithTx(tx).Save(signal); err != nil {
			return err
		}
		if err := s.audit.Record(tx, "position.open", user.ID, "position", position.ID, map[string]interface{}{
			"signal_id":   signal.ID,
			"symbol":      position.Symbol,
			"exchange":    exchange,
			"qty":         position.Qty,
			"entry_price": position.EntryPrice,
		}); err != nil {
			return err
		}

		var marshalErr error
		body, marshalErr = json.Marshal(response.Response{Code: 0, Message: "created", Data: position})
		if marshalErr != nil {
			return marshalErr
		}
		return s.idem.Store(tx, user.ID, endpointPositionOpen, idemKey, req, http.StatusCreated, body)
	})
	if err != nil {
		return nil, err
	}

	return &PositionResult{StatusCode: http.StatusCreated, Body: body, Position: position}, nil
}

// Close closes an OPEN position owned by the caller, realizes its PnL
// into today's risk counters and completes the originating signal.
func (s *PositionService) Close(user *models.User, positionID string, req *ClosePositionRequest, idemKey string) (*PositionResult, error) {
	release := s.locks.Acquire(user.ID)
	defer release()

	idemPayload := closeRequestPayload{PositionID: positionID, ExitPrice: req.ExitPrice, Fees: req.Fees}
	if cached, err := s.idem.Consume(user.ID, endpointPositionClose, idemKey, idemPayload); err != nil {
		return nil, err
	} else if cached != nil {
		return &PositionResult{StatusCode: cached.StatusCode, Body: cached.Body, Replayed: true}, nil
	}

	position, err := s.positions.GetByID(positionID)
	if err != nil {
		return nil, err
	}
	if position.UserID != user.ID {
		return nil, repository.ErrPositionNotFound
	}
	if position.Status != models.PositionStatusOpen {
		return nil, fmt.Errorf("%w (got %s)", ErrPositionNotOpen, position.Status)
	}

	realizedPnL := position.CalculateRealizedPnL(req.ExitPrice, req.Fees)
	now := time.Now().UTC()
	position.Status = models.PositionStatusClosed
	position.ClosedAt = &now
	position.ExitPrice = &req.ExitPrice
	position.RealizedPnL = &realizedPnL
	position.Fees = &req.Fees

	profile, err := s.profiles.Resolve(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	var body []byte
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.positions.WithTx(tx).Save(position); err != nil {
			return err
		}
		if err := s.signals.WithTx(tx).UpdateStatus(position.SignalID, models.SignalStatusCompleted); err != nil {
			return err
		}
		state, err := s.dailyRisk.GetOrCreate(tx, user.ID, s.dailyRisk.Today(), profile)
		if err != nil {
			return err
		}
		if err := s.dailyRisk.RecordClose(tx, state, realizedPnL); err != nil {
			return err
		}
		if err := s.audit.Record(tx, "position.close", user.ID, "position", position.ID, map[string]interface{}{
			"signal_id":    position.SignalID,
			"symbol":       position.Symbol,
			"exit_price":   req.ExitPrice,
			"fees":         req.Fees,
			"realized_pnl": realizedPnL,
		}); err != nil {
			return err
		}

		var marshalErr error
		body, marshalErr = json.Marshal(response.Response{Code: 0, Message: "success", Data: position})
		if marshalErr != nil {
			return marshalErr
		}
		return s.idem.Store(tx, user.ID, endpointPositionClose, idemKey, idemPayload, http.StatusOK, body)
	})
	if err != nil {
		return nil, err
	}

	return &PositionResult{StatusCode: http.StatusOK, Body: body, Position: position}, nil
}

// List returns the caller's positions, newest first
func (s *PositionService) List(userID string, limit int) ([]models.Position, error) {
	return s.positions.GetByUserID(userID, limit)
}

// assertExposureLimits projects the post-open exposure and blocks when a
// configured cap would be exceeded. Caps of zero are unlimited. The
// exchange of each open position was inferred from its symbol at open
// time, matching the inference used here.
func (s *PositionService) assertExposureLimits(user *models.User, exchange models.Exchange, symbol string, qty, priceEstimate float64) error {
	if maxQty := s.controls.SymbolQtyCap(symbol); maxQty > 0 {
		openQty, err := s.positions.OpenQtyForSymbol(user.ID, symbol)
		if err != nil {
			return err
		}
		projected := openQty + qty
		if projected > maxQty {
			return s.block(user.ID, "execution.blocked.exposure.symbol_qty", map[string]interface{}{
				"exchange":           exchange,
				"symbol":             symbol,
				"projected_qty":      projected,
				"max_qty_per_symbol": maxQty,
			}, fmt.Sprintf("risk block: symbol exposure exceeded (%g>%g)", projected, maxQty))
		}
	}

	if maxNotional := s.controls.ExchangeNotionalCap(exchange); maxNotional > 0 {
		openNotional, err := s.positions.OpenNotionalForExchange(user.ID, exchange)
		if err != nil {
			return err
		}
		projected := openNotional + qty*priceEstimate
		if projected > maxNotional {
			return s.block(user.ID, "execution.blocked.exposure.exchange_notional", map[string]interface{}{
				"exchange":                      exchange,
				"symbol":                        symbol,
				"projected_notional_exchange":   projected,
				"max_open_notional_per_exchange": maxNotional,
			}, fmt.Sprintf("risk block: exchange exposure exceeded (%g>%g)", projected, maxNotional))
		}
	}

	return nil
}

// block audits a risk rejection and returns the matching error. The
// audit write goes to the base handle so it survives regardless of any
// surrounding transaction state.
func (s *PositionService) block(userID, action string, details map[string]interface{}, reason string) error {
	if err := s.audit.Record(nil, action, userID, "risk", "", details); err != nil {
		warnf("audit risk block %s: %v", action, err)
	}
	return &RiskBlockError{Action: action, Reason: reason}
}
