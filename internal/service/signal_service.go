package service

import (
	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/repository"
)

// CreateSignalRequest registers a trade intent produced by a strategy module
type CreateSignalRequest struct {
	Symbol          string   `json:"symbol" binding:"required"`
	Side            string   `json:"side" binding:"required,oneof=BUY SELL"`
	Module          string   `json:"module"`
	BaseRiskPercent *float64 `json:"base_risk_percent"`
	EntryPrice      *float64 `json:"entry_price"`
	StopLoss        *float64 `json:"stop_loss"`
	TakeProfit      *float64 `json:"take_profit"`
}

// SignalService manages the signal pipeline feeding the position gate.
// A signal moves CREATED -> EXECUTING -> OPENED -> COMPLETED; only an
// EXECUTING signal may produce a position, and only one ever.
type SignalService struct {
	repo  *repository.SignalRepository
	audit *AuditService
}

// NewSignalService creates a new SignalService
func NewSignalService(repo *repository.SignalRepository, audit *AuditService) *SignalService {
	return &SignalService{repo: repo, audit: audit}
}

// Create stores a new CREATED signal for the caller
func (s *SignalService) Create(user *models.User, req *CreateSignalRequest) (*models.Signal, error) {
	signal := &models.Signal{
		UserID:          user.ID,
		Symbol:          req.Symbol,
		Side:            models.SignalSide(req.Side),
		Status:          models.SignalStatusCreated,
		Module:          req.Module,
		BaseRiskPercent: req.BaseRiskPercent,
		EntryPrice:      req.EntryPrice,
		StopLoss:        req.StopLoss,
		TakeProfit:      req.TakeProfit,
	}
	if err := s.repo.Create(signal); err != nil {
		return nil, err
	}
	if err := s.audit.Record(nil, "signal.created", user.ID, "signal", signal.ID, map[string]interface{}{
		"symbol": signal.Symbol,
		"side":   signal.Side,
		"module": signal.Module,
	}); err != nil {
		return nil, err
	}
	return signal, nil
}

// List returns the caller's signals, newest first
func (s *SignalService) List(userID string, limit int) ([]models.Signal, error) {
	return s.repo.GetByUserID(userID, limit)
}

// Claim moves up to limit of the caller's CREATED signals to EXECUTING,
// oldest first, and returns them
func (s *SignalService) Claim(user *models.User, limit int) ([]models.Signal, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.repo.GetCreatedByUserID(user.ID, limit)
	if err != nil {
		return nil, err
	}

	claimed := make([]models.Signal, 0, len(rows))
	for i := range rows {
		rows[i].Status = models.SignalStatusExecuting
		if err := s.repo.Save(&rows[i]); err != nil {
			return nil, err
		}
		claimed = append(claimed, rows[i])
	}

	if len(claimed) > 0 {
		ids := make([]string, 0, len(claimed))
		for _, sig := range claimed {
			ids = append(ids, sig.ID)
		}
		if err := s.audit.Record(nil, "signal.claimed", user.ID, "signal", "", map[string]interface{}{
			"count":      len(claimed),
			"signal_ids": ids,
		}); err != nil {
			return nil, err
		}
	}
	return claimed, nil
}
