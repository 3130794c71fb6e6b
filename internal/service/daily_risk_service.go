package service

import (
	"errors"
	"time"

	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/repository"
	"gorm.io/gorm"
)

// DailyRiskService owns the per-user-per-day counter rows that back the
// daily stop and trade-count limits. Day boundaries follow the trading
// calendar timezone, not UTC.
type DailyRiskService struct {
	repo *repository.DailyRiskRepository
	loc  *time.Location
}

// NewDailyRiskService creates a new DailyRiskService. An unknown
// timezone falls back to UTC with a warning.
func NewDailyRiskService(repo *repository.DailyRiskRepository, timezone string) *DailyRiskService {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		warnf("daily risk: unknown timezone %q, falling back to UTC: %v", timezone, err)
		loc = time.UTC
	}
	return &DailyRiskService{repo: repo, loc: loc}
}

// Today returns the current trading day as YYYY-MM-DD
func (s *DailyRiskService) Today() string {
	return time.Now().In(s.loc).Format("2006-01-02")
}

// DayStart returns the instant a trading day begins in the trading
// calendar timezone
func (s *DailyRiskService) DayStart(day string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", day, s.loc)
}

// GetOrCreate returns the state row for (user, day), creating it when
// absent. Thresholds are re-applied from the resolved profile on every
// access: profile changes take effect on the current day's limits
// immediately, without touching accumulated counters. tx may be nil.
func (s *DailyRiskService) GetOrCreate(tx *gorm.DB, userID, day string, profile models.RiskProfile) (*models.DailyRiskState, error) {
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}

	state, err := repo.Get(userID, day)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &models.DailyRiskState{
			UserID:           userID,
			Day:              day,
			TradesToday:      0,
			RealizedPnLToday: 0.0,
			DailyStop:        profile.DailyStop(),
			MaxTrades:        profile.MaxTradesPerDay,
		}
		if err := repo.Create(state); err != nil {
			// A concurrent request won the unique (user_id, day) race;
			// its row is authoritative.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				state, err = repo.Get(userID, day)
				if err != nil {
					return nil, err
				}
				if state == nil {
					return nil, gorm.ErrRecordNotFound
				}
			} else {
				return nil, err
			}
		} else {
			return state, nil
		}
	}

	if state.DailyStop != profile.DailyStop() || state.MaxTrades != profile.MaxTradesPerDay {
		state.DailyStop = profile.DailyStop()
		state.MaxTrades = profile.MaxTradesPerDay
		if err := repo.Save(state); err != nil {
			return nil, err
		}
	}
	return state, nil
}

// Get returns the state row without creating it, nil when absent
func (s *DailyRiskService) Get(userID, day string) (*models.DailyRiskState, error) {
	return s.repo.Get(userID, day)
}

// RecordClose folds one closed trade into the day's counters
func (s *DailyRiskService) RecordClose(tx *gorm.DB, state *models.DailyRiskState, realizedPnL float64) error {
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	state.TradesToday++
	state.RealizedPnLToday += realizedPnL
	return repo.Save(state)
}
