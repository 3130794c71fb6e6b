package service

import (
	"math"
	"strings"

	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/repository"
)

// DailyCompareLimits is the profile slice of a report row
type DailyCompareLimits struct {
	MaxRiskPerTradePct float64 `json:"max_risk_per_trade_pct"`
	MaxDailyLossPct    float64 `json:"max_daily_loss_pct"`
	MaxTradesPerDay    int     `json:"max_trades_per_day"`
	MaxOpenPositions   int     `json:"max_open_positions"`
	CooldownMinutes    int     `json:"cooldown_between_trades_minutes"`
	MinRR              float64 `json:"min_rr"`
}

// DailyCompareToday is the counters slice of a report row
type DailyCompareToday struct {
	Day                      string  `json:"day"`
	TradesToday              int     `json:"trades_today"`
	RealizedPnLToday         float64 `json:"realized_pnl_today"`
	DailyStopThreshold       float64 `json:"daily_stop_threshold"`
	OpenPositionsNow         int     `json:"open_positions_now"`
	ClosedPositionsToday     int     `json:"closed_positions_today"`
	BlockedOpenAttemptsToday int     `json:"blocked_open_attempts_today"`
	TradesUtilizationPct     float64 `json:"trades_utilization_pct"`
}

// DailyCompareRow is one user's profile limits against today's counters
type DailyCompareRow struct {
	UserID      string             `json:"user_id"`
	Email       string             `json:"email"`
	Role        models.UserRole    `json:"role"`
	RiskProfile string             `json:"risk_profile"`
	Limits      DailyCompareLimits `json:"limits"`
	Today       DailyCompareToday  `json:"today"`
}

// DailyCompareReport is the admin risk overview for one trading day
type DailyCompareReport struct {
	Day          string            `json:"day"`
	GeneratedFor string            `json:"generated_for"`
	Users        []DailyCompareRow `json:"users"`
}

// ReportService builds admin-facing risk reports
type ReportService struct {
	users     *repository.UserRepository
	positions *repository.PositionRepository
	audit     *repository.AuditRepository
	profiles  *ProfileService
	dailyRisk *DailyRiskService
}

// NewReportService creates a new ReportService
func NewReportService(
	users *repository.UserRepository,
	positions *repository.PositionRepository,
	audit *repository.AuditRepository,
	profiles *ProfileService,
	dailyRisk *DailyRiskService,
) *ReportService {
	return &ReportService{
		users:     users,
		positions: positions,
		audit:     audit,
		profiles:  profiles,
		dailyRisk: dailyRisk,
	}
}

// isRealUserEmail filters smoke and placeholder accounts out of
// real-only reports
func isRealUserEmail(email string) bool {
	e := strings.ToLower(email)
	if strings.HasPrefix(e, "smoke.") || strings.HasPrefix(e, "disabled_") {
		return false
	}
	if strings.HasSuffix(e, "@example.com") || strings.HasSuffix(e, "@example.invalid") {
		return false
	}
	return true
}

// DailyCompare compares every user's resolved limits with today's
// realized counters and block counts
func (s *ReportService) DailyCompare(actor *models.User, realOnly bool) (*DailyCompareReport, error) {
	day := s.dailyRisk.Today()
	dayStart, err := s.dailyRisk.DayStart(day)
	if err != nil {
		return nil, err
	}

	users, err := s.users.List()
	if err != nil {
		return nil, err
	}

	rows := make([]DailyCompareRow, 0, len(users))
	for _, user := range users {
		if realOnly && !isRealUserEmail(user.Email) {
			continue
		}

		profile, err := s.profiles.Resolve(user.ID, user.Email)
		if err != nil {
			return nil, err
		}
		state, err := s.dailyRisk.Get(user.ID, day)
		if err != nil {
			return nil, err
		}

		openCount, err := s.positions.CountOpenByUserID(user.ID)
		if err != nil {
			return nil, err
		}
		closedToday, err := s.positions.CountClosedSince(user.ID, dayStart)
		if err != nil {
			return nil, err
		}
		blockedToday, err := s.audit.CountBlockedSince(user.ID, dayStart)
		if err != nil {
			return nil, err
		}

		maxTrades := profile.MaxTradesPerDay
		dailyStop := profile.DailyStop()
		tradesToday := 0
		realizedPnLToday := 0.0
		if state != nil {
			maxTrades = state.MaxTrades
			dailyStop = state.DailyStop
			tradesToday = state.TradesToday
			realizedPnLToday = state.RealizedPnLToday
		}

		utilization := 0.0
		if maxTrades > 0 {
			utilization = math.Round(float64(tradesToday)/float64(maxTrades)*10000) / 100
		}

		rows = append(rows, DailyCompareRow{
			UserID:      user.ID,
			Email:       user.Email,
			Role:        user.Role,
			RiskProfile: profile.Name,
			Limits: DailyCompareLimits{
				MaxRiskPerTradePct: profile.RiskPerTradePct,
				MaxDailyLossPct:    profile.MaxDailyLossPct,
				MaxTradesPerDay:    profile.MaxTradesPerDay,
				MaxOpenPositions:   profile.MaxOpenPositions,
				CooldownMinutes:    profile.CooldownMinutes,
				MinRR:              profile.MinRiskRewardRatio,
			},
			Today: DailyCompareToday{
				Day:                      day,
				TradesToday:              tradesToday,
				RealizedPnLToday:         realizedPnLToday,
				DailyStopThreshold:       dailyStop,
				OpenPositionsNow:         int(openCount),
				ClosedPositionsToday:     int(closedToday),
				BlockedOpenAttemptsToday: int(blockedToday),
				TradesUtilizationPct:     utilization,
			},
		})
	}

	return &DailyCompareReport{
		Day:          day,
		GeneratedFor: actor.Email,
		Users:        rows,
	}, nil
}
