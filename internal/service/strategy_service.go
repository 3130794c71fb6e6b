package service

import (
	"errors"

	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/repository"
)

var (
	ErrUnknownStrategy = errors.New("strategy_id must be SWING_V1 or INTRADAY_V1")
)

// StrategyResolution is the per-user-per-exchange strategy decision.
// Source tells whether an assignment row exists or the default applied.
type StrategyResolution struct {
	Exchange   models.Exchange `json:"exchange"`
	StrategyID string          `json:"strategy_id"`
	Enabled    bool            `json:"enabled"`
	Source     string          `json:"source"`
}

// StrategyService resolves which strategy runs for a user on an
// exchange and whether that exchange is enabled at all.
type StrategyService struct {
	repo     *repository.StrategyAssignmentRepository
	userRepo *repository.UserRepository
	audit    *AuditService
}

// NewStrategyService creates a new StrategyService
func NewStrategyService(repo *repository.StrategyAssignmentRepository, userRepo *repository.UserRepository, audit *AuditService) *StrategyService {
	return &StrategyService{
		repo:     repo,
		userRepo: userRepo,
		audit:    audit,
	}
}

// Resolve returns the active strategy for (user, exchange). Absence of
// an assignment row falls back to SWING_V1 enabled.
func (s *StrategyService) Resolve(userID string, exchange models.Exchange) (*StrategyResolution, error) {
	row, err := s.repo.Get(userID, exchange)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return &StrategyResolution{
			Exchange:   exchange,
			StrategyID: models.StrategySwingV1,
			Enabled:    true,
			Source:     "default",
		}, nil
	}
	return &StrategyResolution{
		Exchange:   row.Exchange,
		StrategyID: row.StrategyID,
		Enabled:    row.Enabled,
		Source:     "assignment",
	}, nil
}

// IsEnabled reports whether trading on the exchange is enabled for the user
func (s *StrategyService) IsEnabled(userID string, exchange models.Exchange) (bool, error) {
	resolution, err := s.Resolve(userID, exchange)
	if err != nil {
		return false, err
	}
	return resolution.Enabled, nil
}

// AssertEnabled blocks with a FORBIDDEN-class error and an audit entry
// when the exchange is disabled for the user
func (s *StrategyService) AssertEnabled(userID string, exchange models.Exchange) error {
	enabled, err := s.IsEnabled(userID, exchange)
	if err != nil {
		return err
	}
	if enabled {
		return nil
	}
	if err := s.audit.Record(nil, "execution.blocked.exchange_disabled", userID, "execution", "", map[string]interface{}{
		"exchange": exchange,
	}); err != nil {
		warnf("audit exchange_disabled block: %v", err)
	}
	return &RiskBlockError{
		Action:    "execution.blocked.exchange_disabled",
		Reason:    "exchange " + string(exchange) + " is disabled for this user",
		Forbidden: true,
	}
}

// AssignRequest is the admin strategy assignment request
type AssignRequest struct {
	UserEmail  string `json:"user_email" binding:"required,email"`
	Exchange   string `json:"exchange" binding:"required"`
	StrategyID string `json:"strategy_id" binding:"required"`
	Enabled    *bool  `json:"enabled" binding:"required"`
}

// AssignmentView is an assignment row joined with the owner's email
type AssignmentView struct {
	UserID     string          `json:"user_id"`
	UserEmail  string          `json:"user_email"`
	Exchange   models.Exchange `json:"exchange"`
	StrategyID string          `json:"strategy_id"`
	Enabled    bool            `json:"enabled"`
}

// Assign upserts the assignment for (user, exchange) and audits the change
func (s *StrategyService) Assign(actor *models.User, req *AssignRequest) (*AssignmentView, error) {
	exchange, ok := models.ParseExchange(req.Exchange)
	if !ok {
		return nil, models.ErrUnknownExchange
	}
	if !models.KnownStrategy(req.StrategyID) {
		return nil, ErrUnknownStrategy
	}

	user, err := s.userRepo.GetByEmail(req.UserEmail)
	if err != nil {
		return nil, err
	}

	assignment := &models.StrategyAssignment{
		UserID:     user.ID,
		Exchange:   exchange,
		StrategyID: req.StrategyID,
		Enabled:    *req.Enabled,
	}
	if err := s.repo.Upsert(assignment); err != nil {
		return nil, err
	}

	if err := s.audit.Record(nil, "strategy.assignment.updated", actor.ID, "strategy_assignment", assignment.ID, map[string]interface{}{
		"target_user_id":    user.ID,
		"target_user_email": user.Email,
		"exchange":          exchange,
		"strategy_id":       req.StrategyID,
		"enabled":           *req.Enabled,
	}); err != nil {
		return nil, err
	}

	return &AssignmentView{
		UserID:     user.ID,
		UserEmail:  user.Email,
		Exchange:   exchange,
		StrategyID: req.StrategyID,
		Enabled:    *req.Enabled,
	}, nil
}

// ListAssignments returns every assignment row with the owner's email
func (s *StrategyService) ListAssignments() ([]AssignmentView, error) {
	rows, err := s.repo.ListAll()
	if err != nil {
		return nil, err
	}
	views := make([]AssignmentView, 0, len(rows))
	for _, row := range rows {
		email := ""
		if user, err := s.userRepo.GetByID(row.UserID); err == nil {
			email = user.Email
		}
		views = append(views, AssignmentView{
			UserID:     row.UserID,
			UserEmail:  email,
			Exchange:   row.Exchange,
			StrategyID: row.StrategyID,
			Enabled:    row.Enabled,
		})
	}
	return views, nil
}

// ResolveAll returns the caller's resolution for every supported exchange
func (s *StrategyService) ResolveAll(userID string) ([]StrategyResolution, error) {
	out := make([]StrategyResolution, 0, len(models.AllExchanges))
	for _, exchange := range models.AllExchanges {
		resolution, err := s.Resolve(userID, exchange)
		if err != nil {
			return nil, err
		}
		out = append(out, *resolution)
	}
	return out, nil
}
