package service

import (
	"errors"
	"strings"

	"github.com/riskgate/internal/config"
	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/repository"
)

var (
	ErrUnknownProfile = errors.New("unknown risk profile")
)

// ProfileConservativeV2 is the default policy: small per-trade risk,
// tight daily loss budget, long cooldown.
var ProfileConservativeV2 = models.RiskProfile{
	Name:               "conservative_v2",
	RiskPerTradePct:    0.50,
	MaxDailyLossPct:    1.50,
	MaxTradesPerDay:    3,
	MaxOpenPositions:   2,
	CooldownMinutes:    30,
	MaxLeverage:        1.0,
	RequireStopLoss:    true,
	MinRiskRewardRatio: 1.5,
}

// ProfileRelaxedV1 loosens the daily budget and cadence limits while
// keeping leverage and stop-loss requirements unchanged.
var ProfileRelaxedV1 = models.RiskProfile{
	Name:               "relaxed_v1",
	RiskPerTradePct:    0.75,
	MaxDailyLossPct:    2.00,
	MaxTradesPerDay:    4,
	MaxOpenPositions:   2,
	CooldownMinutes:    20,
	MaxLeverage:        1.0,
	RequireStopLoss:    true,
	MinRiskRewardRatio: 1.3,
}

var profileCatalog = []models.RiskProfile{
	ProfileConservativeV2,
	ProfileRelaxedV1,
}

// ProfileByName looks a profile up in the catalog
func ProfileByName(name string) (models.RiskProfile, bool) {
	for _, p := range profileCatalog {
		if p.Name == name {
			return p, true
		}
	}
	return models.RiskProfile{}, false
}

// ProfileService resolves the risk policy that applies to a user.
// Precedence: per-user override row > configured email mapping > default.
type ProfileService struct {
	overrideRepo *repository.RiskOverrideRepository
	audit        *AuditService
	cfg          config.RiskConfig
}

// NewProfileService creates a new ProfileService
func NewProfileService(overrideRepo *repository.RiskOverrideRepository, audit *AuditService, cfg config.RiskConfig) *ProfileService {
	return &ProfileService{
		overrideRepo: overrideRepo,
		audit:        audit,
		cfg:          cfg,
	}
}

// Catalog returns every profile the platform ships with
func (s *ProfileService) Catalog() []models.RiskProfile {
	out := make([]models.RiskProfile, len(profileCatalog))
	copy(out, profileCatalog)
	return out
}

// Resolve returns the profile governing a user. Unknown or missing
// inputs fall through to the default; there are no business-rule errors.
func (s *ProfileService) Resolve(userID, email string) (models.RiskProfile, error) {
	override, err := s.overrideRepo.Get(userID)
	if err != nil {
		return models.RiskProfile{}, err
	}
	if override != nil {
		if p, ok := ProfileByName(override.ProfileName); ok {
			return p, nil
		}
	}

	target := strings.ToLower(strings.TrimSpace(email))
	if name, ok := s.cfg.ProfileByEmail[target]; ok {
		if p, ok := ProfileByName(name); ok {
			return p, nil
		}
	}

	return s.defaultProfile(), nil
}

func (s *ProfileService) defaultProfile() models.RiskProfile {
	if p, ok := ProfileByName(s.cfg.DefaultProfile); ok {
		return p
	}
	return ProfileConservativeV2
}

// SetOverride pins a user to a named profile. An empty profileName
// clears the override. Every outcome is audited, including no-ops.
func (s *ProfileService) SetOverride(actor *models.User, userID, profileName string) (string, error) {
	if profileName == "" {
		removed, err := s.overrideRepo.Clear(userID)
		if err != nil {
			return "", err
		}
		action := "user.risk_profile.override.cleared"
		if !removed {
			action = "user.risk_profile.override.noop"
		}
		if err := s.audit.Record(nil, action, actor.ID, "user", userID, map[string]interface{}{
			"target_user_id": userID,
		}); err != nil {
			return "", err
		}
		return action, nil
	}

	if _, ok := ProfileByName(profileName); !ok {
		return "", ErrUnknownProfile
	}
	if err := s.overrideRepo.Set(userID, profileName); err != nil {
		return "", err
	}
	action := "user.risk_profile.override.set"
	if err := s.audit.Record(nil, action, actor.ID, "user", userID, map[string]interface{}{
		"target_user_id": userID,
		"profile_name":   profileName,
	}); err != nil {
		return "", err
	}
	return action, nil
}
