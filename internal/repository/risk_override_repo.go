package repository

import (
	"errors"
	"time"

	"github.com/riskgate/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RiskOverrideRepository handles risk profile override data access
type RiskOverrideRepository struct {
	db *gorm.DB
}

// NewRiskOverrideRepository creates a new RiskOverrideRepository
func NewRiskOverrideRepository(db *gorm.DB) *RiskOverrideRepository {
	return &RiskOverrideRepository{db: db}
}

// Get retrieves a user's override, nil when none is set
func (r *RiskOverrideRepository) Get(userID string) (*models.RiskProfileOverride, error) {
	var override models.RiskProfileOverride
	result := r.db.First(&override, "user_id = ?", userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &override, nil
}

// Set inserts or updates a user's override
func (r *RiskOverrideRepository) Set(userID, profileName string) error {
	override := &models.RiskProfileOverride{
		UserID:      userID,
		ProfileName: profileName,
		UpdatedAt:   time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"profile_name", "updated_at"}),
	}).Create(override).Error
}

// Clear removes a user's override. Reports whether a row was removed.
func (r *RiskOverrideRepository) Clear(userID string) (bool, error) {
	result := r.db.Where("user_id = ?", userID).Delete(&models.RiskProfileOverride{})
	return result.RowsAffected > 0, result.Error
}
