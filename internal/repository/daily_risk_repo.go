package repository

import (
	"errors"

	"github.com/riskgate/internal/models"
	"gorm.io/gorm"
)

// DailyRiskRepository handles daily risk state data access
type DailyRiskRepository struct {
	db *gorm.DB
}

// NewDailyRiskRepository creates a new DailyRiskRepository
func NewDailyRiskRepository(db *gorm.DB) *DailyRiskRepository {
	return &DailyRiskRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *DailyRiskRepository) WithTx(tx *gorm.DB) *DailyRiskRepository {
	return &DailyRiskRepository{db: tx}
}

// Get retrieves the state row for one user and trading day, nil when absent
func (r *DailyRiskRepository) Get(userID, day string) (*models.DailyRiskState, error) {
	var state models.DailyRiskState
	result := r.db.First(&state, "user_id = ? AND day = ?", userID, day)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &state, nil
}

// Create inserts a new daily state row
func (r *DailyRiskRepository) Create(state *models.DailyRiskState) error {
	return r.db.Create(state).Error
}

// Save persists all fields of a daily state row
func (r *DailyRiskRepository) Save(state *models.DailyRiskState) error {
	return r.db.Save(state).Error
}
