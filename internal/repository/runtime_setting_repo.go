package repository

import (
	"errors"
	"time"

	"github.com/riskgate/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RuntimeSettingRepository handles runtime setting data access
type RuntimeSettingRepository struct {
	db *gorm.DB
}

// NewRuntimeSettingRepository creates a new RuntimeSettingRepository
func NewRuntimeSettingRepository(db *gorm.DB) *RuntimeSettingRepository {
	return &RuntimeSettingRepository{db: db}
}

// GetBool retrieves a boolean setting, nil when the row or value is absent
func (r *RuntimeSettingRepository) GetBool(key string) (*bool, error) {
	var setting models.RuntimeSetting
	result := r.db.First(&setting, "key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return setting.BoolValue, nil
}

// SetBool inserts or updates a boolean setting
func (r *RuntimeSettingRepository) SetBool(key string, value bool) error {
	setting := &models.RuntimeSetting{
		Key:       key,
		BoolValue: &value,
		UpdatedAt: time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"bool_value", "updated_at"}),
	}).Create(setting).Error
}
