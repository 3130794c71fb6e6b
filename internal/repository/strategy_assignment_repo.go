package repository

import (
	"errors"

	"github.com/riskgate/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StrategyAssignmentRepository handles strategy assignment data access
type StrategyAssignmentRepository struct {
	db *gorm.DB
}

// NewStrategyAssignmentRepository creates a new StrategyAssignmentRepository
func NewStrategyAssignmentRepository(db *gorm.DB) *StrategyAssignmentRepository {
	return &StrategyAssignmentRepository{db: db}
}

// Get retrieves the assignment for one user and exchange, nil when absent
func (r *StrategyAssignmentRepository) Get(userID string, exchange models.Exchange) (*models.StrategyAssignment, error) {
	var assignment models.StrategyAssignment
	result := r.db.First(&assignment, "user_id = ? AND exchange = ?", userID, exchange)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &assignment, nil
}

// Upsert inserts or updates the assignment for (user, exchange)
func (r *StrategyAssignmentRepository) Upsert(assignment *models.StrategyAssignment) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "exchange"}},
		DoUpdates: clause.AssignmentColumns([]string{"strategy_id", "enabled", "updated_at"}),
	}).Create(assignment).Error
}

// ListByUserID retrieves all assignments for a user
func (r *StrategyAssignmentRepository) ListByUserID(userID string) ([]models.StrategyAssignment, error) {
	var assignments []models.StrategyAssignment
	result := r.db.Where("user_id = ?", userID).Order("exchange asc").Find(&assignments)
	return assignments, result.Error
}

// ListAll retrieves every assignment row
func (r *StrategyAssignmentRepository) ListAll() ([]models.StrategyAssignment, error) {
	var assignments []models.StrategyAssignment
	result := r.db.Order("user_id asc, exchange asc").Find(&assignments)
	return assignments, result.Error
}
