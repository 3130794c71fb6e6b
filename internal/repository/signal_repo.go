package repository

import (
	"errors"

	"github.com/riskgate/internal/models"
	"gorm.io/gorm"
)

var (
	ErrSignalNotFound = errors.New("signal not found")
)

// SignalRepository handles signal data access
type SignalRepository struct {
	db *gorm.DB
}

// NewSignalRepository creates a new SignalRepository
func NewSignalRepository(db *gorm.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *SignalRepository) WithTx(tx *gorm.DB) *SignalRepository {
	return &SignalRepository{db: tx}
}

// Create creates a new signal
func (r *SignalRepository) Create(signal *models.Signal) error {
	return r.db.Create(signal).Error
}

// GetByID retrieves a signal by ID
func (r *SignalRepository) GetByID(id string) (*models.Signal, error) {
	var signal models.Signal
	result := r.db.First(&signal, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSignalNotFound
		}
		return nil, result.Error
	}
	return &signal, nil
}

// GetByUserID retrieves a user's signals, newest first
func (r *SignalRepository) GetByUserID(userID string, limit int) ([]models.Signal, error) {
	var signals []models.Signal
	q := r.db.Where("user_id = ?", userID).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	result := q.Find(&signals)
	return signals, result.Error
}

// GetCreatedByUserID retrieves a user's signals still in CREATED state, oldest first
func (r *SignalRepository) GetCreatedByUserID(userID string, limit int) ([]models.Signal, error) {
	var signals []models.Signal
	q := r.db.Where("user_id = ? AND status = ?", userID, models.SignalStatusCreated).
		Order("created_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	result := q.Find(&signals)
	return signals, result.Error
}

// UpdateStatus moves a signal to a new status
func (r *SignalRepository) UpdateStatus(id string, status models.SignalStatus) error {
	return r.db.Model(&models.Signal{}).Where("id = ?", id).Update("status", status).Error
}

// Save persists all fields of a signal
func (r *SignalRepository) Save(signal *models.Signal) error {
	return r.db.Save(signal).Error
}
