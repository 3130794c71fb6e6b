package repository

import (
	"errors"
	"time"

	"github.com/riskgate/internal/models"
	"gorm.io/gorm"
)

// IdempotencyRepository handles idempotency key data access
type IdempotencyRepository struct {
	db *gorm.DB
}

// NewIdempotencyRepository creates a new IdempotencyRepository
func NewIdempotencyRepository(db *gorm.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *IdempotencyRepository) WithTx(tx *gorm.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: tx}
}

// Get retrieves the stored record for (user, endpoint, key hash), nil when absent
func (r *IdempotencyRepository) Get(userID, endpoint, keyHash string) (*models.IdempotencyKey, error) {
	var record models.IdempotencyKey
	result := r.db.First(&record, "user_id = ? AND endpoint = ? AND key_hash = ?", userID, endpoint, keyHash)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &record, nil
}

// Create inserts a new idempotency record. Returns gorm's duplicate key
// error when another request won the unique index race.
func (r *IdempotencyRepository) Create(record *models.IdempotencyKey) error {
	return r.db.Create(record).Error
}

// DeleteOlderThan removes records created before the cutoff and reports how many
func (r *IdempotencyRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", cutoff).Delete(&models.IdempotencyKey{})
	return result.RowsAffected, result.Error
}
