package repository

import (
	"errors"

	"github.com/riskgate/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSecretNotFound = errors.New("exchange secret not found")
)

// ExchangeSecretRepository handles exchange credential data access
type ExchangeSecretRepository struct {
	db *gorm.DB
}

// NewExchangeSecretRepository creates a new ExchangeSecretRepository
func NewExchangeSecretRepository(db *gorm.DB) *ExchangeSecretRepository {
	return &ExchangeSecretRepository{db: db}
}

// Get retrieves the secret row for one user and exchange
func (r *ExchangeSecretRepository) Get(userID string, exchange models.Exchange) (*models.ExchangeSecret, error) {
	var secret models.ExchangeSecret
	result := r.db.First(&secret, "user_id = ? AND exchange = ?", userID, exchange)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSecretNotFound
		}
		return nil, result.Error
	}
	return &secret, nil
}

// Exists checks whether a user configured credentials for an exchange
func (r *ExchangeSecretRepository) Exists(userID string, exchange models.Exchange) (bool, error) {
	var count int64
	err := r.db.Model(&models.ExchangeSecret{}).
		Where("user_id = ? AND exchange = ?", userID, exchange).
		Count(&count).Error
	return count > 0, err
}

// Upsert inserts or replaces the credentials for (user, exchange)
func (r *ExchangeSecretRepository) Upsert(secret *models.ExchangeSecret) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "exchange"}},
		DoUpdates: clause.AssignmentColumns([]string{"api_key_encrypted", "api_secret_encrypted", "updated_at"}),
	}).Create(secret).Error
}

// Delete removes the credentials for (user, exchange)
func (r *ExchangeSecretRepository) Delete(userID string, exchange models.Exchange) error {
	result := r.db.Where("user_id = ? AND exchange = ?", userID, exchange).
		Delete(&models.ExchangeSecret{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSecretNotFound
	}
	return nil
}

// ListByUserID retrieves all secret rows for a user
func (r *ExchangeSecretRepository) ListByUserID(userID string) ([]models.ExchangeSecret, error) {
	var secrets []models.ExchangeSecret
	result := r.db.Where("user_id = ?", userID).Order("exchange asc").Find(&secrets)
	return secrets, result.Error
}

// ListAll retrieves every secret row (key rotation)
func (r *ExchangeSecretRepository) ListAll() ([]models.ExchangeSecret, error) {
	var secrets []models.ExchangeSecret
	result := r.db.Find(&secrets)
	return secrets, result.Error
}

// Save persists all fields of a secret row
func (r *ExchangeSecretRepository) Save(secret *models.ExchangeSecret) error {
	return r.db.Save(secret).Error
}
