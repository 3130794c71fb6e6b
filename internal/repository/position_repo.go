package repository

import (
	"errors"
	"time"

	"github.com/riskgate/internal/models"
	"gorm.io/gorm"
)

var (
	ErrPositionNotFound = errors.New("position not found")
)

// PositionRepository handles position data access
type PositionRepository struct {
	db *gorm.DB
}

// NewPositionRepository creates a new PositionRepository
func NewPositionRepository(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *PositionRepository) WithTx(tx *gorm.DB) *PositionRepository {
	return &PositionRepository{db: tx}
}

// Create creates a new position
func (r *PositionRepository) Create(position *models.Position) error {
	return r.db.Create(position).Error
}

// GetByID retrieves a position by ID
func (r *PositionRepository) GetByID(id string) (*models.Position, error) {
	var position models.Position
	result := r.db.First(&position, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPositionNotFound
		}
		return nil, result.Error
	}
	return &position, nil
}

// GetByUserID retrieves a user's positions, newest first
func (r *PositionRepository) GetByUserID(userID string, limit int) ([]models.Position, error) {
	var positions []models.Position
	q := r.db.Where("user_id = ?", userID).Order("opened_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	result := q.Find(&positions)
	return positions, result.Error
}

// GetOpenByUserID retrieves a user's open positions
func (r *PositionRepository) GetOpenByUserID(userID string) ([]models.Position, error) {
	var positions []models.Position
	result := r.db.Where("user_id = ? AND status = ?", userID, models.PositionStatusOpen).
		Find(&positions)
	return positions, result.Error
}

// CountOpenByUserID counts a user's open positions
func (r *PositionRepository) CountOpenByUserID(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Position{}).
		Where("user_id = ? AND status = ?", userID, models.PositionStatusOpen).
		Count(&count).Error
	return count, err
}

// OpenQtyForSymbol sums the open quantity a user holds in one symbol
func (r *PositionRepository) OpenQtyForSymbol(userID, symbol string) (float64, error) {
	var total struct {
		Sum float64
	}
	err := r.db.Model(&models.Position{}).
		Select("COALESCE(SUM(qty), 0) as sum").
		Where("user_id = ? AND symbol = ? AND status = ?", userID, symbol, models.PositionStatusOpen).
		Scan(&total).Error
	return total.Sum, err
}

// OpenNotionalForExchange sums entry notional of a user's open positions on one exchange
func (r *PositionRepository) OpenNotionalForExchange(userID string, exchange models.Exchange) (float64, error) {
	var total struct {
		Sum float64
	}
	err := r.db.Model(&models.Position{}).
		Select("COALESCE(SUM(qty * entry_price), 0) as sum").
		Where("user_id = ? AND exchange = ? AND status = ?", userID, exchange, models.PositionStatusOpen).
		Scan(&total).Error
	return total.Sum, err
}

// LastActivityAt returns the most recent open-or-close timestamp across a
// user's positions. Returns nil when the user has never traded.
func (r *PositionRepository) LastActivityAt(userID string) (*time.Time, error) {
	var positions []models.Position
	if err := r.db.Select("opened_at", "closed_at").
		Where("user_id = ?", userID).
		Find(&positions).Error; err != nil {
		return nil, err
	}
	var last *time.Time
	for i := range positions {
		t := positions[i].OpenedAt
		if positions[i].ClosedAt != nil {
			t = *positions[i].ClosedAt
		}
		if last == nil || t.After(*last) {
			c := t
			last = &c
		}
	}
	return last, nil
}

// CountClosedSince counts a user's positions closed at or after the given time
func (r *PositionRepository) CountClosedSince(userID string, t time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Position{}).
		Where("user_id = ? AND status = ? AND closed_at >= ?", userID, models.PositionStatusClosed, t).
		Count(&count).Error
	return count, err
}

// Save persists all fields of a position
func (r *PositionRepository) Save(position *models.Position) error {
	return r.db.Save(position).Error
}
