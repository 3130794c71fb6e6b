package repository

import (
	"time"

	"github.com/riskgate/internal/models"
	"gorm.io/gorm"
)

// AuditRepository handles audit log data access
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *AuditRepository) WithTx(tx *gorm.DB) *AuditRepository {
	return &AuditRepository{db: tx}
}

// Create appends an audit entry
func (r *AuditRepository) Create(entry *models.AuditLog) error {
	return r.db.Create(entry).Error
}

// GetByUserIDPaginated retrieves a user's audit entries with pagination, newest first
func (r *AuditRepository) GetByUserIDPaginated(userID string, page, pageSize int) ([]models.AuditLog, int64, error) {
	var entries []models.AuditLog
	var total int64

	if err := r.db.Model(&models.AuditLog{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	result := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&entries)

	return entries, total, result.Error
}

// GetAllPaginated retrieves audit entries with pagination, newest first,
// optionally filtered by an action prefix
func (r *AuditRepository) GetAllPaginated(actionPrefix string, page, pageSize int) ([]models.AuditLog, int64, error) {
	var entries []models.AuditLog
	var total int64

	q := r.db.Model(&models.AuditLog{})
	if actionPrefix != "" {
		q = q.Where("action LIKE ?", actionPrefix+"%")
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	listQ := r.db.Model(&models.AuditLog{})
	if actionPrefix != "" {
		listQ = listQ.Where("action LIKE ?", actionPrefix+"%")
	}
	result := listQ.Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&entries)

	return entries, total, result.Error
}

// CountBlockedSince counts risk-block entries for a user at or after the given time
func (r *AuditRepository) CountBlockedSince(userID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.AuditLog{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Where("action LIKE ? OR action LIKE ?", "position.open.blocked.%", "execution.blocked.%").
		Count(&count).Error
	return count, err
}
