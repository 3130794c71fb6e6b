package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog records one business event. Details holds a JSON object.
type AuditLog struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Action     string    `gorm:"size:100;not null;index" json:"action"`
	UserID     *string   `gorm:"size:36;index" json:"user_id,omitempty"`
	EntityType *string   `gorm:"size:50" json:"entity_type,omitempty"`
	EntityID   *string   `gorm:"size:36" json:"entity_id,omitempty"`
	Details    string    `gorm:"type:text" json:"details"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// BeforeCreate assigns a UUID primary key
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
