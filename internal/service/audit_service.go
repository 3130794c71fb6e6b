package service

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/repository"
	"gorm.io/gorm"
)

// Notifier forwards a short operator-facing message out of band.
// Implementations must never block the caller for long or return errors.
type Notifier interface {
	Notify(text string)
}

// AuditService appends business events to the audit log. Success-path
// events are written inside the caller's transaction; blocked-path events
// use the base handle so they survive the aborted mutation.
type AuditService struct {
	repo     *repository.AuditRepository
	hub      *AuditHub
	notifier Notifier
}

// NewAuditService creates a new AuditService. hub and notifier may be nil.
func NewAuditService(repo *repository.AuditRepository, hub *AuditHub, notifier Notifier) *AuditService {
	return &AuditService{
		repo:     repo,
		hub:      hub,
		notifier: notifier,
	}
}

// Record appends one audit entry. tx may be nil, in which case the entry
// is committed on the base handle immediately. Empty userID/entityType/
// entityID are stored as NULL.
func (s *AuditService) Record(tx *gorm.DB, action, userID, entityType, entityID string, details map[string]interface{}) error {
	detailsJSON := "{}"
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return err
		}
		detailsJSON = string(raw)
	}

	entry := &models.AuditLog{
		Action:  action,
		Details: detailsJSON,
	}
	if userID != "" {
		entry.UserID = &userID
	}
	if entityType != "" {
		entry.EntityType = &entityType
	}
	if entityID != "" {
		entry.EntityID = &entityID
	}

	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	if err := repo.Create(entry); err != nil {
		return err
	}

	if s.hub != nil {
		s.hub.Broadcast(entry)
	}
	s.notifyIfRelevant(entry)

	return nil
}

// notifyIfRelevant pushes operator-facing actions to the notifier.
// Best-effort: failures are logged inside the notifier, never returned.
func (s *AuditService) notifyIfRelevant(entry *models.AuditLog) {
	if s.notifier == nil {
		return
	}
	relevant := strings.HasPrefix(entry.Action, "execution.blocked.") ||
		strings.HasPrefix(entry.Action, "position.open.blocked.") ||
		strings.HasPrefix(entry.Action, "ops.trading_enabled.")
	if !relevant {
		return
	}
	userID := ""
	if entry.UserID != nil {
		userID = *entry.UserID
	}
	go s.notifier.Notify("[riskgate] " + entry.Action + " user=" + userID)
}

// GetByUser retrieves a user's audit entries, newest first
func (s *AuditService) GetByUser(userID string, page, pageSize int) ([]models.AuditLog, int64, error) {
	return s.repo.GetByUserIDPaginated(userID, page, pageSize)
}

// GetAll retrieves audit entries, newest first, optionally filtered by
// an action prefix
func (s *AuditService) GetAll(actionPrefix string, page, pageSize int) ([]models.AuditLog, int64, error) {
	return s.repo.GetAllPaginated(actionPrefix, page, pageSize)
}

// warnf logs a best-effort failure without surfacing it to the caller
func warnf(format string, v ...interface{}) {
	log.Printf("[WARN] "+format, v...)
}
