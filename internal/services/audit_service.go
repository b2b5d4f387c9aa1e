package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"spendwise/internal/logger"
	"spendwise/internal/models"
	"spendwise/internal/uuid"
)

// auditService records successful wallet, expense and budget writes.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event after the write it describes has committed.
// Failures are logged and swallowed; the write itself already succeeded.
func (s *auditService) Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{}) {
	if !uuid.IsValid(userID) {
		logger.Get().Warnw("skipping audit entry without owner", "action", action, "resource_id", resourceID)
		return
	}

	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		IPAddress:    ipAddress,
		Changes:      encodeChanges(action, changes),
	}
	if uuid.IsValid(resourceID) {
		entry.ResourceID = &resourceID
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Warnw("failed to create audit log entry",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}

func encodeChanges(action string, changes map[string]interface{}) string {
	if len(changes) == 0 {
		return ""
	}
	data, err := json.Marshal(changes)
	if err != nil {
		logger.Get().Warnw("failed to marshal audit log changes", "error", err, "action", action)
		return "{}"
	}
	return string(data)
}
