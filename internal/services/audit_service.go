package services

import (
	"context"
	"time"

	"boardly/internal/models"

	"gorm.io/gorm"
)

// AuditService writes the append-only audit trail. Implements AuditRecorder.
// Rows are never updated or deleted here; retention is an operator concern.
type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// RecordAudit implements AuditRecorder for the rules engine.
func (s *AuditService) RecordAudit(ctx context.Context, workspaceID, boardID, userID uint, action, detail string) error {
	entry := &models.AuditLog{
		WorkspaceID: workspaceID,
		BoardID:     boardID,
		UserID:      userID,
		Action:      action,
		Detail:      detail,
		CreatedAt:   time.Now(),
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

// RecordEntity writes an audit row with an entity reference.
func (s *AuditService) RecordEntity(ctx context.Context, workspaceID, boardID, userID uint, action, entityType string, entityID uint, detail string) error {
	entry := &models.AuditLog{
		WorkspaceID: workspaceID,
		BoardID:     boardID,
		UserID:      userID,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Detail:      detail,
		CreatedAt:   time.Now(),
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

// ListEntries returns audit rows newest-first.
func (s *AuditService) ListEntries(ctx context.Context, boardID uint, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit)
	if boardID != 0 {
		q = q.Where("board_id = ?", boardID)
	}
	var entries []models.AuditLog
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
