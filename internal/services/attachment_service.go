package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"boardly/internal/config"
	"boardly/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttachmentService stores uploaded card files under uuid-based names and
// records their metadata.
type AttachmentService struct {
	db  *gorm.DB
	cfg config.UploadConfig

	automation *AutomationService
	hub        *BoardHub
}

func NewAttachmentService(db *gorm.DB, cfg config.UploadConfig) *AttachmentService {
	return &AttachmentService{db: db, cfg: cfg}
}

func (s *AttachmentService) SetAutomationService(automation *AutomationService) {
	s.automation = automation
}

func (s *AttachmentService) SetBoardHub(hub *BoardHub) {
	s.hub = hub
}

func (s *AttachmentService) emit(ctx context.Context, evt DomainEvent) {
	if s.hub != nil {
		s.hub.PublishEvent(evt)
	}
	if s.automation != nil {
		s.automation.HandleEvent(ctx, evt)
	}
}

// SaveAttachment validates the file against the upload config, writes it to
// the storage path and emits ATTACHMENT_ADDED.
func (s *AttachmentService) SaveAttachment(ctx context.Context, cardID, userID uint, fileName, mimeType string, size int64, content io.Reader) (*models.Attachment, error) {
	if !s.cfg.Enabled {
		return nil, fmt.Errorf("uploads disabled")
	}
	if size > s.cfg.MaxFileSize {
		return nil, fmt.Errorf("file exceeds max size %d bytes", s.cfg.MaxFileSize)
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if len(s.cfg.AllowedTypes) > 0 && !contains(s.cfg.AllowedTypes, ext) {
		return nil, fmt.Errorf("file type %s not allowed", ext)
	}

	var card models.Card
	if err := s.db.WithContext(ctx).First(&card, cardID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("card not found")
		}
		return nil, err
	}

	storageName := uuid.NewString() + ext
	if err := os.MkdirAll(s.cfg.StoragePath, 0755); err != nil {
		return nil, fmt.Errorf("storage path: %w", err)
	}
	dst, err := os.Create(filepath.Join(s.cfg.StoragePath, storageName))
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, content); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	attachment := &models.Attachment{
		CardID:      cardID,
		UserID:      userID,
		FileName:    fileName,
		StorageName: storageName,
		FileSize:    size,
		MimeType:    mimeType,
		CreatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(attachment).Error; err != nil {
		return nil, err
	}

	s.emit(ctx, DomainEvent{
		Type:    TriggerAttachmentAdded,
		BoardID: card.BoardID,
		CardID:  card.ID,
		ListID:  card.ListID,
		UserID:  userID,
	})
	return attachment, nil
}

func (s *AttachmentService) ListAttachments(ctx context.Context, cardID uint) ([]models.Attachment, error) {
	var attachments []models.Attachment
	if err := s.db.WithContext(ctx).
		Where("card_id = ?", cardID).
		Order("id ASC").
		Find(&attachments).Error; err != nil {
		return nil, err
	}
	return attachments, nil
}

func (s *AttachmentService) DeleteAttachment(ctx context.Context, id uint) error {
	var attachment models.Attachment
	if err := s.db.WithContext(ctx).First(&attachment, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("attachment not found")
		}
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&attachment).Error; err != nil {
		return err
	}
	// best-effort disk cleanup; the row is authoritative
	_ = os.Remove(filepath.Join(s.cfg.StoragePath, attachment.StorageName))
	return nil
}

func contains(hay []string, needle string) bool {
	for _, s := range hay {
		if s == needle {
			return true
		}
	}
	return false
}
