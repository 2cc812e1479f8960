package services

import (
	"context"
	"fmt"
	"time"

	"boardly/internal/models"

	"gorm.io/gorm"
)

// DocumentService manages board documents.
type DocumentService struct {
	db *gorm.DB
}

func NewDocumentService(db *gorm.DB) *DocumentService {
	return &DocumentService{db: db}
}

type DocumentRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content"`
}

func (s *DocumentService) CreateDocument(ctx context.Context, boardID, userID uint, req *DocumentRequest) (*models.Document, error) {
	if req == nil || req.Title == "" {
		return nil, fmt.Errorf("document title required")
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Board{}).
		Where("id = ?", boardID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("board not found")
	}
	doc := &models.Document{
		BoardID:     boardID,
		Title:       req.Title,
		Content:     req.Content,
		CreatedByID: userID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) GetDocument(ctx context.Context, id uint) (*models.Document, error) {
	var doc models.Document
	if err := s.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("document not found")
		}
		return nil, err
	}
	return &doc, nil
}

func (s *DocumentService) ListDocuments(ctx context.Context, boardID uint) ([]models.Document, error) {
	var docs []models.Document
	if err := s.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("updated_at DESC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *DocumentService) UpdateDocument(ctx context.Context, id uint, req *DocumentRequest) (*models.Document, error) {
	var doc models.Document
	if err := s.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("document not found")
		}
		return nil, err
	}
	if req.Title != "" {
		doc.Title = req.Title
	}
	doc.Content = req.Content
	doc.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *DocumentService) DeleteDocument(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Document{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("document not found")
	}
	return nil
}
