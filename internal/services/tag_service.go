package services

import (
	"context"
	"fmt"
	"time"

	"boardly/internal/models"

	"gorm.io/gorm"
)

// TagService manages board tags.
type TagService struct {
	db *gorm.DB
}

func NewTagService(db *gorm.DB) *TagService {
	return &TagService{db: db}
}

type TagRequest struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color"`
}

func (s *TagService) CreateTag(ctx context.Context, boardID uint, req *TagRequest) (*models.Tag, error) {
	if req == nil || req.Name == "" {
		return nil, fmt.Errorf("tag name required")
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Board{}).
		Where("id = ?", boardID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("board not found")
	}
	tag := &models.Tag{
		BoardID:   boardID,
		Name:      req.Name,
		Color:     req.Color,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(tag).Error; err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *TagService) ListTags(ctx context.Context, boardID uint) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("name ASC").
		Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *TagService) DeleteTag(ctx context.Context, tagID uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Tag{}, tagID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("tag not found")
	}
	return nil
}
