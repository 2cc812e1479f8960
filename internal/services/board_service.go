package services

import (
	"context"
	"fmt"
	"time"

	"boardly/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// BoardService manages boards and their lists.
type BoardService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewBoardService(db *gorm.DB, logger *logrus.Logger) *BoardService {
	if logger == nil {
		logger = logrus.New()
	}
	return &BoardService{db: db, logger: logger}
}

type BoardRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Color       string `json:"color"`
	WorkspaceID uint   `json:"workspace_id" binding:"required"`
}

func (s *BoardService) CreateBoard(ctx context.Context, userID uint, req *BoardRequest) (*models.Board, error) {
	if req == nil || req.Name == "" {
		return nil, fmt.Errorf("board name required")
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Workspace{}).
		Where("id = ?", req.WorkspaceID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("workspace not found")
	}
	board := &models.Board{
		WorkspaceID: req.WorkspaceID,
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		CreatedByID: userID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(board).Error; err != nil {
			return err
		}
		member := &models.BoardMember{
			BoardID:   board.ID,
			UserID:    userID,
			Role:      "admin",
			CreatedAt: time.Now(),
		}
		return tx.Create(member).Error
	})
	if err != nil {
		return nil, err
	}
	return board, nil
}

func (s *BoardService) GetBoard(ctx context.Context, id uint) (*models.Board, error) {
	var board models.Board
	err := s.db.WithContext(ctx).
		Preload("Lists", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Preload("Tags").
		Preload("Members").
		First(&board, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("board not found")
		}
		return nil, err
	}
	return &board, nil
}

func (s *BoardService) ListBoards(ctx context.Context, workspaceID uint) ([]models.Board, error) {
	var boards []models.Board
	q := s.db.WithContext(ctx).Order("id ASC")
	if workspaceID != 0 {
		q = q.Where("workspace_id = ?", workspaceID)
	}
	if err := q.Find(&boards).Error; err != nil {
		return nil, err
	}
	return boards, nil
}

func (s *BoardService) UpdateBoard(ctx context.Context, id uint, req *BoardRequest) (*models.Board, error) {
	var board models.Board
	if err := s.db.WithContext(ctx).First(&board, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("board not found")
		}
		return nil, err
	}
	if req.Name != "" {
		board.Name = req.Name
	}
	board.Description = req.Description
	if req.Color != "" {
		board.Color = req.Color
	}
	board.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&board).Error; err != nil {
		return nil, err
	}
	return &board, nil
}

func (s *BoardService) DeleteBoard(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Board{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("board not found")
	}
	return nil
}

type ListRequest struct {
	Name     string `json:"name" binding:"required"`
	Position *int   `json:"position"`
}

func (s *BoardService) CreateList(ctx context.Context, boardID uint, req *ListRequest) (*models.List, error) {
	if req == nil || req.Name == "" {
		return nil, fmt.Errorf("list name required")
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Board{}).
		Where("id = ?", boardID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("board not found")
	}
	position := 0
	if req.Position != nil {
		position = *req.Position
	} else {
		// append to the end
		var maxPos *int
		s.db.WithContext(ctx).Model(&models.List{}).
			Where("board_id = ?", boardID).
			Select("MAX(position)").Scan(&maxPos)
		if maxPos != nil {
			position = *maxPos + 1
		}
	}
	list := &models.List{
		BoardID:   boardID,
		Name:      req.Name,
		Position:  position,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (s *BoardService) UpdateList(ctx context.Context, listID uint, req *ListRequest) (*models.List, error) {
	var list models.List
	if err := s.db.WithContext(ctx).First(&list, listID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("list not found")
		}
		return nil, err
	}
	if req.Name != "" {
		list.Name = req.Name
	}
	if req.Position != nil {
		list.Position = *req.Position
	}
	list.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&list).Error; err != nil {
		return nil, err
	}
	return &list, nil
}

func (s *BoardService) DeleteList(ctx context.Context, listID uint) error {
	var cardCount int64
	if err := s.db.WithContext(ctx).Model(&models.Card{}).
		Where("list_id = ?", listID).Count(&cardCount).Error; err != nil {
		return err
	}
	if cardCount > 0 {
		return fmt.Errorf("list has %d cards, move or delete them first", cardCount)
	}
	result := s.db.WithContext(ctx).Delete(&models.List{}, listID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("list not found")
	}
	return nil
}
