package services

import (
	"context"
	"fmt"
	"time"

	"boardly/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CardService manages cards and is the main emitter of domain events.
// It also implements CardMutator for the rules engine; mutator methods do
// not re-emit events, so an automation's own effects never re-enter the
// evaluator.
type CardService struct {
	db     *gorm.DB
	logger *logrus.Logger

	automation *AutomationService
	hub        *BoardHub
}

func NewCardService(db *gorm.DB, logger *logrus.Logger) *CardService {
	if logger == nil {
		logger = logrus.New()
	}
	return &CardService{db: db, logger: logger}
}

// SetAutomationService injects the rules engine for event evaluation.
func (s *CardService) SetAutomationService(automation *AutomationService) {
	s.automation = automation
}

// SetBoardHub injects the websocket hub for live board updates.
func (s *CardService) SetBoardHub(hub *BoardHub) {
	s.hub = hub
}

// emit forwards a domain event to the evaluator and the board hub. Each
// event is evaluated to completion before emit returns.
func (s *CardService) emit(ctx context.Context, evt DomainEvent) {
	if s.hub != nil {
		s.hub.PublishEvent(evt)
	}
	if s.automation != nil {
		s.automation.HandleEvent(ctx, evt)
	}
}

type CardRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	ListID      uint       `json:"list_id" binding:"required"`
	Priority    string     `json:"priority"`
	AssigneeID  *uint      `json:"assignee_id"`
	DueDate     *time.Time `json:"due_date"`
}

func (s *CardService) CreateCard(ctx context.Context, userID uint, req *CardRequest) (*models.Card, error) {
	if req == nil || req.Title == "" {
		return nil, fmt.Errorf("card title required")
	}
	var list models.List
	if err := s.db.WithContext(ctx).First(&list, req.ListID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("list not found")
		}
		return nil, err
	}
	priority := req.Priority
	if priority == "" {
		priority = "normal"
	}
	var maxPos *int
	s.db.WithContext(ctx).Model(&models.Card{}).
		Where("list_id = ?", req.ListID).
		Select("MAX(position)").Scan(&maxPos)
	position := 0
	if maxPos != nil {
		position = *maxPos + 1
	}
	card := &models.Card{
		BoardID:     list.BoardID,
		ListID:      req.ListID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		Position:    position,
		AssigneeID:  req.AssigneeID,
		CreatedByID: userID,
		DueDate:     req.DueDate,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(card).Error; err != nil {
		return nil, err
	}

	s.emit(ctx, DomainEvent{
		Type:    TriggerCardCreated,
		BoardID: card.BoardID,
		CardID:  card.ID,
		ListID:  card.ListID,
		UserID:  userID,
	})
	if card.AssigneeID != nil {
		s.emit(ctx, DomainEvent{
			Type:           TriggerCardAssigned,
			BoardID:        card.BoardID,
			CardID:         card.ID,
			ListID:         card.ListID,
			UserID:         userID,
			AssignedUserID: *card.AssigneeID,
		})
	}
	return card, nil
}

func (s *CardService) GetCard(ctx context.Context, id uint) (*models.Card, error) {
	var card models.Card
	err := s.db.WithContext(ctx).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Preload("Comments").
		Preload("Attachments").
		Preload("Tags").
		First(&card, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("card not found")
		}
		return nil, err
	}
	return &card, nil
}

func (s *CardService) ListCards(ctx context.Context, boardID, listID uint) ([]models.Card, error) {
	var cards []models.Card
	q := s.db.WithContext(ctx).Order("position ASC, id ASC")
	if boardID != 0 {
		q = q.Where("board_id = ?", boardID)
	}
	if listID != 0 {
		q = q.Where("list_id = ?", listID)
	}
	if err := q.Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

type CardUpdateRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

func (s *CardService) UpdateCard(ctx context.Context, id, userID uint, req *CardUpdateRequest) (*models.Card, error) {
	var card models.Card
	if err := s.db.WithContext(ctx).First(&card, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("card not found")
		}
		return nil, err
	}
	if req.Title != nil && *req.Title != "" {
		card.Title = *req.Title
	}
	if req.Description != nil {
		card.Description = *req.Description
	}
	if req.Status != nil && *req.Status != "" {
		card.Status = *req.Status
		if *req.Status == "done" {
			now := time.Now()
			card.CompletedAt = &now
		}
	}
	if req.Priority != nil && *req.Priority != "" {
		card.Priority = *req.Priority
	}
	if req.DueDate != nil {
		card.DueDate = req.DueDate
	}
	card.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&card).Error; err != nil {
		return nil, err
	}

	s.emit(ctx, DomainEvent{
		Type:    TriggerCardUpdated,
		BoardID: card.BoardID,
		CardID:  card.ID,
		ListID:  card.ListID,
		UserID:  userID,
	})
	return &card, nil
}

type CardMoveRequest struct {
	DestinationListID uint `json:"destination_list_id" binding:"required"`
	Position          *int `json:"position"`
}

// MoveCard moves a card between lists on the same board and emits CARD_MOVED.
func (s *CardService) MoveCard(ctx context.Context, id, userID uint, req *CardMoveRequest) (*models.Card, error) {
	var card models.Card
	if err := s.db.WithContext(ctx).First(&card, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("card not found")
		}
		return nil, err
	}
	var dest models.List
	if err := s.db.WithContext(ctx).First(&dest, req.DestinationListID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("destination list not found")
		}
		return nil, err
	}
	if dest.BoardID != card.BoardID {
		return nil, fmt.Errorf("destination list belongs to another board")
	}

	sourceListID := card.ListID
	card.ListID = dest.ID
	if req.Position != nil {
		card.Position = *req.Position
	}
	card.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&card).Error; err != nil {
		return nil, err
	}

	s.emit(ctx, DomainEvent{
		Type:         TriggerCardMoved,
		BoardID:      card.BoardID,
		CardID:       card.ID,
		ListID:       card.ListID,
		SourceListID: sourceListID,
		DestListID:   dest.ID,
		UserID:       userID,
	})
	return &card, nil
}

// AssignCardTo sets the assignee and emits CARD_ASSIGNED.
func (s *CardService) AssignCardTo(ctx context.Context, id, userID, assigneeID uint) (*models.Card, error) {
	var card models.Card
	if err := s.db.WithContext(ctx).First(&card, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("card not found")
		}
		return nil, err
	}
	card.AssigneeID = &assigneeID
	card.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&card).Error; err != nil {
		return nil, err
	}
	s.emit(ctx, DomainEvent{
		Type:           TriggerCardAssigned,
		BoardID:        card.BoardID,
		CardID:         card.ID,
		ListID:         card.ListID,
		UserID:         userID,
		AssignedUserID: assigneeID,
	})
	return &card, nil
}

func (s *CardService) DeleteCard(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Card{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("card not found")
	}
	return nil
}

// CardMutator implementation. These are the quiet mutations the rules
// engine dispatches to; they deliberately skip event emission.

func (s *CardService) SetCardStatus(ctx context.Context, cardID uint, status string) error {
	return s.quietUpdate(ctx, cardID, map[string]interface{}{"status": status})
}

func (s *CardService) SetCardPriority(ctx context.Context, cardID uint, priority string) error {
	return s.quietUpdate(ctx, cardID, map[string]interface{}{"priority": priority})
}

func (s *CardService) AssignCard(ctx context.Context, cardID, userID uint) error {
	return s.quietUpdate(ctx, cardID, map[string]interface{}{"assignee_id": userID})
}

func (s *CardService) AddCardTag(ctx context.Context, cardID, tagID uint) error {
	var card models.Card
	if err := s.db.WithContext(ctx).First(&card, cardID).Error; err != nil {
		return fmt.Errorf("card %d: %w", cardID, err)
	}
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, tagID).Error; err != nil {
		return fmt.Errorf("tag %d: %w", tagID, err)
	}
	if tag.BoardID != card.BoardID {
		return fmt.Errorf("tag %d belongs to another board", tagID)
	}
	return s.db.WithContext(ctx).Model(&card).Association("Tags").Append(&tag)
}

func (s *CardService) RemoveCardTag(ctx context.Context, cardID, tagID uint) error {
	var card models.Card
	if err := s.db.WithContext(ctx).First(&card, cardID).Error; err != nil {
		return fmt.Errorf("card %d: %w", cardID, err)
	}
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, tagID).Error; err != nil {
		return fmt.Errorf("tag %d: %w", tagID, err)
	}
	return s.db.WithContext(ctx).Model(&card).Association("Tags").Delete(&tag)
}

func (s *CardService) quietUpdate(ctx context.Context, cardID uint, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	result := s.db.WithContext(ctx).Model(&models.Card{}).
		Where("id = ?", cardID).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("card %d not found", cardID)
	}
	return nil
}
