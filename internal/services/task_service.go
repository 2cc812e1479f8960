package services

import (
	"context"
	"fmt"
	"time"

	"boardly/internal/models"

	"gorm.io/gorm"
)

// TaskService manages card checklist tasks. It implements TaskCreator for
// the rules engine; engine-created tasks do not emit events.
type TaskService struct {
	db *gorm.DB

	automation *AutomationService
	hub        *BoardHub
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db}
}

func (s *TaskService) SetAutomationService(automation *AutomationService) {
	s.automation = automation
}

func (s *TaskService) SetBoardHub(hub *BoardHub) {
	s.hub = hub
}

func (s *TaskService) emit(ctx context.Context, evt DomainEvent) {
	if s.hub != nil {
		s.hub.PublishEvent(evt)
	}
	if s.automation != nil {
		s.automation.HandleEvent(ctx, evt)
	}
}

type TaskRequest struct {
	Title    string `json:"title" binding:"required"`
	Position *int   `json:"position"`
}

func (s *TaskService) CreateTask(ctx context.Context, cardID uint, req *TaskRequest) (*models.Task, error) {
	if req == nil || req.Title == "" {
		return nil, fmt.Errorf("task title required")
	}
	var card models.Card
	if err := s.db.WithContext(ctx).First(&card, cardID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("card not found")
		}
		return nil, err
	}
	position := 0
	if req.Position != nil {
		position = *req.Position
	} else {
		var maxPos *int
		s.db.WithContext(ctx).Model(&models.Task{}).
			Where("card_id = ?", cardID).
			Select("MAX(position)").Scan(&maxPos)
		if maxPos != nil {
			position = *maxPos + 1
		}
	}
	task := &models.Task{
		CardID:    cardID,
		Title:     req.Title,
		Position:  position,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, cardID uint) ([]models.Task, error) {
	var tasks []models.Task
	if err := s.db.WithContext(ctx).
		Where("card_id = ?", cardID).
		Order("position ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// CompleteTask marks a task done and emits TASK_COMPLETED, plus
// ALL_TASKS_COMPLETED when it was the card's last open task.
func (s *TaskService) CompleteTask(ctx context.Context, taskID, userID uint) (*models.Task, error) {
	var task models.Task
	if err := s.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("task not found")
		}
		return nil, err
	}
	if task.Completed {
		return &task, nil
	}
	now := time.Now()
	task.Completed = true
	task.CompletedAt = &now
	task.UpdatedAt = now
	if err := s.db.WithContext(ctx).Save(&task).Error; err != nil {
		return nil, err
	}

	var card models.Card
	if err := s.db.WithContext(ctx).First(&card, task.CardID).Error; err != nil {
		return &task, nil
	}
	s.emit(ctx, DomainEvent{
		Type:    TriggerTaskCompleted,
		BoardID: card.BoardID,
		CardID:  card.ID,
		ListID:  card.ListID,
		UserID:  userID,
		TaskID:  task.ID,
	})

	var remaining int64
	if err := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("card_id = ? AND completed = ?", task.CardID, false).
		Count(&remaining).Error; err == nil && remaining == 0 {
		s.emit(ctx, DomainEvent{
			Type:    TriggerAllTasksCompleted,
			BoardID: card.BoardID,
			CardID:  card.ID,
			ListID:  card.ListID,
			UserID:  userID,
		})
	}
	return &task, nil
}

func (s *TaskService) ReopenTask(ctx context.Context, taskID uint) (*models.Task, error) {
	var task models.Task
	if err := s.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("task not found")
		}
		return nil, err
	}
	task.Completed = false
	task.CompletedAt = nil
	task.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, taskID uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Task{}, taskID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("task not found")
	}
	return nil
}

// CreateCardTasks implements TaskCreator for the rules engine.
func (s *TaskService) CreateCardTasks(ctx context.Context, cardID uint, titles []string) error {
	if cardID == 0 {
		return fmt.Errorf("card required")
	}
	var card models.Card
	if err := s.db.WithContext(ctx).First(&card, cardID).Error; err != nil {
		return fmt.Errorf("card %d: %w", cardID, err)
	}
	var maxPos *int
	s.db.WithContext(ctx).Model(&models.Task{}).
		Where("card_id = ?", cardID).
		Select("MAX(position)").Scan(&maxPos)
	position := 0
	if maxPos != nil {
		position = *maxPos + 1
	}
	for i, title := range titles {
		task := &models.Task{
			CardID:    cardID,
			Title:     title,
			Position:  position + i,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
			return err
		}
	}
	return nil
}
