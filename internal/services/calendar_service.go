package services

import (
	"context"
	"fmt"
	"time"

	"boardly/internal/models"

	"gorm.io/gorm"
)

// CalendarService manages calendar events. Implements CalendarScheduler.
type CalendarService struct {
	db *gorm.DB
}

func NewCalendarService(db *gorm.DB) *CalendarService {
	return &CalendarService{db: db}
}

// CreateCalendarEvent implements CalendarScheduler for the rules engine.
func (s *CalendarService) CreateCalendarEvent(ctx context.Context, userID uint, cardID uint, title string, start, end time.Time) error {
	if userID == 0 || title == "" {
		return fmt.Errorf("user and title required")
	}
	if end.Before(start) {
		return fmt.Errorf("end before start")
	}
	event := &models.CalendarEvent{
		UserID:    userID,
		Title:     title,
		StartDate: start,
		EndDate:   end,
		CreatedAt: time.Now(),
	}
	if cardID != 0 {
		event.CardID = &cardID
	}
	return s.db.WithContext(ctx).Create(event).Error
}

type CalendarEventRequest struct {
	Title     string    `json:"title" binding:"required"`
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
	CardID    *uint     `json:"card_id"`
}

func (s *CalendarService) CreateEvent(ctx context.Context, userID uint, req *CalendarEventRequest) (*models.CalendarEvent, error) {
	if req == nil || req.Title == "" {
		return nil, fmt.Errorf("title required")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, fmt.Errorf("end before start")
	}
	event := &models.CalendarEvent{
		UserID:    userID,
		CardID:    req.CardID,
		Title:     req.Title,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

// ListEvents returns a user's events overlapping [from, to].
func (s *CalendarService) ListEvents(ctx context.Context, userID uint, from, to time.Time) ([]models.CalendarEvent, error) {
	var events []models.CalendarEvent
	q := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_date ASC")
	if !from.IsZero() {
		q = q.Where("end_date >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("start_date <= ?", to)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (s *CalendarService) DeleteEvent(ctx context.Context, userID, eventID uint) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", eventID, userID).
		Delete(&models.CalendarEvent{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("event not found")
	}
	return nil
}
