package services

import (
	"context"
	"fmt"
	"time"

	"boardly/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NotificationService stores in-app notifications and pushes them to the
// board hub. It implements Notifier for the rules engine.
type NotificationService struct {
	db     *gorm.DB
	logger *logrus.Logger
	hub    *BoardHub
}

func NewNotificationService(db *gorm.DB, logger *logrus.Logger) *NotificationService {
	if logger == nil {
		logger = logrus.New()
	}
	return &NotificationService{db: db, logger: logger}
}

func (s *NotificationService) SetBoardHub(hub *BoardHub) {
	s.hub = hub
}

// Notify implements Notifier.
func (s *NotificationService) Notify(ctx context.Context, userID uint, message string, cardID uint) error {
	if userID == 0 {
		return fmt.Errorf("user required")
	}
	notification := &models.Notification{
		UserID:    userID,
		Type:      "automation",
		Message:   message,
		CreatedAt: time.Now(),
	}
	if cardID != 0 {
		notification.CardID = &cardID
	}
	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return err
	}
	if s.hub != nil {
		s.hub.PublishNotification(userID, notification)
	}
	return nil
}

// NotifyUser stores a non-automation notification (mention, assignment, info).
func (s *NotificationService) NotifyUser(ctx context.Context, userID uint, kind, message string, cardID *uint) error {
	notification := &models.Notification{
		UserID:    userID,
		CardID:    cardID,
		Type:      kind,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return err
	}
	if s.hub != nil {
		s.hub.PublishNotification(userID, notification)
	}
	return nil
}

func (s *NotificationService) ListNotifications(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	var notifications []models.Notification
	if err := q.Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uint) error {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true).Error
}
