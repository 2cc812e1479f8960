package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"boardly/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CommentService manages card comments and resolves @mentions.
type CommentService struct {
	db     *gorm.DB
	logger *logrus.Logger

	automation *AutomationService
	hub        *BoardHub
}

func NewCommentService(db *gorm.DB, logger *logrus.Logger) *CommentService {
	if logger == nil {
		logger = logrus.New()
	}
	return &CommentService{db: db, logger: logger}
}

func (s *CommentService) SetAutomationService(automation *AutomationService) {
	s.automation = automation
}

func (s *CommentService) SetBoardHub(hub *BoardHub) {
	s.hub = hub
}

func (s *CommentService) emit(ctx context.Context, evt DomainEvent) {
	if s.hub != nil {
		s.hub.PublishEvent(evt)
	}
	if s.automation != nil {
		s.automation.HandleEvent(ctx, evt)
	}
}

type CommentRequest struct {
	Body string `json:"body" binding:"required"`
}

// CreateComment stores the comment, emits COMMENT_ADDED, and emits one
// USER_MENTIONED event per distinct @username resolved against users.
func (s *CommentService) CreateComment(ctx context.Context, cardID, userID uint, req *CommentRequest) (*models.Comment, error) {
	if req == nil || strings.TrimSpace(req.Body) == "" {
		return nil, fmt.Errorf("comment body required")
	}
	var card models.Card
	if err := s.db.WithContext(ctx).First(&card, cardID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("card not found")
		}
		return nil, err
	}
	comment := &models.Comment{
		CardID:    cardID,
		UserID:    userID,
		Body:      req.Body,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, err
	}

	s.emit(ctx, DomainEvent{
		Type:      TriggerCommentAdded,
		BoardID:   card.BoardID,
		CardID:    card.ID,
		ListID:    card.ListID,
		UserID:    userID,
		CommentID: comment.ID,
	})

	for _, username := range parseMentions(req.Body) {
		var mentioned models.User
		if err := s.db.WithContext(ctx).
			Where("username = ?", username).
			First(&mentioned).Error; err != nil {
			continue
		}
		s.emit(ctx, DomainEvent{
			Type:            TriggerUserMentioned,
			BoardID:         card.BoardID,
			CardID:          card.ID,
			ListID:          card.ListID,
			UserID:          userID,
			MentionedUserID: mentioned.ID,
			CommentID:       comment.ID,
		})
	}
	return comment, nil
}

func (s *CommentService) ListComments(ctx context.Context, cardID uint) ([]models.Comment, error) {
	var comments []models.Comment
	if err := s.db.WithContext(ctx).
		Where("card_id = ?", cardID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *CommentService) DeleteComment(ctx context.Context, commentID uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Comment{}, commentID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("comment not found")
	}
	return nil
}

// parseMentions extracts distinct @username tokens from a comment body.
// Usernames are word characters plus dot, dash and underscore.
func parseMentions(body string) []string {
	var mentions []string
	seen := map[string]struct{}{}
	for i := 0; i < len(body); i++ {
		if body[i] != '@' {
			continue
		}
		j := i + 1
		for j < len(body) && isUsernameChar(body[j]) {
			j++
		}
		if j > i+1 {
			name := strings.ToLower(body[i+1 : j])
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				mentions = append(mentions, name)
			}
		}
		i = j - 1
	}
	return mentions
}

func isUsernameChar(c byte) bool {
	return c == '.' || c == '-' || c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
