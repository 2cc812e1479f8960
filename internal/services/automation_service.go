package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"boardly/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AutomationService owns rule authoring (CRUD + validation) and the
// execution log. Event evaluation lives in automation_evaluator.go.
type AutomationService struct {
	db     *gorm.DB
	logger *logrus.Logger

	cards    CardMutator
	notifier Notifier
	email    EmailSender
	tasks    TaskCreator
	calendar CalendarScheduler
	audit    AuditRecorder

	actionTimeout time.Duration
}

// SetActionTimeout bounds each action dispatch. Zero keeps the default.
func (s *AutomationService) SetActionTimeout(d time.Duration) {
	s.actionTimeout = d
}

func NewAutomationService(db *gorm.DB, logger *logrus.Logger) *AutomationService {
	if logger == nil {
		logger = logrus.New()
	}
	return &AutomationService{db: db, logger: logger}
}

// Collaborators bundles the external effect APIs actions dispatch to.
type Collaborators struct {
	Cards    CardMutator
	Notifier Notifier
	Email    EmailSender
	Tasks    TaskCreator
	Calendar CalendarScheduler
	Audit    AuditRecorder
}

// SetCollaborators injects the effect APIs. Unset collaborators cause the
// corresponding action types to fail at execution time, not at startup.
func (s *AutomationService) SetCollaborators(c Collaborators) {
	s.cards = c.Cards
	s.notifier = c.Notifier
	s.email = c.Email
	s.tasks = c.Tasks
	s.calendar = c.Calendar
	s.audit = c.Audit
}

// AutomationRequest is the authoring payload for create and update.
type AutomationRequest struct {
	Name              string                 `json:"name" binding:"required"`
	Description       string                 `json:"description"`
	WorkspaceID       uint                   `json:"workspace_id"`
	BoardID           uint                   `json:"board_id" binding:"required"`
	TriggerType       string                 `json:"trigger_type" binding:"required"`
	TriggerConditions map[string]interface{} `json:"trigger_conditions"`
	Actions           []ActionSpec           `json:"actions"`
	Active            *bool                  `json:"active"`
}

// CreateAutomation validates and stores a new rule. Validation failure
// rejects the request; nothing is persisted.
func (s *AutomationService) CreateAutomation(ctx context.Context, userID uint, req *AutomationRequest) (*models.Automation, error) {
	if req == nil {
		return nil, fmt.Errorf("request required")
	}
	if err := ValidateRule(req.Name, req.TriggerType, req.Actions); err != nil {
		return nil, err
	}
	if err := s.validateBoardRefs(ctx, req); err != nil {
		return nil, err
	}

	condJSON, err := json.Marshal(normalizeConditions(req.TriggerType, req.TriggerConditions))
	if err != nil {
		return nil, fmt.Errorf("invalid conditions: %w", err)
	}
	actJSON, err := json.Marshal(req.Actions)
	if err != nil {
		return nil, fmt.Errorf("invalid actions: %w", err)
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	automation := &models.Automation{
		WorkspaceID:       req.WorkspaceID,
		BoardID:           req.BoardID,
		Name:              req.Name,
		Description:       req.Description,
		TriggerType:       req.TriggerType,
		TriggerConditions: string(condJSON),
		Actions:           string(actJSON),
		Active:            active,
		CreatedByID:       userID,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}

	if err := s.db.WithContext(ctx).Create(automation).Error; err != nil {
		return nil, err
	}
	return automation, nil
}

// UpdateAutomation re-validates and replaces the rule's trigger, actions and
// metadata. The creator and board scope are immutable.
func (s *AutomationService) UpdateAutomation(ctx context.Context, id uint, req *AutomationRequest) (*models.Automation, error) {
	if req == nil {
		return nil, fmt.Errorf("request required")
	}
	var automation models.Automation
	if err := s.db.WithContext(ctx).First(&automation, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("automation not found")
		}
		return nil, err
	}

	if req.BoardID == 0 {
		req.BoardID = automation.BoardID
	}
	if req.WorkspaceID == 0 {
		req.WorkspaceID = automation.WorkspaceID
	}
	if err := ValidateRule(req.Name, req.TriggerType, req.Actions); err != nil {
		return nil, err
	}
	if err := s.validateBoardRefs(ctx, req); err != nil {
		return nil, err
	}

	condJSON, err := json.Marshal(normalizeConditions(req.TriggerType, req.TriggerConditions))
	if err != nil {
		return nil, fmt.Errorf("invalid conditions: %w", err)
	}
	actJSON, err := json.Marshal(req.Actions)
	if err != nil {
		return nil, fmt.Errorf("invalid actions: %w", err)
	}

	automation.Name = req.Name
	automation.Description = req.Description
	automation.TriggerType = req.TriggerType
	automation.TriggerConditions = string(condJSON)
	automation.Actions = string(actJSON)
	if req.Active != nil {
		automation.Active = *req.Active
	}
	automation.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(&automation).Error; err != nil {
		return nil, err
	}
	return &automation, nil
}

// SetActive toggles a rule without revalidating its body.
func (s *AutomationService) SetActive(ctx context.Context, id uint, active bool) error {
	result := s.db.WithContext(ctx).Model(&models.Automation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"active": active, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("automation not found")
	}
	return nil
}

func (s *AutomationService) GetAutomation(ctx context.Context, id uint) (*models.Automation, error) {
	var automation models.Automation
	if err := s.db.WithContext(ctx).First(&automation, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("automation not found")
		}
		return nil, err
	}
	return &automation, nil
}

// ListAutomations returns rules for a board, newest first.
func (s *AutomationService) ListAutomations(ctx context.Context, boardID uint) ([]models.Automation, error) {
	var automations []models.Automation
	q := s.db.WithContext(ctx).Order("id DESC")
	if boardID != 0 {
		q = q.Where("board_id = ?", boardID)
	}
	if err := q.Find(&automations).Error; err != nil {
		return nil, err
	}
	return automations, nil
}

// DeleteAutomation hard-deletes a rule. Execution records are retained.
func (s *AutomationService) DeleteAutomation(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Automation{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("automation not found")
	}
	return nil
}

// ListExecutions returns execution records newest-first, optionally filtered
// by automation and limited.
func (s *AutomationService) ListExecutions(ctx context.Context, boardID, automationID uint, limit int) ([]models.AutomationExecution, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit)
	if boardID != 0 {
		q = q.Where("board_id = ?", boardID)
	}
	if automationID != 0 {
		q = q.Where("automation_id = ?", automationID)
	}
	var records []models.AutomationExecution
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// validateBoardRefs checks that list/tag ids referenced by conditions and
// configs belong to the rule's board. Authoring-time only; the evaluator
// trusts stored rules.
func (s *AutomationService) validateBoardRefs(ctx context.Context, req *AutomationRequest) error {
	checkList := func(raw interface{}) error {
		id, ok := toUint(raw)
		if !ok || id == 0 {
			return nil
		}
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.List{}).
			Where("id = ? AND board_id = ?", id, req.BoardID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("list %d does not belong to board %d", id, req.BoardID)
		}
		return nil
	}

	for _, key := range []string{"listId", "sourceListId", "destinationListId"} {
		if v, ok := req.TriggerConditions[key]; ok {
			if err := checkList(v); err != nil {
				return err
			}
		}
	}

	for i, act := range req.Actions {
		switch act.Type {
		case ActionAddTag:
			id, ok := toUint(act.Config["tagId"])
			if !ok || id == 0 {
				continue
			}
			var count int64
			if err := s.db.WithContext(ctx).Model(&models.Tag{}).
				Where("id = ? AND board_id = ?", id, req.BoardID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("action %d: tag %d does not belong to board %d", i, id, req.BoardID)
			}
		case ActionMoveCard:
			if err := checkList(act.Config["destinationListId"]); err != nil {
				return err
			}
		}
	}
	return nil
}

// normalizeConditions drops condition keys the trigger's schema does not
// declare. Unknown keys are ignored rather than rejected.
func normalizeConditions(triggerType string, conditions map[string]interface{}) map[string]interface{} {
	schema, ok := triggerConditionSchemas[triggerType]
	if !ok || len(conditions) == 0 {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(conditions))
	for k, v := range conditions {
		if _, declared := schema[k]; declared {
			out[k] = v
		}
	}
	return out
}

func toUint(v interface{}) (uint, bool) {
	switch t := v.(type) {
	case float64:
		if t < 0 {
			return 0, false
		}
		return uint(t), true
	case int:
		if t < 0 {
			return 0, false
		}
		return uint(t), true
	case uint:
		return t, true
	case string:
		n, err := strconv.ParseUint(t, 10, 32)
		if err != nil {
			return 0, false
		}
		return uint(n), true
	case json.Number:
		n, err := t.Int64()
		if err != nil || n < 0 {
			return 0, false
		}
		return uint(n), true
	default:
		return 0, false
	}
}

// sortActions orders actions by ascending `order`, preserving original
// sequence position for equal values. Execution order must be deterministic.
func sortActions(actions []ActionSpec) []ActionSpec {
	sorted := make([]ActionSpec, len(actions))
	copy(sorted, actions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})
	return sorted
}
