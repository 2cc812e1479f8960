package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appmetrics "boardly/internal/metrics"
	"boardly/internal/models"
)

// DomainEvent is one discrete occurrence on a board: card created/moved,
// task completed, comment added, due date crossing a threshold, and so on.
// Each event is evaluated to completion against the board's active rules.
type DomainEvent struct {
	Type           string `json:"type"`
	WorkspaceID    uint   `json:"workspace_id"`
	BoardID        uint   `json:"board_id"`
	CardID         uint   `json:"card_id,omitempty"`
	ListID         uint   `json:"list_id,omitempty"`
	SourceListID   uint   `json:"source_list_id,omitempty"`
	DestListID     uint   `json:"dest_list_id,omitempty"`
	UserID         uint   `json:"user_id,omitempty"`
	AssignedUserID uint   `json:"assigned_user_id,omitempty"`
	MentionedUserID uint  `json:"mentioned_user_id,omitempty"`
	TaskID         uint   `json:"task_id,omitempty"`
	CommentID      uint   `json:"comment_id,omitempty"`
	DaysBeforeDue  int    `json:"days_before_due,omitempty"`
}

// conditionFields exposes the event values conditions can match against,
// keyed by the condition names the trigger catalog declares.
func (e DomainEvent) conditionFields() map[string]interface{} {
	return map[string]interface{}{
		"listId":            e.ListID,
		"sourceListId":      e.SourceListID,
		"destinationListId": e.DestListID,
		"assignedUserId":    e.AssignedUserID,
		"mentionedUserId":   e.MentionedUserID,
		"daysBeforeDue":     e.DaysBeforeDue,
	}
}

// External collaborator contracts the evaluator dispatches actions through.
// Implementations live in the card/notification/email/task/calendar/audit
// services; tests substitute fakes.
type CardMutator interface {
	SetCardStatus(ctx context.Context, cardID uint, status string) error
	SetCardPriority(ctx context.Context, cardID uint, priority string) error
	AssignCard(ctx context.Context, cardID, userID uint) error
	AddCardTag(ctx context.Context, cardID, tagID uint) error
}

type Notifier interface {
	Notify(ctx context.Context, userID uint, message string, cardID uint) error
}

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type TaskCreator interface {
	CreateCardTasks(ctx context.Context, cardID uint, titles []string) error
}

type CalendarScheduler interface {
	CreateCalendarEvent(ctx context.Context, userID uint, cardID uint, title string, start, end time.Time) error
}

type AuditRecorder interface {
	RecordAudit(ctx context.Context, workspaceID, boardID, userID uint, action, detail string) error
}

// HandleEvent runs one evaluation pass: it matches the event against the
// board's active rules and executes every matched rule's actions in order.
// Rules fire independently; one rule's failure never blocks another. The
// returned records mirror what was appended to the execution log.
func (s *AutomationService) HandleEvent(ctx context.Context, evt DomainEvent) []models.AutomationExecution {
	if s.db == nil {
		return nil
	}

	// Rule set is re-read per event; no staleness tolerance. Ascending id
	// pins the relative firing order of multiple matches to creation order.
	var rules []models.Automation
	if err := s.db.WithContext(ctx).
		Where("board_id = ? AND active = ?", evt.BoardID, true).
		Order("id ASC").
		Find(&rules).Error; err != nil {
		s.logger.Warnf("automation: load rules for board %d failed: %v", evt.BoardID, err)
		return nil
	}
	if len(rules) == 0 {
		return nil
	}

	var records []models.AutomationExecution
	for _, rule := range rules {
		if _, err := ConditionSchemaFor(rule.TriggerType); err != nil {
			// Stored data references a type outside the catalog (e.g. after
			// a catalog downgrade). Record the failure and keep going.
			rec := s.recordExecution(ctx, rule, evt,
				fmt.Sprintf("rule %q skipped", rule.Name), "failure", err.Error())
			records = append(records, rec)
			continue
		}
		if rule.TriggerType != evt.Type {
			continue
		}
		matched, err := s.matchConditions(rule, evt)
		if err != nil {
			rec := s.recordExecution(ctx, rule, evt,
				fmt.Sprintf("rule %q skipped", rule.Name), "failure", err.Error())
			records = append(records, rec)
			continue
		}
		if !matched {
			continue
		}
		records = append(records, s.executeRule(ctx, rule, evt))
	}
	return records
}

// matchConditions tests every condition key present on the rule against the
// event with exact equality. An absent key is a wildcard. Values are compared
// as their string forms to sidestep JSON number typing.
func (s *AutomationService) matchConditions(rule models.Automation, evt DomainEvent) (bool, error) {
	if rule.TriggerConditions == "" {
		return true, nil
	}
	conditions := map[string]interface{}{}
	if err := json.Unmarshal([]byte(rule.TriggerConditions), &conditions); err != nil {
		return false, fmt.Errorf("invalid stored conditions: %v", err)
	}
	schema := triggerConditionSchemas[rule.TriggerType]
	fields := evt.conditionFields()
	for key, want := range conditions {
		if _, declared := schema[key]; !declared {
			continue // unknown keys are ignored
		}
		got, ok := fields[key]
		if !ok {
			return false, nil
		}
		if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false, nil
		}
	}
	return true, nil
}

// executeRule runs the rule's actions in stable (order, position) order.
// Effects commit independently: a failing action does not roll back earlier
// ones and does not stop later ones. Exactly one execution record is
// appended; on any failure it carries the first failure's message.
func (s *AutomationService) executeRule(ctx context.Context, rule models.Automation, evt DomainEvent) models.AutomationExecution {
	actions := []ActionSpec{}
	if rule.Actions != "" {
		if err := json.Unmarshal([]byte(rule.Actions), &actions); err != nil {
			return s.recordExecution(ctx, rule, evt,
				fmt.Sprintf("rule %q matched event %s", rule.Name, evt.Type),
				"failure", fmt.Sprintf("invalid stored actions: %v", err))
		}
	}

	var firstErr error
	executed := 0
	for _, act := range sortActions(actions) {
		appmetrics.IncAutomationAction(act.Type)
		if err := s.executeAction(ctx, act, evt); err != nil {
			s.logger.Warnf("automation: rule %q action %s failed: %v", rule.Name, act.Type, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		executed++
	}

	description := fmt.Sprintf("rule %q fired on event %s: %d/%d action(s) succeeded",
		rule.Name, evt.Type, executed, len(actions))
	if firstErr != nil {
		appmetrics.IncAutomationFiring("failure")
		return s.recordExecution(ctx, rule, evt, description, "failure", firstErr.Error())
	}
	appmetrics.IncAutomationFiring("success")
	return s.recordExecution(ctx, rule, evt, description, "success", "")
}

// executeAction dispatches one action to its collaborator. Each dispatch gets
// its own timeout so a hung collaborator aborts only the current action.
func (s *AutomationService) executeAction(ctx context.Context, act ActionSpec, evt DomainEvent) error {
	if IsDisabledAction(act.Type) {
		return fmt.Errorf("action type disabled")
	}
	if _, err := ConfigSchemaFor(act.Type); err != nil {
		return err
	}

	timeout := s.actionTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch act.Type {
	case ActionUpdateCardStatus:
		if s.cards == nil {
			return fmt.Errorf("card API unavailable")
		}
		status, _ := act.Config["status"].(string)
		if status == "" {
			return fmt.Errorf("status config required")
		}
		return s.cards.SetCardStatus(ctx, evt.CardID, status)

	case ActionUpdateCardPriority:
		if s.cards == nil {
			return fmt.Errorf("card API unavailable")
		}
		priority, _ := act.Config["priority"].(string)
		if priority == "" {
			return fmt.Errorf("priority config required")
		}
		return s.cards.SetCardPriority(ctx, evt.CardID, priority)

	case ActionAssignUser:
		if s.cards == nil {
			return fmt.Errorf("card API unavailable")
		}
		userID, ok := toUint(act.Config["userId"])
		if !ok || userID == 0 {
			return fmt.Errorf("userId config required")
		}
		return s.cards.AssignCard(ctx, evt.CardID, userID)

	case ActionAddTag:
		if s.cards == nil {
			return fmt.Errorf("card API unavailable")
		}
		tagID, ok := toUint(act.Config["tagId"])
		if !ok || tagID == 0 {
			return fmt.Errorf("tagId config required")
		}
		return s.cards.AddCardTag(ctx, evt.CardID, tagID)

	case ActionSendNotification:
		if s.notifier == nil {
			return fmt.Errorf("notification API unavailable")
		}
		userID, ok := toUint(act.Config["userId"])
		if !ok || userID == 0 {
			return fmt.Errorf("userId config required")
		}
		message, _ := act.Config["message"].(string)
		if message == "" {
			return fmt.Errorf("message config required")
		}
		return s.notifier.Notify(ctx, userID, message, evt.CardID)

	case ActionSendEmail:
		if s.email == nil {
			return fmt.Errorf("email API unavailable")
		}
		to, _ := act.Config["to"].(string)
		subject, _ := act.Config["subject"].(string)
		body, _ := act.Config["body"].(string)
		if to == "" || subject == "" {
			return fmt.Errorf("to and subject config required")
		}
		return s.email.SendEmail(ctx, to, subject, body)

	case ActionCreateTasks:
		if s.tasks == nil {
			return fmt.Errorf("task API unavailable")
		}
		titles, err := taskTitles(act.Config["tasks"])
		if err != nil {
			return err
		}
		return s.tasks.CreateCardTasks(ctx, evt.CardID, titles)

	case ActionCreateCalendarEvent:
		if s.calendar == nil {
			return fmt.Errorf("calendar API unavailable")
		}
		title, _ := act.Config["title"].(string)
		if title == "" {
			return fmt.Errorf("title config required")
		}
		userID, ok := toUint(act.Config["userId"])
		if !ok || userID == 0 {
			return fmt.Errorf("userId config required")
		}
		start, err := parseEventTime(act.Config["startDate"])
		if err != nil {
			return fmt.Errorf("startDate: %v", err)
		}
		end, err := parseEventTime(act.Config["endDate"])
		if err != nil {
			return fmt.Errorf("endDate: %v", err)
		}
		return s.calendar.CreateCalendarEvent(ctx, userID, evt.CardID, title, start, end)

	case ActionCreateAuditLog:
		if s.audit == nil {
			return fmt.Errorf("audit API unavailable")
		}
		message, _ := act.Config["message"].(string)
		if message == "" {
			message = fmt.Sprintf("automation fired on event %s", evt.Type)
		}
		return s.audit.RecordAudit(ctx, evt.WorkspaceID, evt.BoardID, evt.UserID, "automation", message)

	default:
		return fmt.Errorf("unknown action type: %s", act.Type)
	}
}

// recordExecution appends one immutable outcome row. Log write failures are
// logged but swallowed: nothing in a firing is fatal to the host.
func (s *AutomationService) recordExecution(ctx context.Context, rule models.Automation, evt DomainEvent, description, status, errMsg string) models.AutomationExecution {
	record := models.AutomationExecution{
		AutomationID: rule.ID,
		BoardID:      rule.BoardID,
		CardID:       evt.CardID,
		Description:  description,
		Status:       status,
		Error:        errMsg,
		CreatedAt:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logger.Warnf("automation: record execution failed: %v", err)
	}
	return record
}

// taskTitles extracts titles from a CREATE_TASKS config value, accepting
// both [{title: "..."}] and plain ["..."] element shapes.
func taskTitles(raw interface{}) ([]string, error) {
	items, ok := raw.([]interface{})
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("tasks config required")
	}
	titles := make([]string, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case string:
			if t != "" {
				titles = append(titles, t)
			}
		case map[string]interface{}:
			if title, _ := t["title"].(string); title != "" {
				titles = append(titles, title)
			}
		}
	}
	if len(titles) == 0 {
		return nil, fmt.Errorf("tasks config has no titles")
	}
	return titles, nil
}

func parseEventTime(raw interface{}) (time.Time, error) {
	str, _ := raw.(string)
	if str == "" {
		return time.Time{}, fmt.Errorf("value required")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, str); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", str)
}
