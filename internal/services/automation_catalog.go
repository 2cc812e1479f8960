package services

import (
	"errors"
	"fmt"
	"strings"
)

// Trigger types recognized by the rules engine. The enumeration is closed:
// a stored rule whose type is outside this set can never fire.
const (
	TriggerCardCreated        = "CARD_CREATED"
	TriggerCardMoved          = "CARD_MOVED"
	TriggerCardUpdated        = "CARD_UPDATED"
	TriggerTaskCompleted      = "TASK_COMPLETED"
	TriggerCommentAdded       = "COMMENT_ADDED"
	TriggerAttachmentAdded    = "ATTACHMENT_ADDED"
	TriggerDueDateApproaching = "DUE_DATE_APPROACHING"
	TriggerAllTasksCompleted  = "ALL_TASKS_COMPLETED"
	TriggerUserMentioned      = "USER_MENTIONED"
	TriggerCardAssigned       = "CARD_ASSIGNED"
)

// Action types the evaluator can dispatch. MOVE_CARD is cataloged but
// disabled: it validates as a known type yet always refuses to execute.
const (
	ActionUpdateCardStatus    = "UPDATE_CARD_STATUS"
	ActionMoveCard            = "MOVE_CARD"
	ActionAssignUser          = "ASSIGN_USER"
	ActionSendNotification    = "SEND_NOTIFICATION"
	ActionSendEmail           = "SEND_EMAIL"
	ActionCreateTasks         = "CREATE_TASKS"
	ActionCreateCalendarEvent = "CREATE_CALENDAR_EVENT"
	ActionCreateAuditLog      = "CREATE_AUDIT_LOG"
	ActionAddTag              = "ADD_TAG"
	ActionUpdateCardPriority  = "UPDATE_CARD_PRIORITY"
)

// FieldSchema describes one condition or config field.
type FieldSchema struct {
	Required bool   `json:"required"`
	Kind     string `json:"kind"` // string, integer, list
}

// triggerConditionSchemas maps each trigger type to the condition keys it
// accepts. Every condition is optional: a missing key matches any event,
// unknown keys are ignored.
var triggerConditionSchemas = map[string]map[string]FieldSchema{
	TriggerCardCreated: {
		"listId": {Kind: "string"},
	},
	TriggerCardMoved: {
		"sourceListId":      {Kind: "string"},
		"destinationListId": {Kind: "string"},
	},
	TriggerCardUpdated: {
		"listId": {Kind: "string"},
	},
	TriggerTaskCompleted:   {},
	TriggerCommentAdded:    {},
	TriggerAttachmentAdded: {},
	TriggerDueDateApproaching: {
		"daysBeforeDue": {Kind: "integer"},
	},
	TriggerAllTasksCompleted: {},
	TriggerUserMentioned: {
		"mentionedUserId": {Kind: "string"},
	},
	TriggerCardAssigned: {
		"assignedUserId": {Kind: "string"},
	},
}

// actionConfigSchemas maps each action type to its config keys.
var actionConfigSchemas = map[string]map[string]FieldSchema{
	ActionUpdateCardStatus: {
		"status": {Required: true, Kind: "string"},
	},
	ActionMoveCard: {
		"destinationListId": {Required: true, Kind: "string"},
	},
	ActionAssignUser: {
		"userId": {Required: true, Kind: "string"},
	},
	ActionSendNotification: {
		"userId":  {Required: true, Kind: "string"},
		"message": {Required: true, Kind: "string"},
	},
	ActionSendEmail: {
		"to":      {Required: true, Kind: "string"},
		"subject": {Required: true, Kind: "string"},
		"body":    {Kind: "string"},
	},
	ActionCreateTasks: {
		"tasks": {Required: true, Kind: "list"},
	},
	ActionCreateCalendarEvent: {
		"title":     {Required: true, Kind: "string"},
		"startDate": {Required: true, Kind: "string"},
		"endDate":   {Required: true, Kind: "string"},
		"userId":    {Required: true, Kind: "string"},
	},
	ActionCreateAuditLog: {
		"message": {Kind: "string"},
	},
	ActionAddTag: {
		"tagId": {Required: true, Kind: "string"},
	},
	ActionUpdateCardPriority: {
		"priority": {Required: true, Kind: "string"},
	},
}

// disabledActions are cataloged but refused at execution time.
var disabledActions = map[string]bool{
	ActionMoveCard: true,
}

// ConditionSchemaFor returns the condition fields accepted by a trigger type.
func ConditionSchemaFor(triggerType string) (map[string]FieldSchema, error) {
	schema, ok := triggerConditionSchemas[triggerType]
	if !ok {
		return nil, fmt.Errorf("unknown trigger type: %s", triggerType)
	}
	return schema, nil
}

// ConfigSchemaFor returns the config fields for an action type. Disabled
// actions still resolve here; refusal happens in the evaluator.
func ConfigSchemaFor(actionType string) (map[string]FieldSchema, error) {
	schema, ok := actionConfigSchemas[actionType]
	if !ok {
		return nil, fmt.Errorf("unknown action type: %s", actionType)
	}
	return schema, nil
}

// IsDisabledAction reports whether a cataloged action type is refused at runtime.
func IsDisabledAction(actionType string) bool {
	return disabledActions[actionType]
}

// TriggerTypes returns the closed trigger enumeration, for the authoring UI.
func TriggerTypes() []string {
	return []string{
		TriggerCardCreated, TriggerCardMoved, TriggerCardUpdated,
		TriggerTaskCompleted, TriggerCommentAdded, TriggerAttachmentAdded,
		TriggerDueDateApproaching, TriggerAllTasksCompleted,
		TriggerUserMentioned, TriggerCardAssigned,
	}
}

// ActionTypes returns the closed action enumeration, for the authoring UI.
func ActionTypes() []string {
	return []string{
		ActionUpdateCardStatus, ActionMoveCard, ActionAssignUser,
		ActionSendNotification, ActionSendEmail, ActionCreateTasks,
		ActionCreateCalendarEvent, ActionCreateAuditLog, ActionAddTag,
		ActionUpdateCardPriority,
	}
}

// Validation errors surfaced to the authoring API. They block persistence;
// an invalid rule is never stored.
var (
	ErrEmptyName      = errors.New("automation name must not be empty")
	ErrUnknownTrigger = errors.New("unknown trigger type")
	ErrNoActions      = errors.New("automation requires at least one action")
)

// InvalidActionConfigError reports a missing required config key, identified
// by the action's position in the submitted list.
type InvalidActionConfigError struct {
	Index      int
	ActionType string
	Field      string
}

func (e *InvalidActionConfigError) Error() string {
	return fmt.Sprintf("action %d (%s): missing required config field %q", e.Index, e.ActionType, e.Field)
}

// ActionSpec is the authoring wire shape for one action.
type ActionSpec struct {
	Type   string                 `json:"type"`
	Config map[string]interface{} `json:"config"`
	Order  int                    `json:"order"`
}

// ValidateRule checks an authoring payload against the catalogs:
// non-empty name, known trigger, at least one action, and every required
// config key present for each action. Pure: no persistence, no side effects.
func ValidateRule(name, triggerType string, actions []ActionSpec) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if _, ok := triggerConditionSchemas[triggerType]; !ok {
		return ErrUnknownTrigger
	}
	if len(actions) == 0 {
		return ErrNoActions
	}
	for i, act := range actions {
		schema, ok := actionConfigSchemas[act.Type]
		if !ok {
			return &InvalidActionConfigError{Index: i, ActionType: act.Type, Field: "type"}
		}
		for field, fs := range schema {
			if !fs.Required {
				continue
			}
			v, present := act.Config[field]
			if !present || v == nil {
				return &InvalidActionConfigError{Index: i, ActionType: act.Type, Field: field}
			}
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
				return &InvalidActionConfigError{Index: i, ActionType: act.Type, Field: field}
			}
		}
	}
	return nil
}
