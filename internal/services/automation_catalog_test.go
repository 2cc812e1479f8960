package services

import (
	"errors"
	"testing"
)

func TestValidateRule(t *testing.T) {
	tests := []struct {
		name        string
		ruleName    string
		triggerType string
		actions     []ActionSpec
		wantErr     error
		wantIndex   int
		wantField   string
	}{
		{
			name:        "valid single action",
			ruleName:    "move to done",
			triggerType: TriggerCardCreated,
			actions: []ActionSpec{
				{Type: ActionUpdateCardStatus, Config: map[string]interface{}{"status": "done"}},
			},
		},
		{
			name:        "empty name",
			ruleName:    "",
			triggerType: TriggerCardCreated,
			actions: []ActionSpec{
				{Type: ActionUpdateCardStatus, Config: map[string]interface{}{"status": "done"}},
			},
			wantErr: ErrEmptyName,
		},
		{
			name:        "whitespace name",
			ruleName:    "   ",
			triggerType: TriggerCardCreated,
			actions: []ActionSpec{
				{Type: ActionUpdateCardStatus, Config: map[string]interface{}{"status": "done"}},
			},
			wantErr: ErrEmptyName,
		},
		{
			name:        "unknown trigger",
			ruleName:    "bogus trigger",
			triggerType: "CARD_EXPLODED",
			actions: []ActionSpec{
				{Type: ActionUpdateCardStatus, Config: map[string]interface{}{"status": "done"}},
			},
			wantErr: ErrUnknownTrigger,
		},
		{
			name:        "no actions",
			ruleName:    "does nothing",
			triggerType: TriggerCardMoved,
			actions:     nil,
			wantErr:     ErrNoActions,
		},
		{
			name:        "unknown action type",
			ruleName:    "bad action",
			triggerType: TriggerCardCreated,
			actions: []ActionSpec{
				{Type: ActionUpdateCardStatus, Config: map[string]interface{}{"status": "done"}},
				{Type: "EXPLODE_CARD", Config: map[string]interface{}{}},
			},
			wantIndex: 1,
			wantField: "type",
		},
		{
			name:        "missing required config field",
			ruleName:    "notify nobody",
			triggerType: TriggerCommentAdded,
			actions: []ActionSpec{
				{Type: ActionSendNotification, Config: map[string]interface{}{"userId": float64(3)}},
			},
			wantIndex: 0,
			wantField: "message",
		},
		{
			name:        "required string blank after trim",
			ruleName:    "empty status",
			triggerType: TriggerCardCreated,
			actions: []ActionSpec{
				{Type: ActionUpdateCardStatus, Config: map[string]interface{}{"status": "   "}},
			},
			wantIndex: 0,
			wantField: "status",
		},
		{
			name:        "required field nil",
			ruleName:    "tagless",
			triggerType: TriggerCardCreated,
			actions: []ActionSpec{
				{Type: ActionAddTag, Config: map[string]interface{}{"tagId": nil}},
			},
			wantIndex: 0,
			wantField: "tagId",
		},
		{
			name:        "nil config on action requiring fields",
			ruleName:    "no config",
			triggerType: TriggerCardCreated,
			actions: []ActionSpec{
				{Type: ActionAssignUser},
			},
			wantIndex: 0,
			wantField: "userId",
		},
		{
			name:        "disabled action still validates",
			ruleName:    "move it",
			triggerType: TriggerCardCreated,
			actions: []ActionSpec{
				{Type: ActionMoveCard, Config: map[string]interface{}{"destinationListId": float64(4)}},
			},
		},
		{
			name:        "audit log needs no config",
			ruleName:    "audit only",
			triggerType: TriggerAllTasksCompleted,
			actions: []ActionSpec{
				{Type: ActionCreateAuditLog},
			},
		},
		{
			name:        "email body optional",
			ruleName:    "mail someone",
			triggerType: TriggerDueDateApproaching,
			actions: []ActionSpec{
				{Type: ActionSendEmail, Config: map[string]interface{}{"to": "a@example.com", "subject": "due soon"}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRule(tt.ruleName, tt.triggerType, tt.actions)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ValidateRule() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if tt.wantField != "" {
				var cfgErr *InvalidActionConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("ValidateRule() error = %v, want InvalidActionConfigError", err)
				}
				if cfgErr.Index != tt.wantIndex {
					t.Errorf("error index = %d, want %d", cfgErr.Index, tt.wantIndex)
				}
				if cfgErr.Field != tt.wantField {
					t.Errorf("error field = %q, want %q", cfgErr.Field, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateRule() unexpected error: %v", err)
			}
		})
	}
}

func TestValidateRuleFirstInvalidActionWins(t *testing.T) {
	actions := []ActionSpec{
		{Type: ActionSendNotification, Config: map[string]interface{}{"userId": float64(1)}},
		{Type: "NOT_AN_ACTION"},
	}
	err := ValidateRule("two bad actions", TriggerCardCreated, actions)
	var cfgErr *InvalidActionConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected InvalidActionConfigError, got %v", err)
	}
	if cfgErr.Index != 0 {
		t.Errorf("index = %d, want 0 (earliest invalid action)", cfgErr.Index)
	}
	if cfgErr.Field != "message" {
		t.Errorf("field = %q, want %q", cfgErr.Field, "message")
	}
}

func TestCatalogCompleteness(t *testing.T) {
	triggers := TriggerTypes()
	if len(triggers) != 10 {
		t.Fatalf("TriggerTypes() returned %d entries, want 10", len(triggers))
	}
	actions := ActionTypes()
	if len(actions) != 10 {
		t.Fatalf("ActionTypes() returned %d entries, want 10", len(actions))
	}
	for _, trig := range triggers {
		if _, err := ConditionSchemaFor(trig); err != nil {
			t.Errorf("ConditionSchemaFor(%s) error: %v", trig, err)
		}
	}
	for _, act := range actions {
		if _, err := ConfigSchemaFor(act); err != nil {
			t.Errorf("ConfigSchemaFor(%s) error: %v", act, err)
		}
	}
	if _, err := ConditionSchemaFor("NOPE"); err == nil {
		t.Error("ConditionSchemaFor accepted an unknown trigger")
	}
	if _, err := ConfigSchemaFor("NOPE"); err == nil {
		t.Error("ConfigSchemaFor accepted an unknown action")
	}
}

func TestDisabledActions(t *testing.T) {
	if !IsDisabledAction(ActionMoveCard) {
		t.Error("MOVE_CARD should be disabled")
	}
	for _, act := range ActionTypes() {
		if act != ActionMoveCard && IsDisabledAction(act) {
			t.Errorf("%s should not be disabled", act)
		}
	}
}

func TestInvalidActionConfigErrorMessage(t *testing.T) {
	err := &InvalidActionConfigError{Index: 2, ActionType: ActionSendEmail, Field: "subject"}
	want := `action 2 (SEND_EMAIL): missing required config field "subject"`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
