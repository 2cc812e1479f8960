package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"boardly/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newEvaluatorTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Automation{},
		&models.AutomationExecution{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// callLog records action dispatches across all fake collaborators so tests
// can assert cross-collaborator execution order.
type callLog struct {
	calls []string
}

func (l *callLog) add(call string) {
	l.calls = append(l.calls, call)
}

type fakeCardAPI struct {
	log      *callLog
	failWith map[string]error // call prefix -> error
}

func (f *fakeCardAPI) dispatch(call string) error {
	f.log.add(call)
	for prefix, err := range f.failWith {
		if strings.HasPrefix(call, prefix) {
			return err
		}
	}
	return nil
}

func (f *fakeCardAPI) SetCardStatus(ctx context.Context, cardID uint, status string) error {
	return f.dispatch(fmt.Sprintf("status:%d:%s", cardID, status))
}

func (f *fakeCardAPI) SetCardPriority(ctx context.Context, cardID uint, priority string) error {
	return f.dispatch(fmt.Sprintf("priority:%d:%s", cardID, priority))
}

func (f *fakeCardAPI) AssignCard(ctx context.Context, cardID, userID uint) error {
	return f.dispatch(fmt.Sprintf("assign:%d:%d", cardID, userID))
}

func (f *fakeCardAPI) AddCardTag(ctx context.Context, cardID, tagID uint) error {
	return f.dispatch(fmt.Sprintf("tag:%d:%d", cardID, tagID))
}

type fakeNotifierAPI struct {
	log *callLog
}

func (f *fakeNotifierAPI) Notify(ctx context.Context, userID uint, message string, cardID uint) error {
	f.log.add(fmt.Sprintf("notify:%d:%s", userID, message))
	return nil
}

func newEvaluatorFixture(t *testing.T) (*AutomationService, *gorm.DB, *callLog, *fakeCardAPI) {
	t.Helper()
	db := newEvaluatorTestDB(t)
	svc := NewAutomationService(db, nil)
	log := &callLog{}
	cards := &fakeCardAPI{log: log, failWith: map[string]error{}}
	svc.SetCollaborators(Collaborators{
		Cards:    cards,
		Notifier: &fakeNotifierAPI{log: log},
	})
	return svc, db, log, cards
}

func mustRule(t *testing.T, db *gorm.DB, boardID uint, name, trigger string, conditions map[string]interface{}, actions []ActionSpec, active bool) *models.Automation {
	t.Helper()
	condJSON, err := json.Marshal(conditions)
	if err != nil {
		t.Fatalf("marshal conditions: %v", err)
	}
	actJSON, err := json.Marshal(actions)
	if err != nil {
		t.Fatalf("marshal actions: %v", err)
	}
	rule := &models.Automation{
		BoardID:           boardID,
		Name:              name,
		TriggerType:       trigger,
		TriggerConditions: string(condJSON),
		Actions:           string(actJSON),
		Active:            active,
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("create rule %q: %v", name, err)
	}
	return rule
}

func statusAction(status string) ActionSpec {
	return ActionSpec{Type: ActionUpdateCardStatus, Config: map[string]interface{}{"status": status}}
}

func TestHandleEventWildcardConditions(t *testing.T) {
	svc, db, log, _ := newEvaluatorFixture(t)
	mustRule(t, db, 1, "any card", TriggerCardCreated, nil, []ActionSpec{statusAction("in_progress")}, true)

	records := svc.HandleEvent(context.Background(), DomainEvent{
		Type: TriggerCardCreated, BoardID: 1, CardID: 9, ListID: 4,
	})
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Status != "success" {
		t.Errorf("status = %q, want success", records[0].Status)
	}
	if records[0].CardID != 9 {
		t.Errorf("record card id = %d, want 9", records[0].CardID)
	}
	if want := []string{"status:9:in_progress"}; len(log.calls) != 1 || log.calls[0] != want[0] {
		t.Errorf("calls = %v, want %v", log.calls, want)
	}
}

func TestHandleEventConditionMismatch(t *testing.T) {
	svc, db, log, _ := newEvaluatorFixture(t)
	mustRule(t, db, 1, "list 5 only", TriggerCardCreated,
		map[string]interface{}{"listId": 5},
		[]ActionSpec{statusAction("done")}, true)

	records := svc.HandleEvent(context.Background(), DomainEvent{
		Type: TriggerCardCreated, BoardID: 1, CardID: 2, ListID: 7,
	})
	if len(records) != 0 {
		t.Fatalf("got %d records, want 0 (conditions do not match)", len(records))
	}
	if len(log.calls) != 0 {
		t.Errorf("calls = %v, want none", log.calls)
	}
	var count int64
	db.Model(&models.AutomationExecution{}).Count(&count)
	if count != 0 {
		t.Errorf("execution log has %d rows, want 0", count)
	}
}

func TestHandleEventStringFormEquality(t *testing.T) {
	svc, db, _, _ := newEvaluatorFixture(t)
	// Authoring clients may send condition values as strings; the match
	// compares string forms, so "7" equals list id 7.
	mustRule(t, db, 1, "string condition", TriggerCardCreated,
		map[string]interface{}{"listId": "7"},
		[]ActionSpec{statusAction("done")}, true)

	records := svc.HandleEvent(context.Background(), DomainEvent{
		Type: TriggerCardCreated, BoardID: 1, CardID: 2, ListID: 7,
	})
	if len(records) != 1 || records[0].Status != "success" {
		t.Fatalf("records = %+v, want one success", records)
	}
}

func TestHandleEventUndeclaredConditionKeyIgnored(t *testing.T) {
	svc, db, _, _ := newEvaluatorFixture(t)
	mustRule(t, db, 1, "stray key", TriggerCardCreated,
		map[string]interface{}{"listId": 4, "color": "red"},
		[]ActionSpec{statusAction("done")}, true)

	records := svc.HandleEvent(context.Background(), DomainEvent{
		Type: TriggerCardCreated, BoardID: 1, CardID: 2, ListID: 4,
	})
	if len(records) != 1 || records[0].Status != "success" {
		t.Fatalf("records = %+v, want one success (undeclared keys ignored)", records)
	}
}

func TestHandleEventActionOrdering(t *testing.T) {
	svc, db, log, _ := newEvaluatorFixture(t)
	// Two actions share order 0. The tie breaks on submission position, so
	// the expected sequence is index 0, index 2, index 1.
	actions := []ActionSpec{
		{Type: ActionUpdateCardStatus, Config: map[string]interface{}{"status": "done"}, Order: 0},
		{Type: ActionUpdateCardPriority, Config: map[string]interface{}{"priority": "high"}, Order: 1},
		{Type: ActionAssignUser, Config: map[string]interface{}{"userId": 8}, Order: 0},
	}
	mustRule(t, db, 1, "ordered", TriggerCardCreated, nil, actions, true)

	svc.HandleEvent(context.Background(), DomainEvent{
		Type: TriggerCardCreated, BoardID: 1, CardID: 3,
	})

	want := []string{"status:3:done", "assign:3:8", "priority:3:high"}
	if len(log.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", log.calls, want)
	}
	for i := range want {
		if log.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, log.calls[i], want[i])
		}
	}
}

func TestHandleEventPartialFailure(t *testing.T) {
	svc, db, log, cards := newEvaluatorFixture(t)
	cards.failWith["status:"] = fmt.Errorf("card 3 not found")
	actions := []ActionSpec{
		{Type: ActionUpdateCardStatus, Config: map[string]interface{}{"status": "done"}, Order: 0},
		{Type: ActionUpdateCardPriority, Config: map[string]interface{}{"priority": "low"}, Order: 1},
	}
	mustRule(t, db, 1, "half works", TriggerCardCreated, nil, actions, true)

	records := svc.HandleEvent(context.Background(), DomainEvent{
		Type: TriggerCardCreated, BoardID: 1, CardID: 3,
	})
	if len(records) != 1 {
		t.Fatalf("got %d records, want exactly 1 per matched rule", len(records))
	}
	rec := records[0]
	if rec.Status != "failure" {
		t.Errorf("status = %q, want failure", rec.Status)
	}
	if rec.Error != "card 3 not found" {
		t.Errorf("error = %q, want first failure message", rec.Error)
	}
	if !strings.Contains(rec.Description, "1/2 action(s) succeeded") {
		t.Errorf("description = %q, want success count 1/2", rec.Description)
	}
	// The failing action does not stop the next one.
	if len(log.calls) != 2 {
		t.Fatalf("calls = %v, want both actions attempted", log.calls)
	}
}

func TestHandleEventFirstFailureMessageKept(t *testing.T) {
	svc, db, _, cards := newEvaluatorFixture(t)
	cards.failWith["status:"] = fmt.Errorf("first boom")
	cards.failWith["priority:"] = fmt.Errorf("second boom")
	actions := []ActionSpec{
		{Type: ActionUpdateCardStatus, Config: map[string]interface{}{"status": "done"}, Order: 0},
		{Type: ActionUpdateCardPriority, Config: map[string]interface{}{"priority": "low"}, Order: 1},
	}
	mustRule(t, db, 1, "both fail", TriggerCardCreated, nil, actions, true)

	records := svc.HandleEvent(context.Background(), DomainEvent{
		Type: TriggerCardCreated, BoardID: 1, CardID: 3,
	})
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Error != "first boom" {
		t.Errorf("error = %q, want the first failure only", records[0].Error)
	}
}

func TestHandleEventMoveCardDisabled(t *testing.T) {
	svc, db, log, _ := newEvaluatorFixture(t)
	actions := []ActionSpec{
		{Type: ActionMoveCard, Config: map[string]interface{}{"destinationListId": 4}, Order: 0},
		{Type: ActionUpdateCardStatus, Config: map[string]interface{}{"status": "done"}, Order: 1},
	}
	mustRule(t, db, 1, "tries to move", TriggerCardCreated, nil, actions, true)

	records := svc.HandleEvent(context.Background(), DomainEvent{
		Type: TriggerCardCreated, BoardID: 1, CardID: 3,
	})
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Status != "failure" {
		t.Errorf("status = %q, want failure", records[0].Status)
	}
	if records[0].Error != "action type disabled" {
		t.Errorf("error = %q, want %q", records[0].Error, "action type disabled")
	}
	// The disabled action never reaches a collaborator; the second one runs.
	if len(log.calls) != 1 || log.calls[0] != "status:3:done" {
		t.Errorf("calls = %v, want only the status update", log.calls)
	}
}

func TestHandleEventMultipleRulesFireInCreationOrder(t *testing.T) {
	svc, db, log, _ := newEvaluatorFixture(t)
	first := mustRule(t, db, 1, "first", TriggerCardCreated, nil,
		[]ActionSpec{statusAction("in_progress")}, true)
	second := mustRule(t, db, 1, "second", TriggerCardCreated, nil,
		[]ActionSpec{{Type: ActionUpdateCardPriority, Config: map[string]interface{}{"priority": "high"}}}, true)

	records := svc.HandleEvent(context.Background(), DomainEvent{
		Type: TriggerCardCreated, BoardID: 1, CardID: 3,
	})
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].AutomationID != first.ID || records[1].AutomationID != second.ID {
		t.Errorf("firing order = [%d %d], want [%d %d]",
			records[0].AutomationID, records[1].AutomationID, first.ID, second.ID)
	}
	if len(log.calls) != 2 || log.calls[0] != "status:3:in_progress" {
		t.Errorf("calls = %v, want first rule's action first", log.calls)
	}
}

func TestHandleEventScoping(t *testing.T) {
	svc, db, log, _ := newEvaluatorFixture(t)
	mustRule(t, db, 1, "inactive", TriggerCardCreated, nil, []ActionSpec{statusAction("done")}, false)
	mustRule(t, db, 2, "other board", TriggerCardCreated, nil, []ActionSpec{statusAction("done")}, true)
	mustRule(t, db, 1, "wrong trigger", TriggerTaskCompleted, nil, []ActionSpec{statusAction("done")}, true)

	records := svc.HandleEvent(context.Background(), DomainEvent{
		Type: TriggerCardCreated, BoardID: 1, CardID: 3,
	})
	if len(records) != 0 {
		t.Fatalf("got %d records, want 0", len(records))
	}
	if len(log.calls) != 0 {
		t.Errorf("calls = %v, want none", log.calls)
	}
}

func TestHandleEventUnknownStoredTrigger(t *testing.T) {
	svc, db, _, _ := newEvaluatorFixture(t)
	mustRule(t, db, 1, "legacy", "LEGACY_TRIGGER", nil, []ActionSpec{statusAction("done")}, true)

	records := svc.HandleEvent(context.Background(), DomainEvent{
		Type: TriggerCardCreated, BoardID: 1, CardID: 3,
	})
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 failure record", len(records))
	}
	if records[0].Status != "failure" {
		t.Errorf("status = %q, want failure", records[0].Status)
	}
	if !strings.Contains(records[0].Description, "skipped") {
		t.Errorf("description = %q, want a skip note", records[0].Description)
	}
}

func TestHandleEventCardAssignedCondition(t *testing.T) {
	svc, db, log, _ := newEvaluatorFixture(t)
	mustRule(t, db, 1, "watch user 7", TriggerCardAssigned,
		map[string]interface{}{"assignedUserId": 7},
		[]ActionSpec{{Type: ActionSendNotification, Config: map[string]interface{}{"userId": 7, "message": "you got a card"}}}, true)

	records := svc.HandleEvent(context.Background(), DomainEvent{
		Type: TriggerCardAssigned, BoardID: 1, CardID: 3, AssignedUserID: 8,
	})
	if len(records) != 0 {
		t.Fatalf("assignment to user 8 matched a rule scoped to user 7")
	}

	records = svc.HandleEvent(context.Background(), DomainEvent{
		Type: TriggerCardAssigned, BoardID: 1, CardID: 3, AssignedUserID: 7,
	})
	if len(records) != 1 || records[0].Status != "success" {
		t.Fatalf("records = %+v, want one success", records)
	}
	if len(log.calls) != 1 || log.calls[0] != "notify:7:you got a card" {
		t.Errorf("calls = %v, want the notification", log.calls)
	}
}

func TestHandleEventMissingCollaborator(t *testing.T) {
	db := newEvaluatorTestDB(t)
	svc := NewAutomationService(db, nil)
	mustRule(t, db, 1, "no wiring", TriggerCardCreated, nil, []ActionSpec{statusAction("done")}, true)

	records := svc.HandleEvent(context.Background(), DomainEvent{
		Type: TriggerCardCreated, BoardID: 1, CardID: 3,
	})
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Status != "failure" || !strings.Contains(records[0].Error, "unavailable") {
		t.Errorf("record = %+v, want failure with unavailable error", records[0])
	}
}

func TestHandleEventAppendsToExecutionLog(t *testing.T) {
	svc, db, _, _ := newEvaluatorFixture(t)
	mustRule(t, db, 1, "logged", TriggerCardCreated, nil, []ActionSpec{statusAction("done")}, true)

	svc.HandleEvent(context.Background(), DomainEvent{Type: TriggerCardCreated, BoardID: 1, CardID: 3})
	svc.HandleEvent(context.Background(), DomainEvent{Type: TriggerCardCreated, BoardID: 1, CardID: 4})

	var rows []models.AutomationExecution
	if err := db.Order("id ASC").Find(&rows).Error; err != nil {
		t.Fatalf("load executions: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("execution log has %d rows, want 2", len(rows))
	}
	if rows[0].CardID != 3 || rows[1].CardID != 4 {
		t.Errorf("card ids = [%d %d], want [3 4]", rows[0].CardID, rows[1].CardID)
	}
}
