package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"boardly/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newAutomationTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Board{},
		&models.List{},
		&models.Tag{},
		&models.Automation{},
		&models.AutomationExecution{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedBoardWithList(t *testing.T, db *gorm.DB) (*models.Board, *models.List) {
	t.Helper()
	board := &models.Board{WorkspaceID: 1, Name: "Sprint"}
	if err := db.Create(board).Error; err != nil {
		t.Fatalf("create board: %v", err)
	}
	list := &models.List{BoardID: board.ID, Name: "To Do"}
	if err := db.Create(list).Error; err != nil {
		t.Fatalf("create list: %v", err)
	}
	return board, list
}

func TestCreateAutomationRejectsInvalidWithoutPersisting(t *testing.T) {
	db := newAutomationTestDB(t)
	svc := NewAutomationService(db, nil)
	board, _ := seedBoardWithList(t, db)

	tests := []struct {
		name    string
		req     *AutomationRequest
		wantErr error
	}{
		{
			name: "empty name",
			req: &AutomationRequest{
				Name:        "",
				BoardID:     board.ID,
				TriggerType: TriggerCardCreated,
				Actions:     []ActionSpec{{Type: ActionUpdateCardStatus, Config: map[string]interface{}{"status": "done"}}},
			},
			wantErr: ErrEmptyName,
		},
		{
			name: "unknown trigger",
			req: &AutomationRequest{
				Name:        "bad trigger",
				BoardID:     board.ID,
				TriggerType: "NOT_A_TRIGGER",
				Actions:     []ActionSpec{{Type: ActionUpdateCardStatus, Config: map[string]interface{}{"status": "done"}}},
			},
			wantErr: ErrUnknownTrigger,
		},
		{
			name: "no actions",
			req: &AutomationRequest{
				Name:        "does nothing",
				BoardID:     board.ID,
				TriggerType: TriggerCardCreated,
			},
			wantErr: ErrNoActions,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateAutomation(context.Background(), 1, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateAutomation() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	var count int64
	db.Model(&models.Automation{}).Count(&count)
	if count != 0 {
		t.Errorf("rejected requests persisted %d rules, want 0", count)
	}
}

func TestCreateAutomationInvalidActionConfig(t *testing.T) {
	db := newAutomationTestDB(t)
	svc := NewAutomationService(db, nil)
	board, _ := seedBoardWithList(t, db)

	_, err := svc.CreateAutomation(context.Background(), 1, &AutomationRequest{
		Name:        "incomplete email",
		BoardID:     board.ID,
		TriggerType: TriggerDueDateApproaching,
		Actions: []ActionSpec{
			{Type: ActionCreateAuditLog},
			{Type: ActionSendEmail, Config: map[string]interface{}{"to": "x@example.com"}},
		},
	})
	var cfgErr *InvalidActionConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want InvalidActionConfigError", err)
	}
	if cfgErr.Index != 1 || cfgErr.Field != "subject" {
		t.Errorf("got index %d field %q, want 1 %q", cfgErr.Index, cfgErr.Field, "subject")
	}
}

func TestCreateAutomationNormalizesConditions(t *testing.T) {
	db := newAutomationTestDB(t)
	svc := NewAutomationService(db, nil)
	board, list := seedBoardWithList(t, db)

	rule, err := svc.CreateAutomation(context.Background(), 1, &AutomationRequest{
		Name:        "scoped to list",
		BoardID:     board.ID,
		TriggerType: TriggerCardCreated,
		TriggerConditions: map[string]interface{}{
			"listId": list.ID,
			"color":  "red", // not declared for CARD_CREATED
		},
		Actions: []ActionSpec{{Type: ActionUpdateCardStatus, Config: map[string]interface{}{"status": "open"}}},
	})
	if err != nil {
		t.Fatalf("CreateAutomation() error: %v", err)
	}
	stored := map[string]interface{}{}
	if err := json.Unmarshal([]byte(rule.TriggerConditions), &stored); err != nil {
		t.Fatalf("stored conditions are not JSON: %v", err)
	}
	if _, ok := stored["listId"]; !ok {
		t.Error("declared condition listId was dropped")
	}
	if _, ok := stored["color"]; ok {
		t.Error("undeclared condition color was persisted")
	}
	if !rule.Active {
		t.Error("active should default to true")
	}
}

func TestCreateAutomationRejectsForeignBoardRefs(t *testing.T) {
	db := newAutomationTestDB(t)
	svc := NewAutomationService(db, nil)
	board, _ := seedBoardWithList(t, db)

	otherBoard := &models.Board{WorkspaceID: 1, Name: "Other"}
	if err := db.Create(otherBoard).Error; err != nil {
		t.Fatalf("create board: %v", err)
	}
	foreignList := &models.List{BoardID: otherBoard.ID, Name: "Elsewhere"}
	if err := db.Create(foreignList).Error; err != nil {
		t.Fatalf("create list: %v", err)
	}
	foreignTag := &models.Tag{BoardID: otherBoard.ID, Name: "urgent"}
	if err := db.Create(foreignTag).Error; err != nil {
		t.Fatalf("create tag: %v", err)
	}

	_, err := svc.CreateAutomation(context.Background(), 1, &AutomationRequest{
		Name:              "foreign list",
		BoardID:           board.ID,
		TriggerType:       TriggerCardCreated,
		TriggerConditions: map[string]interface{}{"listId": foreignList.ID},
		Actions:           []ActionSpec{{Type: ActionCreateAuditLog}},
	})
	if err == nil {
		t.Error("condition referencing another board's list was accepted")
	}

	_, err = svc.CreateAutomation(context.Background(), 1, &AutomationRequest{
		Name:        "foreign tag",
		BoardID:     board.ID,
		TriggerType: TriggerCardCreated,
		Actions: []ActionSpec{
			{Type: ActionAddTag, Config: map[string]interface{}{"tagId": foreignTag.ID}},
		},
	})
	if err == nil {
		t.Error("ADD_TAG referencing another board's tag was accepted")
	}
}

func TestUpdateAutomationRevalidates(t *testing.T) {
	db := newAutomationTestDB(t)
	svc := NewAutomationService(db, nil)
	board, _ := seedBoardWithList(t, db)

	rule, err := svc.CreateAutomation(context.Background(), 1, &AutomationRequest{
		Name:        "original",
		BoardID:     board.ID,
		TriggerType: TriggerCardCreated,
		Actions:     []ActionSpec{{Type: ActionCreateAuditLog}},
	})
	if err != nil {
		t.Fatalf("CreateAutomation() error: %v", err)
	}

	_, err = svc.UpdateAutomation(context.Background(), rule.ID, &AutomationRequest{
		Name:        "",
		TriggerType: TriggerCardCreated,
		Actions:     []ActionSpec{{Type: ActionCreateAuditLog}},
	})
	if !errors.Is(err, ErrEmptyName) {
		t.Fatalf("UpdateAutomation() error = %v, want %v", err, ErrEmptyName)
	}

	kept, err := svc.GetAutomation(context.Background(), rule.ID)
	if err != nil {
		t.Fatalf("GetAutomation() error: %v", err)
	}
	if kept.Name != "original" {
		t.Errorf("rejected update changed name to %q", kept.Name)
	}

	updated, err := svc.UpdateAutomation(context.Background(), rule.ID, &AutomationRequest{
		Name:        "renamed",
		TriggerType: TriggerTaskCompleted,
		Actions:     []ActionSpec{{Type: ActionCreateAuditLog}},
	})
	if err != nil {
		t.Fatalf("UpdateAutomation() error: %v", err)
	}
	if updated.Name != "renamed" || updated.TriggerType != TriggerTaskCompleted {
		t.Errorf("update not applied: %+v", updated)
	}
}

func TestSetActive(t *testing.T) {
	db := newAutomationTestDB(t)
	svc := NewAutomationService(db, nil)
	board, _ := seedBoardWithList(t, db)

	rule, err := svc.CreateAutomation(context.Background(), 1, &AutomationRequest{
		Name:        "toggle me",
		BoardID:     board.ID,
		TriggerType: TriggerCardCreated,
		Actions:     []ActionSpec{{Type: ActionCreateAuditLog}},
	})
	if err != nil {
		t.Fatalf("CreateAutomation() error: %v", err)
	}

	if err := svc.SetActive(context.Background(), rule.ID, false); err != nil {
		t.Fatalf("SetActive() error: %v", err)
	}
	got, _ := svc.GetAutomation(context.Background(), rule.ID)
	if got.Active {
		t.Error("rule still active after SetActive(false)")
	}

	if err := svc.SetActive(context.Background(), 9999, true); err == nil {
		t.Error("SetActive on a missing rule should fail")
	}
}

func TestDeleteAutomationRetainsExecutions(t *testing.T) {
	db := newAutomationTestDB(t)
	svc := NewAutomationService(db, nil)
	board, _ := seedBoardWithList(t, db)
	svc.SetCollaborators(Collaborators{Audit: &recordingAudit{}})

	rule, err := svc.CreateAutomation(context.Background(), 1, &AutomationRequest{
		Name:        "short lived",
		BoardID:     board.ID,
		TriggerType: TriggerCardCreated,
		Actions:     []ActionSpec{{Type: ActionCreateAuditLog}},
	})
	if err != nil {
		t.Fatalf("CreateAutomation() error: %v", err)
	}

	svc.HandleEvent(context.Background(), DomainEvent{Type: TriggerCardCreated, BoardID: board.ID, CardID: 1})

	if err := svc.DeleteAutomation(context.Background(), rule.ID); err != nil {
		t.Fatalf("DeleteAutomation() error: %v", err)
	}
	if _, err := svc.GetAutomation(context.Background(), rule.ID); err == nil {
		t.Error("deleted rule still loads")
	}

	execs, err := svc.ListExecutions(context.Background(), board.ID, 0, 10)
	if err != nil {
		t.Fatalf("ListExecutions() error: %v", err)
	}
	if len(execs) != 1 {
		t.Errorf("execution log lost rows on rule delete: got %d, want 1", len(execs))
	}
}

type recordingAudit struct {
	entries []string
}

func (a *recordingAudit) RecordAudit(ctx context.Context, workspaceID, boardID, userID uint, action, detail string) error {
	a.entries = append(a.entries, action+":"+detail)
	return nil
}

func TestListAutomationsNewestFirst(t *testing.T) {
	db := newAutomationTestDB(t)
	svc := NewAutomationService(db, nil)
	board, _ := seedBoardWithList(t, db)

	for _, name := range []string{"one", "two", "three"} {
		if _, err := svc.CreateAutomation(context.Background(), 1, &AutomationRequest{
			Name:        name,
			BoardID:     board.ID,
			TriggerType: TriggerCardCreated,
			Actions:     []ActionSpec{{Type: ActionCreateAuditLog}},
		}); err != nil {
			t.Fatalf("CreateAutomation(%s) error: %v", name, err)
		}
	}

	rules, err := svc.ListAutomations(context.Background(), board.ID)
	if err != nil {
		t.Fatalf("ListAutomations() error: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("got %d rules, want 3", len(rules))
	}
	if rules[0].Name != "three" || rules[2].Name != "one" {
		t.Errorf("order = [%s %s %s], want newest first", rules[0].Name, rules[1].Name, rules[2].Name)
	}
}

func TestListExecutionsNewestFirstWithLimit(t *testing.T) {
	db := newAutomationTestDB(t)
	svc := NewAutomationService(db, nil)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		row := &models.AutomationExecution{
			AutomationID: 1,
			BoardID:      1,
			CardID:       uint(i + 1),
			Description:  "fired",
			Status:       "success",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("seed execution: %v", err)
		}
	}

	execs, err := svc.ListExecutions(context.Background(), 1, 0, 3)
	if err != nil {
		t.Fatalf("ListExecutions() error: %v", err)
	}
	if len(execs) != 3 {
		t.Fatalf("got %d rows, want limit 3", len(execs))
	}
	if execs[0].CardID != 5 || execs[2].CardID != 3 {
		t.Errorf("card ids = [%d %d %d], want newest first [5 4 3]",
			execs[0].CardID, execs[1].CardID, execs[2].CardID)
	}

	byRule, err := svc.ListExecutions(context.Background(), 0, 1, 100)
	if err != nil {
		t.Fatalf("ListExecutions() by rule error: %v", err)
	}
	if len(byRule) != 5 {
		t.Errorf("filter by automation id returned %d rows, want 5", len(byRule))
	}
}
