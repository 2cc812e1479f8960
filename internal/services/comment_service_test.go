package services

import (
	"context"
	"reflect"
	"testing"

	"boardly/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newCommentTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Board{},
		&models.List{},
		&models.Card{},
		&models.Comment{},
		&models.Automation{},
		&models.AutomationExecution{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newCommentFixture(t *testing.T) (*CommentService, *AutomationService, *gorm.DB, *models.Card) {
	t.Helper()
	db := newCommentTestDB(t)
	board := &models.Board{WorkspaceID: 1, Name: "Sprint"}
	if err := db.Create(board).Error; err != nil {
		t.Fatalf("create board: %v", err)
	}
	list := &models.List{BoardID: board.ID, Name: "Doing"}
	if err := db.Create(list).Error; err != nil {
		t.Fatalf("create list: %v", err)
	}
	card := &models.Card{BoardID: board.ID, ListID: list.ID, Title: "discussed"}
	if err := db.Create(card).Error; err != nil {
		t.Fatalf("create card: %v", err)
	}

	auto := NewAutomationService(db, nil)
	comments := NewCommentService(db, nil)
	comments.SetAutomationService(auto)
	auto.SetCollaborators(Collaborators{Cards: NewCardService(db, nil)})
	return comments, auto, db, card
}

func TestParseMentions(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{name: "no mentions", body: "plain text", want: nil},
		{name: "single", body: "ping @alice about this", want: []string{"alice"}},
		{name: "multiple", body: "@alice and @bob.smith please review", want: []string{"alice", "bob.smith"}},
		{name: "duplicates collapse", body: "@alice @alice @ALICE", want: []string{"alice"}},
		{name: "bare at sign", body: "meet @ noon", want: nil},
		{name: "punctuation ends name", body: "thanks @carol-w!", want: []string{"carol-w"}},
		{name: "email-like", body: "mail me: x@example.com", want: []string{"example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseMentions(tt.body)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseMentions(%q) = %v, want %v", tt.body, got, tt.want)
			}
		})
	}
}

func TestCreateCommentEmitsCommentAdded(t *testing.T) {
	comments, auto, db, card := newCommentFixture(t)

	if _, err := auto.CreateAutomation(context.Background(), 1, &AutomationRequest{
		Name:        "bump on discussion",
		BoardID:     card.BoardID,
		TriggerType: TriggerCommentAdded,
		Actions: []ActionSpec{
			{Type: ActionUpdateCardPriority, Config: map[string]interface{}{"priority": "high"}},
		},
	}); err != nil {
		t.Fatalf("CreateAutomation() error: %v", err)
	}

	if _, err := comments.CreateComment(context.Background(), card.ID, 1, &CommentRequest{Body: "needs attention"}); err != nil {
		t.Fatalf("CreateComment() error: %v", err)
	}

	var got models.Card
	db.First(&got, card.ID)
	if got.Priority != "high" {
		t.Errorf("priority = %q, want high from COMMENT_ADDED rule", got.Priority)
	}
}

func TestCreateCommentResolvesMentions(t *testing.T) {
	comments, auto, db, card := newCommentFixture(t)

	alice := &models.User{Username: "alice", Email: "alice@example.com"}
	if err := db.Create(alice).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := auto.CreateAutomation(context.Background(), 1, &AutomationRequest{
		Name:              "alice was mentioned",
		BoardID:           card.BoardID,
		TriggerType:       TriggerUserMentioned,
		TriggerConditions: map[string]interface{}{"mentionedUserId": alice.ID},
		Actions: []ActionSpec{
			{Type: ActionUpdateCardStatus, Config: map[string]interface{}{"status": "in_progress"}},
		},
	}); err != nil {
		t.Fatalf("CreateAutomation() error: %v", err)
	}

	// @ghost has no user row and must not produce an event.
	if _, err := comments.CreateComment(context.Background(), card.ID, 1, &CommentRequest{Body: "@alice @ghost take a look"}); err != nil {
		t.Fatalf("CreateComment() error: %v", err)
	}

	var got models.Card
	db.First(&got, card.ID)
	if got.Status != "in_progress" {
		t.Errorf("status = %q, want in_progress from USER_MENTIONED rule", got.Status)
	}

	var count int64
	db.Model(&models.AutomationExecution{}).Count(&count)
	if count != 1 {
		t.Errorf("execution log has %d rows, want 1 (one resolved mention)", count)
	}
}

func TestCreateCommentRejectsBlankBody(t *testing.T) {
	comments, _, _, card := newCommentFixture(t)
	if _, err := comments.CreateComment(context.Background(), card.ID, 1, &CommentRequest{Body: "   "}); err == nil {
		t.Error("blank comment body was accepted")
	}
}

func TestListCommentsChronological(t *testing.T) {
	comments, _, _, card := newCommentFixture(t)

	for _, body := range []string{"first", "second", "third"} {
		if _, err := comments.CreateComment(context.Background(), card.ID, 1, &CommentRequest{Body: body}); err != nil {
			t.Fatalf("CreateComment(%s) error: %v", body, err)
		}
	}
	list, err := comments.ListComments(context.Background(), card.ID)
	if err != nil {
		t.Fatalf("ListComments() error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d comments, want 3", len(list))
	}
	if list[0].Body != "first" || list[2].Body != "third" {
		t.Errorf("order = [%s %s %s], want oldest first", list[0].Body, list[1].Body, list[2].Body)
	}
}
