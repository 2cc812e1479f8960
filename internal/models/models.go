package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a platform account. Role is the platform-wide role; workspace
// and board membership carry their own roles.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"unique;not null" json:"username"`
	Email     string         `gorm:"unique;not null" json:"email"`
	Name      string         `json:"name"`
	Avatar    string         `json:"avatar"`
	Role      string         `gorm:"default:'member'" json:"role"` // member, admin
	Status    string         `gorm:"default:'active'" json:"status"`
	LastLogin *time.Time     `json:"last_login"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Workspace is the tenancy root; everything else hangs off a workspace.
type Workspace struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	OwnerID     uint           `gorm:"index" json:"owner_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Owner   User          `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Boards  []Board       `gorm:"foreignKey:WorkspaceID" json:"boards,omitempty"`
	Members []WorkspaceMember `gorm:"foreignKey:WorkspaceID" json:"members,omitempty"`
}

type WorkspaceMember struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	WorkspaceID uint      `gorm:"index;uniqueIndex:idx_workspace_user" json:"workspace_id"`
	UserID      uint      `gorm:"index;uniqueIndex:idx_workspace_user" json:"user_id"`
	Role        string    `gorm:"default:'member'" json:"role"` // admin, member, observer
	CreatedAt   time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// Board is a kanban-style project surface containing ordered lists of cards.
type Board struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	WorkspaceID uint           `gorm:"index" json:"workspace_id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Color       string         `json:"color"`
	CreatedByID uint           `gorm:"index" json:"created_by_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Lists   []List        `gorm:"foreignKey:BoardID" json:"lists,omitempty"`
	Tags    []Tag         `gorm:"foreignKey:BoardID" json:"tags,omitempty"`
	Members []BoardMember `gorm:"foreignKey:BoardID" json:"members,omitempty"`
}

type BoardMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BoardID   uint      `gorm:"index;uniqueIndex:idx_board_user" json:"board_id"`
	UserID    uint      `gorm:"index;uniqueIndex:idx_board_user" json:"user_id"`
	Role      string    `gorm:"default:'member'" json:"role"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// List is an ordered column on a board.
type List struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	BoardID   uint           `gorm:"index" json:"board_id"`
	Name      string         `gorm:"not null" json:"name"`
	Position  int            `gorm:"default:0" json:"position"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Cards []Card `gorm:"foreignKey:ListID" json:"cards,omitempty"`
}

// Card is the unit of work; target of most automation actions.
type Card struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	BoardID     uint           `gorm:"index" json:"board_id"`
	ListID      uint           `gorm:"index" json:"list_id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Status      string         `gorm:"default:'open'" json:"status"`     // open, in_progress, done, archived
	Priority    string         `gorm:"default:'normal'" json:"priority"` // low, normal, high, urgent
	Position    int            `gorm:"default:0" json:"position"`
	AssigneeID  *uint          `gorm:"index" json:"assignee_id"`
	CreatedByID uint           `gorm:"index" json:"created_by_id"`
	DueDate     *time.Time     `gorm:"index" json:"due_date"`
	CompletedAt *time.Time     `json:"completed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Assignee    *User        `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Tasks       []Task       `gorm:"foreignKey:CardID" json:"tasks,omitempty"`
	Comments    []Comment    `gorm:"foreignKey:CardID" json:"comments,omitempty"`
	Attachments []Attachment `gorm:"foreignKey:CardID" json:"attachments,omitempty"`
	Tags        []Tag        `gorm:"many2many:card_tags" json:"tags,omitempty"`
}

// Tag is board-scoped; cards reference tags through card_tags.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BoardID   uint      `gorm:"index;uniqueIndex:idx_board_tag_name" json:"board_id"`
	Name      string    `gorm:"not null;uniqueIndex:idx_board_tag_name" json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// Task is a checklist item on a card.
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CardID      uint       `gorm:"index" json:"card_id"`
	Title       string     `gorm:"not null" json:"title"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	Position    int        `gorm:"default:0" json:"position"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CardID    uint      `gorm:"index" json:"card_id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

type Attachment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CardID      uint      `gorm:"index" json:"card_id"`
	UserID      uint      `gorm:"index" json:"user_id"`
	FileName    string    `gorm:"not null" json:"file_name"`
	StorageName string    `gorm:"not null" json:"storage_name"` // uuid-based name on disk
	FileSize    int64     `json:"file_size"`
	MimeType    string    `json:"mime_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// Document is a board-scoped text document.
type Document struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	BoardID   uint           `gorm:"index" json:"board_id"`
	Title     string         `gorm:"not null" json:"title"`
	Content   string         `gorm:"type:text" json:"content"`
	CreatedByID uint         `gorm:"index" json:"created_by_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type CalendarEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	CardID    *uint     `gorm:"index" json:"card_id"`
	Title     string    `gorm:"not null" json:"title"`
	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
}

type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	CardID    *uint     `gorm:"index" json:"card_id"`
	Type      string    `gorm:"default:'info'" json:"type"` // info, mention, assignment, automation
	Message   string    `gorm:"type:text;not null" json:"message"`
	Read      bool      `gorm:"default:false;index" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditLog rows are append-only; nothing in the server updates or deletes them.
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	WorkspaceID uint     `gorm:"index" json:"workspace_id"`
	BoardID    uint      `gorm:"index" json:"board_id"`
	UserID     uint      `gorm:"index" json:"user_id"`
	Action     string    `gorm:"not null" json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   uint      `json:"entity_id"`
	Detail     string    `gorm:"type:text" json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}
