package models

import "time"

// Automation is a stored rule: one trigger plus an ordered action list.
// Conditions and actions are JSON columns; their shapes are enforced by
// the catalogs in the services package, not by the database.
type Automation struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	WorkspaceID       uint      `gorm:"index" json:"workspace_id"`
	BoardID           uint      `gorm:"index" json:"board_id"`
	Name              string    `gorm:"not null" json:"name"`
	Description       string    `gorm:"type:text" json:"description"`
	TriggerType       string    `gorm:"not null;index" json:"trigger_type"`
	TriggerConditions string    `gorm:"type:text" json:"trigger_conditions"` // JSON: {field: value}
	Actions           string    `gorm:"type:text" json:"actions"`            // JSON: [{type,config,order}]
	Active            bool      `gorm:"default:true" json:"active"`
	CreatedByID       uint      `gorm:"index" json:"created_by_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AutomationExecution records one outcome per rule firing. Append-only:
// rows are created by the evaluator and never mutated.
type AutomationExecution struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AutomationID uint       `gorm:"index" json:"automation_id"`
	BoardID      uint       `gorm:"index" json:"board_id"`
	CardID       uint       `gorm:"index" json:"card_id"`
	Description  string     `gorm:"type:text" json:"description"`
	Status       string     `gorm:"index" json:"status"` // success, failure
	Error        string     `gorm:"type:text" json:"error"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`

	Automation Automation `gorm:"foreignKey:AutomationID" json:"automation,omitempty"`
}
