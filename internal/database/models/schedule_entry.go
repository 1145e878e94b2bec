package models

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleEntry assigns one user to one function at one event time.
// Pending until confirmed; confirmation is never undone.
type ScheduleEntry struct {
	Base
	ProjectID   uuid.UUID  `gorm:"type:uuid;index:idx_entries_project_event;not null" json:"project_id"`
	UserID      uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	EventAt     time.Time  `gorm:"index:idx_entries_project_event;not null" json:"event_at"`
	Function    string     `gorm:"size:100;not null" json:"function"`
	Domain      Domain     `gorm:"size:20;not null" json:"domain"`
	Confirmed   bool       `gorm:"not null;default:false" json:"confirmed"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`

	// Set when the entry was produced by a team fan-out.
	BatchID *uuid.UUID `gorm:"type:uuid;index" json:"batch_id,omitempty"`
}

func (ScheduleEntry) TableName() string {
	return "schedule_entries"
}

type BatchStatus string

const (
	BatchStatusPending   BatchStatus = "pending"
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusFailed    BatchStatus = "failed"
)

// RosterBatch records one team fan-out request and its outcome.
type RosterBatch struct {
	Base
	ProjectID    uuid.UUID   `gorm:"type:uuid;index;not null" json:"project_id"`
	TeamID       uuid.UUID   `gorm:"type:uuid;index;not null" json:"team_id"`
	EventAt      time.Time   `gorm:"not null" json:"event_at"`
	Domain       Domain      `gorm:"size:20;not null" json:"domain"`
	Status       BatchStatus `gorm:"size:20;not null;index;default:'pending'" json:"status"`
	CreatedCount int         `gorm:"not null;default:0" json:"created_count"`
	Error        string      `json:"error,omitempty"`
	RequestedBy  *uuid.UUID  `gorm:"type:uuid" json:"requested_by,omitempty"`

	// Asynq task ID when the batch was queued for the worker
	TaskID string `gorm:"index" json:"task_id,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (RosterBatch) TableName() string {
	return "roster_batches"
}
