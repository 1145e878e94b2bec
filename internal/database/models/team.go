package models

import (
	"time"

	"github.com/google/uuid"
)

// Team is a named roster ("banda") scoped to a single project.
type Team struct {
	Base
	ProjectID uuid.UUID `gorm:"type:uuid;index;not null" json:"project_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`

	// Relationships
	Members       []TeamMembership `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"-"`
	RosterBatches []RosterBatch    `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Team) TableName() string {
	return "teams"
}

type TeamMembership struct {
	TeamID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"team_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"user_id"`
	Function  string    `gorm:"size:100;not null" json:"function"`
	CreatedAt time.Time `json:"created_at"`
}

func (TeamMembership) TableName() string {
	return "team_memberships"
}
