package models

import (
	"time"

	"github.com/google/uuid"
)

type Project struct {
	Base
	Name string `gorm:"uniqueIndex;not null" json:"name"`

	// Relationships
	Memberships     []Membership    `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	Teams           []Team          `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	ScheduleEntries []ScheduleEntry `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	RosterBatches   []RosterBatch   `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Project) TableName() string {
	return "projects"
}

// Membership holds a user's role in each domain of one project.
type Membership struct {
	UserID         uuid.UUID   `gorm:"type:uuid;primaryKey" json:"user_id"`
	ProjectID      uuid.UUID   `gorm:"type:uuid;primaryKey;index" json:"project_id"`
	RoleSound      ProjectRole `gorm:"not null;default:'visualizar'" json:"role_sound"`
	RoleWorship    ProjectRole `gorm:"not null;default:'visualizar'" json:"role_worship"`
	RoleProjection ProjectRole `gorm:"not null;default:'visualizar'" json:"role_projection"`
	CreatedAt      time.Time   `json:"created_at"`
}

func (Membership) TableName() string {
	return "project_memberships"
}

// RoleFor returns the role held in domain d.
func (m Membership) RoleFor(d Domain) ProjectRole {
	switch d {
	case DomainSound:
		return m.RoleSound
	case DomainWorship:
		return m.RoleWorship
	case DomainProjection:
		return m.RoleProjection
	}
	return ""
}

// HighestRole returns the strongest role across all domains.
func (m Membership) HighestRole() ProjectRole {
	best := ProjectRole("")
	for _, d := range Domains {
		if r := m.RoleFor(d); r.Rank() > best.Rank() {
			best = r
		}
	}
	return best
}
