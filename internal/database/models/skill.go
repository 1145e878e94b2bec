package models

import "github.com/google/uuid"

// Skill is a function a volunteer can perform. Informational only.
type Skill struct {
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Function string    `gorm:"primaryKey;size:100" json:"function"`
}

func (Skill) TableName() string {
	return "skills"
}
