package models

type User struct {
	Base
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Name         string     `gorm:"not null" json:"name"`
	Role         GlobalRole `gorm:"not null;default:'volunteer'" json:"role"` // admin, sound, projection, worship, volunteer

	// Bumped by every skill replace-all; the update takes the row lock that
	// serialises concurrent replacements for the same user.
	SkillsVersion int `gorm:"not null;default:0" json:"-"`

	// Relationships
	Memberships     []Membership     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Skills          []Skill          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TeamMemberships []TeamMembership `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	ScheduleEntries []ScheduleEntry  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (User) TableName() string {
	return "users"
}
