package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/hugh/mevamscale/internal/database/models"
)

type CreateProjectRequest struct {
	Name string `json:"name"`
}

func (r CreateProjectRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Name == "" {
		errors["name"] = "Name is required"
	}
	return errors
}

// User ids are decoded with uuid.UUID's text unmarshaller, so a malformed id
// fails decoding and a missing one is uuid.Nil.

type LinkMemberRequest struct {
	UserID         uuid.UUID `json:"user_id"`
	RoleSound      string    `json:"role_sound,omitempty"`
	RoleWorship    string    `json:"role_worship,omitempty"`
	RoleProjection string    `json:"role_projection,omitempty"`
}

func (r LinkMemberRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.UserID == uuid.Nil {
		errors["user_id"] = "user_id is required"
	}
	for field, role := range map[string]string{
		"role_sound":      r.RoleSound,
		"role_worship":    r.RoleWorship,
		"role_projection": r.RoleProjection,
	} {
		if role != "" && !models.ProjectRole(role).Valid() {
			errors[field] = "Role must be visualizar, editar or admin"
		}
	}

	return errors
}

type CreateTeamRequest struct {
	Name string `json:"name"`
}

func (r CreateTeamRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Name == "" {
		errors["name"] = "Name is required"
	}
	return errors
}

type AddTeamMemberRequest struct {
	UserID   uuid.UUID `json:"user_id"`
	Function string    `json:"function"`
}

func (r AddTeamMemberRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.UserID == uuid.Nil {
		errors["user_id"] = "user_id is required"
	}
	if r.Function == "" {
		errors["function"] = "Function is required"
	}
	return errors
}

type CreateEntryRequest struct {
	UserID   uuid.UUID `json:"user_id"`
	EventAt  time.Time `json:"event_at"`
	Function string    `json:"function"`
	Domain   string    `json:"domain"`
}

func (r CreateEntryRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.UserID == uuid.Nil {
		errors["user_id"] = "user_id is required"
	}
	if r.EventAt.IsZero() {
		errors["event_at"] = "Event time is required"
	}
	if r.Function == "" {
		errors["function"] = "Function is required"
	}
	if !models.Domain(r.Domain).Valid() {
		errors["domain"] = "Domain must be sound, worship or projection"
	}
	return errors
}

type ScheduleTeamRequest struct {
	EventAt time.Time `json:"event_at"`
	Domain  string    `json:"domain"`
	Async   bool      `json:"async,omitempty"`
}

func (r ScheduleTeamRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.EventAt.IsZero() {
		errors["event_at"] = "Event time is required"
	}
	if !models.Domain(r.Domain).Valid() {
		errors["domain"] = "Domain must be sound, worship or projection"
	}
	return errors
}

type ScheduleTeamResponse struct {
	Batch        *models.RosterBatch    `json:"batch"`
	CreatedCount int                    `json:"created_count"`
	Entries      []models.ScheduleEntry `json:"entries,omitempty"`
}

type SetSkillsRequest struct {
	Functions []string `json:"functions"`
}

type SkillsResponse struct {
	UserID    string   `json:"user_id"`
	Functions []string `json:"functions"`
}
