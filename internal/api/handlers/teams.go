package handlers

import (
	"net/http"

	"github.com/hugh/mevamscale/internal/access"
	"github.com/hugh/mevamscale/internal/api/dto"
	"github.com/hugh/mevamscale/internal/api/middleware"
	"github.com/hugh/mevamscale/internal/api/validation"
	"github.com/hugh/mevamscale/internal/database/models"
	"github.com/hugh/mevamscale/internal/teams"
)

type TeamHandler struct {
	teams *teams.Service
	gate  *access.Gate
}

func NewTeamHandler(teams *teams.Service, gate *access.Gate) *TeamHandler {
	return &TeamHandler{teams: teams, gate: gate}
}

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	projectID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req dto.CreateTeamRequest
	if !decode(w, r, &req) {
		return
	}
	req.Name = validation.CleanName(req.Name)
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	if err := h.gate.AuthorizeAny(r.Context(), middleware.GetPrincipal(r.Context()), projectID, models.ProjectRoleEditor); err != nil {
		writeError(w, r, err)
		return
	}

	team, err := h.teams.Create(r.Context(), projectID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if err := h.gate.AuthorizeAny(r.Context(), middleware.GetPrincipal(r.Context()), projectID, models.ProjectRoleViewer); err != nil {
		writeError(w, r, err)
		return
	}

	list, err := h.teams.ListByProject(r.Context(), projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: list, Total: len(list)})
}

func (h *TeamHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	team, ok := h.teamFor(w, r, models.ProjectRoleEditor)
	if !ok {
		return
	}

	var req dto.AddTeamMemberRequest
	if !decode(w, r, &req) {
		return
	}
	req.Function = validation.CleanName(req.Function)
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	membership, err := h.teams.AddMember(r.Context(), team.ID, req.UserID, req.Function)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, membership)
}

func (h *TeamHandler) Members(w http.ResponseWriter, r *http.Request) {
	team, ok := h.teamFor(w, r, models.ProjectRoleViewer)
	if !ok {
		return
	}

	members, err := h.teams.Members(r.Context(), team.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: members, Total: len(members)})
}

// teamFor loads the team in the URL and checks the caller's role on its
// project.
func (h *TeamHandler) teamFor(w http.ResponseWriter, r *http.Request, min models.ProjectRole) (*models.Team, bool) {
	teamID, ok := urlID(w, r, "id")
	if !ok {
		return nil, false
	}

	team, err := h.teams.Get(r.Context(), teamID)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if err := h.gate.AuthorizeAny(r.Context(), middleware.GetPrincipal(r.Context()), team.ProjectID, min); err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return team, true
}
