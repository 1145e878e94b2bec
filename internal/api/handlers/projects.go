package handlers

import (
	"net/http"

	"github.com/hugh/mevamscale/internal/access"
	"github.com/hugh/mevamscale/internal/api/dto"
	"github.com/hugh/mevamscale/internal/api/middleware"
	"github.com/hugh/mevamscale/internal/api/validation"
	"github.com/hugh/mevamscale/internal/database/models"
	"github.com/hugh/mevamscale/internal/projects"
)

type ProjectHandler struct {
	projects *projects.Service
	gate     *access.Gate
}

func NewProjectHandler(projects *projects.Service, gate *access.Gate) *ProjectHandler {
	return &ProjectHandler{projects: projects, gate: gate}
}

// Create makes the caller admin of a new project in every domain.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateProjectRequest
	if !decode(w, r, &req) {
		return
	}
	req.Name = validation.CleanName(req.Name)
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	project, err := h.projects.Create(r.Context(), req.Name, middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// List returns the projects the caller belongs to.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.projects.ListForUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: list, Total: len(list)})
}

func (h *ProjectHandler) Members(w http.ResponseWriter, r *http.Request) {
	projectID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if err := h.gate.AuthorizeAny(r.Context(), middleware.GetPrincipal(r.Context()), projectID, models.ProjectRoleViewer); err != nil {
		writeError(w, r, err)
		return
	}

	members, err := h.projects.Members(r.Context(), projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: members, Total: len(members)})
}

// LinkMember requires admin in at least one domain of the project.
func (h *ProjectHandler) LinkMember(w http.ResponseWriter, r *http.Request) {
	projectID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req dto.LinkMemberRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	if err := h.gate.AuthorizeAny(r.Context(), middleware.GetPrincipal(r.Context()), projectID, models.ProjectRoleAdmin); err != nil {
		writeError(w, r, err)
		return
	}

	membership, err := h.projects.LinkMember(r.Context(), req.UserID, projectID, projects.Roles{
		Sound:      models.ProjectRole(req.RoleSound),
		Worship:    models.ProjectRole(req.RoleWorship),
		Projection: models.ProjectRole(req.RoleProjection),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, membership)
}
