package handlers

import (
	"net/http"

	"github.com/hugh/mevamscale/internal/access"
	"github.com/hugh/mevamscale/internal/api/dto"
	"github.com/hugh/mevamscale/internal/api/middleware"
	"github.com/hugh/mevamscale/internal/api/validation"
	"github.com/hugh/mevamscale/internal/database/models"
	"github.com/hugh/mevamscale/internal/roster"
)

type RosterHandler struct {
	roster *roster.Service
	gate   *access.Gate
}

func NewRosterHandler(roster *roster.Service, gate *access.Gate) *RosterHandler {
	return &RosterHandler{roster: roster, gate: gate}
}

// CreateEntry schedules one user. The caller needs editar in the entry's
// domain.
func (h *RosterHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	projectID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	var req dto.CreateEntryRequest
	if !decode(w, r, &req) {
		return
	}
	req.Function = validation.CleanName(req.Function)
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	domain := models.Domain(req.Domain)
	if err := h.gate.Authorize(r.Context(), middleware.GetPrincipal(r.Context()), projectID, domain, models.ProjectRoleEditor); err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := h.roster.CreateEntry(r.Context(), roster.EntryInput{
		ProjectID: projectID,
		UserID:    req.UserID,
		EventAt:   req.EventAt,
		Function:  req.Function,
		Domain:    domain,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// ScheduleTeam fans a team out into entries for one event. With async set
// the batch is handed to the worker and 202 is returned.
func (h *RosterHandler) ScheduleTeam(w http.ResponseWriter, r *http.Request) {
	projectID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	teamID, ok := urlID(w, r, "teamID")
	if !ok {
		return
	}

	var req dto.ScheduleTeamRequest
	if !decode(w, r, &req) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	principal := middleware.GetPrincipal(r.Context())
	domain := models.Domain(req.Domain)
	if err := h.gate.Authorize(r.Context(), principal, projectID, domain, models.ProjectRoleEditor); err != nil {
		writeError(w, r, err)
		return
	}

	in := roster.TeamScheduleInput{
		TeamID:      teamID,
		ProjectID:   projectID,
		EventAt:     req.EventAt,
		Domain:      domain,
		RequestedBy: &principal.UserID,
	}

	if req.Async {
		batch, err := h.roster.ScheduleTeamAsync(r.Context(), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		status := http.StatusAccepted
		if batch.Status == models.BatchStatusCompleted {
			status = http.StatusCreated
		}
		writeJSON(w, status, dto.ScheduleTeamResponse{Batch: batch, CreatedCount: batch.CreatedCount})
		return
	}

	result, err := h.roster.CreateEntriesFromTeam(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ScheduleTeamResponse{
		Batch:        result.Batch,
		CreatedCount: result.CreatedCount,
		Entries:      result.Entries,
	})
}

// GetBatch reports a fan-out and, once completed, the entries it wrote.
func (h *RosterHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batchID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	batch, err := h.roster.GetBatch(r.Context(), batchID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.gate.AuthorizeAny(r.Context(), middleware.GetPrincipal(r.Context()), batch.ProjectID, models.ProjectRoleViewer); err != nil {
		writeError(w, r, err)
		return
	}

	resp := dto.ScheduleTeamResponse{Batch: batch, CreatedCount: batch.CreatedCount}
	if batch.Status == models.BatchStatusCompleted {
		if resp.Entries, err = h.roster.BatchEntries(r.Context(), batchID); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *RosterHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	if err := h.gate.AuthorizeList(r.Context(), middleware.GetPrincipal(r.Context()), projectID); err != nil {
		writeError(w, r, err)
		return
	}

	lines, err := h.roster.ListByProject(r.Context(), projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse{Data: lines, Total: len(lines)})
}

func (h *RosterHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	entryID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	entry, err := h.roster.GetEntry(r.Context(), entryID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.gate.AuthorizeConfirm(r.Context(), middleware.GetPrincipal(r.Context()), entry); err != nil {
		writeError(w, r, err)
		return
	}

	entry, err = h.roster.Confirm(r.Context(), entryID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
