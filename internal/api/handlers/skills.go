package handlers

import (
	"net/http"

	"github.com/hugh/mevamscale/internal/api/dto"
	"github.com/hugh/mevamscale/internal/api/middleware"
	"github.com/hugh/mevamscale/internal/api/validation"
	"github.com/hugh/mevamscale/internal/skills"
)

type SkillHandler struct {
	skills *skills.Service
}

func NewSkillHandler(skills *skills.Service) *SkillHandler {
	return &SkillHandler{skills: skills}
}

// SetMine replaces the caller's skill set.
func (h *SkillHandler) SetMine(w http.ResponseWriter, r *http.Request) {
	var req dto.SetSkillsRequest
	if !decode(w, r, &req) {
		return
	}
	for i, fn := range req.Functions {
		req.Functions[i] = validation.CleanName(fn)
	}

	userID := middleware.GetUserID(r.Context())
	functions, err := h.skills.Set(r.Context(), userID, req.Functions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SkillsResponse{UserID: userID.String(), Functions: functions})
}

func (h *SkillHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(w, r, "id")
	if !ok {
		return
	}

	functions, err := h.skills.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SkillsResponse{UserID: userID.String(), Functions: functions})
}
