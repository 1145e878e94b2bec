package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/mevamscale/internal/api/dto"
	"github.com/hugh/mevamscale/internal/api/middleware"
	"github.com/hugh/mevamscale/internal/apperr"
)

var errInvalidID = apperr.New(apperr.Validation, "invalid id")

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an application error onto its status code. Storage
// failures are logged with their cause; the client only sees the message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Storage {
		middleware.LoggerFrom(r.Context()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, apperr.HTTPStatus(kind), dto.ErrorResponse{
		Error: apperr.Message(err),
		Kind:  string(kind),
	})
}

func writeValidation(w http.ResponseWriter, details map[string]string) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
		Error:   "Validation failed",
		Kind:    string(apperr.Validation),
		Details: details,
	})
}

// decode reads a JSON body into v, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: "Invalid request body",
			Kind:  string(apperr.Validation),
		})
		return false
	}
	return true
}

// urlID parses a UUID path parameter, writing a 400 on failure.
func urlID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, r, errInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
