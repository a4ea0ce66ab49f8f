package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"tempo/internal/core"
)

type errorBody struct {
	Error string `json:"error"`
}

// respondJSON writes v as a JSON body with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// respondError maps domain errors onto HTTP statuses: not found is 404,
// invalid input 400, conflicts 409, frozen audits 422, everything else 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, core.ErrAuditFrozen):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		respondJSON(w, status, errorBody{Error: "internal error"})
		return
	}

	slog.WarnContext(r.Context(), "Request rejected",
		"method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	respondJSON(w, status, errorBody{Error: err.Error()})
}
