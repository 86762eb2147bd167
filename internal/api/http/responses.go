package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"memberhub-backend/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps the error taxonomy to status codes. Conflicts
// (illegal edges, downgrades, version races) are 409 so callers can branch
// without string matching; the kind field names the failure.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		illegal    *domain.IllegalTransitionError
		downgrade  *domain.GeographyDowngradeError
		hierarchy  *domain.InvalidHierarchyError
		validation *domain.ValidationError
	)
	switch {
	case errors.As(err, &illegal):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Kind: "illegal_transition"})
	case errors.As(err, &downgrade):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Kind: "geography_downgrade"})
	case errors.Is(err, domain.ErrConcurrentModification):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Kind: "concurrent_modification"})
	case errors.As(err, &hierarchy):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "invalid_hierarchy"})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "validation"})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found", Kind: "not_found"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
