package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"eventconnect-server/internal/service"
	"eventconnect-server/internal/util"
)

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		util.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}

// respondServiceError maps a service error to its HTTP status. Unknown
// errors become a generic 500 with full detail kept server-side.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSession), errors.Is(err, service.ErrInvalidCode):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrNoAccount):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		util.Error("Request failed", util.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
