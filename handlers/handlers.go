package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mini-rodalies-3d/subway/internal/section"
	"github.com/mini-rodalies-3d/subway/repository"
)

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, details map[string]interface{}) {
	writeJSON(w, status, ErrorResponse{Error: message, Details: details})
}

// writeStoreError maps repository and chain errors to HTTP statuses.
// Validation failures and taken names are 400, missing entities are 404,
// deleting a station still on a line is 409. Anything else is a 500.
func writeStoreError(w http.ResponseWriter, err error, message string) {
	status := http.StatusInternalServerError
	key := "internal"

	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, section.ErrStationNotFound):
		status, key = http.StatusNotFound, "reason"
	case errors.Is(err, repository.ErrStationInUse):
		status, key = http.StatusConflict, "reason"
	case errors.Is(err, repository.ErrDuplicateName), section.IsValidation(err):
		status, key = http.StatusBadRequest, "reason"
	}

	writeError(w, status, message, map[string]interface{}{key: err.Error()})
}

// pathID reads a positive integer URL parameter
func pathID(r *http.Request, name string) (int64, error) {
	return parseID(chi.URLParam(r, name), name)
}

func parseID(raw, name string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%s parameter is required", name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return id, nil
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
