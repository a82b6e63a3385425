package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mini-rodalies-3d/subway/models"
)

// StationRepository defines the interface for station data operations
type StationRepository interface {
	CreateStation(ctx context.Context, req models.StationRequest) (*models.Station, error)
	ListStations(ctx context.Context) ([]models.Station, error)
	DeleteStation(ctx context.Context, id int64) error
}

// StationHandler handles HTTP requests for stations
type StationHandler struct {
	repo StationRepository
}

// NewStationHandler creates a new handler with the given repository
func NewStationHandler(repo StationRepository) *StationHandler {
	return &StationHandler{repo: repo}
}

// GetAllStationsResponse is the JSON response structure for GET /stations
type GetAllStationsResponse struct {
	Stations []models.Station `json:"stations"`
	Count    int              `json:"count"`
}

// CreateStation handles POST /stations
func (h *StationHandler) CreateStation(w http.ResponseWriter, r *http.Request) {
	var req models.StationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	station, err := h.repo.CreateStation(r.Context(), req)
	if err != nil {
		writeStoreError(w, err, "Failed to create station")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/stations/%d", station.ID))
	writeJSON(w, http.StatusCreated, station)
}

// GetAllStations handles GET /stations
func (h *StationHandler) GetAllStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.repo.ListStations(r.Context())
	if err != nil {
		writeStoreError(w, err, "Failed to retrieve stations")
		return
	}

	writeJSON(w, http.StatusOK, GetAllStationsResponse{
		Stations: stations,
		Count:    len(stations),
	})
}

// DeleteStation handles DELETE /stations/{stationId}
func (h *StationHandler) DeleteStation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "stationId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	if err := h.repo.DeleteStation(r.Context(), id); err != nil {
		writeStoreError(w, err, "Failed to delete station")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
