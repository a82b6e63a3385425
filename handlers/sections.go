package handlers

import (
	"context"
	"net/http"

	"github.com/mini-rodalies-3d/subway/internal/metrics"
	"github.com/mini-rodalies-3d/subway/models"
)

// SectionRepository defines the interface for section mutations.
// Implementations serialize mutations per line.
type SectionRepository interface {
	AddSection(ctx context.Context, lineID int64, req models.SectionRequest) (*models.SectionChange, error)
	RemoveStation(ctx context.Context, lineID, stationID int64) (*models.SectionChange, error)
	GetLine(ctx context.Context, id int64) (*models.Line, error)
}

// SectionHandler handles HTTP requests that change a line's sections
type SectionHandler struct {
	repo SectionRepository
}

// NewSectionHandler creates a new handler with the given repository
func NewSectionHandler(repo SectionRepository) *SectionHandler {
	return &SectionHandler{repo: repo}
}

// SectionChangeResponse is the JSON response for section mutations
type SectionChangeResponse struct {
	Line   *models.Line          `json:"line"`
	Change *models.SectionChange `json:"change"`
}

// AddSection handles POST /lines/{lineId}/sections
func (h *SectionHandler) AddSection(w http.ResponseWriter, r *http.Request) {
	lineID, err := pathID(r, "lineId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	var req models.SectionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	change, err := h.repo.AddSection(r.Context(), lineID, req)
	observe(models.OpAddSection, change, err)
	if err != nil {
		writeStoreError(w, err, "Failed to add section")
		return
	}

	h.respondWithLine(w, r, change)
}

// RemoveStation handles DELETE /lines/{lineId}/sections?stationId=
func (h *SectionHandler) RemoveStation(w http.ResponseWriter, r *http.Request) {
	lineID, err := pathID(r, "lineId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	stationID, err := parseID(r.URL.Query().Get("stationId"), "stationId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	change, err := h.repo.RemoveStation(r.Context(), lineID, stationID)
	observe(models.OpRemoveStation, change, err)
	if err != nil {
		writeStoreError(w, err, "Failed to remove station")
		return
	}

	h.respondWithLine(w, r, change)
}

func (h *SectionHandler) respondWithLine(w http.ResponseWriter, r *http.Request, change *models.SectionChange) {
	line, err := h.repo.GetLine(r.Context(), change.LineID)
	if err != nil {
		writeStoreError(w, err, "Failed to retrieve line")
		return
	}

	writeJSON(w, http.StatusOK, SectionChangeResponse{Line: line, Change: change})
}

func observe(op string, change *models.SectionChange, err error) {
	sections := 0
	if change != nil {
		sections = change.SectionCount
	}
	metrics.ObserveMutation(op, sections, err)
}
