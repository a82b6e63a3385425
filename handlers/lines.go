package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mini-rodalies-3d/subway/internal/metrics"
	"github.com/mini-rodalies-3d/subway/models"
)

// LineRepository defines the interface for line data operations
type LineRepository interface {
	CreateLine(ctx context.Context, req models.LineRequest) (*models.Line, error)
	GetLine(ctx context.Context, id int64) (*models.Line, error)
	ListLines(ctx context.Context) ([]models.Line, error)
	UpdateLine(ctx context.Context, id int64, req models.LineUpdateRequest) (*models.Line, error)
	DeleteLine(ctx context.Context, id int64) error
}

// LineHandler handles HTTP requests for lines
type LineHandler struct {
	repo LineRepository
}

// NewLineHandler creates a new handler with the given repository
func NewLineHandler(repo LineRepository) *LineHandler {
	return &LineHandler{repo: repo}
}

// GetAllLinesResponse is the JSON response structure for GET /lines
type GetAllLinesResponse struct {
	Lines []models.Line `json:"lines"`
	Count int           `json:"count"`
}

// CreateLine handles POST /lines
// The body carries the line's first section as well as its name and color
func (h *LineHandler) CreateLine(w http.ResponseWriter, r *http.Request) {
	var req models.LineRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	line, err := h.repo.CreateLine(r.Context(), req)
	if err != nil {
		writeStoreError(w, err, "Failed to create line")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/lines/%d", line.ID))
	writeJSON(w, http.StatusCreated, line)
}

// GetAllLines handles GET /lines
func (h *LineHandler) GetAllLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.repo.ListLines(r.Context())
	if err != nil {
		writeStoreError(w, err, "Failed to retrieve lines")
		return
	}

	writeJSON(w, http.StatusOK, GetAllLinesResponse{
		Lines: lines,
		Count: len(lines),
	})
}

// GetLine handles GET /lines/{lineId}
// Returns the line with its stations in travel order
func (h *LineHandler) GetLine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "lineId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	line, err := h.repo.GetLine(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Failed to retrieve line")
		return
	}

	writeJSON(w, http.StatusOK, line)
}

// UpdateLine handles PUT /lines/{lineId}
func (h *LineHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "lineId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	var req models.LineUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	line, err := h.repo.UpdateLine(r.Context(), id, req)
	if err != nil {
		writeStoreError(w, err, "Failed to update line")
		return
	}

	writeJSON(w, http.StatusOK, line)
}

// DeleteLine handles DELETE /lines/{lineId}
func (h *LineHandler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "lineId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	if err := h.repo.DeleteLine(r.Context(), id); err != nil {
		writeStoreError(w, err, "Failed to delete line")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetLineStats handles GET /lines/{lineId}/stats
// Summarizes section distances in one pass over the line
func (h *LineHandler) GetLineStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "lineId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	line, err := h.repo.GetLine(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Failed to retrieve line")
		return
	}

	writeJSON(w, http.StatusOK, lineStats(line))
}

func lineStats(line *models.Line) models.LineStats {
	var stats metrics.RunningStats
	for _, sec := range line.Sections {
		stats.Add(sec.Distance)
	}

	return models.LineStats{
		LineID:         line.ID,
		StationCount:   len(line.Stations),
		SectionCount:   stats.Count(),
		TotalDistance:  stats.Sum(),
		MeanDistance:   stats.Mean(),
		StdDevDistance: stats.StdDev(),
		Shortest:       stats.Min(),
		Longest:        stats.Max(),
	}
}
