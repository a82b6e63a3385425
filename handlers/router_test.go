package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mini-rodalies-3d/subway/models"
	"github.com/mini-rodalies-3d/subway/repository"
)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := repository.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.EnsureSchema(context.Background()))

	return NewRouter(store, []string{"http://localhost:5173"})
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func postStation(t *testing.T, h http.Handler, name string) int64 {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/stations", models.StationRequest{Name: name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Station](t, rec).ID
}

func postLine(t *testing.T, h http.Handler, name string, up, down int64, distance int) models.Line {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/lines", models.LineRequest{
		Name: name, Color: "bg-red-600", UpStationID: up, DownStationID: down, Distance: distance,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Line](t, rec)
}

func orderedIDs(line models.Line) []int64 {
	ids := make([]int64, len(line.Stations))
	for i, st := range line.Stations {
		ids[i] = st.ID
	}
	return ids
}

func TestHealthEndpoint(t *testing.T) {
	h := setupRouter(t)

	rec := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "connected", resp.Database)
}

func TestHealthEndpointDatabaseDown(t *testing.T) {
	store, err := repository.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	rec := do(t, NewRouter(store, nil), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "disconnected", decode[HealthResponse](t, rec).Database)
}

func TestStationEndpoints(t *testing.T) {
	h := setupRouter(t)

	rec := do(t, h, http.MethodPost, "/stations", models.StationRequest{Name: "Sants"})
	require.Equal(t, http.StatusCreated, rec.Code)
	station := decode[models.Station](t, rec)
	assert.Equal(t, fmt.Sprintf("/stations/%d", station.ID), rec.Header().Get("Location"))

	rec = do(t, h, http.MethodPost, "/stations", models.StationRequest{Name: "Sants"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/stations", models.StationRequest{Name: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/stations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[GetAllStationsResponse](t, rec).Count)

	rec = do(t, h, http.MethodDelete, fmt.Sprintf("/stations/%d", station.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodDelete, fmt.Sprintf("/stations/%d", station.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/stations/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteStationInUseConflicts(t *testing.T) {
	h := setupRouter(t)
	a, b := postStation(t, h, "A"), postStation(t, h, "B")
	postLine(t, h, "L1", a, b, 10)

	rec := do(t, h, http.MethodDelete, fmt.Sprintf("/stations/%d", a), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLineEndpoints(t *testing.T) {
	h := setupRouter(t)
	a, b := postStation(t, h, "A"), postStation(t, h, "B")

	rec := do(t, h, http.MethodPost, "/lines", models.LineRequest{
		Name: "L1", Color: "bg-red-600", UpStationID: a, DownStationID: b, Distance: 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	line := decode[models.Line](t, rec)
	assert.Equal(t, fmt.Sprintf("/lines/%d", line.ID), rec.Header().Get("Location"))
	assert.Equal(t, []int64{a, b}, orderedIDs(line))

	rec = do(t, h, http.MethodPost, "/lines", models.LineRequest{
		Name: "L2", Color: "bg-red-600", UpStationID: a, DownStationID: a, Distance: 10,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/lines", models.LineRequest{
		Name: "L1", Color: "bg-blue-600", UpStationID: b, DownStationID: a, Distance: 3,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "duplicate line name")
	assert.Contains(t, decode[ErrorResponse](t, rec).Details["reason"], "name already exists")

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/lines/%d", line.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, decode[models.Line](t, rec).TotalDistance)

	rec = do(t, h, http.MethodPut, fmt.Sprintf("/lines/%d", line.ID), models.LineUpdateRequest{Name: "L1 Nord", Color: "#E2001A"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "L1 Nord", decode[models.Line](t, rec).Name)

	rec = do(t, h, http.MethodPut, fmt.Sprintf("/lines/%d", line.ID), models.LineUpdateRequest{Name: "L1", Color: "not a color"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/lines", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[GetAllLinesResponse](t, rec).Count)

	rec = do(t, h, http.MethodDelete, fmt.Sprintf("/lines/%d", line.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/lines/%d", line.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSectionEndpoints(t *testing.T) {
	h := setupRouter(t)
	a, b, c, d := postStation(t, h, "A"), postStation(t, h, "B"), postStation(t, h, "C"), postStation(t, h, "D")
	line := postLine(t, h, "L1", a, b, 10)
	sections := fmt.Sprintf("/lines/%d/sections", line.ID)

	rec := do(t, h, http.MethodPost, sections, models.SectionRequest{UpStationID: b, DownStationID: c, Distance: 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, sections, models.SectionRequest{UpStationID: a, DownStationID: d, Distance: 4})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[SectionChangeResponse](t, rec)
	assert.Equal(t, []int64{a, d, b, c}, orderedIDs(*resp.Line))
	assert.Len(t, resp.Change.Removed, 1)
	assert.Len(t, resp.Change.Added, 2)
	assert.Equal(t, 3, resp.Change.SectionCount)

	rec = do(t, h, http.MethodDelete, fmt.Sprintf("%s?stationId=%d", sections, d), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decode[SectionChangeResponse](t, rec)
	assert.Equal(t, []int64{a, b, c}, orderedIDs(*resp.Line))
	assert.Equal(t, 15, resp.Line.TotalDistance)
}

func TestSectionEndpointErrors(t *testing.T) {
	h := setupRouter(t)
	a, b, c := postStation(t, h, "A"), postStation(t, h, "B"), postStation(t, h, "C")
	line := postLine(t, h, "L1", a, b, 10)
	sections := fmt.Sprintf("/lines/%d/sections", line.ID)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"split too long", http.MethodPost, sections, models.SectionRequest{UpStationID: a, DownStationID: c, Distance: 10}, http.StatusBadRequest},
		{"already connected", http.MethodPost, sections, models.SectionRequest{UpStationID: a, DownStationID: b, Distance: 3}, http.StatusBadRequest},
		{"unknown station", http.MethodPost, sections, models.SectionRequest{UpStationID: b, DownStationID: 999, Distance: 3}, http.StatusNotFound},
		{"unknown line", http.MethodPost, "/lines/999/sections", models.SectionRequest{UpStationID: b, DownStationID: c, Distance: 3}, http.StatusNotFound},
		{"malformed body", http.MethodPost, sections, "nope", http.StatusBadRequest},
		{"missing stationId", http.MethodDelete, sections, nil, http.StatusBadRequest},
		{"invalid stationId", http.MethodDelete, sections + "?stationId=x", nil, http.StatusBadRequest},
		{"last section", http.MethodDelete, fmt.Sprintf("%s?stationId=%d", sections, a), nil, http.StatusBadRequest},
		{"station not on line", http.MethodDelete, fmt.Sprintf("%s?stationId=%d", sections, c), nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}

	rec := do(t, h, http.MethodGet, fmt.Sprintf("/lines/%d", line.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{a, b}, orderedIDs(decode[models.Line](t, rec)))
}

func TestLineStatsEndpoint(t *testing.T) {
	h := setupRouter(t)
	a, b, c := postStation(t, h, "A"), postStation(t, h, "B"), postStation(t, h, "C")
	line := postLine(t, h, "L1", a, b, 4)
	rec := do(t, h, http.MethodPost, fmt.Sprintf("/lines/%d/sections", line.ID), models.SectionRequest{UpStationID: b, DownStationID: c, Distance: 8})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/lines/%d/stats", line.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[models.LineStats](t, rec)

	assert.Equal(t, 3, stats.StationCount)
	assert.Equal(t, 2, stats.SectionCount)
	assert.Equal(t, 12, stats.TotalDistance)
	assert.InDelta(t, 6.0, stats.MeanDistance, 1e-9)
	assert.InDelta(t, 2.0, stats.StdDevDistance, 1e-9)
	assert.Equal(t, 4, stats.Shortest)
	assert.Equal(t, 8, stats.Longest)
}

func TestMetricsEndpoint(t *testing.T) {
	h := setupRouter(t)
	a, b := postStation(t, h, "A"), postStation(t, h, "B")
	line := postLine(t, h, "L1", a, b, 4)
	do(t, h, http.MethodPost, fmt.Sprintf("/lines/%d/sections", line.ID), models.SectionRequest{UpStationID: a, DownStationID: b, Distance: 2})

	rec := do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "subway_section_mutations_total")
}

func TestRemoveStationOverflowingMergeIsBadRequest(t *testing.T) {
	h := setupRouter(t)
	a, b, c := postStation(t, h, "A"), postStation(t, h, "B"), postStation(t, h, "C")
	line := postLine(t, h, "L1", a, b, math.MaxInt)
	sections := fmt.Sprintf("/lines/%d/sections", line.ID)

	rec := do(t, h, http.MethodPost, sections, models.SectionRequest{UpStationID: b, DownStationID: c, Distance: math.MaxInt})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodDelete, fmt.Sprintf("%s?stationId=%d", sections, b), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/lines/%d", line.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{a, b, c}, orderedIDs(decode[models.Line](t, rec)))
}
