package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mini-rodalies-3d/subway/internal/section"
)

func TestStationRequestValidate(t *testing.T) {
	req := StationRequest{Name: "  Sants  "}
	require.NoError(t, req.Validate())
	assert.Equal(t, "Sants", req.Name)

	empty := StationRequest{Name: " \t"}
	assert.Error(t, empty.Validate())
}

func TestSectionRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     SectionRequest
		wantErr bool
	}{
		{"valid", SectionRequest{UpStationID: 1, DownStationID: 2, Distance: 3}, false},
		{"missing up", SectionRequest{DownStationID: 2, Distance: 3}, true},
		{"missing down", SectionRequest{UpStationID: 1, Distance: 3}, true},
		{"same station", SectionRequest{UpStationID: 1, DownStationID: 1, Distance: 3}, true},
		{"zero distance", SectionRequest{UpStationID: 1, DownStationID: 2}, true},
		{"negative distance", SectionRequest{UpStationID: 1, DownStationID: 2, Distance: -4}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLineRequestValidate(t *testing.T) {
	req := LineRequest{Name: " L1 ", Color: "bg-red-600", UpStationID: 1, DownStationID: 2, Distance: 10}
	require.NoError(t, req.Validate())
	assert.Equal(t, "L1", req.Name)
	assert.Equal(t, SectionRequest{UpStationID: 1, DownStationID: 2, Distance: 10}, req.FirstSection())

	for _, color := range []string{"#E2001A", "#e2001a", "bg-green-500", "red"} {
		r := LineUpdateRequest{Name: "L1", Color: color}
		assert.NoError(t, r.Validate(), color)
	}
	for _, color := range []string{"", "#E200", "Red", "bg red"} {
		r := LineUpdateRequest{Name: "L1", Color: color}
		assert.Error(t, r.Validate(), color)
	}

	noSection := LineRequest{Name: "L1", Color: "red"}
	assert.Error(t, noSection.Validate())
}

func TestNewSection(t *testing.T) {
	seg := section.Segment{Up: 3, Down: 7, Distance: 12}
	sec := NewSection(5, seg)

	assert.NotEmpty(t, sec.ID.String())
	assert.Equal(t, int64(5), sec.LineID)
	assert.Equal(t, seg, sec.Segment())
	assert.NotEqual(t, sec.ID, NewSection(5, seg).ID)
}
