package models

import (
	"errors"

	"github.com/google/uuid"

	"github.com/mini-rodalies-3d/subway/internal/section"
)

// Section is one stored edge of a line, mapped 1:1 to the sections table
type Section struct {
	ID            uuid.UUID `db:"id" json:"id"`
	LineID        int64     `db:"line_id" json:"lineId"`
	UpStationID   int64     `db:"up_station_id" json:"upStationId"`
	DownStationID int64     `db:"down_station_id" json:"downStationId"`
	Distance      int       `db:"distance" json:"distance"`
}

// Segment converts the stored row into the chain's value type
func (s Section) Segment() section.Segment {
	return section.Segment{
		Up:       section.StationID(s.UpStationID),
		Down:     section.StationID(s.DownStationID),
		Distance: s.Distance,
	}
}

// NewSection builds a row for a segment with a fresh id
func NewSection(lineID int64, seg section.Segment) Section {
	return Section{
		ID:            uuid.New(),
		LineID:        lineID,
		UpStationID:   int64(seg.Up),
		DownStationID: int64(seg.Down),
		Distance:      seg.Distance,
	}
}

// SectionRequest is the JSON body for POST /lines/{lineId}/sections
type SectionRequest struct {
	UpStationID   int64 `json:"upStationId"`
	DownStationID int64 `json:"downStationId"`
	Distance      int   `json:"distance"`
}

// Validate checks the fields that don't need the line to be loaded
func (r *SectionRequest) Validate() error {
	if r.UpStationID <= 0 {
		return errors.New("upStationId is required")
	}
	if r.DownStationID <= 0 {
		return errors.New("downStationId is required")
	}
	if r.UpStationID == r.DownStationID {
		return errors.New("upStationId and downStationId must differ")
	}
	if r.Distance <= 0 {
		return errors.New("distance must be greater than 0")
	}
	return nil
}

// Segment converts the request into the chain's value type
func (r *SectionRequest) Segment() section.Segment {
	return section.Segment{
		Up:       section.StationID(r.UpStationID),
		Down:     section.StationID(r.DownStationID),
		Distance: r.Distance,
	}
}

// SectionChange records what a single add/remove did to a line's sections
type SectionChange struct {
	ChangeID uuid.UUID `json:"changeId"`
	LineID   int64     `json:"lineId"`
	Op       string    `json:"op"` // "add" or "remove"
	Removed  []Section `json:"removed"`
	Added    []Section `json:"added"`

	// SectionCount is the line's size after the change
	SectionCount int `json:"sectionCount"`
}

// Section change operations
const (
	OpAddSection    = "add"
	OpRemoveStation = "remove"
)
