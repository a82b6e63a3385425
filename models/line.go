package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Line is a subway line with its stations in travel order
type Line struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Color         string    `db:"color" json:"color"`
	Stations      []Station `json:"stations"`
	Sections      []Section `json:"sections"`
	TotalDistance int       `json:"totalDistance"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// LineRequest is the JSON body for POST /lines. A line is always created
// together with its first section.
type LineRequest struct {
	Name          string `json:"name"`
	Color         string `json:"color"`
	UpStationID   int64  `json:"upStationId"`
	DownStationID int64  `json:"downStationId"`
	Distance      int    `json:"distance"`
}

// Validate checks the request before any station lookups
func (r *LineRequest) Validate() error {
	update := LineUpdateRequest{Name: r.Name, Color: r.Color}
	if err := update.Validate(); err != nil {
		return err
	}
	r.Name, r.Color = update.Name, update.Color

	first := r.FirstSection()
	return first.Validate()
}

// FirstSection returns the section the line is created with
func (r *LineRequest) FirstSection() SectionRequest {
	return SectionRequest{
		UpStationID:   r.UpStationID,
		DownStationID: r.DownStationID,
		Distance:      r.Distance,
	}
}

// LineUpdateRequest is the JSON body for PUT /lines/{lineId}
type LineUpdateRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Colors are CSS-ish tokens such as "bg-red-600" or hex values such as "#E2001A"
var colorPattern = regexp.MustCompile(`^(#[0-9A-Fa-f]{6}|[a-z][a-z0-9-]*)$`)

// Validate checks name and color
func (r *LineUpdateRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Color = strings.TrimSpace(r.Color)

	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Color == "" {
		return errors.New("color is required")
	}
	if !colorPattern.MatchString(r.Color) {
		return errors.New("color must be a hex value like #E2001A or a token like bg-red-600")
	}
	return nil
}

// LineStats summarizes section distances of one line
type LineStats struct {
	LineID         int64   `json:"lineId"`
	StationCount   int     `json:"stationCount"`
	SectionCount   int     `json:"sectionCount"`
	TotalDistance  int     `json:"totalDistance"`
	MeanDistance   float64 `json:"meanDistance"`
	StdDevDistance float64 `json:"stdDevDistance"`
	Shortest       int     `json:"shortest"`
	Longest        int     `json:"longest"`
}
