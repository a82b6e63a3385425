package models

import (
	"errors"
	"strings"
	"time"
)

// Station is a stop that lines can pass through
type Station struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// StationRequest is the JSON body for POST /stations
type StationRequest struct {
	Name string `json:"name"`
}

// Validate checks the request has a usable name
func (r *StationRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}
