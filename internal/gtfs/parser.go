package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
)

// ErrMissingFile is returned when a required feed file is absent
var ErrMissingFile = errors.New("gtfs file missing")

// row gives access to a CSV record by header name
type row struct {
	record []string
	idx    map[string]int
}

func (r row) str(field string) string {
	if i, ok := r.idx[field]; ok && i < len(r.record) {
		return strings.TrimSpace(r.record[i])
	}
	return ""
}

func (r row) int(field string) int {
	n, _ := strconv.Atoi(r.str(field))
	return n
}

func (r row) float(field string) float64 {
	f, _ := strconv.ParseFloat(r.str(field), 64)
	return f
}

// Parse reads a GTFS zip file. stops.txt, routes.txt, trips.txt and
// stop_times.txt must all be present.
func Parse(zipPath string) (*Data, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	files := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		files[f.Name] = f
	}

	data := &Data{}
	readers := []struct {
		name string
		fn   func(row)
	}{
		{"routes.txt", func(r row) {
			data.Routes = append(data.Routes, Route{
				RouteID:        r.str("route_id"),
				RouteShortName: r.str("route_short_name"),
				RouteLongName:  r.str("route_long_name"),
				RouteType:      r.int("route_type"),
				RouteColor:     r.str("route_color"),
			})
		}},
		{"stops.txt", func(r row) {
			data.Stops = append(data.Stops, Stop{
				StopID:        r.str("stop_id"),
				StopName:      r.str("stop_name"),
				StopLat:       r.float("stop_lat"),
				StopLon:       r.float("stop_lon"),
				LocationType:  r.int("location_type"),
				ParentStation: r.str("parent_station"),
			})
		}},
		{"trips.txt", func(r row) {
			data.Trips = append(data.Trips, Trip{
				RouteID:     r.str("route_id"),
				TripID:      r.str("trip_id"),
				DirectionID: r.int("direction_id"),
			})
		}},
		{"stop_times.txt", func(r row) {
			data.StopTimes = append(data.StopTimes, StopTime{
				TripID:       r.str("trip_id"),
				StopID:       r.str("stop_id"),
				StopSequence: r.int("stop_sequence"),
			})
		}},
	}

	for _, rd := range readers {
		f, ok := files[rd.name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, rd.name)
		}
		if err := readCSV(f, rd.fn); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", rd.name, err)
		}
	}

	log.Printf("GTFS parsed: %d routes, %d stops, %d trips, %d stop times",
		len(data.Routes), len(data.Stops), len(data.Trips), len(data.StopTimes))

	return data, nil
}

// readCSV calls fn for every record after the header. Malformed records
// are skipped.
func readCSV(f *zip.File, fn func(row)) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return err
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		// Some feeds start with a UTF-8 BOM
		idx[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}

	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		fn(row{record: record, idx: idx})
	}

	if skipped > 0 {
		log.Printf("Warning: skipped %d malformed records in %s", skipped, f.Name)
	}
	return nil
}
