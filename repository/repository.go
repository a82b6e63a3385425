package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mini-rodalies-3d/subway/internal/section"
	"github.com/mini-rodalies-3d/subway/models"
)

var (
	// ErrNotFound is returned when a requested line or station does not exist
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicateName is returned when a line or station name is already taken
	ErrDuplicateName = errors.New("name already exists")

	// ErrStationInUse is returned when deleting a station that a line still passes through
	ErrStationInUse = errors.New("station is used by a line")
)

// Store is the persistence contract shared by the SQLite and Postgres backends
type Store interface {
	CreateStation(ctx context.Context, req models.StationRequest) (*models.Station, error)
	GetStation(ctx context.Context, id int64) (*models.Station, error)
	ListStations(ctx context.Context) ([]models.Station, error)
	DeleteStation(ctx context.Context, id int64) error

	CreateLine(ctx context.Context, req models.LineRequest) (*models.Line, error)
	GetLine(ctx context.Context, id int64) (*models.Line, error)
	ListLines(ctx context.Context) ([]models.Line, error)
	UpdateLine(ctx context.Context, id int64, req models.LineUpdateRequest) (*models.Line, error)
	DeleteLine(ctx context.Context, id int64) error

	AddSection(ctx context.Context, lineID int64, req models.SectionRequest) (*models.SectionChange, error)
	RemoveStation(ctx context.Context, lineID, stationID int64) (*models.SectionChange, error)

	HealthCheck(ctx context.Context) error
	Close() error
}

// sectionTx is the part of a backend transaction that section mutations need.
// Each backend implements it over its own driver and placeholder syntax.
type sectionTx interface {
	// lockLine blocks other writers of the line until the transaction ends
	lockLine(ctx context.Context, lineID int64) error
	stationsExist(ctx context.Context, ids ...int64) error
	loadSections(ctx context.Context, lineID int64) ([]models.Section, error)
	deleteSection(ctx context.Context, id uuid.UUID) error
	insertSection(ctx context.Context, s models.Section) error
	touchLine(ctx context.Context, lineID int64) error
}

// mutateLine loads the line's sections into a chain, applies mutate and
// writes the resulting diff, all inside the caller's transaction. Any error
// leaves the stored sections untouched once the caller rolls back.
func mutateLine(ctx context.Context, tx sectionTx, lineID int64, op string,
	mutate func(*section.Chain) (section.Change, error)) (*models.SectionChange, error) {

	if err := tx.lockLine(ctx, lineID); err != nil {
		return nil, err
	}

	rows, err := tx.loadSections(ctx, lineID)
	if err != nil {
		return nil, err
	}

	chain, err := restoreChain(lineID, rows)
	if err != nil {
		return nil, err
	}

	change, err := mutate(chain)
	if err != nil {
		return nil, err
	}

	result := &models.SectionChange{
		ChangeID:     uuid.New(),
		LineID:       lineID,
		Op:           op,
		Removed:      make([]models.Section, 0, len(change.Removed)),
		Added:        make([]models.Section, 0, len(change.Added)),
		SectionCount: chain.Len(),
	}

	// Deletes go first so the (line, up) and (line, down) unique keys stay satisfied
	byEndpoints := indexSections(rows)
	for _, seg := range change.Removed {
		row, ok := byEndpoints[endpoints{seg.Up, seg.Down}]
		if !ok {
			return nil, fmt.Errorf("line %d: removed section %s has no stored row", lineID, seg)
		}
		if err := tx.deleteSection(ctx, row.ID); err != nil {
			return nil, err
		}
		result.Removed = append(result.Removed, row)
	}

	for _, seg := range change.Added {
		row := models.NewSection(lineID, seg)
		if err := tx.insertSection(ctx, row); err != nil {
			return nil, err
		}
		result.Added = append(result.Added, row)
	}

	if err := tx.touchLine(ctx, lineID); err != nil {
		return nil, err
	}

	return result, nil
}

func addSection(ctx context.Context, tx sectionTx, lineID int64, req models.SectionRequest) (*models.SectionChange, error) {
	if err := tx.stationsExist(ctx, req.UpStationID, req.DownStationID); err != nil {
		return nil, err
	}
	return mutateLine(ctx, tx, lineID, models.OpAddSection, func(c *section.Chain) (section.Change, error) {
		return c.Insert(req.Segment())
	})
}

func removeStation(ctx context.Context, tx sectionTx, lineID, stationID int64) (*models.SectionChange, error) {
	return mutateLine(ctx, tx, lineID, models.OpRemoveStation, func(c *section.Chain) (section.Change, error) {
		return c.RemoveStation(section.StationID(stationID))
	})
}

type endpoints struct {
	up, down section.StationID
}

func indexSections(rows []models.Section) map[endpoints]models.Section {
	index := make(map[endpoints]models.Section, len(rows))
	for _, row := range rows {
		seg := row.Segment()
		index[endpoints{seg.Up, seg.Down}] = row
	}
	return index
}

func restoreChain(lineID int64, rows []models.Section) (*section.Chain, error) {
	segments := make([]section.Segment, len(rows))
	for i, row := range rows {
		segments[i] = row.Segment()
	}

	chain, err := section.Restore(segments...)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", lineID, err)
	}
	return chain, nil
}

// assembleLine fills in the ordered stations and sections of a line from
// its stored rows.
func assembleLine(line *models.Line, rows []models.Section, stations map[int64]models.Station) error {
	chain, err := restoreChain(line.ID, rows)
	if err != nil {
		return err
	}

	ordered, err := chain.OrderedStations()
	if err != nil {
		return fmt.Errorf("line %d: %w", line.ID, err)
	}

	line.Stations = make([]models.Station, 0, len(ordered))
	for _, id := range ordered {
		station, ok := stations[int64(id)]
		if !ok {
			return fmt.Errorf("line %d: station %d is missing", line.ID, id)
		}
		line.Stations = append(line.Stations, station)
	}

	segments, err := chain.Segments()
	if err != nil {
		return fmt.Errorf("line %d: %w", line.ID, err)
	}

	byEndpoints := indexSections(rows)
	line.Sections = make([]models.Section, 0, len(segments))
	for _, seg := range segments {
		line.Sections = append(line.Sections, byEndpoints[endpoints{seg.Up, seg.Down}])
	}
	line.TotalDistance = chain.TotalDistance()

	return nil
}
