package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mini-rodalies-3d/subway/models"
)

//go:embed schema_postgres.sql
var postgresSchema string

// PostgresStore keeps stations, lines and sections in Postgres. Section
// mutations lock the line row, so writers of different lines never wait on
// each other.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates tables if they don't exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// HealthCheck verifies the database is reachable
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreateStation inserts a station with a unique name
func (s *PostgresStore) CreateStation(ctx context.Context, req models.StationRequest) (*models.Station, error) {
	var st models.Station
	err := s.pool.QueryRow(ctx,
		`INSERT INTO stations (name) VALUES ($1) RETURNING id, name, created_at`, req.Name,
	).Scan(&st.ID, &st.Name, &st.CreatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, fmt.Errorf("station %q: %w", req.Name, ErrDuplicateName)
		}
		return nil, fmt.Errorf("failed to insert station: %w", err)
	}
	return &st, nil
}

// GetStation returns one station
func (s *PostgresStore) GetStation(ctx context.Context, id int64) (*models.Station, error) {
	var st models.Station
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM stations WHERE id = $1`, id,
	).Scan(&st.ID, &st.Name, &st.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("station %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query station: %w", err)
	}
	return &st, nil
}

// ListStations returns all stations ordered by id
func (s *PostgresStore) ListStations(ctx context.Context) ([]models.Station, error) {
	stations, err := s.queryStations(ctx, `ORDER BY id`)
	if err != nil {
		return nil, err
	}
	if stations == nil {
		stations = []models.Station{}
	}
	return stations, nil
}

// DeleteStation removes a station that no line passes through
func (s *PostgresStore) DeleteStation(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var used bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM sections WHERE up_station_id = $1 OR down_station_id = $1)`, id,
		).Scan(&used)
		if err != nil {
			return fmt.Errorf("failed to check station usage: %w", err)
		}
		if used {
			return fmt.Errorf("station %d: %w", id, ErrStationInUse)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM stations WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete station: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("station %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// CreateLine inserts a line together with its first section
func (s *PostgresStore) CreateLine(ctx context.Context, req models.LineRequest) (*models.Line, error) {
	var lineID int64
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO lines (name, color) VALUES ($1, $2) RETURNING id`, req.Name, req.Color,
		).Scan(&lineID)
		if err != nil {
			if isPgUniqueViolation(err) {
				return fmt.Errorf("line %q: %w", req.Name, ErrDuplicateName)
			}
			return fmt.Errorf("failed to insert line: %w", err)
		}

		_, err = addSection(ctx, &pgTx{tx: tx}, lineID, req.FirstSection())
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetLine(ctx, lineID)
}

// GetLine returns a line with its stations in order
func (s *PostgresStore) GetLine(ctx context.Context, id int64) (*models.Line, error) {
	var line models.Line
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, color, created_at, updated_at FROM lines WHERE id = $1`, id,
	).Scan(&line.ID, &line.Name, &line.Color, &line.CreatedAt, &line.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("line %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query line: %w", err)
	}

	sections, err := queryPgSections(ctx, s.pool, `WHERE line_id = $1`, id)
	if err != nil {
		return nil, err
	}

	stations, err := s.queryStations(ctx,
		`WHERE id IN (SELECT up_station_id FROM sections WHERE line_id = $1
		              UNION SELECT down_station_id FROM sections WHERE line_id = $1)`, id)
	if err != nil {
		return nil, err
	}

	if err := assembleLine(&line, sections, stationIndex(stations)); err != nil {
		return nil, err
	}
	return &line, nil
}

// ListLines returns every line with its stations in order
func (s *PostgresStore) ListLines(ctx context.Context) ([]models.Line, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, color, created_at, updated_at FROM lines ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	defer rows.Close()

	lines := []models.Line{}
	for rows.Next() {
		var line models.Line
		if err := rows.Scan(&line.ID, &line.Name, &line.Color, &line.CreatedAt, &line.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan line row: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating line rows: %w", err)
	}

	sections, err := queryPgSections(ctx, s.pool, ``)
	if err != nil {
		return nil, err
	}
	byLine := make(map[int64][]models.Section)
	for _, sec := range sections {
		byLine[sec.LineID] = append(byLine[sec.LineID], sec)
	}

	stations, err := s.queryStations(ctx, ``)
	if err != nil {
		return nil, err
	}
	index := stationIndex(stations)

	for i := range lines {
		if err := assembleLine(&lines[i], byLine[lines[i].ID], index); err != nil {
			return nil, err
		}
	}
	return lines, nil
}

// UpdateLine changes a line's name and color
func (s *PostgresStore) UpdateLine(ctx context.Context, id int64, req models.LineUpdateRequest) (*models.Line, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE lines SET name = $1, color = $2, updated_at = NOW() WHERE id = $3`,
		req.Name, req.Color, id)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, fmt.Errorf("line %q: %w", req.Name, ErrDuplicateName)
		}
		return nil, fmt.Errorf("failed to update line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("line %d: %w", id, ErrNotFound)
	}
	return s.GetLine(ctx, id)
}

// DeleteLine removes a line; its sections go with it via ON DELETE CASCADE
func (s *PostgresStore) DeleteLine(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM lines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("line %d: %w", id, ErrNotFound)
	}
	return nil
}

// AddSection inserts a section into a line, splitting an existing one if needed
func (s *PostgresStore) AddSection(ctx context.Context, lineID int64, req models.SectionRequest) (*models.SectionChange, error) {
	var change *models.SectionChange
	err := s.withTx(ctx, func(tx pgx.Tx) (err error) {
		change, err = addSection(ctx, &pgTx{tx: tx}, lineID, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// RemoveStation takes a station off a line, merging its sections if it was interior
func (s *PostgresStore) RemoveStation(ctx context.Context, lineID, stationID int64) (*models.SectionChange, error) {
	var change *models.SectionChange
	err := s.withTx(ctx, func(tx pgx.Tx) (err error) {
		change, err = removeStation(ctx, &pgTx{tx: tx}, lineID, stationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

func (s *PostgresStore) queryStations(ctx context.Context, clause string, args ...any) ([]models.Station, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, created_at FROM stations `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		var st models.Station
		if err := rows.Scan(&st.ID, &st.Name, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan station row: %w", err)
		}
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating station rows: %w", err)
	}
	return stations, nil
}

func stationIndex(stations []models.Station) map[int64]models.Station {
	index := make(map[int64]models.Station, len(stations))
	for _, st := range stations {
		index[st.ID] = st
	}
	return index
}

// pgQuerier is satisfied by both *pgxpool.Pool and pgx.Tx
type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryPgSections(ctx context.Context, q pgQuerier, where string, args ...any) ([]models.Section, error) {
	rows, err := q.Query(ctx,
		`SELECT id, line_id, up_station_id, down_station_id, distance FROM sections `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer rows.Close()

	var sections []models.Section
	for rows.Next() {
		var sec models.Section
		if err := rows.Scan(&sec.ID, &sec.LineID, &sec.UpStationID, &sec.DownStationID, &sec.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan section row: %w", err)
		}
		sections = append(sections, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating section rows: %w", err)
	}
	return sections, nil
}

// pgTx runs section mutations inside one Postgres transaction
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) lockLine(ctx context.Context, lineID int64) error {
	var id int64
	err := t.tx.QueryRow(ctx, `SELECT id FROM lines WHERE id = $1 FOR UPDATE`, lineID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("line %d: %w", lineID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to lock line: %w", err)
	}
	return nil
}

func (t *pgTx) stationsExist(ctx context.Context, ids ...int64) error {
	for _, id := range ids {
		var exists bool
		err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stations WHERE id = $1)`, id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to query station: %w", err)
		}
		if !exists {
			return fmt.Errorf("station %d: %w", id, ErrNotFound)
		}
	}
	return nil
}

func (t *pgTx) loadSections(ctx context.Context, lineID int64) ([]models.Section, error) {
	return queryPgSections(ctx, t.tx, `WHERE line_id = $1`, lineID)
}

func (t *pgTx) deleteSection(ctx context.Context, id uuid.UUID) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM sections WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete section: %w", err)
	}
	return nil
}

func (t *pgTx) insertSection(ctx context.Context, sec models.Section) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO sections (id, line_id, up_station_id, down_station_id, distance) VALUES ($1, $2, $3, $4, $5)`,
		sec.ID, sec.LineID, sec.UpStationID, sec.DownStationID, sec.Distance)
	if err != nil {
		return fmt.Errorf("failed to insert section: %w", err)
	}
	return nil
}

func (t *pgTx) touchLine(ctx context.Context, lineID int64) error {
	if _, err := t.tx.Exec(ctx, `UPDATE lines SET updated_at = NOW() WHERE id = $1`, lineID); err != nil {
		return fmt.Errorf("failed to touch line: %w", err)
	}
	return nil
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
