package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mini-rodalies-3d/subway/models"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// SQLiteStore keeps stations, lines and sections in a SQLite file.
// All writes go through writeMu so that a line's read-modify-write of its
// sections never interleaves with another writer.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// NewSQLiteStore opens (or creates) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite has a single writer, and an in-memory
	// database only lives as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			log.Printf("Warning: failed to set %s: %v", pragma, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// EnsureSchema creates tables if they don't exist
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// HealthCheck verifies the database is reachable
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) withWriteTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreateStation inserts a station with a unique name
func (s *SQLiteStore) CreateStation(ctx context.Context, req models.StationRequest) (*models.Station, error) {
	now := time.Now().UTC()

	var id int64
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO stations (name, created_at) VALUES (?, ?)`,
			req.Name, formatTime(now))
		if err != nil {
			if isSQLiteUniqueViolation(err) {
				return fmt.Errorf("station %q: %w", req.Name, ErrDuplicateName)
			}
			return fmt.Errorf("failed to insert station: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}

	return &models.Station{ID: id, Name: req.Name, CreatedAt: now}, nil
}

// GetStation returns one station
func (s *SQLiteStore) GetStation(ctx context.Context, id int64) (*models.Station, error) {
	var (
		st        models.Station
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM stations WHERE id = ?`, id,
	).Scan(&st.ID, &st.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("station %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query station: %w", err)
	}
	st.CreatedAt = parseTime(createdAt)
	return &st, nil
}

// ListStations returns all stations ordered by id
func (s *SQLiteStore) ListStations(ctx context.Context) ([]models.Station, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM stations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	stations := []models.Station{}
	for rows.Next() {
		var (
			st        models.Station
			createdAt string
		)
		if err := rows.Scan(&st.ID, &st.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan station row: %w", err)
		}
		st.CreatedAt = parseTime(createdAt)
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating station rows: %w", err)
	}
	return stations, nil
}

// DeleteStation removes a station that no line passes through
func (s *SQLiteStore) DeleteStation(ctx context.Context, id int64) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		var used int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sections WHERE up_station_id = ? OR down_station_id = ?`, id, id,
		).Scan(&used)
		if err != nil {
			return fmt.Errorf("failed to check station usage: %w", err)
		}
		if used > 0 {
			return fmt.Errorf("station %d: %w", id, ErrStationInUse)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM stations WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete station: %w", err)
		}
		return expectAffected(res, fmt.Sprintf("station %d", id))
	})
}

// CreateLine inserts a line together with its first section
func (s *SQLiteStore) CreateLine(ctx context.Context, req models.LineRequest) (*models.Line, error) {
	var lineID int64
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now().UTC())
		res, err := tx.ExecContext(ctx,
			`INSERT INTO lines (name, color, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			req.Name, req.Color, now, now)
		if err != nil {
			if isSQLiteUniqueViolation(err) {
				return fmt.Errorf("line %q: %w", req.Name, ErrDuplicateName)
			}
			return fmt.Errorf("failed to insert line: %w", err)
		}
		if lineID, err = res.LastInsertId(); err != nil {
			return err
		}

		_, err = addSection(ctx, &sqliteTx{tx: tx}, lineID, req.FirstSection())
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetLine(ctx, lineID)
}

// GetLine returns a line with its stations in order
func (s *SQLiteStore) GetLine(ctx context.Context, id int64) (*models.Line, error) {
	var (
		line                 models.Line
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, color, created_at, updated_at FROM lines WHERE id = ?`, id,
	).Scan(&line.ID, &line.Name, &line.Color, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("line %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query line: %w", err)
	}
	line.CreatedAt = parseTime(createdAt)
	line.UpdatedAt = parseTime(updatedAt)

	sections, err := querySQLiteSections(ctx, s.db, `WHERE line_id = ?`, id)
	if err != nil {
		return nil, err
	}

	stations, err := s.stationsByID(ctx,
		`WHERE id IN (SELECT up_station_id FROM sections WHERE line_id = ?
		              UNION SELECT down_station_id FROM sections WHERE line_id = ?)`, id, id)
	if err != nil {
		return nil, err
	}

	if err := assembleLine(&line, sections, stations); err != nil {
		return nil, err
	}
	return &line, nil
}

// ListLines returns every line with its stations in order
func (s *SQLiteStore) ListLines(ctx context.Context) ([]models.Line, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, color, created_at, updated_at FROM lines ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	defer rows.Close()

	lines := []models.Line{}
	for rows.Next() {
		var (
			line                 models.Line
			createdAt, updatedAt string
		)
		if err := rows.Scan(&line.ID, &line.Name, &line.Color, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan line row: %w", err)
		}
		line.CreatedAt = parseTime(createdAt)
		line.UpdatedAt = parseTime(updatedAt)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating line rows: %w", err)
	}

	sections, err := querySQLiteSections(ctx, s.db, ``)
	if err != nil {
		return nil, err
	}
	byLine := make(map[int64][]models.Section)
	for _, sec := range sections {
		byLine[sec.LineID] = append(byLine[sec.LineID], sec)
	}

	stations, err := s.stationsByID(ctx, ``)
	if err != nil {
		return nil, err
	}

	for i := range lines {
		if err := assembleLine(&lines[i], byLine[lines[i].ID], stations); err != nil {
			return nil, err
		}
	}
	return lines, nil
}

// UpdateLine changes a line's name and color
func (s *SQLiteStore) UpdateLine(ctx context.Context, id int64, req models.LineUpdateRequest) (*models.Line, error) {
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE lines SET name = ?, color = ?, updated_at = ? WHERE id = ?`,
			req.Name, req.Color, formatTime(time.Now().UTC()), id)
		if err != nil {
			if isSQLiteUniqueViolation(err) {
				return fmt.Errorf("line %q: %w", req.Name, ErrDuplicateName)
			}
			return fmt.Errorf("failed to update line: %w", err)
		}
		return expectAffected(res, fmt.Sprintf("line %d", id))
	})
	if err != nil {
		return nil, err
	}
	return s.GetLine(ctx, id)
}

// DeleteLine removes a line and all of its sections
func (s *SQLiteStore) DeleteLine(ctx context.Context, id int64) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sections WHERE line_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete sections: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM lines WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete line: %w", err)
		}
		return expectAffected(res, fmt.Sprintf("line %d", id))
	})
}

// AddSection inserts a section into a line, splitting an existing one if needed
func (s *SQLiteStore) AddSection(ctx context.Context, lineID int64, req models.SectionRequest) (*models.SectionChange, error) {
	var change *models.SectionChange
	err := s.withWriteTx(ctx, func(tx *sql.Tx) (err error) {
		change, err = addSection(ctx, &sqliteTx{tx: tx}, lineID, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// RemoveStation takes a station off a line, merging its sections if it was interior
func (s *SQLiteStore) RemoveStation(ctx context.Context, lineID, stationID int64) (*models.SectionChange, error) {
	var change *models.SectionChange
	err := s.withWriteTx(ctx, func(tx *sql.Tx) (err error) {
		change, err = removeStation(ctx, &sqliteTx{tx: tx}, lineID, stationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

func (s *SQLiteStore) stationsByID(ctx context.Context, where string, args ...any) (map[int64]models.Station, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM stations `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	stations := make(map[int64]models.Station)
	for rows.Next() {
		var (
			st        models.Station
			createdAt string
		)
		if err := rows.Scan(&st.ID, &st.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan station row: %w", err)
		}
		st.CreatedAt = parseTime(createdAt)
		stations[st.ID] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating station rows: %w", err)
	}
	return stations, nil
}

// sqlQuerier is satisfied by both *sql.DB and *sql.Tx
type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func querySQLiteSections(ctx context.Context, q sqlQuerier, where string, args ...any) ([]models.Section, error) {
	rows, err := q.QueryContext(ctx,
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

// sqliteTx runs section mutations inside one SQLite transaction. The
// store's writeMu already excludes other writers, so lockLine only checks
// that the line exists.
type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) lockLine(ctx context.Context, lineID int64) error {
	var one int
	err := t.tx.QueryRowContext(ctx, `SELECT 1 FROM lines WHERE id = ?`, lineID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("line %d: %w", lineID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to query line: %w", err)
	}
	return nil
}

func (t *sqliteTx) stationsExist(ctx context.Context, ids ...int64) error {
	for _, id := range ids {
		var one int
		err := t.tx.QueryRowContext(ctx, `SELECT 1 FROM stations WHERE id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("station %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to query station: %w", err)
		}
	}
	return nil
}

func (t *sqliteTx) loadSections(ctx context.Context, lineID int64) ([]models.Section, error) {
	return querySQLiteSections(ctx, t.tx, `WHERE line_id = ?`, lineID)
}

func (t *sqliteTx) deleteSection(ctx context.Context, id uuid.UUID) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM sections WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete section: %w", err)
	}
	return nil
}

func (t *sqliteTx) insertSection(ctx context.Context, sec models.Section) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO sections (id, line_id, up_station_id, down_station_id, distance) VALUES (?, ?, ?, ?, ?)`,
		sec.ID.String(), sec.LineID, sec.UpStationID, sec.DownStationID, sec.Distance)
	if err != nil {
		return fmt.Errorf("failed to insert section: %w", err)
	}
	return nil
}

func (t *sqliteTx) touchLine(ctx context.Context, lineID int64) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE lines SET updated_at = ? WHERE id = ?`, formatTime(time.Now().UTC()), lineID)
	if err != nil {
		return fmt.Errorf("failed to touch line: %w", err)
	}
	return nil
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch code := sqliteErr.Code(); {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case code&0xff == sqlite3.SQLITE_CONSTRAINT:
		// Connection without extended result codes
		return strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}

func expectAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// parseTime converts a stored RFC3339 string back to time.Time.
// Returns the zero time for empty or malformed values.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
