// Package trackstore persists filtered track records to SQLite,
// mirroring the teacher's internal/db package: an embedded
// golang-migrate schema, a thin *sql.DB wrapper, and a per-run
// identifier tagging every row.
package trackstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/yeltrix/radartrack/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store writes filtered track records to a SQLite database, tagging
// every row with a single run ID generated at Open time.
type Store struct {
	db    *sql.DB
	runID string
}

// Open opens (creating if necessary) the SQLite database at path and
// migrates it to the latest schema version.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("trackstore: open %s: %w", path, err)
	}

	s := &Store{db: db, runID: uuid.NewString()}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// RunID returns the identifier tagging every record written by this
// Store instance.
func (s *Store) RunID() string {
	return s.runID
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Write persists one filtered track record.
func (s *Store) Write(rec model.OutputRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO filtered_track (run_id, t, r, az, el, sx, sy, sz, svx, svy, svz)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, rec.T, rec.R, rec.Az, rec.El,
		rec.State[0], rec.State[1], rec.State[2],
		rec.State[3], rec.State[4], rec.State[5],
	)
	if err != nil {
		return fmt.Errorf("trackstore: write: %w", err)
	}
	return nil
}

func (s *Store) migrateUp() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("trackstore: iofs source: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("trackstore: sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("trackstore: migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("trackstore: migrate up: %w", err)
	}
	return nil
}
