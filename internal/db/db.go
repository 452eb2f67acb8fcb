// Package db persists converted calibration records and conversion runs in
// SQLite. The schema is owned by the embedded migrations.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/calibration.report/internal/timeutil"
)

// DB is the calibration store, a SQLite handle with the clock used for run stamps.
type DB struct {
	*sql.DB
	clock timeutil.Clock
}

// OpenDB opens the database without touching the schema.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection keeps pragmas and
	// in-memory databases consistent across statements.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	return &DB{DB: db, clock: timeutil.RealClock{}}, nil
}

// NewDB opens the database and applies all pending migrations.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// SetClock replaces the clock used to stamp conversion runs.
func (db *DB) SetClock(c timeutil.Clock) {
	db.clock = c
}
