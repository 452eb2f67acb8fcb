package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/calibration.report/internal/calibration"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("db: conversion run not found")

// Run is one invocation of the converter over a list of files.
type Run struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt *time.Time
	Files      []string
	Stats      calibration.Stats
}

// StartRun records the start of a conversion over files and returns its id.
func (db *DB) StartRun(files []string) (string, error) {
	if files == nil {
		files = []string{}
	}
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return "", fmt.Errorf("failed to encode file list: %w", err)
	}

	runID := uuid.NewString()
	_, err = db.Exec(
		`INSERT INTO conversion_runs (run_id, started_at, files) VALUES (?, ?, ?)`,
		runID, db.clock.Now().UnixNano(), string(filesJSON),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return runID, nil
}

// FinishRun stamps the run as finished with its gate statistics.
func (db *DB) FinishRun(runID string, stats calibration.Stats) error {
	res, err := db.Exec(
		`UPDATE conversion_runs
		    SET finished_at = ?, events_seen = ?, records_kept = ?, bad_length = ?, over_range = ?
		  WHERE run_id = ?`,
		db.clock.Now().UnixNano(), stats.Seen, stats.Kept, stats.BadLength, stats.OverRange, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// DeleteRun removes a run and, through the foreign key, its records. It is
// used to discard a run whose conversion failed.
func (db *DB) DeleteRun(runID string) error {
	res, err := db.Exec(`DELETE FROM conversion_runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

const runColumns = `run_id, started_at, finished_at, files, events_seen, records_kept, bad_length, over_range`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var (
		r          Run
		startedAt  int64
		finishedAt sql.NullInt64
		files      string
	)
	if err := row.Scan(
		&r.RunID,
		&startedAt,
		&finishedAt,
		&files,
		&r.Stats.Seen,
		&r.Stats.Kept,
		&r.Stats.BadLength,
		&r.Stats.OverRange,
	); err != nil {
		return nil, err
	}
	r.StartedAt = time.Unix(0, startedAt).UTC()
	if finishedAt.Valid {
		t := time.Unix(0, finishedAt.Int64).UTC()
		r.FinishedAt = &t
	}
	if err := json.Unmarshal([]byte(files), &r.Files); err != nil {
		return nil, fmt.Errorf("failed to decode file list of run %s: %w", r.RunID, err)
	}
	return &r, nil
}

// Run returns a single conversion run.
func (db *DB) Run(runID string) (*Run, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM conversion_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return r, err
}

// Runs returns the most recent conversion runs, newest first.
func (db *DB) Runs(limit int) ([]Run, error) {
	rows, err := db.Query(`SELECT `+runColumns+` FROM conversion_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}
