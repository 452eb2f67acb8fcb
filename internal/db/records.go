package db

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/calibration.report/internal/calibration"
)

// traceBlobSize is the encoded size of a Record.Trace: channel-major
// little-endian float64 samples.
const traceBlobSize = calibration.NumChannels * calibration.TraceLength * 8

func encodeTrace(trace *[calibration.NumChannels][calibration.TraceLength]float64) []byte {
	buf := make([]byte, traceBlobSize)
	off := 0
	for c := range trace {
		for _, x := range trace[c] {
			binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(x))
			off += 8
		}
	}
	return buf
}

func decodeTrace(buf []byte, trace *[calibration.NumChannels][calibration.TraceLength]float64) error {
	if len(buf) != traceBlobSize {
		return fmt.Errorf("trace blob has %d bytes, want %d", len(buf), traceBlobSize)
	}
	off := 0
	for c := range trace {
		for i := range trace[c] {
			trace[c][i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[off:]))
			off += 8
		}
	}
	return nil
}

// InsertRecords stores records under runID in a single transaction,
// preserving their order.
func (db *DB) InsertRecords(runID string, records []calibration.Record) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO calibration_records (run_id, du_id, du_datetime, trace) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		if _, err := stmt.Exec(runID, r.DUID, r.DUDatetime.Unix(), encodeTrace(&r.Trace)); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Records returns the records of a run in insertion order.
func (db *DB) Records(runID string) ([]calibration.Record, error) {
	rows, err := db.Query(
		`SELECT du_id, du_datetime, trace FROM calibration_records WHERE run_id = ? ORDER BY record_id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []calibration.Record{}
	for rows.Next() {
		var (
			r       calibration.Record
			seconds int64
			blob    []byte
		)
		if err := rows.Scan(&r.DUID, &seconds, &blob); err != nil {
			return nil, err
		}
		r.DUDatetime = calibration.DatetimeFromSeconds(seconds)
		if err := decodeTrace(blob, &r.Trace); err != nil {
			return nil, fmt.Errorf("du %d at %d: %w", r.DUID, seconds, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// DUCount summarizes the records of one detector unit within a run.
type DUCount struct {
	DUID  int64
	Count int
	First time.Time
	Last  time.Time
}

// DUSummary returns per-detector-unit record counts of a run, by du_id.
func (db *DB) DUSummary(runID string) ([]DUCount, error) {
	rows, err := db.Query(
		`SELECT du_id, COUNT(*), MIN(du_datetime), MAX(du_datetime)
		   FROM calibration_records
		  WHERE run_id = ?
		  GROUP BY du_id
		  ORDER BY du_id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DUCount
	for rows.Next() {
		var (
			c           DUCount
			first, last int64
		)
		if err := rows.Scan(&c.DUID, &c.Count, &first, &last); err != nil {
			return nil, err
		}
		c.First = calibration.DatetimeFromSeconds(first)
		c.Last = calibration.DatetimeFromSeconds(last)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
