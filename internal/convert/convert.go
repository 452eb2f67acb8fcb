// Package convert drives the conversion of calibration files into records:
// it pulls raw batches from a BatchSource, normalizes each one and
// concatenates the survivors in order.
package convert

import (
	"fmt"

	"github.com/banshee-data/calibration.report/internal/calibration"
	"github.com/banshee-data/calibration.report/internal/monitoring"
)

// BatchSource streams raw batches from a list of files, one batch at a time,
// in file order. Iterate stops at and returns the first error from fn.
type BatchSource interface {
	Iterate(paths []string, fn func(batch *calibration.RawBatch) error) error
}

// Result summarizes a conversion.
type Result struct {
	Records []calibration.Record
	Batches int
	Stats   calibration.Stats
}

// Converter applies the normalizer to every batch of a BatchSource.
type Converter struct {
	Source BatchSource
}

// New returns a Converter reading from src.
func New(src BatchSource) *Converter {
	return &Converter{Source: src}
}

// Convert reads every batch from paths and returns the good records in
// input order. An empty path list yields an empty result. Read errors from
// the source are returned as-is, wrapped; nothing is retried.
func (c *Converter) Convert(paths []string) (*Result, error) {
	res := &Result{Records: []calibration.Record{}}
	if len(paths) == 0 {
		return res, nil
	}

	err := c.Source.Iterate(paths, func(batch *calibration.RawBatch) error {
		records, stats, err := calibration.NormalizeWithStats(batch)
		if err != nil {
			return fmt.Errorf("batch %d: %w", res.Batches, err)
		}
		res.Batches++
		res.Stats.Add(stats)
		res.Records = append(res.Records, records...)
		monitoring.Debugf("batch %d: kept %d of %d events (bad_length=%d over_range=%d)",
			res.Batches, stats.Kept, stats.Seen, stats.BadLength, stats.OverRange)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to convert calibration files: %w", err)
	}

	monitoring.Logf("converted %d files: %d batches, kept %d of %d events",
		len(paths), res.Batches, res.Stats.Kept, res.Stats.Seen)
	return res, nil
}

// Convert is a shorthand for New(src).Convert(paths) returning only records.
func Convert(src BatchSource, paths []string) ([]calibration.Record, error) {
	res, err := New(src).Convert(paths)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}
