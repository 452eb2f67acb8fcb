// Package calibration holds the calibration record type and the conversion of
// raw trigger batches into filtered, fixed-shape records.
package calibration

import (
	"fmt"
	"time"
)

const (
	// NumChannels is the number of ADC channels recorded per detector unit.
	NumChannels = 4
	// TraceLength is the number of samples in a well-formed channel trace.
	TraceLength = 1024
	// MaxADCAmplitude bounds max|sample| for a 14-bit signed ADC (2^13).
	MaxADCAmplitude = 8192
	// SamplingIntervalNs is the ADC sampling interval in nanoseconds.
	SamplingIntervalNs = 2.0
)

// TreeName is the event table holding calibration triggers in each file.
const TreeName = "teventadc"

// Field names requested from the event table.
const (
	FieldDUID      = "du_id"
	FieldDUSeconds = "du_seconds"
)

// TraceField returns the field name for channel c, e.g. "trace_2".
func TraceField(c int) string {
	return fmt.Sprintf("trace_%d", c)
}

// Fields lists, in order, every field read from the event table.
func Fields() []string {
	fields := []string{FieldDUID, FieldDUSeconds}
	for c := 0; c < NumChannels; c++ {
		fields = append(fields, TraceField(c))
	}
	return fields
}

// Epoch is the reference for du_seconds.
var Epoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// Record is one good calibration trigger.
type Record struct {
	// DUID identifies the detector unit, e.g. 1080 for DU80.
	DUID int64
	// DUDatetime is the trigger time at second resolution, in UTC.
	DUDatetime time.Time
	// Trace holds the waveform of each channel, row c = channel c.
	Trace [NumChannels][TraceLength]float64
}

// DatetimeFromSeconds converts a du_seconds value to an absolute timestamp,
// Epoch plus whole seconds.
func DatetimeFromSeconds(seconds int64) time.Time {
	return time.Unix(seconds, 0).UTC()
}

func (r *Record) String() string {
	return fmt.Sprintf("DU %d at %s", r.DUID, r.DUDatetime.Format("2006-01-02T15:04:05"))
}
