package calibration

import (
	"errors"
	"fmt"
)

// ErrColumnMismatch is returned when the columns of a RawBatch disagree on
// the number of events.
var ErrColumnMismatch = errors.New("calibration: column length mismatch")

// NestedTrace is one event's value for one channel as stored upstream.
//
// The event table wraps each waveform in an extra container (one element per
// detector unit in the entry). Calibration entries carry a single detector
// unit, so the waveform is element 0 and anything after it is discarded.
type NestedTrace [][]float64

// Waveform unwraps one level of nesting and returns element 0. An empty
// wrapper yields an empty waveform.
func (n NestedTrace) Waveform() []float64 {
	if len(n) == 0 {
		return nil
	}
	return n[0]
}

// RawBatch is a columnar batch of trigger events as read from the event table.
type RawBatch struct {
	DUID      []int64
	DUSeconds []int64
	Traces    [NumChannels][]NestedTrace
}

// Len returns the number of events, taken from the du_id column.
func (b *RawBatch) Len() int {
	return len(b.DUID)
}

// Validate checks that every column holds Len() events.
func (b *RawBatch) Validate() error {
	n := b.Len()
	if len(b.DUSeconds) != n {
		return fmt.Errorf("%w: %s has %d events, %s has %d",
			ErrColumnMismatch, FieldDUSeconds, len(b.DUSeconds), FieldDUID, n)
	}
	for c := 0; c < NumChannels; c++ {
		if len(b.Traces[c]) != n {
			return fmt.Errorf("%w: %s has %d events, %s has %d",
				ErrColumnMismatch, TraceField(c), len(b.Traces[c]), FieldDUID, n)
		}
	}
	return nil
}

// Append adds one event to the batch.
func (b *RawBatch) Append(duID, duSeconds int64, traces [NumChannels]NestedTrace) {
	b.DUID = append(b.DUID, duID)
	b.DUSeconds = append(b.DUSeconds, duSeconds)
	for c := 0; c < NumChannels; c++ {
		b.Traces[c] = append(b.Traces[c], traces[c])
	}
}

// Reset empties the batch for reuse. Previously appended slices are released,
// not overwritten.
func (b *RawBatch) Reset() {
	*b = RawBatch{}
}
