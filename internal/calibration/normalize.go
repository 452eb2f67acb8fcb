package calibration

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Verdict is the outcome of the per-event quality gate.
type Verdict int

const (
	// VerdictGood means every channel passed.
	VerdictGood Verdict = iota
	// VerdictBadLength means some channel is not TraceLength samples long.
	VerdictBadLength
	// VerdictOverRange means some channel exceeds MaxADCAmplitude.
	VerdictOverRange
)

func (v Verdict) String() string {
	switch v {
	case VerdictGood:
		return "good"
	case VerdictBadLength:
		return "bad_length"
	case VerdictOverRange:
		return "over_range"
	default:
		return "unknown"
	}
}

// MaxAbs returns max|x| over the waveform, 0 for an empty waveform.
func MaxAbs(w []float64) float64 {
	if len(w) == 0 {
		return 0
	}
	return floats.Norm(w, math.Inf(1))
}

// CheckWaveform applies the quality gate to a single channel waveform.
func CheckWaveform(w []float64) Verdict {
	if len(w) != TraceLength {
		return VerdictBadLength
	}
	// NaN compares false and is rejected with the over-range samples.
	if !(MaxAbs(w) <= MaxADCAmplitude) {
		return VerdictOverRange
	}
	return VerdictGood
}

// CheckEvent applies the quality gate to event i across all channels. The gate
// is all-or-nothing: one failing channel rejects the whole event. Length
// failures are reported before amplitude failures.
func CheckEvent(b *RawBatch, i int) Verdict {
	verdict := VerdictGood
	for c := 0; c < NumChannels; c++ {
		switch CheckWaveform(b.Traces[c][i].Waveform()) {
		case VerdictBadLength:
			return VerdictBadLength
		case VerdictOverRange:
			verdict = VerdictOverRange
		}
	}
	return verdict
}

// Stats counts quality-gate outcomes.
type Stats struct {
	Seen      int
	Kept      int
	BadLength int
	OverRange int
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Seen += other.Seen
	s.Kept += other.Kept
	s.BadLength += other.BadLength
	s.OverRange += other.OverRange
}

// Rejected returns the number of dropped events.
func (s Stats) Rejected() int {
	return s.BadLength + s.OverRange
}

// Normalize filters a raw batch down to its good events and reshapes them
// into records, preserving input order. A batch with no good events yields an
// empty, non-nil slice. The only error is a structurally inconsistent batch.
func Normalize(b *RawBatch) ([]Record, error) {
	records, _, err := NormalizeWithStats(b)
	return records, err
}

// NormalizeWithStats is Normalize that also reports gate outcomes.
func NormalizeWithStats(b *RawBatch) ([]Record, Stats, error) {
	if err := b.Validate(); err != nil {
		return nil, Stats{}, err
	}

	n := b.Len()
	stats := Stats{Seen: n}
	good := make([]int, 0, n)
	for i := 0; i < n; i++ {
		switch CheckEvent(b, i) {
		case VerdictGood:
			good = append(good, i)
		case VerdictBadLength:
			stats.BadLength++
		case VerdictOverRange:
			stats.OverRange++
		}
	}
	stats.Kept = len(good)

	records := make([]Record, len(good))
	for k, i := range good {
		rec := &records[k]
		rec.DUID = b.DUID[i]
		rec.DUDatetime = DatetimeFromSeconds(b.DUSeconds[i])
		// TODO: partial-channel masking would keep events with one bad
		// channel; pending a decision, the gate above drops the whole event.
		for c := 0; c < NumChannels; c++ {
			copy(rec.Trace[c][:], b.Traces[c][i].Waveform())
		}
	}
	return records, stats, nil
}
