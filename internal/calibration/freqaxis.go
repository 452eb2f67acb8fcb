package calibration

import (
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// FrequencyBins is the number of non-negative frequency bins kept for a
// TraceLength-sample window.
const FrequencyBins = TraceLength / 2

var (
	freqAxisOnce sync.Once
	freqAxis     []float64
)

// FrequencyAxis returns the frequency of each of the FrequencyBins
// non-negative transform bins of a trace, in MHz (cycles per
// SamplingIntervalNs scaled by 1e3).
//
// The axis is computed once per process and never modified afterwards; each
// call returns a fresh copy.
func FrequencyAxis() []float64 {
	freqAxisOnce.Do(func() {
		fft := fourier.NewFFT(TraceLength)
		axis := make([]float64, FrequencyBins)
		for i := range axis {
			axis[i] = fft.Freq(i) / SamplingIntervalNs * 1e3
		}
		freqAxis = axis
	})
	out := make([]float64, len(freqAxis))
	copy(out, freqAxis)
	return out
}
