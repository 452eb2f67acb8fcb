// Package report turns converted calibration records into amplitude spectra
// and renders them as PNG plots and an interactive HTML chart, all on the
// shared calibration frequency axis.
package report

import (
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/calibration.report/internal/calibration"
)

// AmplitudeSpectrum returns |X_k| for the calibration.FrequencyBins
// non-negative bins of a TraceLength-sample waveform, aligned with
// calibration.FrequencyAxis().
func AmplitudeSpectrum(fft *fourier.FFT, w []float64) []float64 {
	coeff := fft.Coefficients(nil, w)
	amp := make([]float64, calibration.FrequencyBins)
	for k := range amp {
		amp[k] = cmplx.Abs(coeff[k])
	}
	return amp
}

// DUSpectrum is the mean amplitude spectrum of each channel of one detector unit.
type DUSpectrum struct {
	DUID     int64
	Count    int
	Channels [calibration.NumChannels][]float64
}

// PeakBin returns the bin of the largest amplitude on channel c, skipping DC.
func (s *DUSpectrum) PeakBin(c int) int {
	if len(s.Channels[c]) < 2 {
		return 0
	}
	return 1 + floats.MaxIdx(s.Channels[c][1:])
}

// MeanSpectra averages the amplitude spectra of records per detector unit.
// The result is ordered by DUID.
func MeanSpectra(records []calibration.Record) []DUSpectrum {
	fft := fourier.NewFFT(calibration.TraceLength)
	byDU := make(map[int64]*DUSpectrum)
	var order []int64

	for i := range records {
		r := &records[i]
		s, ok := byDU[r.DUID]
		if !ok {
			s = &DUSpectrum{DUID: r.DUID}
			for c := range s.Channels {
				s.Channels[c] = make([]float64, calibration.FrequencyBins)
			}
			byDU[r.DUID] = s
			order = append(order, r.DUID)
		}
		s.Count++
		for c := range s.Channels {
			floats.Add(s.Channels[c], AmplitudeSpectrum(fft, r.Trace[c][:]))
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	out := make([]DUSpectrum, 0, len(order))
	for _, id := range order {
		s := byDU[id]
		for c := range s.Channels {
			floats.Scale(1/float64(s.Count), s.Channels[c])
		}
		out = append(out, *s)
	}
	return out
}
