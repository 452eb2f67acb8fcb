package report

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/banshee-data/calibration.report/internal/calibration"
	"github.com/banshee-data/calibration.report/internal/fsutil"
)

// toneRecord builds a record whose channel c carries a cosine at bin (c+1)*k.
func toneRecord(duID int64, k int, amp float64) calibration.Record {
	r := calibration.Record{DUID: duID, DUDatetime: calibration.DatetimeFromSeconds(1700000000)}
	for c := range r.Trace {
		bin := float64((c + 1) * k)
		for i := range r.Trace[c] {
			r.Trace[c][i] = amp * math.Cos(2*math.Pi*bin*float64(i)/calibration.TraceLength)
		}
	}
	return r
}

func TestAmplitudeSpectrum_PureTone(t *testing.T) {
	fft := fourier.NewFFT(calibration.TraceLength)
	r := toneRecord(1, 40, 100)

	amp := AmplitudeSpectrum(fft, r.Trace[0][:])
	require.Len(t, amp, calibration.FrequencyBins)

	peak := 0
	for k := range amp {
		if amp[k] > amp[peak] {
			peak = k
		}
	}
	assert.Equal(t, 40, peak)
	// a cosine of amplitude A puts A*N/2 in its bin
	assert.InDelta(t, 100*calibration.TraceLength/2, amp[40], 1e-3)
}

func TestMeanSpectra(t *testing.T) {
	records := []calibration.Record{
		toneRecord(1080, 10, 100),
		toneRecord(1032, 20, 50),
		toneRecord(1080, 10, 300),
	}

	spectra := MeanSpectra(records)
	require.Len(t, spectra, 2)

	assert.Equal(t, int64(1032), spectra[0].DUID)
	assert.Equal(t, 1, spectra[0].Count)
	assert.Equal(t, int64(1080), spectra[1].DUID)
	assert.Equal(t, 2, spectra[1].Count)

	for c := 0; c < calibration.NumChannels; c++ {
		assert.Equal(t, 10*(c+1), spectra[1].PeakBin(c))
		assert.Equal(t, 20*(c+1), spectra[0].PeakBin(c))
	}
	// mean of amplitudes 100 and 300
	assert.InDelta(t, 200*calibration.TraceLength/2, spectra[1].Channels[0][10], 1e-3)
}

func TestMeanSpectra_Empty(t *testing.T) {
	assert.Empty(t, MeanSpectra(nil))
}

func TestWriteSpectrumPlots(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	spectra := MeanSpectra([]calibration.Record{toneRecord(1080, 10, 100), toneRecord(1032, 5, 10)})

	written, err := WriteSpectrumPlots(mfs, "/plots", spectra)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("/plots", "spectrum_du1032.png"),
		filepath.Join("/plots", "spectrum_du1080.png"),
	}, written)
	assert.True(t, mfs.Exists("/plots"))

	data, err := mfs.ReadFile(written[0])
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "expected PNG header")
}

func TestRenderSpectrumChart(t *testing.T) {
	spectra := MeanSpectra([]calibration.Record{toneRecord(1080, 10, 100)})

	var buf bytes.Buffer
	require.NoError(t, RenderSpectrumChart(&buf, spectra))

	html := buf.String()
	assert.Contains(t, html, "DU 1080")
	assert.Contains(t, html, "ch3")
	assert.Contains(t, html, "Calibration Spectra")
}

func TestWriteSpectrumChart(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	spectra := MeanSpectra([]calibration.Record{toneRecord(7, 3, 1)})

	require.NoError(t, WriteSpectrumChart(mfs, "/out/spectra.html", spectra))
	data, err := mfs.ReadFile("/out/spectra.html")
	require.NoError(t, err)
	assert.Contains(t, string(data), "<html")
}
