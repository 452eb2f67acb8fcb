package report

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/calibration.report/internal/calibration"
	"github.com/banshee-data/calibration.report/internal/fsutil"
)

// spectrumXYs pairs a spectrum with the frequency axis.
func spectrumXYs(freq, amp []float64) plotter.XYs {
	pts := make(plotter.XYs, len(amp))
	for i := range amp {
		pts[i].X = freq[i]
		pts[i].Y = amp[i]
	}
	return pts
}

// SpectrumPlotName is the file name of the PNG for a detector unit.
func SpectrumPlotName(duID int64) string {
	return fmt.Sprintf("spectrum_du%d.png", duID)
}

// WriteSpectrumPlots writes one PNG per detector unit into dir and returns
// the paths written.
func WriteSpectrumPlots(fsys fsutil.FileSystem, dir string, spectra []DUSpectrum) ([]string, error) {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create plot dir: %w", err)
	}

	freq := calibration.FrequencyAxis()
	var written []string
	for i := range spectra {
		path := filepath.Join(dir, SpectrumPlotName(spectra[i].DUID))
		if err := writeSpectrumPlot(fsys, path, freq, &spectra[i]); err != nil {
			return written, fmt.Errorf("du %d: %w", spectra[i].DUID, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func writeSpectrumPlot(fsys fsutil.FileSystem, path string, freq []float64, s *DUSpectrum) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("DU %d - Mean Amplitude Spectrum (%d triggers)", s.DUID, s.Count)
	p.X.Label.Text = "Frequency (MHz)"
	p.Y.Label.Text = "Amplitude (ADC counts)"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	var lines []interface{}
	for c := range s.Channels {
		lines = append(lines, fmt.Sprintf("ch%d", c), spectrumXYs(freq, s.Channels[c]))
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return fmt.Errorf("failed to add lines: %w", err)
	}

	wt, err := p.WriterTo(10*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}

	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
