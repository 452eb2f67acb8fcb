package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/calibration.report/internal/calibration"
	"github.com/banshee-data/calibration.report/internal/fsutil"
)

// RenderSpectrumChart renders an HTML page with one line chart per detector
// unit, four series each.
func RenderSpectrumChart(w io.Writer, spectra []DUSpectrum) error {
	freq := calibration.FrequencyAxis()
	xLabels := make([]string, len(freq))
	for i, f := range freq {
		xLabels[i] = fmt.Sprintf("%.2f", f)
	}

	page := components.NewPage()
	page.PageTitle = "Calibration Spectra"
	for i := range spectra {
		s := &spectra[i]
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{PageTitle: "Calibration Spectra", Width: "1100px", Height: "500px"}),
			charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("DU %d", s.DUID), Subtitle: fmt.Sprintf("mean of %d triggers", s.Count)}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
			charts.WithXAxisOpts(opts.XAxis{Name: "MHz", NameLocation: "middle", NameGap: 25}),
			charts.WithYAxisOpts(opts.YAxis{Name: "ADC counts"}),
			charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		)
		line.SetXAxis(xLabels)
		for c := range s.Channels {
			data := make([]opts.LineData, len(s.Channels[c]))
			for k, v := range s.Channels[c] {
				data[k] = opts.LineData{Value: v}
			}
			line.AddSeries(fmt.Sprintf("ch%d", c), data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
		}
		page.AddCharts(line)
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// WriteSpectrumChart renders the chart into the named file.
func WriteSpectrumChart(fsys fsutil.FileSystem, path string, spectra []DUSpectrum) error {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := RenderSpectrumChart(f, spectra); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
