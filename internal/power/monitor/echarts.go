package monitor

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/gridsense-data/phase.report/internal/power/p1samples"
	"github.com/gridsense-data/phase.report/internal/power/pipeline"
	"github.com/gridsense-data/phase.report/internal/version"
)

const timeAxisFormat = "15:04:05"

// WriteReport renders the recorded run as a single HTML page: power
// trace, confirmed phase timeline, model confidence, and the run's
// per-phase confirmed counts. The page loads chart assets from the
// go-echarts default host, so it needs network access when opened.
func WriteReport(w io.Writer, rec *Recorder, stats pipeline.Stats, title string) error {
	pts := rec.Points()
	if len(pts) == 0 {
		return fmt.Errorf("no samples recorded")
	}

	var havePredictions bool
	for _, pt := range pts {
		if pt.HasPrediction {
			havePredictions = true
			break
		}
	}

	page := components.NewPage()
	page.PageTitle = "Phase Report"
	page.AddCharts(
		powerChart(pts, title),
		phaseChart(pts),
	)
	if havePredictions {
		page.AddCharts(confidenceChart(pts))
	}
	page.AddCharts(statsChart(stats))

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// powerChart plots raw against smoothed power. Warm-up samples carry
// "-" so ECharts renders them as gaps in the smoothed series.
func powerChart(pts []SamplePoint, title string) *charts.Line {
	x := make([]string, 0, len(pts))
	raw := make([]opts.LineData, 0, len(pts))
	smooth := make([]opts.LineData, 0, len(pts))
	for _, pt := range pts {
		x = append(x, pt.Timestamp.Format(timeAxisFormat))
		raw = append(raw, opts.LineData{Value: pt.Raw})
		if pt.HasSmoothed {
			smooth = append(smooth, opts.LineData{Value: pt.Smoothed})
		} else {
			smooth = append(smooth, opts.LineData{Value: "-"})
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Power Trace", Subtitle: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "W"}),
	)
	line.SetXAxis(x).
		AddSeries("raw", raw).
		AddSeries("smoothed", smooth)
	return line
}

// phaseChart plots the confirmed phase at its canonical ordinal.
func phaseChart(pts []SamplePoint) *charts.Scatter {
	phases := p1samples.AllPhases()

	legend := make([]string, len(phases))
	for i, ph := range phases {
		legend[i] = fmt.Sprintf("%d=%s", i, ph)
	}

	x := make([]string, 0, len(pts))
	data := make([]opts.ScatterData, 0, len(pts))
	for _, pt := range pts {
		x = append(x, pt.Timestamp.Format(timeAxisFormat))
		if pt.HasPhase {
			data = append(data, opts.ScatterData{Value: phaseOrdinal(pt.Phase)})
		} else {
			data = append(data, opts.ScatterData{Value: "-"})
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "320px"}),
		charts.WithTitleOpts(opts.Title{Title: "Confirmed Phase", Subtitle: strings.Join(legend, "  ")}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: len(phases) - 1}),
	)
	scatter.SetXAxis(x).
		AddSeries("phase", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	return scatter
}

// confidenceChart plots the model's winning-class confidence.
func confidenceChart(pts []SamplePoint) *charts.Line {
	x := make([]string, 0, len(pts))
	conf := make([]opts.LineData, 0, len(pts))
	for _, pt := range pts {
		x = append(x, pt.Timestamp.Format(timeAxisFormat))
		if pt.HasPrediction {
			conf = append(conf, opts.LineData{Value: pt.Confidence})
		} else {
			conf = append(conf, opts.LineData{Value: "-"})
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "320px"}),
		charts.WithTitleOpts(opts.Title{Title: "Model Confidence"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1}),
	)
	line.SetXAxis(x).
		AddSeries("confidence", conf)
	return line
}

// statsChart summarizes the run counters as a per-phase bar chart.
func statsChart(stats pipeline.Stats) *charts.Bar {
	phases := p1samples.AllPhases()

	x := make([]string, 0, len(phases))
	y := make([]opts.BarData, 0, len(phases))
	for _, ph := range phases {
		x = append(x, string(ph))
		y = append(y, opts.BarData{Value: stats.ConfirmedByPhase[ph]})
	}

	subtitle := fmt.Sprintf("in=%d accepted=%d rejected=%d warmup=%d changes=%d model calls=%d skips=%d\n%s",
		stats.SamplesIn, stats.SamplesAccepted, stats.SamplesRejected,
		stats.WarmupDrops, stats.PhaseChanges, stats.ModelCalls, stats.ModelSkips,
		version.String())

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "320px"}),
		charts.WithTitleOpts(opts.Title{Title: "Confirmed Samples by Phase", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("confirmed", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}
