package monitor

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/gridsense-data/phase.report/internal/power/p1samples"
)

// TracePlotter renders a recorded run as PNG time-series plots.
// Call GeneratePlots after the run completes; it writes one file per
// populated series group into the output directory.
type TracePlotter struct {
	rec       *Recorder
	outputDir string
}

// NewTracePlotter creates a plotter over the given recording.
// outputDir should be a per-run directory (e.g. "plots/20260825_101500").
func NewTracePlotter(rec *Recorder, outputDir string) *TracePlotter {
	return &TracePlotter{rec: rec, outputDir: outputDir}
}

// GeneratePlots creates PNG files for the recorded run: the raw and
// smoothed power trace, the feature horizons, the confirmed phase
// timeline, and the model confidence. Plots with no data are skipped.
// Returns the number of plots generated and any error.
func (tp *TracePlotter) GeneratePlots() (int, error) {
	if tp.outputDir == "" {
		return 0, fmt.Errorf("no output directory configured")
	}

	pts := tp.rec.Points()
	if len(pts) == 0 {
		return 0, nil
	}

	if err := os.MkdirAll(tp.outputDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output dir: %w", err)
	}

	var haveFeatures, havePhases, havePredictions bool
	for _, pt := range pts {
		if pt.HasFeatures {
			haveFeatures = true
		}
		if pt.HasPhase {
			havePhases = true
		}
		if pt.HasPrediction {
			havePredictions = true
		}
	}

	start := pts[0].Timestamp
	plotCount := 0

	if err := tp.plotPower(pts, start); err != nil {
		return plotCount, fmt.Errorf("power trace: %w", err)
	}
	plotCount++

	if haveFeatures {
		if err := tp.plotHorizons(pts, start); err != nil {
			return plotCount, fmt.Errorf("feature horizons: %w", err)
		}
		plotCount++
	}

	if havePhases {
		if err := tp.plotPhases(pts, start); err != nil {
			return plotCount, fmt.Errorf("phase timeline: %w", err)
		}
		plotCount++
	}

	if havePredictions {
		if err := tp.plotConfidence(pts, start); err != nil {
			return plotCount, fmt.Errorf("model confidence: %w", err)
		}
		plotCount++
	}

	return plotCount, nil
}

// plotPower draws the raw samples and the smoothed trace on one plot.
// Warm-up samples have no smoothed value and are left out of that line.
func (tp *TracePlotter) plotPower(pts []SamplePoint, start time.Time) error {
	p := plot.New()
	p.Title.Text = "Power Trace"
	p.X.Label.Text = "Elapsed (s)"
	p.Y.Label.Text = "Power (W)"

	rawPts := make(plotter.XYs, 0, len(pts))
	smoothPts := make(plotter.XYs, 0, len(pts))
	for _, pt := range pts {
		x := pt.Timestamp.Sub(start).Seconds()
		rawPts = append(rawPts, plotter.XY{X: x, Y: pt.Raw})
		if pt.HasSmoothed {
			smoothPts = append(smoothPts, plotter.XY{X: x, Y: pt.Smoothed})
		}
	}

	rawLine, err := plotter.NewLine(rawPts)
	if err != nil {
		return err
	}
	rawLine.Color = color.RGBA{R: 170, G: 170, B: 170, A: 255}
	rawLine.Width = vg.Points(1)
	p.Add(rawLine)
	p.Legend.Add("raw", rawLine)

	if len(smoothPts) > 0 {
		smoothLine, err := plotter.NewLine(smoothPts)
		if err != nil {
			return err
		}
		smoothLine.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
		smoothLine.Width = vg.Points(1)
		p.Add(smoothLine)
		p.Legend.Add("smoothed", smoothLine)
	}

	p.Legend.Top = true
	p.Legend.Left = false

	file := filepath.Join(tp.outputDir, "power_trace.png")
	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save power plot: %w", err)
	}
	return nil
}

// plotHorizons draws the short and long moving averages whose gap the
// rule labeler keys off.
func (tp *TracePlotter) plotHorizons(pts []SamplePoint, start time.Time) error {
	p := plot.New()
	p.Title.Text = "Feature Horizons"
	p.X.Label.Text = "Elapsed (s)"
	p.Y.Label.Text = "Power (W)"

	shortPts := make(plotter.XYs, 0, len(pts))
	longPts := make(plotter.XYs, 0, len(pts))
	for _, pt := range pts {
		if !pt.HasFeatures {
			continue
		}
		x := pt.Timestamp.Sub(start).Seconds()
		shortPts = append(shortPts, plotter.XY{X: x, Y: pt.AvgShort})
		longPts = append(longPts, plotter.XY{X: x, Y: pt.AvgLong})
	}

	shortLine, err := plotter.NewLine(shortPts)
	if err != nil {
		return err
	}
	shortLine.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	shortLine.Width = vg.Points(1)
	p.Add(shortLine)
	p.Legend.Add("avg short", shortLine)

	longLine, err := plotter.NewLine(longPts)
	if err != nil {
		return err
	}
	longLine.Color = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	longLine.Width = vg.Points(1)
	p.Add(longLine)
	p.Legend.Add("avg long", longLine)

	p.Legend.Top = true
	p.Legend.Left = false

	file := filepath.Join(tp.outputDir, "feature_horizons.png")
	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save horizons plot: %w", err)
	}
	return nil
}

// plotPhases draws the confirmed phase over time as one scatter series
// per phase, stacked at the phase's canonical ordinal.
func (tp *TracePlotter) plotPhases(pts []SamplePoint, start time.Time) error {
	p := plot.New()
	p.Title.Text = "Confirmed Phase Timeline"
	p.X.Label.Text = "Elapsed (s)"
	p.Y.Label.Text = "Phase"

	phases := p1samples.AllPhases()
	colors := generateColors(len(phases))

	ticks := make([]plot.Tick, len(phases))
	for i, ph := range phases {
		ticks[i] = plot.Tick{Value: float64(i), Label: string(ph)}
	}
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)
	p.Y.Min = -0.5
	p.Y.Max = float64(len(phases)) - 0.5

	for i, ph := range phases {
		phasePts := make(plotter.XYs, 0, len(pts))
		for _, pt := range pts {
			if !pt.HasPhase || pt.Phase != ph {
				continue
			}
			x := pt.Timestamp.Sub(start).Seconds()
			phasePts = append(phasePts, plotter.XY{X: x, Y: float64(i)})
		}
		if len(phasePts) == 0 {
			continue
		}

		scatter, err := plotter.NewScatter(phasePts)
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Color = colors[i]
		scatter.GlyphStyle.Radius = vg.Points(2)
		p.Add(scatter)
		p.Legend.Add(string(ph), scatter)
	}

	p.Legend.Top = true
	p.Legend.Left = false

	file := filepath.Join(tp.outputDir, "phase_timeline.png")
	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save phase plot: %w", err)
	}
	return nil
}

// plotConfidence draws the model's winning-class confidence per sample.
func (tp *TracePlotter) plotConfidence(pts []SamplePoint, start time.Time) error {
	p := plot.New()
	p.Title.Text = "Model Confidence"
	p.X.Label.Text = "Elapsed (s)"
	p.Y.Label.Text = "Confidence"
	p.Y.Min = 0
	p.Y.Max = 1

	confPts := make(plotter.XYs, 0, len(pts))
	for _, pt := range pts {
		if !pt.HasPrediction {
			continue
		}
		x := pt.Timestamp.Sub(start).Seconds()
		confPts = append(confPts, plotter.XY{X: x, Y: pt.Confidence})
	}

	confLine, err := plotter.NewLine(confPts)
	if err != nil {
		return err
	}
	confLine.Color = color.RGBA{R: 148, G: 103, B: 189, A: 255}
	confLine.Width = vg.Points(1)
	p.Add(confLine)
	p.Legend.Add("confidence", confLine)

	p.Legend.Top = true
	p.Legend.Left = false

	file := filepath.Join(tp.outputDir, "model_confidence.png")
	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save confidence plot: %w", err)
	}
	return nil
}

// generateColors creates a palette of distinct colors for phase series
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
