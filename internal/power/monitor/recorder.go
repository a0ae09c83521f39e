// Package monitor renders recorded pipeline runs for offline inspection:
// PNG trace plots via gonum/plot and a single-page HTML report via
// go-echarts. It consumes pipeline Results and never feeds anything back
// into the hot path.
package monitor

import (
	"time"

	"github.com/gridsense-data/phase.report/internal/power/p1samples"
	"github.com/gridsense-data/phase.report/internal/power/pipeline"
)

// SamplePoint is one recorded time step. The Has* flags mirror the
// pipeline Result so warm-up samples chart as gaps instead of zeros.
type SamplePoint struct {
	Timestamp time.Time
	Raw       float64

	Smoothed    float64
	HasSmoothed bool

	AvgShort    float64
	AvgLong     float64
	HasFeatures bool

	Phase    p1samples.Phase
	HasPhase bool

	Confidence    float64
	HasPrediction bool
}

// Recorder accumulates per-sample pipeline output for later rendering.
// Observe is cheap; all plotting work happens after the run.
type Recorder struct {
	points []SamplePoint
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Observe appends one pipeline result.
func (r *Recorder) Observe(res pipeline.Result) {
	pt := SamplePoint{
		Timestamp:   res.Timestamp,
		Raw:         res.Raw,
		Smoothed:    res.Smoothed,
		HasSmoothed: res.HasSmoothed,
	}
	if res.HasFeatures {
		pt.AvgShort = res.Features.AvgShort
		pt.AvgLong = res.Features.AvgLong
		pt.HasFeatures = true
	}
	if res.HasConfirmed {
		pt.Phase = res.Confirmed.Phase
		pt.HasPhase = true
	}
	if res.HasPrediction {
		pt.Confidence = res.Prediction.Confidence
		pt.HasPrediction = true
	}
	r.points = append(r.points, pt)
}

// Points returns the recorded samples in arrival order.
func (r *Recorder) Points() []SamplePoint { return r.points }

// Len returns the number of recorded samples.
func (r *Recorder) Len() int { return len(r.points) }

// phaseOrdinal maps a phase to its canonical index for step charts.
func phaseOrdinal(p p1samples.Phase) int {
	for i, ph := range p1samples.AllPhases() {
		if ph == p {
			return i
		}
	}
	return -1
}
