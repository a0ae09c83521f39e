package pipeline

import (
	"time"

	"github.com/gridsense-data/phase.report/internal/power/p1samples"
	"github.com/gridsense-data/phase.report/internal/power/p3features"
	"github.com/gridsense-data/phase.report/internal/power/p4rules"
	"github.com/gridsense-data/phase.report/internal/power/p5phases"
	"github.com/gridsense-data/phase.report/internal/power/p7model"
)

// Result captures what one accepted sample produced on its way through the
// layers. The Has* flags distinguish a zero value from a stage that has not
// emitted yet during warm-up.
type Result struct {
	Timestamp time.Time
	Raw       float64

	Smoothed    float64
	HasSmoothed bool

	Features    p3features.FeatureVector
	HasFeatures bool

	// Provisional and Confirmed are set together once features exist.
	Provisional  p4rules.ProvisionalLabel
	Confirmed    p5phases.ConfirmedLabel
	HasConfirmed bool

	Prediction    p7model.Prediction
	HasPrediction bool

	// Skipped reports that a model evaluation ran but its result was
	// discarded because it exceeded the inference budget.
	Skipped bool
}

// ClassificationResult is the terminal artifact for one time step,
// delivered to the ResultFunc when a window was classified within budget.
type ClassificationResult struct {
	Timestamp  time.Time
	Phase      p1samples.Phase
	Confidence float64
	Model      string
}

// ResultFunc receives terminal classifications. Called synchronously from
// Process; a slow callback stalls the pipeline.
type ResultFunc func(ClassificationResult)

// FeatureExportFunc, when configured, is called for every confirmed-labeled
// feature vector. The hook feeds training-data collection: internal/replay
// writes these rows to labeled CSV for the offline fitting jobs.
type FeatureExportFunc func(ts time.Time, phase p1samples.Phase, fv p3features.FeatureVector)

// Stats is a point-in-time snapshot of the pipeline counters.
type Stats struct {
	SamplesIn       uint64
	SamplesAccepted uint64
	SamplesRejected uint64

	// WarmupDrops counts accepted samples consumed before the smoother
	// and feature horizons had filled.
	WarmupDrops uint64

	PhaseChanges     uint64
	DebounceRejects  uint64
	ForbiddenRejects uint64

	FlattenedWindows  uint64
	SequentialWindows uint64

	ModelCalls  uint64
	ModelSkips  uint64
	ModelErrors uint64

	// ConfirmedByPhase counts samples per confirmed phase after warm-up.
	ConfirmedByPhase map[p1samples.Phase]uint64
}
