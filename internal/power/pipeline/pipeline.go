package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gridsense-data/phase.report/internal/config"
	"github.com/gridsense-data/phase.report/internal/power/p1samples"
	"github.com/gridsense-data/phase.report/internal/power/p2smooth"
	"github.com/gridsense-data/phase.report/internal/power/p3features"
	"github.com/gridsense-data/phase.report/internal/power/p4rules"
	"github.com/gridsense-data/phase.report/internal/power/p5phases"
	"github.com/gridsense-data/phase.report/internal/power/p6windows"
	"github.com/gridsense-data/phase.report/internal/power/p7model"
	"github.com/gridsense-data/phase.report/internal/timeutil"
)

// Config holds the pieces a Pipeline is assembled from.
type Config struct {
	// Tuning provides thresholds, horizons, and window sizes. Nil uses
	// the built-in defaults.
	Tuning *config.PipelineConfig

	// Classifier is optional. Without one the pipeline still smooths,
	// labels, validates, and builds windows, but emits no
	// ClassificationResults; callers read the confirmed label off each
	// Result instead.
	Classifier p7model.Classifier

	// Clock measures inference time for the per-sample budget. Nil uses
	// the wall clock; tests inject a timeutil.MockClock.
	Clock timeutil.Clock

	// OnResult, when non-nil, receives the terminal ClassificationResult
	// for every sample whose window was classified within budget.
	OnResult ResultFunc

	// OnFeatures, when non-nil, is called for every confirmed-labeled
	// feature vector after warm-up.
	OnFeatures FeatureExportFunc
}

// Pipeline drives one appliance's samples through smoothing, feature
// extraction, rule labeling, transition validation, window building, and
// model inference. Process must be called from a single goroutine; the
// hot path starts no goroutines of its own.
type Pipeline struct {
	runID  string
	cfg    Config
	clock  timeutil.Clock
	budget time.Duration

	smoother  *p2smooth.Smoother
	extractor *p3features.Extractor
	labeler   *p4rules.Labeler
	validator *p5phases.Validator
	builder   *p6windows.Builder

	lastTimestamp time.Time
	stats         Stats
}

// New validates the configuration, builds every stage, and verifies the
// classifier's window geometry against the configured rings. A model
// trained on a different geometry is rejected here, before any sample is
// processed.
func New(cfg Config) (*Pipeline, error) {
	tuning := cfg.Tuning
	if tuning == nil {
		tuning = config.EmptyPipelineConfig()
	}
	if err := tuning.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}

	smoother, err := p2smooth.NewSmoother(tuning.GetSmootherWindow(), tuning.GetSmootherDegree())
	if err != nil {
		return nil, fmt.Errorf("smoother: %w", err)
	}

	extractor, err := p3features.NewExtractor(p3features.ExtractorConfig{
		ShortWindow:    tuning.ShortHorizonSamples(),
		LongWindow:     tuning.LongHorizonSamples(),
		BandLow:        tuning.GetMidBandLowWatts(),
		BandHigh:       tuning.GetMidBandHighWatts(),
		PeakProminence: tuning.GetPeakProminenceWatts(),
	})
	if err != nil {
		return nil, fmt.Errorf("feature extractor: %w", err)
	}

	labeler, err := p4rules.NewLabeler(p4rules.Thresholds{
		IdleCeiling:    tuning.GetIdleCeilingWatts(),
		HighSpeedFloor: tuning.GetHighSpeedFloorWatts(),
		MidBandLow:     tuning.GetMidBandLowWatts(),
		MidBandHigh:    tuning.GetMidBandHighWatts(),
		RegularityMin:  tuning.GetRegularityThreshold(),
		MinPeaks:       tuning.GetPeakCountThreshold(),
	})
	if err != nil {
		return nil, fmt.Errorf("labeler: %w", err)
	}

	edges := make([]p5phases.Edge, 0, len(tuning.GetForbiddenTransitions()))
	for _, s := range tuning.GetForbiddenTransitions() {
		e, err := p5phases.ParseEdge(s)
		if err != nil {
			return nil, fmt.Errorf("forbidden transition: %w", err)
		}
		edges = append(edges, e)
	}
	validator, err := p5phases.NewValidator(p5phases.ValidatorConfig{
		Debounce:       tuning.GetDebounceSamples(),
		ForbiddenEdges: edges,
	})
	if err != nil {
		return nil, fmt.Errorf("transition validator: %w", err)
	}

	builder, err := p6windows.NewBuilder(p6windows.BuilderConfig{
		FlattenedSize:  tuning.GetFlattenedWindowSize(),
		SequentialSize: tuning.GetSequentialWindowSize(),
	})
	if err != nil {
		return nil, fmt.Errorf("window builder: %w", err)
	}

	if cfg.Classifier != nil {
		want := builder.FlattenedSize()
		if cfg.Classifier.WindowShape() == p6windows.ShapeSequential {
			want = builder.SequentialSize()
		}
		if cfg.Classifier.WindowSize() != want {
			return nil, fmt.Errorf("model %s consumes %d-row %s windows, pipeline builds %d",
				cfg.Classifier.Model(), cfg.Classifier.WindowSize(), cfg.Classifier.WindowShape(), want)
		}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	p := &Pipeline{
		runID:     uuid.NewString(),
		cfg:       cfg,
		clock:     clock,
		budget:    tuning.GetInferenceBudget(),
		smoother:  smoother,
		extractor: extractor,
		labeler:   labeler,
		validator: validator,
		builder:   builder,
		stats:     Stats{ConfirmedByPhase: make(map[p1samples.Phase]uint64)},
	}

	model := "none"
	if cfg.Classifier != nil {
		model = cfg.Classifier.Model()
	}
	diagf("run %s: pipeline ready (smoother=%d/%d horizons=%d/%d debounce=%d windows=%d/%d budget=%s model=%s)",
		p.runID, smoother.Width(), smoother.Degree(),
		tuning.ShortHorizonSamples(), tuning.LongHorizonSamples(),
		tuning.GetDebounceSamples(), builder.FlattenedSize(), builder.SequentialSize(),
		p.budget, model)
	return p, nil
}

// RunID identifies this pipeline instance in logs and exports.
func (p *Pipeline) RunID() string { return p.runID }

// WarmUpSamples returns how many accepted samples the smoother and feature
// horizons consume before the first feature vector can emit.
func (p *Pipeline) WarmUpSamples() int {
	return p.smoother.Width() + p.extractor.WarmUp() - 1
}

// Process drives one sample through every stage. Malformed or out-of-order
// samples return a typed error with all pipeline state untouched. A nil
// error means the sample was accepted, even when warm-up produced no
// downstream output yet.
func (p *Pipeline) Process(s p1samples.Sample) (Result, error) {
	p.stats.SamplesIn++
	if err := p1samples.Check(s, p.lastTimestamp); err != nil {
		p.stats.SamplesRejected++
		diagf("run %s: sample rejected: %v", p.runID, err)
		return Result{}, err
	}
	p.lastTimestamp = s.Timestamp
	p.stats.SamplesAccepted++

	res := Result{Timestamp: s.Timestamp, Raw: s.Power}

	sm, ok := p.smoother.Push(s)
	if !ok {
		p.stats.WarmupDrops++
		return res, nil
	}
	res.Smoothed = sm.Power
	res.HasSmoothed = true

	fv, ok := p.extractor.Push(sm)
	if !ok {
		p.stats.WarmupDrops++
		return res, nil
	}
	res.Features = fv
	res.HasFeatures = true

	label := p.labeler.Label(fv)
	res.Provisional = label

	confirmed := p.validator.Observe(label, s.Timestamp)
	res.Confirmed = confirmed
	res.HasConfirmed = true
	p.stats.ConfirmedByPhase[confirmed.Phase]++
	if confirmed.Changed {
		p.stats.PhaseChanges++
		diagf("run %s: phase %s confirmed at %s (rule %s)",
			p.runID, confirmed.Phase, s.Timestamp.Format(time.RFC3339), label.Rule)
	}

	if p.cfg.OnFeatures != nil {
		p.cfg.OnFeatures(s.Timestamp, confirmed.Phase, fv)
	}

	flat, seq := p.builder.Push(confirmed, fv)
	if flat != nil {
		p.stats.FlattenedWindows++
	}
	if seq != nil {
		p.stats.SequentialWindows++
	}

	if p.cfg.Classifier != nil {
		w := flat
		if p.cfg.Classifier.WindowShape() == p6windows.ShapeSequential {
			w = seq
		}
		if w != nil {
			p.classify(w, &res)
		}
	}

	tracef("run %s: %s raw=%.1fW smooth=%.1fW phase=%s rule=%s predicted=%v skipped=%v",
		p.runID, s.Timestamp.Format(time.RFC3339), s.Power, sm.Power,
		confirmed.Phase, label.Rule, res.HasPrediction, res.Skipped)

	if res.HasPrediction && p.cfg.OnResult != nil {
		p.cfg.OnResult(ClassificationResult{
			Timestamp:  s.Timestamp,
			Phase:      res.Prediction.Phase,
			Confidence: res.Prediction.Confidence,
			Model:      p.cfg.Classifier.Model(),
		})
	}
	return res, nil
}

// classify evaluates the model under the inference budget. A result that
// arrives over budget is discarded and counted, not surfaced as an error;
// the buffers have already advanced, so the next sample proceeds normally.
func (p *Pipeline) classify(w *p6windows.Window, res *Result) {
	start := p.clock.Now()
	pred, err := p.cfg.Classifier.Classify(w)
	elapsed := p.clock.Since(start)
	p.stats.ModelCalls++

	switch {
	case err != nil:
		p.stats.ModelErrors++
		opsf("run %s: model %s failed: %v", p.runID, p.cfg.Classifier.Model(), err)
	case elapsed > p.budget:
		p.stats.ModelSkips++
		diagf("run %s: model %s took %s, budget %s; result discarded",
			p.runID, p.cfg.Classifier.Model(), elapsed, p.budget)
		res.Skipped = true
	default:
		res.Prediction = pred
		res.HasPrediction = true
	}
}

// Stats returns a snapshot of the counters. The validator's rejection
// counts are folded in at snapshot time.
func (p *Pipeline) Stats() Stats {
	s := p.stats
	s.DebounceRejects, s.ForbiddenRejects = p.validator.Counters()
	s.ConfirmedByPhase = make(map[p1samples.Phase]uint64, len(p.stats.ConfirmedByPhase))
	for k, v := range p.stats.ConfirmedByPhase {
		s.ConfirmedByPhase[k] = v
	}
	return s
}

// Reset returns every stage to its initial state for a new stream. The
// run ID is retained; counters are zeroed.
func (p *Pipeline) Reset() {
	p.smoother.Reset()
	p.extractor.Reset()
	p.validator.Reset()
	p.builder.Reset()
	p.lastTimestamp = time.Time{}
	p.stats = Stats{ConfirmedByPhase: make(map[p1samples.Phase]uint64)}
	diagf("run %s: pipeline reset", p.runID)
}
