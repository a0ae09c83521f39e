package p3features

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/gridsense-data/phase.report/internal/power/p2smooth"
)

// FeatureVector is the derived description of the stream at one time step.
// Field order mirrors Columns(): model artifacts validate their
// feature_columns list against it at load time, so the two must never
// drift apart.
type FeatureVector struct {
	Timestamp time.Time

	PowerSmooth float64 // current smoothed value
	AvgShort    float64 // short-horizon mean
	AvgLong     float64 // long-horizon mean
	StdShort    float64 // short-horizon population std
	StdLong     float64 // long-horizon population std
	MinShort    float64
	MaxShort    float64
	RangeShort  float64 // max - min
	Derivative  float64 // first difference of the two newest smoothed values
	TimeInBand  float64 // fraction of short-horizon samples inside the mid-high band
	PeakCount   float64 // local maxima exceeding the prominence floor
	Regularity  float64 // 1/(1+Var(inter-peak intervals)), 0 when peaks < 2
	MAD         float64 // mean absolute deviation from the short-horizon mean
}

// Columns returns the canonical feature names in artifact order.
func Columns() []string {
	return []string{
		"power_smooth",
		"power_avg_short",
		"power_avg_long",
		"power_std_short",
		"power_std_long",
		"power_min_short",
		"power_max_short",
		"power_range_short",
		"power_derivative",
		"time_in_band",
		"peak_count",
		"regularity",
		"power_mad",
	}
}

// Values returns the vector's numeric fields in Columns() order.
func (fv FeatureVector) Values() []float64 {
	return []float64{
		fv.PowerSmooth,
		fv.AvgShort,
		fv.AvgLong,
		fv.StdShort,
		fv.StdLong,
		fv.MinShort,
		fv.MaxShort,
		fv.RangeShort,
		fv.Derivative,
		fv.TimeInBand,
		fv.PeakCount,
		fv.Regularity,
		fv.MAD,
	}
}

// ExtractorConfig sizes the two trailing horizons in samples and carries
// the thresholds the shape features depend on.
type ExtractorConfig struct {
	ShortWindow    int     // samples in the short horizon
	LongWindow     int     // samples in the long horizon
	BandLow        float64 // mid-high band lower bound (watts)
	BandHigh       float64 // mid-high band upper bound (watts)
	PeakProminence float64 // minimum rise over the preceding valley (watts)
}

// Extractor maintains the two horizon buffers and recomputes the feature
// set per smoothed sample. Buffers are pre-allocated at construction and
// never grow.
type Extractor struct {
	cfg ExtractorConfig

	short *floatRing
	long  *floatRing

	// scratch reused across calls to keep the hot path allocation-free
	shortVals []float64
	longVals  []float64
	peakIdx   []int

	prev    float64
	hasPrev bool
}

// NewExtractor validates the horizon sizes and pre-allocates the buffers.
func NewExtractor(cfg ExtractorConfig) (*Extractor, error) {
	if cfg.ShortWindow < 2 {
		return nil, fmt.Errorf("short window must hold at least 2 samples, got %d", cfg.ShortWindow)
	}
	if cfg.LongWindow < cfg.ShortWindow {
		return nil, fmt.Errorf("long window (%d) must not be shorter than short window (%d)",
			cfg.LongWindow, cfg.ShortWindow)
	}
	if cfg.BandLow >= cfg.BandHigh {
		return nil, fmt.Errorf("band low %f must be below band high %f", cfg.BandLow, cfg.BandHigh)
	}
	if cfg.PeakProminence < 0 {
		return nil, fmt.Errorf("peak prominence must be non-negative, got %f", cfg.PeakProminence)
	}

	return &Extractor{
		cfg:       cfg,
		short:     newFloatRing(cfg.ShortWindow),
		long:      newFloatRing(cfg.LongWindow),
		shortVals: make([]float64, 0, cfg.ShortWindow),
		longVals:  make([]float64, 0, cfg.LongWindow),
		peakIdx:   make([]int, 0, cfg.ShortWindow/2+1),
	}, nil
}

// WarmUp returns the number of smoothed samples needed before the first
// FeatureVector can be emitted.
func (e *Extractor) WarmUp() int { return e.cfg.LongWindow }

// Push adds a smoothed sample. It returns a FeatureVector and true once
// both horizons are full; before that it returns false.
func (e *Extractor) Push(s p2smooth.SmoothedSample) (FeatureVector, bool) {
	e.short.push(s.Power)
	e.long.push(s.Power)

	derivative := 0.0
	if e.hasPrev {
		derivative = s.Power - e.prev
	}
	e.prev = s.Power
	e.hasPrev = true

	if !e.short.full() || !e.long.full() {
		return FeatureVector{}, false
	}

	sv := e.short.values(e.shortVals[:0])
	lv := e.long.values(e.longVals[:0])

	meanShort := stat.Mean(sv, nil)
	meanLong := stat.Mean(lv, nil)

	minShort, maxShort := sv[0], sv[0]
	inBand := 0
	sumAbsDev := 0.0
	for _, v := range sv {
		if v < minShort {
			minShort = v
		}
		if v > maxShort {
			maxShort = v
		}
		if v >= e.cfg.BandLow && v <= e.cfg.BandHigh {
			inBand++
		}
		sumAbsDev += math.Abs(v - meanShort)
	}

	peaks := findPeaks(sv, e.cfg.PeakProminence, e.peakIdx[:0])
	e.peakIdx = peaks

	return FeatureVector{
		Timestamp:   s.Timestamp,
		PowerSmooth: s.Power,
		AvgShort:    meanShort,
		AvgLong:     meanLong,
		StdShort:    popStdDev(sv, meanShort),
		StdLong:     popStdDev(lv, meanLong),
		MinShort:    minShort,
		MaxShort:    maxShort,
		RangeShort:  maxShort - minShort,
		Derivative:  derivative,
		TimeInBand:  float64(inBand) / float64(len(sv)),
		PeakCount:   float64(len(peaks)),
		Regularity:  regularityScore(peaks),
		MAD:         sumAbsDev / float64(len(sv)),
	}, true
}

// Reset empties both horizons for a new stream.
func (e *Extractor) Reset() {
	e.short.reset()
	e.long.reset()
	e.prev = 0
	e.hasPrev = false
}

// popStdDev is the population standard deviation (divide by n, not n-1).
// gonum's stat.StdDev is the sample estimator; artifacts are trained on
// population-std features, so the two must not be mixed.
func popStdDev(vals []float64, mean float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var ss float64
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vals)))
}

// floatRing is a fixed-capacity ring over float64 values.
type floatRing struct {
	buf  []float64
	head int
	n    int
}

func newFloatRing(size int) *floatRing {
	return &floatRing{buf: make([]float64, size)}
}

func (r *floatRing) push(v float64) {
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	if r.n < len(r.buf) {
		r.n++
	}
}

func (r *floatRing) full() bool { return r.n == len(r.buf) }

// values appends the buffered values oldest-first to dst and returns it.
func (r *floatRing) values(dst []float64) []float64 {
	if !r.full() {
		start := (r.head - r.n + len(r.buf)) % len(r.buf)
		for i := 0; i < r.n; i++ {
			dst = append(dst, r.buf[(start+i)%len(r.buf)])
		}
		return dst
	}
	for i := 0; i < len(r.buf); i++ {
		dst = append(dst, r.buf[(r.head+i)%len(r.buf)])
	}
	return dst
}

func (r *floatRing) reset() {
	r.head = 0
	r.n = 0
}
