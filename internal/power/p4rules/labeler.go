package p4rules

import (
	"fmt"

	"github.com/gridsense-data/phase.report/internal/power/p1samples"
	"github.com/gridsense-data/phase.report/internal/power/p3features"
)

// Rule names reported on ProvisionalLabel for trace logs and the replay
// output. Names describe the condition that fired, not the phase.
const (
	RuleIdleCeiling      = "idle_ceiling"
	RuleHighSpeedFloor   = "high_speed_floor"
	RuleMidBandIrregular = "mid_band_irregular"
	RuleMidBandRhythmic  = "mid_band_rhythmic"
	RuleMidLowDefault    = "mid_low_default"
)

// Thresholds are the calibration values the rules compare against. All of
// them come from configuration; the magnitude bands overlap on purpose and
// the shape rules resolve the ambiguity.
type Thresholds struct {
	IdleCeiling    float64 // below this mean power the appliance is idle
	HighSpeedFloor float64 // above this mean power it runs at high speed
	MidBandLow     float64 // lower bound of the PRIMARY/SECONDARY overlap band
	MidBandHigh    float64 // upper bound of the overlap band
	RegularityMin  float64 // at or above this the oscillation counts as rhythmic
	MinPeaks       int     // rhythmic additionally needs this many peaks
}

// ProvisionalLabel is the stateless per-sample phase suggestion handed to
// the transition validator.
type ProvisionalLabel struct {
	Phase p1samples.Phase
	Rule  string
}

// Labeler is a pure threshold classifier over single feature vectors.
type Labeler struct {
	t Thresholds
}

// NewLabeler validates the threshold ordering once so Label can stay
// branch-only on the hot path.
func NewLabeler(t Thresholds) (*Labeler, error) {
	if t.IdleCeiling <= 0 {
		return nil, fmt.Errorf("idle ceiling must be positive, got %f", t.IdleCeiling)
	}
	if t.HighSpeedFloor <= t.IdleCeiling {
		return nil, fmt.Errorf("high speed floor %f must exceed idle ceiling %f", t.HighSpeedFloor, t.IdleCeiling)
	}
	if t.MidBandLow >= t.MidBandHigh {
		return nil, fmt.Errorf("mid band low %f must be below mid band high %f", t.MidBandLow, t.MidBandHigh)
	}
	if t.RegularityMin < 0 || t.RegularityMin > 1 {
		return nil, fmt.Errorf("regularity threshold must be in [0,1], got %f", t.RegularityMin)
	}
	if t.MinPeaks < 1 {
		return nil, fmt.Errorf("min peaks must be >= 1, got %d", t.MinPeaks)
	}
	return &Labeler{t: t}, nil
}

// Label maps one feature vector to a provisional phase. Rules are
// evaluated in order and the first match wins:
//
//  1. mean below the idle ceiling is IDLE regardless of shape
//  2. mean above the high-speed floor is HIGH_SPEED
//  3. mid-high band with irregular bursts is SECONDARY
//  4. mid-high band with rhythmic, bounded oscillation is PRIMARY: shape
//     overrides the magnitude overlap between the two bands
//  5. everything left (the mid-low band) defaults to PRIMARY
func (l *Labeler) Label(fv p3features.FeatureVector) ProvisionalLabel {
	switch {
	case l.isIdle(fv):
		return ProvisionalLabel{Phase: p1samples.PhaseIdle, Rule: RuleIdleCeiling}
	case l.isHighSpeed(fv):
		return ProvisionalLabel{Phase: p1samples.PhaseHighSpeed, Rule: RuleHighSpeedFloor}
	case l.inMidHighBand(fv) && l.isIrregular(fv):
		return ProvisionalLabel{Phase: p1samples.PhaseSecondary, Rule: RuleMidBandIrregular}
	case l.inMidHighBand(fv) && l.isRhythmic(fv):
		return ProvisionalLabel{Phase: p1samples.PhasePrimary, Rule: RuleMidBandRhythmic}
	default:
		return ProvisionalLabel{Phase: p1samples.PhasePrimary, Rule: RuleMidLowDefault}
	}
}

// Thresholds returns the calibration the labeler was built with.
func (l *Labeler) Thresholds() Thresholds { return l.t }

func (l *Labeler) isIdle(fv p3features.FeatureVector) bool {
	return fv.AvgShort < l.t.IdleCeiling
}

func (l *Labeler) isHighSpeed(fv p3features.FeatureVector) bool {
	return fv.AvgShort > l.t.HighSpeedFloor
}

func (l *Labeler) inMidHighBand(fv p3features.FeatureVector) bool {
	return fv.AvgShort >= l.t.MidBandLow && fv.AvgShort <= l.t.MidBandHigh
}

func (l *Labeler) isIrregular(fv p3features.FeatureVector) bool {
	return fv.Regularity < l.t.RegularityMin
}

func (l *Labeler) isRhythmic(fv p3features.FeatureVector) bool {
	return fv.Regularity >= l.t.RegularityMin && int(fv.PeakCount) >= l.t.MinPeaks
}
