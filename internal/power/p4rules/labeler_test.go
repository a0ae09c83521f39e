package p4rules

import (
	"testing"

	"github.com/gridsense-data/phase.report/internal/power/p1samples"
	"github.com/gridsense-data/phase.report/internal/power/p3features"
)

func testThresholds() Thresholds {
	return Thresholds{
		IdleCeiling:    15,
		HighSpeedFloor: 280,
		MidBandLow:     180,
		MidBandHigh:    280,
		RegularityMin:  0.5,
		MinPeaks:       2,
	}
}

func TestNewLabelerValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Thresholds)
		valid  bool
	}{
		{"valid", func(th *Thresholds) {}, true},
		{"zero idle ceiling", func(th *Thresholds) { th.IdleCeiling = 0 }, false},
		{"floor below ceiling", func(th *Thresholds) { th.HighSpeedFloor = 10 }, false},
		{"inverted mid band", func(th *Thresholds) { th.MidBandLow, th.MidBandHigh = 280, 180 }, false},
		{"regularity above 1", func(th *Thresholds) { th.RegularityMin = 2 }, false},
		{"zero min peaks", func(th *Thresholds) { th.MinPeaks = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := testThresholds()
			tt.mutate(&th)
			_, err := NewLabeler(th)
			if tt.valid && err != nil {
				t.Errorf("NewLabeler unexpected error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("NewLabeler expected error")
			}
		})
	}
}

func TestLabelRuleOrder(t *testing.T) {
	l, err := NewLabeler(testThresholds())
	if err != nil {
		t.Fatalf("NewLabeler failed: %v", err)
	}

	tests := []struct {
		name      string
		fv        p3features.FeatureVector
		wantPhase p1samples.Phase
		wantRule  string
	}{
		{
			name:      "below idle ceiling",
			fv:        p3features.FeatureVector{AvgShort: 5},
			wantPhase: p1samples.PhaseIdle,
			wantRule:  RuleIdleCeiling,
		},
		{
			name: "idle wins regardless of shape",
			fv: p3features.FeatureVector{
				AvgShort: 10, Regularity: 0.9, PeakCount: 5,
			},
			wantPhase: p1samples.PhaseIdle,
			wantRule:  RuleIdleCeiling,
		},
		{
			name:      "above high speed floor",
			fv:        p3features.FeatureVector{AvgShort: 700},
			wantPhase: p1samples.PhaseHighSpeed,
			wantRule:  RuleHighSpeedFloor,
		},
		{
			name: "mid band irregular is secondary",
			fv: p3features.FeatureVector{
				AvgShort: 230, Regularity: 0.1, PeakCount: 3,
			},
			wantPhase: p1samples.PhaseSecondary,
			wantRule:  RuleMidBandIrregular,
		},
		{
			name: "mid band rhythmic is primary despite secondary magnitude",
			fv: p3features.FeatureVector{
				AvgShort: 230, Regularity: 0.9, PeakCount: 3,
			},
			wantPhase: p1samples.PhasePrimary,
			wantRule:  RuleMidBandRhythmic,
		},
		{
			name: "mid band rhythmic needs enough peaks",
			fv: p3features.FeatureVector{
				AvgShort: 230, Regularity: 0.9, PeakCount: 1,
			},
			wantPhase: p1samples.PhasePrimary,
			wantRule:  RuleMidLowDefault,
		},
		{
			name:      "mid low band defaults to primary",
			fv:        p3features.FeatureVector{AvgShort: 100},
			wantPhase: p1samples.PhasePrimary,
			wantRule:  RuleMidLowDefault,
		},
		{
			name:      "exactly at idle ceiling is not idle",
			fv:        p3features.FeatureVector{AvgShort: 15},
			wantPhase: p1samples.PhasePrimary,
			wantRule:  RuleMidLowDefault,
		},
		{
			name:      "exactly at high speed floor is not high speed",
			fv:        p3features.FeatureVector{AvgShort: 280, Regularity: 0.1},
			wantPhase: p1samples.PhaseSecondary,
			wantRule:  RuleMidBandIrregular,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.Label(tt.fv)
			if got.Phase != tt.wantPhase {
				t.Errorf("Label() phase = %s, want %s", got.Phase, tt.wantPhase)
			}
			if got.Rule != tt.wantRule {
				t.Errorf("Label() rule = %s, want %s", got.Rule, tt.wantRule)
			}
		})
	}
}

func TestLabelIsPure(t *testing.T) {
	l, err := NewLabeler(testThresholds())
	if err != nil {
		t.Fatalf("NewLabeler failed: %v", err)
	}

	fv := p3features.FeatureVector{AvgShort: 230, Regularity: 0.9, PeakCount: 3}
	first := l.Label(fv)
	for i := 0; i < 5; i++ {
		if got := l.Label(fv); got != first {
			t.Fatalf("Label() changed across calls: %v then %v", first, got)
		}
	}
}

func TestThresholdsAccessor(t *testing.T) {
	th := testThresholds()
	l, err := NewLabeler(th)
	if err != nil {
		t.Fatalf("NewLabeler failed: %v", err)
	}
	if l.Thresholds() != th {
		t.Errorf("Thresholds() = %+v, want %+v", l.Thresholds(), th)
	}
}
