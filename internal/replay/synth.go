package replay

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/gridsense-data/phase.report/internal/power/p1samples"
)

// Profile identifies a built-in synthetic waveform.
type Profile string

const (
	// ProfileConstant holds a quiet idle draw for the whole run.
	ProfileConstant Profile = "constant"

	// ProfileRamp holds idle, ramps to full power, then holds there.
	ProfileRamp Profile = "ramp"

	// ProfileCycle walks a full appliance cycle: idle, steady mid band,
	// rhythmic mid-band agitation, high-speed burst, back to idle.
	ProfileCycle Profile = "cycle"

	// ProfileMixed draws a mid-band base with seeded irregular bursts.
	ProfileMixed Profile = "mixed"
)

// Profiles returns the available profiles in display order.
func Profiles() []Profile {
	return []Profile{ProfileConstant, ProfileRamp, ProfileCycle, ProfileMixed}
}

// ParseProfile converts a CLI string into a Profile.
func ParseProfile(s string) (Profile, error) {
	p := Profile(s)
	for _, known := range Profiles() {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown profile %q (valid: %v)", s, Profiles())
}

// Waveform power levels, chosen to land in the default rule bands
// (idle ceiling 15 W, mid band 180-280 W, high-speed floor 280 W).
const (
	synthIdleWatts = 8.0
	synthMidWatts  = 225.0
	synthHighWatts = 850.0
)

// synthEpoch anchors generated streams when no start time is given, so
// repeated runs with the same seed produce byte-identical files.
var synthEpoch = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

// SynthConfig shapes a generated sample stream.
type SynthConfig struct {
	Profile Profile
	Count   int
	Cadence time.Duration

	// Start stamps the first sample; zero means a fixed epoch.
	Start time.Time

	// NoiseAmp adds seeded uniform noise in [-NoiseAmp, +NoiseAmp] watts.
	NoiseAmp float64

	Seed int64
}

// Generate produces a deterministic synthetic sample stream. The same
// config always yields the same samples.
func Generate(cfg SynthConfig) ([]p1samples.Sample, error) {
	if _, err := ParseProfile(string(cfg.Profile)); err != nil {
		return nil, err
	}
	if cfg.Count < 1 {
		return nil, fmt.Errorf("count must be at least 1, got %d", cfg.Count)
	}
	if cfg.Cadence <= 0 {
		return nil, fmt.Errorf("cadence must be positive, got %v", cfg.Cadence)
	}
	if cfg.NoiseAmp < 0 || math.IsNaN(cfg.NoiseAmp) || math.IsInf(cfg.NoiseAmp, 0) {
		return nil, fmt.Errorf("noise amplitude must be finite and non-negative, got %f", cfg.NoiseAmp)
	}

	start := cfg.Start
	if start.IsZero() {
		start = synthEpoch
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	samples := make([]p1samples.Sample, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		v := baseValue(cfg.Profile, i, cfg.Count, rng)
		if cfg.NoiseAmp > 0 {
			v += (rng.Float64()*2 - 1) * cfg.NoiseAmp
		}
		if v < 0 {
			v = 0
		}
		samples[i] = p1samples.Sample{
			Timestamp: start.Add(time.Duration(i) * cfg.Cadence),
			Power:     v,
		}
	}

	return samples, nil
}

// baseValue returns the noise-free waveform value for sample i of n.
// The rng must be consumed identically on every call path so that the
// noise stream stays aligned across profiles.
func baseValue(profile Profile, i, n int, rng *rand.Rand) float64 {
	switch profile {
	case ProfileConstant:
		return synthIdleWatts

	case ProfileRamp:
		// Idle lead-in, linear climb, then hold at full power.
		lead := n / 4
		climb := n / 2
		switch {
		case i < lead:
			return synthIdleWatts
		case i < lead+climb:
			frac := float64(i-lead) / float64(climb)
			return synthIdleWatts + frac*(synthHighWatts-synthIdleWatts)
		default:
			return synthHighWatts
		}

	case ProfileCycle:
		// Segment fractions: idle, steady mid, rhythmic mid, high, idle.
		pos := float64(i) / float64(n)
		switch {
		case pos < 0.15:
			return synthIdleWatts
		case pos < 0.40:
			return synthMidWatts
		case pos < 0.70:
			// Rhythmic agitation: 8-sample period, prominent enough for
			// the peak detector at default tuning.
			return synthMidWatts + 35*math.Sin(2*math.Pi*float64(i)/8)
		case pos < 0.90:
			return synthHighWatts
		default:
			return synthIdleWatts
		}

	case ProfileMixed:
		// Irregular mid band: every sample has a seeded chance of a
		// burst, so spacing never settles into a rhythm.
		v := synthMidWatts - 25
		if rng.Float64() < 0.18 {
			v += 60 + rng.Float64()*200
		}
		if float64(i) > 0.8*float64(n) {
			return synthIdleWatts
		}
		return v
	}

	return synthIdleWatts
}
