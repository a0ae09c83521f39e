package p5phases

import (
	"fmt"
	"strings"
	"time"

	"github.com/gridsense-data/phase.report/internal/power/p1samples"
	"github.com/gridsense-data/phase.report/internal/power/p4rules"
)

// Edge is a directed phase transition.
type Edge struct {
	From p1samples.Phase
	To   p1samples.Phase
}

// String renders the edge in the "FROM->TO" config form.
func (e Edge) String() string {
	return string(e.From) + "->" + string(e.To)
}

// ParseEdge parses a "FROM->TO" string against the phase vocabulary.
func ParseEdge(s string) (Edge, error) {
	parts := strings.Split(s, "->")
	if len(parts) != 2 {
		return Edge{}, fmt.Errorf("transition %q must have the form FROM->TO", s)
	}
	from, err := p1samples.ParsePhase(strings.TrimSpace(parts[0]))
	if err != nil {
		return Edge{}, fmt.Errorf("transition %q: %w", s, err)
	}
	to, err := p1samples.ParsePhase(strings.TrimSpace(parts[1]))
	if err != nil {
		return Edge{}, fmt.Errorf("transition %q: %w", s, err)
	}
	if from == to {
		return Edge{}, fmt.Errorf("transition %q: self edges cannot be forbidden", s)
	}
	return Edge{From: from, To: to}, nil
}

// ConfirmedLabel is the validator's append-only output: the confirmed phase,
// how long it has held, and whether this step changed it.
type ConfirmedLabel struct {
	Phase   p1samples.Phase
	Dwell   time.Duration
	Changed bool
}

// ValidatorConfig holds the debounce depth and the forbidden transitions.
type ValidatorConfig struct {
	// Debounce is the number of consecutive samples a differing provisional
	// label must persist before it can be confirmed.
	Debounce int

	// ForbiddenEdges lists transitions that are physically impossible for
	// the appliance; the prior label is held when one is attempted.
	ForbiddenEdges []Edge
}

// DefaultValidatorConfig returns the calibration used when nothing is
// configured: a 3-sample debounce and no direct IDLE to HIGH_SPEED jump.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		Debounce: 3,
		ForbiddenEdges: []Edge{
			{From: p1samples.PhaseIdle, To: p1samples.PhaseHighSpeed},
		},
	}
}

// Validator is the phase-transition state machine. States are the phase
// vocabulary plus an implicit start state that reports IDLE until the
// first stable provisional run confirms a phase.
type Validator struct {
	cfg       ValidatorConfig
	forbidden map[Edge]bool

	started    bool
	confirmed  p1samples.Phase
	phaseSince time.Time

	candidate    p1samples.Phase
	candidateRun int

	debounceRejects  uint64
	forbiddenRejects uint64
}

// NewValidator validates the config and builds the forbidden-edge set.
func NewValidator(cfg ValidatorConfig) (*Validator, error) {
	if cfg.Debounce < 1 {
		return nil, fmt.Errorf("debounce must be >= 1, got %d", cfg.Debounce)
	}
	forbidden := make(map[Edge]bool, len(cfg.ForbiddenEdges))
	for _, e := range cfg.ForbiddenEdges {
		if !e.From.IsValid() || !e.To.IsValid() {
			return nil, fmt.Errorf("forbidden edge %s names an unknown phase", e)
		}
		forbidden[e] = true
	}
	return &Validator{
		cfg:       cfg,
		forbidden: forbidden,
		confirmed: p1samples.PhaseIdle,
	}, nil
}

// Observe runs one validation step. The returned label is the confirmed
// phase after applying the debounce and forbidden-edge rules; on any
// rejection the prior label is repeated and the candidate's consecutive
// count keeps accumulating, so a persistent real change still wins once
// its edge is allowed.
func (v *Validator) Observe(label p4rules.ProvisionalLabel, ts time.Time) ConfirmedLabel {
	if v.phaseSince.IsZero() {
		v.phaseSince = ts
	}

	if label.Phase == v.candidate {
		v.candidateRun++
	} else {
		v.candidate = label.Phase
		v.candidateRun = 1
	}

	if !v.started {
		return v.observeStart(ts)
	}

	if label.Phase == v.confirmed {
		return ConfirmedLabel{Phase: v.confirmed, Dwell: ts.Sub(v.phaseSince)}
	}

	if v.candidateRun < v.cfg.Debounce {
		v.debounceRejects++
		return ConfirmedLabel{Phase: v.confirmed, Dwell: ts.Sub(v.phaseSince)}
	}

	if v.forbidden[Edge{From: v.confirmed, To: v.candidate}] {
		v.forbiddenRejects++
		return ConfirmedLabel{Phase: v.confirmed, Dwell: ts.Sub(v.phaseSince)}
	}

	v.confirmed = v.candidate
	v.phaseSince = ts
	return ConfirmedLabel{Phase: v.confirmed, Changed: true}
}

// observeStart reports the IDLE safe default until the first stable run.
// Leaving the start state is unconstrained: forbidden edges only bind
// transitions between confirmed phases.
func (v *Validator) observeStart(ts time.Time) ConfirmedLabel {
	if v.candidateRun < v.cfg.Debounce {
		return ConfirmedLabel{Phase: p1samples.PhaseIdle, Dwell: ts.Sub(v.phaseSince)}
	}

	v.started = true
	v.confirmed = v.candidate
	if v.confirmed == p1samples.PhaseIdle {
		// Continuation of the reported default, not a change.
		return ConfirmedLabel{Phase: v.confirmed, Dwell: ts.Sub(v.phaseSince)}
	}
	v.phaseSince = ts
	return ConfirmedLabel{Phase: v.confirmed, Changed: true}
}

// Confirmed returns the current confirmed phase (IDLE before the first
// confirmation).
func (v *Validator) Confirmed() p1samples.Phase { return v.confirmed }

// Started reports whether the first stable run has been observed.
func (v *Validator) Started() bool { return v.started }

// Counters returns the cumulative rejection counts by cause.
func (v *Validator) Counters() (debounceRejects, forbiddenRejects uint64) {
	return v.debounceRejects, v.forbiddenRejects
}

// Reset returns the validator to the start state for a new stream,
// clearing the rejection counters.
func (v *Validator) Reset() {
	v.started = false
	v.confirmed = p1samples.PhaseIdle
	v.phaseSince = time.Time{}
	v.candidate = ""
	v.candidateRun = 0
	v.debounceRejects = 0
	v.forbiddenRejects = 0
}
