package p1samples

import "fmt"

// Phase identifies the appliance operating phase. The set is closed: rule
// labels, confirmed labels, and model artifact classes all draw from this
// vocabulary.
type Phase string

const (
	PhaseIdle      Phase = "IDLE"
	PhasePrimary   Phase = "PRIMARY"
	PhaseSecondary Phase = "SECONDARY"
	PhaseHighSpeed Phase = "HIGH_SPEED"
)

// AllPhases returns the phase vocabulary in canonical order. Model
// artifacts must declare their classes as a subset of this order.
func AllPhases() []Phase {
	return []Phase{PhaseIdle, PhasePrimary, PhaseSecondary, PhaseHighSpeed}
}

// IsValid reports whether p is a member of the phase vocabulary.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseIdle, PhasePrimary, PhaseSecondary, PhaseHighSpeed:
		return true
	}
	return false
}

// ParsePhase converts a string (e.g. from config or an artifact file) into
// a Phase, rejecting anything outside the vocabulary.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !p.IsValid() {
		return "", fmt.Errorf("unknown phase %q (valid: %v)", s, AllPhases())
	}
	return p, nil
}
