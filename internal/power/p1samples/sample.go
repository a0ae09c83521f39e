package p1samples

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Sample is one raw power reading as delivered by the external transport.
// Power is in watts. Samples arrive at a fixed nominal cadence; jitter is
// tolerated, reordering is not.
type Sample struct {
	Timestamp time.Time
	Power     float64
}

// Ingestion validation errors. The pipeline rejects the sample and leaves
// all buffers untouched when any of these fire.
var (
	ErrZeroTimestamp = errors.New("sample has zero timestamp")
	ErrNotFinite     = errors.New("sample power is not finite")
	ErrNotIncreasing = errors.New("sample timestamp not increasing")
)

// Check validates a sample against the previous accepted timestamp.
// A zero prev means no sample has been accepted yet.
func Check(s Sample, prev time.Time) error {
	if s.Timestamp.IsZero() {
		return ErrZeroTimestamp
	}
	if math.IsNaN(s.Power) || math.IsInf(s.Power, 0) {
		return fmt.Errorf("%w: %v", ErrNotFinite, s.Power)
	}
	if !prev.IsZero() && !s.Timestamp.After(prev) {
		return fmt.Errorf("%w: %s is not after %s",
			ErrNotIncreasing,
			s.Timestamp.Format(time.RFC3339Nano),
			prev.Format(time.RFC3339Nano))
	}
	return nil
}
