package p6windows

import (
	"time"

	"github.com/gridsense-data/phase.report/internal/power/p1samples"
)

// Shape identifies a window geometry. Classic estimators consume the
// flattened shape, sequence models the sequential one.
type Shape string

const (
	ShapeFlattened  Shape = "flattened"
	ShapeSequential Shape = "sequential"
)

// IsValid reports whether s names a known window geometry.
func (s Shape) IsValid() bool {
	return s == ShapeFlattened || s == ShapeSequential
}

// Row is one confirmed-labeled feature vector inside a window. Values is
// ordered per p3features.Columns and is write-once: rows may be shared
// between overlapping window snapshots and must not be modified.
type Row struct {
	Timestamp time.Time
	Phase     p1samples.Phase
	Values    []float64
}

// Window is an immutable snapshot of consecutive rows, oldest first.
// Later pushes into the builder never alter an emitted window. Callers
// must treat the returned rows as read-only.
type Window struct {
	shape Shape
	rows  []Row
}

// Shape returns the window geometry.
func (w *Window) Shape() Shape { return w.shape }

// Len returns the number of rows.
func (w *Window) Len() int { return len(w.rows) }

// Rows returns the rows oldest first.
func (w *Window) Rows() []Row { return w.rows }

// Last returns the newest row.
func (w *Window) Last() Row { return w.rows[len(w.rows)-1] }

// Label returns the confirmed phase of the newest row, which is the
// training target a labeled window stands for.
func (w *Window) Label() p1samples.Phase { return w.Last().Phase }

// End returns the timestamp of the newest row.
func (w *Window) End() time.Time { return w.Last().Timestamp }

// Flatten concatenates the rows oldest first into a single vector. A
// fresh slice is allocated on every call.
func (w *Window) Flatten() []float64 {
	if len(w.rows) == 0 {
		return nil
	}
	out := make([]float64, 0, len(w.rows)*len(w.rows[0].Values))
	for _, r := range w.rows {
		out = append(out, r.Values...)
	}
	return out
}
