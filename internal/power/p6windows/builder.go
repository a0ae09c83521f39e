package p6windows

import (
	"fmt"

	"github.com/gridsense-data/phase.report/internal/power/p3features"
	"github.com/gridsense-data/phase.report/internal/power/p5phases"
)

// BuilderConfig sizes the two window rings.
type BuilderConfig struct {
	FlattenedSize  int
	SequentialSize int
}

// DefaultBuilderConfig returns the sizes the default models are trained
// with: 5 rows flattened, 15 rows sequential.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{FlattenedSize: 5, SequentialSize: 15}
}

// Builder feeds confirmed-labeled feature vectors into both window rings
// and emits a snapshot from each ring whenever it is full. Once a ring has
// filled it emits on every push, sliding by one row.
type Builder struct {
	flat *rowRing
	seq  *rowRing
}

// NewBuilder validates the sizes and allocates both rings.
func NewBuilder(cfg BuilderConfig) (*Builder, error) {
	if cfg.FlattenedSize < 1 {
		return nil, fmt.Errorf("flattened window size must be >= 1, got %d", cfg.FlattenedSize)
	}
	if cfg.SequentialSize < 1 {
		return nil, fmt.Errorf("sequential window size must be >= 1, got %d", cfg.SequentialSize)
	}
	return &Builder{
		flat: newRowRing(cfg.FlattenedSize),
		seq:  newRowRing(cfg.SequentialSize),
	}, nil
}

// FlattenedSize returns the flattened ring capacity.
func (b *Builder) FlattenedSize() int { return b.flat.size }

// SequentialSize returns the sequential ring capacity.
func (b *Builder) SequentialSize() int { return b.seq.size }

// Push appends one confirmed-labeled feature vector to both rings and
// returns the windows that became available, nil for a ring that is still
// filling. The row's feature values are taken from the vector's canonical
// column order.
func (b *Builder) Push(cl p5phases.ConfirmedLabel, fv p3features.FeatureVector) (flat, seq *Window) {
	row := Row{
		Timestamp: fv.Timestamp,
		Phase:     cl.Phase,
		Values:    fv.Values(),
	}
	if b.flat.push(row) {
		flat = b.flat.snapshot(ShapeFlattened)
	}
	if b.seq.push(row) {
		seq = b.seq.snapshot(ShapeSequential)
	}
	return flat, seq
}

// Reset empties both rings for a new stream.
func (b *Builder) Reset() {
	b.flat.reset()
	b.seq.reset()
}

// rowRing is a fixed-capacity overwrite ring of rows. head indexes the
// oldest row once the ring is full.
type rowRing struct {
	rows []Row
	size int
	head int
	n    int
}

func newRowRing(size int) *rowRing {
	return &rowRing{rows: make([]Row, size), size: size}
}

// push stores the row and reports whether the ring is full.
func (r *rowRing) push(row Row) bool {
	r.rows[r.head] = row
	r.head = (r.head + 1) % r.size
	if r.n < r.size {
		r.n++
	}
	return r.n == r.size
}

// snapshot copies the row headers oldest first into a fresh window. The
// feature slices themselves are write-once and shared between overlapping
// snapshots.
func (r *rowRing) snapshot(shape Shape) *Window {
	rows := make([]Row, r.size)
	for i := 0; i < r.size; i++ {
		rows[i] = r.rows[(r.head+i)%r.size]
	}
	return &Window{shape: shape, rows: rows}
}

func (r *rowRing) reset() {
	r.head = 0
	r.n = 0
	for i := range r.rows {
		r.rows[i] = Row{}
	}
}
