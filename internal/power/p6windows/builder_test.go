package p6windows

import (
	"testing"
	"time"

	"github.com/gridsense-data/phase.report/internal/power/p1samples"
	"github.com/gridsense-data/phase.report/internal/power/p3features"
	"github.com/gridsense-data/phase.report/internal/power/p5phases"
)

var testBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// pushN feeds n sequential rows whose PowerSmooth encodes the step index,
// so window contents can be checked by value.
func pushN(b *Builder, start, n int, phase p1samples.Phase) (flat, seq *Window) {
	for i := start; i < start+n; i++ {
		fv := p3features.FeatureVector{
			Timestamp:   testBase.Add(time.Duration(i) * time.Second),
			PowerSmooth: float64(i),
			AvgShort:    float64(i) + 0.5,
		}
		flat, seq = b.Push(p5phases.ConfirmedLabel{Phase: phase}, fv)
	}
	return flat, seq
}

func TestNewBuilderValidation(t *testing.T) {
	if _, err := NewBuilder(BuilderConfig{FlattenedSize: 0, SequentialSize: 5}); err == nil {
		t.Error("Expected error for zero flattened size")
	}
	if _, err := NewBuilder(BuilderConfig{FlattenedSize: 5, SequentialSize: -1}); err == nil {
		t.Error("Expected error for negative sequential size")
	}
	b, err := NewBuilder(DefaultBuilderConfig())
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}
	if b.FlattenedSize() != 5 || b.SequentialSize() != 15 {
		t.Errorf("sizes = %d/%d, want 5/15", b.FlattenedSize(), b.SequentialSize())
	}
}

func TestRingsFillIndependently(t *testing.T) {
	b, err := NewBuilder(BuilderConfig{FlattenedSize: 3, SequentialSize: 5})
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}

	flat, seq := pushN(b, 0, 2, p1samples.PhaseIdle)
	if flat != nil || seq != nil {
		t.Fatal("no window should emit before either ring is full")
	}

	flat, seq = pushN(b, 2, 1, p1samples.PhaseIdle)
	if flat == nil {
		t.Fatal("flattened window should emit at its 3rd row")
	}
	if seq != nil {
		t.Fatal("sequential window should still be filling at row 3")
	}

	flat, seq = pushN(b, 3, 2, p1samples.PhaseIdle)
	if flat == nil || seq == nil {
		t.Fatal("both windows should emit at row 5")
	}
	if flat.Shape() != ShapeFlattened || seq.Shape() != ShapeSequential {
		t.Errorf("shapes = %s/%s, want flattened/sequential", flat.Shape(), seq.Shape())
	}
	if flat.Len() != 3 || seq.Len() != 5 {
		t.Errorf("lengths = %d/%d, want 3/5", flat.Len(), seq.Len())
	}
}

func TestWindowsSlideByOne(t *testing.T) {
	b, err := NewBuilder(BuilderConfig{FlattenedSize: 3, SequentialSize: 4})
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}

	var prev *Window
	for i := 0; i < 10; i++ {
		flat, _ := pushN(b, i, 1, p1samples.PhaseIdle)
		if i < 2 {
			continue
		}
		if flat == nil {
			t.Fatalf("step %d: expected a flattened window", i)
		}
		rows := flat.Rows()
		for j, r := range rows {
			if want := float64(i - 2 + j); r.Values[0] != want {
				t.Errorf("step %d row %d: power_smooth = %v, want %v", i, j, r.Values[0], want)
			}
		}
		if prev != nil {
			// Consecutive windows share all but one row.
			for j := 1; j < len(rows); j++ {
				if rows[j-1].Timestamp != prev.Rows()[j].Timestamp {
					t.Errorf("step %d: window did not slide by one row", i)
				}
			}
		}
		prev = flat
	}
}

func TestRowTimestampsIncrease(t *testing.T) {
	b, err := NewBuilder(BuilderConfig{FlattenedSize: 4, SequentialSize: 6})
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}
	_, seq := pushN(b, 0, 9, p1samples.PhasePrimary)
	if seq == nil {
		t.Fatal("expected a sequential window after 9 rows")
	}
	rows := seq.Rows()
	for i := 1; i < len(rows); i++ {
		if !rows[i].Timestamp.After(rows[i-1].Timestamp) {
			t.Errorf("row %d: timestamps not strictly increasing", i)
		}
	}
	if seq.End() != rows[len(rows)-1].Timestamp {
		t.Errorf("End() = %v, want newest row timestamp", seq.End())
	}
}

func TestEmittedWindowIsImmutable(t *testing.T) {
	b, err := NewBuilder(BuilderConfig{FlattenedSize: 3, SequentialSize: 8})
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}

	flat, _ := pushN(b, 0, 3, p1samples.PhaseIdle)
	if flat == nil {
		t.Fatal("expected a flattened window")
	}
	before := flat.Flatten()

	// Keep pushing: the emitted snapshot must not change underneath us.
	pushN(b, 3, 6, p1samples.PhaseHighSpeed)

	after := flat.Flatten()
	if len(before) != len(after) {
		t.Fatalf("Flatten length changed from %d to %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("index %d: snapshot changed from %v to %v after later pushes", i, before[i], after[i])
		}
	}
	if flat.Label() != p1samples.PhaseIdle {
		t.Errorf("Label() = %s, want the phase captured at emit time", flat.Label())
	}
}

func TestFlattenOrder(t *testing.T) {
	b, err := NewBuilder(BuilderConfig{FlattenedSize: 2, SequentialSize: 4})
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}
	flat, _ := pushN(b, 0, 2, p1samples.PhaseIdle)
	if flat == nil {
		t.Fatal("expected a flattened window")
	}

	vals := flat.Flatten()
	cols := len(p3features.Columns())
	if len(vals) != 2*cols {
		t.Fatalf("Flatten length = %d, want %d", len(vals), 2*cols)
	}
	// Oldest row first, fields in column order: power_smooth then
	// power_avg_short.
	if vals[0] != 0 || vals[1] != 0.5 {
		t.Errorf("oldest row leads with %v, %v, want 0, 0.5", vals[0], vals[1])
	}
	if vals[cols] != 1 || vals[cols+1] != 1.5 {
		t.Errorf("newest row starts at %v, %v, want 1, 1.5", vals[cols], vals[cols+1])
	}
}

func TestWindowLabelIsNewestRow(t *testing.T) {
	b, err := NewBuilder(BuilderConfig{FlattenedSize: 3, SequentialSize: 5})
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}
	pushN(b, 0, 2, p1samples.PhaseIdle)
	flat, _ := pushN(b, 2, 1, p1samples.PhasePrimary)
	if flat == nil {
		t.Fatal("expected a flattened window")
	}
	if flat.Label() != p1samples.PhasePrimary {
		t.Errorf("Label() = %s, want PRIMARY from the newest row", flat.Label())
	}
	if flat.Rows()[0].Phase != p1samples.PhaseIdle {
		t.Errorf("oldest row phase = %s, want IDLE", flat.Rows()[0].Phase)
	}
}

func TestReset(t *testing.T) {
	b, err := NewBuilder(BuilderConfig{FlattenedSize: 2, SequentialSize: 3})
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}
	pushN(b, 0, 3, p1samples.PhaseIdle)

	b.Reset()
	flat, seq := pushN(b, 10, 1, p1samples.PhaseIdle)
	if flat != nil || seq != nil {
		t.Error("rings should be empty after Reset")
	}
	flat, _ = pushN(b, 11, 1, p1samples.PhaseIdle)
	if flat == nil {
		t.Error("flattened ring should refill after Reset")
	}
}

func TestShapeIsValid(t *testing.T) {
	if !ShapeFlattened.IsValid() || !ShapeSequential.IsValid() {
		t.Error("canonical shapes must be valid")
	}
	if Shape("round").IsValid() {
		t.Error("unknown shape must be invalid")
	}
}
