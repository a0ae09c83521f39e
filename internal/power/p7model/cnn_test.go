package p7model

import (
	"math"
	"testing"

	"github.com/gridsense-data/phase.report/internal/power/p1samples"
	"github.com/gridsense-data/phase.report/internal/power/p3features"
	"github.com/gridsense-data/phase.report/internal/power/p6windows"
)

// sigmoid gives the expected two-class softmax probability for a logit
// difference.
func sigmoid(delta float64) float64 {
	return 1 / (1 + math.Exp(-delta))
}

func TestCNNClassifyTracksMaxActivation(t *testing.T) {
	sizes := WindowSizes{Flattened: 5, Sequential: 4}
	c, err := New(validCNNArtifact(), sizes)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Pooled activation is max power m = 300; logits are 0.5-0.01m and
	// -0.5+0.01m, so P(HIGH_SPEED) = sigmoid(0.02m - 1).
	pred, err := c.Classify(seqWindow(t, []float64{100, 300, 200, 150}))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if pred.Phase != p1samples.PhaseHighSpeed {
		t.Errorf("Phase = %s, want HIGH_SPEED", pred.Phase)
	}
	want := sigmoid(0.02*300 - 1)
	if math.Abs(pred.Confidence-want) > 1e-12 {
		t.Errorf("Confidence = %v, want %v", pred.Confidence, want)
	}

	// Low power favors IDLE.
	pred, err = c.Classify(seqWindow(t, []float64{5, 8, 6, 7}))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if pred.Phase != p1samples.PhaseIdle {
		t.Errorf("Phase = %s, want IDLE", pred.Phase)
	}
	want = sigmoid(1 - 0.02*8)
	if math.Abs(pred.Confidence-want) > 1e-12 {
		t.Errorf("Confidence = %v, want %v", pred.Confidence, want)
	}
}

func TestCNNReLUClampsNegativeActivations(t *testing.T) {
	// A filter with weight -1 on power_smooth goes negative for any
	// positive power, so ReLU pools 0 and the bias alone decides.
	art := validCNNArtifact()
	art.CNN.Filters[0][0][0] = -1

	c, err := New(art, WindowSizes{Flattened: 5, Sequential: 4})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	pred, err := c.Classify(seqWindow(t, []float64{500, 600, 700, 800}))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if pred.Phase != p1samples.PhaseIdle {
		t.Errorf("Phase = %s, want IDLE from the bias alone", pred.Phase)
	}
	want := sigmoid(1) // logits collapse to the dense bias (0.5, -0.5)
	if math.Abs(pred.Confidence-want) > 1e-12 {
		t.Errorf("Confidence = %v, want %v", pred.Confidence, want)
	}
}

func TestCNNKernelSpansTimeSteps(t *testing.T) {
	// Kernel 2 summing adjacent power_smooth values: activations for
	// rows [1,2,3,4] are [3,5,7], pooled max 7.
	art := validCNNArtifact()
	row := make([]float64, len(p3features.Columns()))
	row[0] = 1
	art.CNN.Filters = [][][]float64{{row, row}}
	art.CNN.DenseWeights = [][]float64{{0}, {1}}
	art.CNN.DenseBias = []float64{0, 0}

	c, err := New(art, WindowSizes{Flattened: 5, Sequential: 4})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	pred, err := c.Classify(seqWindow(t, []float64{1, 2, 3, 4}))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if pred.Phase != p1samples.PhaseHighSpeed {
		t.Errorf("Phase = %s, want HIGH_SPEED", pred.Phase)
	}
	want := sigmoid(7)
	if math.Abs(pred.Confidence-want) > 1e-12 {
		t.Errorf("Confidence = %v, want sigmoid(7) = %v", pred.Confidence, want)
	}
}

func TestCNNProbabilitiesSumToOne(t *testing.T) {
	c, err := New(validCNNArtifact(), WindowSizes{Flattened: 5, Sequential: 4})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	pred, err := c.Classify(seqWindow(t, []float64{40, 60, 55, 45}))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	var total float64
	for _, p := range pred.Probabilities {
		if p < 0 || p > 1 {
			t.Errorf("probability %v outside [0,1]", p)
		}
		total += p
	}
	if math.Abs(total-1) > 1e-12 {
		t.Errorf("probabilities sum to %v, want 1", total)
	}
}

func TestCNNRejectsWrongGeometry(t *testing.T) {
	c, err := New(validCNNArtifact(), WindowSizes{Flattened: 5, Sequential: 4})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := c.Classify(flatWindow(t, []float64{1, 2, 3, 4})); err == nil {
		t.Error("Expected error for flattened window")
	}
	if _, err := c.Classify(seqWindow(t, []float64{1, 2, 3, 4, 5})); err == nil {
		t.Error("Expected error for 5-row window against a 4-row model")
	}
	if c.WindowShape() != p6windows.ShapeSequential || c.WindowSize() != 4 {
		t.Errorf("geometry = %s/%d, want sequential/4", c.WindowShape(), c.WindowSize())
	}
}
