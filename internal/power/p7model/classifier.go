package p7model

import (
	"fmt"

	"github.com/gridsense-data/phase.report/internal/fsutil"
	"github.com/gridsense-data/phase.report/internal/power/p1samples"
	"github.com/gridsense-data/phase.report/internal/power/p6windows"
)

// Prediction is one model output. Confidence is the probability of the
// predicted phase and lies in [0,1]; Probabilities covers the classes the
// artifact declares.
type Prediction struct {
	Phase         p1samples.Phase
	Confidence    float64
	Probabilities map[p1samples.Phase]float64
}

// Classifier evaluates a trained model against feature windows. Classify
// has no mutable state, so one classifier may be shared between pipelines.
type Classifier interface {
	// Classify evaluates the window. The window's shape and size must
	// match the model's training geometry.
	Classify(w *p6windows.Window) (Prediction, error)

	// Model returns the model family, with the artifact version appended
	// when one is declared ("random_forest/v3").
	Model() string

	// WindowShape returns the geometry the model was trained on.
	WindowShape() p6windows.Shape

	// WindowSize returns the row count the model was trained on.
	WindowSize() int
}

// WindowSizes carries the pipeline's configured ring sizes so New can
// reject an artifact trained on a different geometry.
type WindowSizes struct {
	Flattened  int
	Sequential int
}

// New validates the artifact, checks it against the pipeline's window
// geometry, and builds the evaluator for its family.
func New(art *Artifact, sizes WindowSizes) (Classifier, error) {
	if verr := art.validate(); verr != nil {
		return nil, verr
	}

	configured := sizes.Flattened
	if p6windows.Shape(art.WindowShape) == p6windows.ShapeSequential {
		configured = sizes.Sequential
	}
	if art.WindowSize != configured {
		return nil, &ArtifactError{Field: "window_size",
			Reason: fmt.Sprintf("model trained on %d-row %s windows, pipeline builds %d",
				art.WindowSize, art.WindowShape, configured)}
	}

	switch art.ModelType {
	case ModelRandomForest:
		return newForestClassifier(art), nil
	case ModelCNN1D:
		return newCNNClassifier(art), nil
	}
	// validate() only admits the families above.
	return nil, &ArtifactError{Field: "model_type",
		Reason: fmt.Sprintf("unknown family %q", art.ModelType)}
}

// Load reads, validates, and builds a classifier in one step.
func Load(fs fsutil.FileSystem, path string, sizes WindowSizes) (Classifier, error) {
	art, err := LoadArtifact(fs, path)
	if err != nil {
		return nil, err
	}
	c, err := New(art, sizes)
	if err != nil {
		if verr, ok := err.(*ArtifactError); ok {
			verr.Path = path
		}
		return nil, err
	}
	return c, nil
}

// modelName renders the Model() string for an artifact.
func modelName(art *Artifact) string {
	if art.ModelVersion == "" {
		return art.ModelType
	}
	return art.ModelType + "/" + art.ModelVersion
}

// classPhases converts the validated class list to phases.
func classPhases(classes []string) []p1samples.Phase {
	out := make([]p1samples.Phase, len(classes))
	for i, c := range classes {
		out[i] = p1samples.Phase(c)
	}
	return out
}

// pick builds the Prediction for a class-probability vector. Ties go to
// the earlier class in canonical vocabulary order.
func pick(classes []p1samples.Phase, probs []float64) Prediction {
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	m := make(map[p1samples.Phase]float64, len(probs))
	for i, c := range classes {
		m[c] = probs[i]
	}
	return Prediction{Phase: classes[best], Confidence: probs[best], Probabilities: m}
}

// checkWindow verifies the window matches the model's training geometry.
func checkWindow(w *p6windows.Window, shape p6windows.Shape, size int) error {
	if w == nil {
		return fmt.Errorf("nil window")
	}
	if w.Shape() != shape {
		return fmt.Errorf("window shape %s, model consumes %s", w.Shape(), shape)
	}
	if w.Len() != size {
		return fmt.Errorf("window has %d rows, model consumes %d", w.Len(), size)
	}
	return nil
}
