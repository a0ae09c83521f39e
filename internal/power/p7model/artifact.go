package p7model

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/gridsense-data/phase.report/internal/fsutil"
	"github.com/gridsense-data/phase.report/internal/power/p1samples"
	"github.com/gridsense-data/phase.report/internal/power/p3features"
	"github.com/gridsense-data/phase.report/internal/power/p6windows"
)

// SchemaVersion is the artifact schema this build understands.
const SchemaVersion = 1

// Model family names as they appear in the model_type field.
const (
	ModelRandomForest = "random_forest"
	ModelCNN1D        = "cnn1d"
)

// maxArtifactBytes caps artifact files well above any model the training
// jobs export today.
const maxArtifactBytes = 32 << 20

// ArtifactError reports a semantic problem with a model artifact. Path is
// empty for artifacts constructed in memory.
type ArtifactError struct {
	Path   string
	Field  string
	Reason string
}

func (e *ArtifactError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("model artifact: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("model artifact %s: %s: %s", e.Path, e.Field, e.Reason)
}

// Artifact is the on-disk model description. Exactly one parameter block
// must be present, matching model_type.
type Artifact struct {
	SchemaVersion  int       `json:"schema_version"`
	ModelType      string    `json:"model_type"`
	ModelVersion   string    `json:"model_version,omitempty"`
	TrainedAt      time.Time `json:"trained_at,omitempty"`
	WindowShape    string    `json:"window_shape"`
	WindowSize     int       `json:"window_size"`
	FeatureColumns []string  `json:"feature_columns"`
	Classes        []string  `json:"classes"`

	Forest *ForestParams `json:"forest,omitempty"`
	CNN    *CNN1DParams  `json:"cnn1d,omitempty"`
}

// ForestParams holds the trees of a random forest in the flattened
// node-array form scikit-learn exports.
type ForestParams struct {
	Trees []TreeParams `json:"trees"`
}

// TreeParams is one decision tree. Arrays are indexed by node; a node with
// negative child indices is a leaf and Value carries its class counts.
// Children always index past their parent, so a walk terminates.
type TreeParams struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// CNN1DParams holds a single conv1d layer over the time axis followed by
// ReLU, global max pooling, and a dense layer.
type CNN1DParams struct {
	// Filters is indexed [filter][kernel position][feature column].
	Filters    [][][]float64 `json:"filters"`
	FilterBias []float64     `json:"filter_bias"`
	// DenseWeights is indexed [class][filter].
	DenseWeights [][]float64 `json:"dense_weights"`
	DenseBias    []float64   `json:"dense_bias"`
}

// LoadArtifact reads and statically validates a model artifact. The window
// geometry compatibility check against the pipeline configuration happens
// in New.
func LoadArtifact(fs fsutil.FileSystem, path string) (*Artifact, error) {
	if filepath.Ext(path) != ".json" {
		return nil, fmt.Errorf("model artifact %s must have a .json extension", path)
	}
	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat model artifact: %w", err)
	}
	if info.Size() > maxArtifactBytes {
		return nil, fmt.Errorf("model artifact %s is %d bytes, max is %d", path, info.Size(), maxArtifactBytes)
	}

	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parse model artifact %s: %w", path, err)
	}
	if verr := art.validate(); verr != nil {
		verr.Path = path
		return nil, verr
	}
	return &art, nil
}

// validate checks everything that can be checked without knowing the
// pipeline configuration and returns the first violation found.
func (a *Artifact) validate() *ArtifactError {
	if a.SchemaVersion != SchemaVersion {
		return &ArtifactError{Field: "schema_version",
			Reason: fmt.Sprintf("got %d, this build understands %d", a.SchemaVersion, SchemaVersion)}
	}
	if a.ModelType != ModelRandomForest && a.ModelType != ModelCNN1D {
		return &ArtifactError{Field: "model_type",
			Reason: fmt.Sprintf("unknown family %q", a.ModelType)}
	}
	if a.WindowSize < 1 {
		return &ArtifactError{Field: "window_size",
			Reason: fmt.Sprintf("must be >= 1, got %d", a.WindowSize)}
	}

	shape := p6windows.Shape(a.WindowShape)
	if !shape.IsValid() {
		return &ArtifactError{Field: "window_shape",
			Reason: fmt.Sprintf("unknown shape %q", a.WindowShape)}
	}
	// Each family is trained on exactly one geometry.
	if a.ModelType == ModelRandomForest && shape != p6windows.ShapeFlattened {
		return &ArtifactError{Field: "window_shape",
			Reason: "random_forest models consume flattened windows"}
	}
	if a.ModelType == ModelCNN1D && shape != p6windows.ShapeSequential {
		return &ArtifactError{Field: "window_shape",
			Reason: "cnn1d models consume sequential windows"}
	}

	if err := a.validateColumns(); err != nil {
		return err
	}
	if err := a.validateClasses(); err != nil {
		return err
	}

	switch a.ModelType {
	case ModelRandomForest:
		if a.Forest == nil {
			return &ArtifactError{Field: "forest", Reason: "missing parameters for random_forest model"}
		}
		if a.CNN != nil {
			return &ArtifactError{Field: "cnn1d", Reason: "unexpected parameters for random_forest model"}
		}
		return a.validateForest()
	case ModelCNN1D:
		if a.CNN == nil {
			return &ArtifactError{Field: "cnn1d", Reason: "missing parameters for cnn1d model"}
		}
		if a.Forest != nil {
			return &ArtifactError{Field: "forest", Reason: "unexpected parameters for cnn1d model"}
		}
		return a.validateCNN()
	}
	return nil
}

// validateColumns requires the artifact's feature schema to match the
// extractor's canonical column list exactly, order included.
func (a *Artifact) validateColumns() *ArtifactError {
	want := p3features.Columns()
	if len(a.FeatureColumns) != len(want) {
		return &ArtifactError{Field: "feature_columns",
			Reason: fmt.Sprintf("got %d columns, extractor produces %d", len(a.FeatureColumns), len(want))}
	}
	for i, name := range a.FeatureColumns {
		if name != want[i] {
			return &ArtifactError{Field: "feature_columns",
				Reason: fmt.Sprintf("column %d is %q, extractor produces %q", i, name, want[i])}
		}
	}
	return nil
}

// validateClasses requires a non-empty subset of the phase vocabulary in
// canonical order, no duplicates.
func (a *Artifact) validateClasses() *ArtifactError {
	if len(a.Classes) == 0 {
		return &ArtifactError{Field: "classes", Reason: "must not be empty"}
	}
	all := p1samples.AllPhases()
	idx := 0
	for _, c := range a.Classes {
		ph := p1samples.Phase(c)
		for idx < len(all) && all[idx] != ph {
			idx++
		}
		if idx == len(all) {
			return &ArtifactError{Field: "classes",
				Reason: fmt.Sprintf("%q is not in the phase vocabulary in canonical order", c)}
		}
		idx++
	}
	return nil
}

func (a *Artifact) validateForest() *ArtifactError {
	if len(a.Forest.Trees) == 0 {
		return &ArtifactError{Field: "forest.trees", Reason: "must not be empty"}
	}
	flatLen := a.WindowSize * len(a.FeatureColumns)
	for ti, t := range a.Forest.Trees {
		field := fmt.Sprintf("forest.trees[%d]", ti)
		n := len(t.ChildrenLeft)
		if n == 0 {
			return &ArtifactError{Field: field, Reason: "has no nodes"}
		}
		if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
			return &ArtifactError{Field: field, Reason: "node arrays have mismatched lengths"}
		}
		for i := 0; i < n; i++ {
			row := t.Value[i]
			if len(row) != len(a.Classes) {
				return &ArtifactError{Field: field,
					Reason: fmt.Sprintf("node %d value has %d entries, want one per class (%d)", i, len(row), len(a.Classes))}
			}
			if !allFinite(row) || !allNonNegative(row) {
				return &ArtifactError{Field: field,
					Reason: fmt.Sprintf("node %d value entries must be finite and non-negative", i)}
			}

			leaf := t.ChildrenLeft[i] < 0 || t.ChildrenRight[i] < 0
			if leaf {
				if t.ChildrenLeft[i] >= 0 || t.ChildrenRight[i] >= 0 {
					return &ArtifactError{Field: field,
						Reason: fmt.Sprintf("node %d has exactly one child", i)}
				}
				if sum(row) <= 0 {
					return &ArtifactError{Field: field,
						Reason: fmt.Sprintf("leaf %d class counts sum to zero", i)}
				}
				continue
			}
			if t.ChildrenLeft[i] <= i || t.ChildrenLeft[i] >= n ||
				t.ChildrenRight[i] <= i || t.ChildrenRight[i] >= n {
				return &ArtifactError{Field: field,
					Reason: fmt.Sprintf("node %d children must index forward within the tree", i)}
			}
			if t.Feature[i] < 0 || t.Feature[i] >= flatLen {
				return &ArtifactError{Field: field,
					Reason: fmt.Sprintf("node %d splits on feature %d, flattened window has %d", i, t.Feature[i], flatLen)}
			}
			if math.IsNaN(t.Threshold[i]) || math.IsInf(t.Threshold[i], 0) {
				return &ArtifactError{Field: field,
					Reason: fmt.Sprintf("node %d threshold is not finite", i)}
			}
		}
	}
	return nil
}

func (a *Artifact) validateCNN() *ArtifactError {
	c := a.CNN
	if len(c.Filters) == 0 {
		return &ArtifactError{Field: "cnn1d.filters", Reason: "must not be empty"}
	}
	kernel := len(c.Filters[0])
	if kernel < 1 {
		return &ArtifactError{Field: "cnn1d.filters", Reason: "kernel size must be >= 1"}
	}
	if kernel > a.WindowSize {
		return &ArtifactError{Field: "cnn1d.filters",
			Reason: fmt.Sprintf("kernel size %d exceeds window size %d", kernel, a.WindowSize)}
	}
	nCols := len(a.FeatureColumns)
	for fi, f := range c.Filters {
		if len(f) != kernel {
			return &ArtifactError{Field: "cnn1d.filters",
				Reason: fmt.Sprintf("filter %d kernel size %d differs from filter 0 (%d)", fi, len(f), kernel)}
		}
		for ki, row := range f {
			if len(row) != nCols {
				return &ArtifactError{Field: "cnn1d.filters",
					Reason: fmt.Sprintf("filter %d position %d has %d weights, want one per column (%d)", fi, ki, len(row), nCols)}
			}
			if !allFinite(row) {
				return &ArtifactError{Field: "cnn1d.filters",
					Reason: fmt.Sprintf("filter %d position %d has non-finite weights", fi, ki)}
			}
		}
	}
	if len(c.FilterBias) != len(c.Filters) || !allFinite(c.FilterBias) {
		return &ArtifactError{Field: "cnn1d.filter_bias",
			Reason: fmt.Sprintf("want %d finite entries, one per filter", len(c.Filters))}
	}
	if len(c.DenseWeights) != len(a.Classes) {
		return &ArtifactError{Field: "cnn1d.dense_weights",
			Reason: fmt.Sprintf("got %d rows, want one per class (%d)", len(c.DenseWeights), len(a.Classes))}
	}
	for ci, row := range c.DenseWeights {
		if len(row) != len(c.Filters) {
			return &ArtifactError{Field: "cnn1d.dense_weights",
				Reason: fmt.Sprintf("row %d has %d weights, want one per filter (%d)", ci, len(row), len(c.Filters))}
		}
		if !allFinite(row) {
			return &ArtifactError{Field: "cnn1d.dense_weights",
				Reason: fmt.Sprintf("row %d has non-finite weights", ci)}
		}
	}
	if len(c.DenseBias) != len(a.Classes) || !allFinite(c.DenseBias) {
		return &ArtifactError{Field: "cnn1d.dense_bias",
			Reason: fmt.Sprintf("want %d finite entries, one per class", len(a.Classes))}
	}
	return nil
}

func allFinite(vals []float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func allNonNegative(vals []float64) bool {
	for _, v := range vals {
		if v < 0 {
			return false
		}
	}
	return true
}

func sum(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}
