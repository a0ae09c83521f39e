package p7model

import (
	"github.com/gridsense-data/phase.report/internal/power/p1samples"
	"github.com/gridsense-data/phase.report/internal/power/p6windows"
)

// forestClassifier averages per-tree leaf class distributions over the
// flattened window vector.
type forestClassifier struct {
	name    string
	size    int
	flatLen int
	classes []p1samples.Phase
	trees   []TreeParams
}

func newForestClassifier(art *Artifact) *forestClassifier {
	return &forestClassifier{
		name:    modelName(art),
		size:    art.WindowSize,
		flatLen: art.WindowSize * len(art.FeatureColumns),
		classes: classPhases(art.Classes),
		trees:   art.Forest.Trees,
	}
}

func (c *forestClassifier) Model() string                { return c.name }
func (c *forestClassifier) WindowShape() p6windows.Shape { return p6windows.ShapeFlattened }
func (c *forestClassifier) WindowSize() int              { return c.size }

func (c *forestClassifier) Classify(w *p6windows.Window) (Prediction, error) {
	if err := checkWindow(w, p6windows.ShapeFlattened, c.size); err != nil {
		return Prediction{}, err
	}
	x := w.Flatten()
	if len(x) != c.flatLen {
		return Prediction{}, &ArtifactError{Field: "feature_columns",
			Reason: "window row width does not match the trained feature schema"}
	}

	probs := make([]float64, len(c.classes))
	for i := range c.trees {
		leaf := walk(&c.trees[i], x)
		row := c.trees[i].Value[leaf]
		total := sum(row)
		for j, v := range row {
			probs[j] += v / total
		}
	}
	inv := 1 / float64(len(c.trees))
	for j := range probs {
		probs[j] *= inv
	}
	return pick(c.classes, probs), nil
}

// walk descends one tree to its leaf for the flattened vector x. Split
// convention follows scikit-learn: left when x[feature] <= threshold.
func walk(t *TreeParams, x []float64) int {
	i := 0
	for t.ChildrenLeft[i] >= 0 {
		if x[t.Feature[i]] <= t.Threshold[i] {
			i = t.ChildrenLeft[i]
		} else {
			i = t.ChildrenRight[i]
		}
	}
	return i
}
