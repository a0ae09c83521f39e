package p7model

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gridsense-data/phase.report/internal/power/p1samples"
	"github.com/gridsense-data/phase.report/internal/power/p6windows"
)

// cnnClassifier evaluates a single conv1d layer over the window's time
// axis, ReLU, global max pooling, then a dense layer and softmax.
type cnnClassifier struct {
	name    string
	size    int
	kernel  int
	nCols   int
	classes []p1samples.Phase

	filters    [][][]float64
	filterBias []float64
	dense      *mat.Dense    // classes x filters
	denseBias  *mat.VecDense // classes
}

func newCNNClassifier(art *Artifact) *cnnClassifier {
	p := art.CNN
	nClasses := len(art.Classes)
	nFilters := len(p.Filters)

	dense := mat.NewDense(nClasses, nFilters, nil)
	for ci, row := range p.DenseWeights {
		dense.SetRow(ci, row)
	}
	bias := mat.NewVecDense(nClasses, nil)
	for ci, v := range p.DenseBias {
		bias.SetVec(ci, v)
	}

	return &cnnClassifier{
		name:       modelName(art),
		size:       art.WindowSize,
		kernel:     len(p.Filters[0]),
		nCols:      len(art.FeatureColumns),
		classes:    classPhases(art.Classes),
		filters:    p.Filters,
		filterBias: p.FilterBias,
		dense:      dense,
		denseBias:  bias,
	}
}

func (c *cnnClassifier) Model() string                { return c.name }
func (c *cnnClassifier) WindowShape() p6windows.Shape { return p6windows.ShapeSequential }
func (c *cnnClassifier) WindowSize() int              { return c.size }

func (c *cnnClassifier) Classify(w *p6windows.Window) (Prediction, error) {
	if err := checkWindow(w, p6windows.ShapeSequential, c.size); err != nil {
		return Prediction{}, err
	}
	rows := w.Rows()
	for i := range rows {
		if len(rows[i].Values) != c.nCols {
			return Prediction{}, &ArtifactError{Field: "feature_columns",
				Reason: "window row width does not match the trained feature schema"}
		}
	}

	// Convolve each filter along the time axis, ReLU, and keep the max
	// activation. Scratch is per call so a classifier can be shared.
	steps := c.size - c.kernel + 1
	pooled := mat.NewVecDense(len(c.filters), nil)
	for f, filter := range c.filters {
		best := math.Inf(-1)
		for t := 0; t < steps; t++ {
			s := c.filterBias[f]
			for k := 0; k < c.kernel; k++ {
				vals := rows[t+k].Values
				weights := filter[k]
				for ch, v := range vals {
					s += weights[ch] * v
				}
			}
			if s < 0 {
				s = 0
			}
			if s > best {
				best = s
			}
		}
		pooled.SetVec(f, best)
	}

	var logits mat.VecDense
	logits.MulVec(c.dense, pooled)
	logits.AddVec(&logits, c.denseBias)

	return pick(c.classes, softmax(logits.RawVector().Data)), nil
}

// softmax is computed with the max shifted out for stability.
func softmax(logits []float64) []float64 {
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(logits))
	var total float64
	for i, v := range logits {
		e := math.Exp(v - max)
		out[i] = e
		total += e
	}
	for i := range out {
		out[i] /= total
	}
	return out
}
