package p2smooth

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/gridsense-data/phase.report/internal/power/p1samples"
)

// SmoothedSample is one conditioned reading, emitted one-to-one with raw
// samples once the filter window has filled.
type SmoothedSample struct {
	Timestamp time.Time
	Power     float64
}

// Smoother is a causal (right-edge) Savitzky-Golay filter. It fits a
// low-degree polynomial over the trailing window by least squares and
// evaluates it at the newest point, so no future samples are ever used.
//
// The least-squares solve happens once at construction: with sample
// positions x_i = i-(W-1) the newest point sits at x=0, and the smoothed
// value is a fixed dot product weights·buffer per sample.
type Smoother struct {
	width   int
	degree  int
	weights []float64 // index 0 = oldest position in the window
	buf     []float64 // ring storage
	head    int       // next write position; also the oldest element when full
	n       int       // elements currently buffered
}

// NewSmoother builds a Smoother for the given window width and polynomial
// degree. Width must be odd and large enough to determine the fit; degree
// must be 2 or 3.
func NewSmoother(width, degree int) (*Smoother, error) {
	if degree < 2 || degree > 3 {
		return nil, fmt.Errorf("smoother degree must be 2 or 3, got %d", degree)
	}
	if width%2 == 0 || width < degree+2 {
		return nil, fmt.Errorf("smoother width must be odd and >= %d, got %d", degree+2, width)
	}

	weights, err := rightEdgeWeights(width, degree)
	if err != nil {
		return nil, err
	}

	return &Smoother{
		width:   width,
		degree:  degree,
		weights: weights,
		buf:     make([]float64, width),
	}, nil
}

// rightEdgeWeights solves for the Savitzky-Golay convolution weights that
// evaluate the least-squares polynomial at the newest sample. With A the
// width x (degree+1) Vandermonde matrix over positions x_i = i-(width-1),
// the evaluation weights are w = A z where (A^T A) z = e0.
func rightEdgeWeights(width, degree int) ([]float64, error) {
	a := mat.NewDense(width, degree+1, nil)
	for i := 0; i < width; i++ {
		x := float64(i - (width - 1))
		for j := 0; j <= degree; j++ {
			a.Set(i, j, math.Pow(x, float64(j)))
		}
	}

	var ata mat.Dense
	ata.Mul(a.T(), a)

	e0 := mat.NewVecDense(degree+1, nil)
	e0.SetVec(0, 1)

	var z mat.VecDense
	if err := z.SolveVec(&ata, e0); err != nil {
		return nil, fmt.Errorf("solving savitzky-golay weights (width=%d degree=%d): %w", width, degree, err)
	}

	var wv mat.VecDense
	wv.MulVec(a, &z)

	weights := make([]float64, width)
	for i := range weights {
		weights[i] = wv.AtVec(i)
	}
	return weights, nil
}

// Push adds a raw sample to the trailing window. It returns the smoothed
// sample and true once the window is full; during warm-up it returns false
// and emits nothing.
func (sm *Smoother) Push(s p1samples.Sample) (SmoothedSample, bool) {
	sm.buf[sm.head] = s.Power
	sm.head = (sm.head + 1) % sm.width
	if sm.n < sm.width {
		sm.n++
	}
	if sm.n < sm.width {
		return SmoothedSample{}, false
	}

	// head now points at the oldest element; weights are ordered
	// oldest-first to match.
	var v float64
	for i := 0; i < sm.width; i++ {
		v += sm.weights[i] * sm.buf[(sm.head+i)%sm.width]
	}
	return SmoothedSample{Timestamp: s.Timestamp, Power: v}, true
}

// Reset empties the window. The precomputed weights are kept, so the
// smoother can be reused for a new stream without re-solving.
func (sm *Smoother) Reset() {
	sm.head = 0
	sm.n = 0
}

// Width returns the configured window width.
func (sm *Smoother) Width() int { return sm.width }

// Degree returns the configured polynomial degree.
func (sm *Smoother) Degree() int { return sm.degree }

// Weights returns a copy of the convolution weights, oldest position first.
func (sm *Smoother) Weights() []float64 {
	out := make([]float64, len(sm.weights))
	copy(out, sm.weights)
	return out
}
