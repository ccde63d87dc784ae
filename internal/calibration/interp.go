package calibration

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"
)

// Interpolator maps an optical density to a concentration.
// Implementations are defined on the whole real line: outside the standard's
// domain they extend the boundary piece instead of clamping.
type Interpolator interface {
	Evaluate(od float64) float64
}

// newInterpolator fits the interpolator for method. xs must be strictly
// increasing and hold at least method.MinPoints() values.
func newInterpolator(method Method, xs, ys []float64) (Interpolator, error) {
	switch method {
	case MethodLinear:
		return newLinearInterpolator(xs, ys)
	case MethodCubic:
		return newCubicInterpolator(xs, ys)
	case MethodSpline:
		return newSplineInterpolator(xs, ys)
	default:
		return nil, fmt.Errorf("no interpolator for method %s", method)
	}
}

// segment returns i such that x falls in [xs[i], xs[i+1]], clamped to the
// first and last segment for x outside the domain.
func segment(xs []float64, x float64) int {
	i := sort.SearchFloat64s(xs, x) - 1
	if i < 0 {
		return 0
	}
	if i > len(xs)-2 {
		return len(xs) - 2
	}
	return i
}

// linearInterpolator delegates in-domain evaluation to gonum and extends the
// boundary segments' slopes beyond it.
type linearInterpolator struct {
	xs, ys []float64
	pl     interp.PiecewiseLinear
}

func newLinearInterpolator(xs, ys []float64) (*linearInterpolator, error) {
	li := &linearInterpolator{xs: xs, ys: ys}
	if err := li.pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("failed to fit linear interpolator: %w", err)
	}
	return li, nil
}

// Evaluate returns the piecewise-linear value at od.
func (li *linearInterpolator) Evaluate(od float64) float64 {
	n := len(li.xs)
	if od >= li.xs[0] && od <= li.xs[n-1] {
		return li.pl.Predict(od)
	}
	i := segment(li.xs, od)
	slope := (li.ys[i+1] - li.ys[i]) / (li.xs[i+1] - li.xs[i])
	return li.ys[i] + slope*(od-li.xs[i])
}

// cubicInterpolator is a not-a-knot cubic spline stored as second
// derivatives at the knots. Every segment, including the two boundary ones
// used for extrapolation, is the cubic defined by its end values and
// end second derivatives.
type cubicInterpolator struct {
	xs, ys []float64
	m      []float64
}

func newCubicInterpolator(xs, ys []float64) (*cubicInterpolator, error) {
	n := len(xs)
	if n < 4 {
		return nil, fmt.Errorf("not-a-knot cubic needs 4 points, got %d", n)
	}

	h := make([]float64, n-1)
	for i := range h {
		h[i] = xs[i+1] - xs[i]
	}

	a := mat.NewDense(n, n, nil)
	b := mat.NewVecDense(n, nil)

	// Third derivative continuous across the second knot.
	a.Set(0, 0, h[1])
	a.Set(0, 1, -(h[0] + h[1]))
	a.Set(0, 2, h[0])

	for i := 1; i < n-1; i++ {
		a.Set(i, i-1, h[i-1])
		a.Set(i, i, 2*(h[i-1]+h[i]))
		a.Set(i, i+1, h[i])
		b.SetVec(i, 6*((ys[i+1]-ys[i])/h[i]-(ys[i]-ys[i-1])/h[i-1]))
	}

	// Third derivative continuous across the second-to-last knot.
	a.Set(n-1, n-3, h[n-2])
	a.Set(n-1, n-2, -(h[n-3] + h[n-2]))
	a.Set(n-1, n-1, h[n-3])

	var sol mat.VecDense
	if err := sol.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("failed to solve cubic spline system: %w", err)
	}
	m := make([]float64, n)
	for i := range m {
		m[i] = sol.AtVec(i)
	}
	return &cubicInterpolator{xs: xs, ys: ys, m: m}, nil
}

// Evaluate returns the cubic value at od.
func (ci *cubicInterpolator) Evaluate(od float64) float64 {
	i := segment(ci.xs, od)
	x0, x1 := ci.xs[i], ci.xs[i+1]
	y0, y1 := ci.ys[i], ci.ys[i+1]
	m0, m1 := ci.m[i], ci.m[i+1]
	h := x1 - x0

	l := x1 - od
	r := od - x0
	return m0*l*l*l/(6*h) + m1*r*r*r/(6*h) +
		(y0/h-m0*h/6)*l + (y1/h-m1*h/6)*r
}

// splineInterpolator wraps gonum's not-a-knot cubic. gonum clamps outside
// the fitted range, so the boundary polynomial is recovered from four samples
// of the first and last piece and extended by Lagrange interpolation.
type splineInterpolator struct {
	lo, hi float64
	nak    interp.NotAKnotCubic
	left   [4][2]float64
	right  [4][2]float64
}

func newSplineInterpolator(xs, ys []float64) (*splineInterpolator, error) {
	n := len(xs)
	if n < 4 {
		return nil, fmt.Errorf("interpolating spline needs 4 points, got %d", n)
	}

	si := &splineInterpolator{lo: xs[0], hi: xs[n-1]}
	if err := si.nak.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("failed to fit spline: %w", err)
	}
	si.left = si.sample(xs[0], xs[1])
	si.right = si.sample(xs[n-2], xs[n-1])
	return si, nil
}

// sample evaluates the fitted spline at four evenly spaced points of [a, b].
func (si *splineInterpolator) sample(a, b float64) [4][2]float64 {
	var pts [4][2]float64
	for k := 0; k < 4; k++ {
		x := a + (b-a)*float64(k)/3
		if k == 3 {
			x = b
		}
		pts[k] = [2]float64{x, si.nak.Predict(x)}
	}
	return pts
}

// Evaluate returns the spline value at od.
func (si *splineInterpolator) Evaluate(od float64) float64 {
	switch {
	case od < si.lo:
		return lagrange(si.left, od)
	case od > si.hi:
		return lagrange(si.right, od)
	default:
		return si.nak.Predict(od)
	}
}

// lagrange evaluates the cubic through pts at x.
func lagrange(pts [4][2]float64, x float64) float64 {
	var sum float64
	for i := 0; i < 4; i++ {
		term := pts[i][1]
		for j := 0; j < 4; j++ {
			if i != j {
				term *= (x - pts[j][0]) / (pts[i][0] - pts[j][0])
			}
		}
		sum += term
	}
	return sum
}
