// Package calibration builds calibration curves from standard points and
// applies them to optical-density readings.
//
// A Curve pairs an interpolating function with the domain spanned by the
// standard and the linear regression statistics of the raw points. Curves
// are immutable; rebuilding a standard produces a new Curve.
//
// Three interpolation methods are supported:
//
//   - linear: piecewise-linear, boundary slope extended outside the domain
//   - cubic:  not-a-knot piecewise cubic, boundary cubic extended
//   - spline: interpolating cubic spline (zero smoothing), boundary piece extended
//
// Readings outside the domain are always estimated and only flagged through
// their range status.
package calibration

import (
	"fmt"
	"sort"
	"time"

	"github.com/rewired-gh/labcal/internal/logger"
	"github.com/rewired-gh/labcal/internal/models"
	"github.com/rewired-gh/labcal/internal/regression"
)

// Domain is the closed optical-density interval covered by a standard.
type Domain struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether od lies in [Min, Max].
func (d Domain) Contains(od float64) bool {
	return od >= d.Min && od <= d.Max
}

// Curve is a fitted optical density to concentration mapping.
type Curve struct {
	Standard   string
	Unit       string
	Method     Method
	Domain     Domain
	Regression regression.Stats
	Points     int
	BuiltAt    time.Time

	fn Interpolator
}

// Summary is the plain-data view of a curve handed to reporting layers.
type Summary struct {
	Standard   string           `json:"standard" yaml:"standard"`
	Unit       string           `json:"unit" yaml:"unit"`
	Method     Method           `json:"method" yaml:"method"`
	Domain     Domain           `json:"domain" yaml:"domain"`
	Regression regression.Stats `json:"regression" yaml:"regression"`
	Points     int              `json:"points" yaml:"points"`
	BuiltAt    time.Time        `json:"built_at" yaml:"built_at"`
}

// Build fits a curve of the given method to the standard.
//
// Errors wrap models.ErrInvalidInput for malformed standards,
// models.ErrUnknownMethod for unsupported methods and
// models.ErrInsufficientPoints when the method needs more points.
// Optical densities that are not increasing are sorted together with their
// concentrations and a warning is logged.
func Build(std *models.Standard, method Method) (*Curve, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("%w: %d", models.ErrUnknownMethod, int(method))
	}
	if err := std.Validate(); err != nil {
		return nil, err
	}
	if std.Len() < method.MinPoints() {
		return nil, fmt.Errorf("%w: %s interpolation needs at least %d points, standard %s has %d",
			models.ErrInsufficientPoints, method, method.MinPoints(), std.Name, std.Len())
	}

	xs, ys := sortedPairs(std)

	stats, err := regression.Fit(std.OpticDensity, std.Concentration)
	if err != nil {
		return nil, fmt.Errorf("failed to compute regression for %s: %w", std.Name, err)
	}

	fn, err := newInterpolator(method, xs, ys)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s curve for %s: %w", method, std.Name, err)
	}

	logger.Debug("Built %s curve for %s: %d points, domain [%g, %g], R²=%.4f",
		method, std.Name, len(xs), xs[0], xs[len(xs)-1], stats.RSquared)

	return &Curve{
		Standard:   std.Name,
		Unit:       std.Unit,
		Method:     method,
		Domain:     Domain{Min: xs[0], Max: xs[len(xs)-1]},
		Regression: stats,
		Points:     len(xs),
		BuiltAt:    time.Now(),
		fn:         fn,
	}, nil
}

// sortedPairs returns copies of the standard's points ordered by optical density.
func sortedPairs(std *models.Standard) ([]float64, []float64) {
	n := std.Len()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	if !sort.Float64sAreSorted(std.OpticDensity) {
		logger.Warn("Standard %s optic density values are not increasing; sorting %d points before interpolation",
			std.Name, n)
		sort.SliceStable(idx, func(a, b int) bool {
			return std.OpticDensity[idx[a]] < std.OpticDensity[idx[b]]
		})
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, j := range idx {
		xs[i] = std.OpticDensity[j]
		ys[i] = std.Concentration[j]
	}
	return xs, ys
}

// Evaluate returns the concentration estimate at od.
func (c *Curve) Evaluate(od float64) float64 {
	return c.fn.Evaluate(od)
}

// Summary returns the plain-data view of the curve.
func (c *Curve) Summary() Summary {
	return Summary{
		Standard:   c.Standard,
		Unit:       c.Unit,
		Method:     c.Method,
		Domain:     c.Domain,
		Regression: c.Regression,
		Points:     c.Points,
		BuiltAt:    c.BuiltAt,
	}
}

// Sample evaluates the curve at n evenly spaced points over [lo, hi].
func (c *Curve) Sample(lo, hi float64, n int) (xs, ys []float64) {
	if n < 2 {
		n = 2
	}
	xs = make([]float64, n)
	ys = make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := 0; i < n; i++ {
		x := lo + step*float64(i)
		if i == n-1 {
			x = hi
		}
		xs[i] = x
		ys[i] = c.fn.Evaluate(x)
	}
	return xs, ys
}
