// Package regression computes ordinary least-squares diagnostics for a
// straight-line fit y = slope*x + intercept.
//
// The statistics mirror the usual linregress summary: slope, intercept, the
// Pearson r and its square, the two-sided p-value of the zero-slope t test
// with n-2 degrees of freedom, and the standard errors of slope and intercept.
//
// Calibration curves always carry these linear statistics, even when the
// curve itself is a cubic or spline interpolant. They describe the raw trend
// of the standard points, not the interpolant.
package regression

import (
	"fmt"
	"math"

	"github.com/rewired-gh/labcal/internal/models"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// tiny keeps the t statistic finite when |r| == 1.
const tiny = 1.0e-20

// Stats holds the result of a linear least-squares fit.
type Stats struct {
	Slope           float64 `json:"slope" yaml:"slope"`
	Intercept       float64 `json:"intercept" yaml:"intercept"`
	R               float64 `json:"r" yaml:"r"`
	RSquared        float64 `json:"r_squared" yaml:"r_squared"`
	PValue          float64 `json:"p_value" yaml:"p_value"`
	StdErr          float64 `json:"std_err" yaml:"std_err"`
	InterceptStdErr float64 `json:"intercept_std_err" yaml:"intercept_std_err"`
	N               int     `json:"n" yaml:"n"`
}

// Fit performs an ordinary least-squares fit of y on x.
//
// Fit returns an error wrapping models.ErrInvalidInput when the sequences
// differ in length, hold fewer than two points, contain NaN or Inf, or when
// every x is identical.
func Fit(x, y []float64) (Stats, error) {
	if len(x) != len(y) {
		return Stats{}, fmt.Errorf("%w: x has %d values, y has %d", models.ErrInvalidInput, len(x), len(y))
	}
	n := len(x)
	if n < 2 {
		return Stats{}, fmt.Errorf("%w: regression needs at least 2 points, got %d", models.ErrInvalidInput, n)
	}
	if err := models.CheckFinite(x); err != nil {
		return Stats{}, fmt.Errorf("regression x: %w", err)
	}
	if err := models.CheckFinite(y); err != nil {
		return Stats{}, fmt.Errorf("regression y: %w", err)
	}

	varX := stat.Variance(x, nil)
	if varX == 0 {
		return Stats{}, fmt.Errorf("%w: all x values are identical", models.ErrInvalidInput)
	}
	varY := stat.Variance(y, nil)

	intercept, slope := stat.LinearRegression(x, y, nil, false)

	// Constant y has no correlation to speak of.
	r := 0.0
	if varY != 0 {
		r = stat.Correlation(x, y, nil)
		r = math.Max(-1, math.Min(1, r))
	}

	s := Stats{
		Slope:     slope,
		Intercept: intercept,
		R:         r,
		RSquared:  r * r,
		N:         n,
	}

	if n == 2 {
		if y[0] == y[1] {
			s.PValue = 1.0
		}
		return s, nil
	}

	df := float64(n - 2)
	t := r * math.Sqrt(df/((1.0-r+tiny)*(1.0+r+tiny)))
	student := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	s.PValue = math.Min(1, 2*student.Survival(math.Abs(t)))

	s.StdErr = math.Sqrt(math.Max(0, 1-r*r) * varY / varX / df)

	var sumSq float64
	for _, v := range x {
		sumSq += v * v
	}
	s.InterceptStdErr = s.StdErr * math.Sqrt(sumSq/float64(n))

	return s, nil
}

// Estimate evaluates the fitted line at x.
func (s Stats) Estimate(x float64) float64 {
	return s.Intercept + s.Slope*x
}

// Residuals returns y[i] - Estimate(x[i]) for each point.
func (s Stats) Residuals(x, y []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = y[i] - s.Estimate(x[i])
	}
	return out
}

// String returns a compact human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("y = %.4f*x + %.4f (R²=%.4f, p=%.6f, stderr=%.4f)",
		s.Slope, s.Intercept, s.RSquared, s.PValue, s.StdErr)
}
