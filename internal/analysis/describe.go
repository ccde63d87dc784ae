// Package analysis derives descriptive statistics and diagnostic series from
// calibration standards and prediction batches: column summaries, the
// correlation matrix, regression residuals, normal Q-Q points, histograms and
// patient summaries.
//
// All results hold finite numbers only so they can be written to JSON.
package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/rewired-gh/labcal/internal/models"
)

// Description summarises one numeric column.
type Description struct {
	Count  int     `json:"count" yaml:"count"`
	Mean   float64 `json:"mean" yaml:"mean"`
	Std    float64 `json:"std" yaml:"std"`
	Min    float64 `json:"min" yaml:"min"`
	Q25    float64 `json:"q25" yaml:"q25"`
	Median float64 `json:"median" yaml:"median"`
	Q75    float64 `json:"q75" yaml:"q75"`
	Max    float64 `json:"max" yaml:"max"`
}

// Describe returns count, mean, sample standard deviation, extremes and
// quartiles of values. The standard deviation of a single value is 0.
func Describe(values []float64) (Description, error) {
	if len(values) == 0 {
		return Description{}, fmt.Errorf("%w: cannot describe an empty column", models.ErrInvalidInput)
	}
	if err := models.CheckFinite(values); err != nil {
		return Description{}, err
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	d := Description{
		Count:  len(sorted),
		Mean:   stat.Mean(sorted, nil),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		Q25:    quantile(sorted, 0.25),
		Median: quantile(sorted, 0.5),
		Q75:    quantile(sorted, 0.75),
	}
	if len(sorted) > 1 {
		d.Std = stat.StdDev(sorted, nil)
	}
	return d, nil
}

// quantile interpolates linearly between closest ranks, position p*(n-1).
// sorted must be non-empty and ascending.
func quantile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := math.Floor(pos)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (pos-lo)*(sorted[i+1]-sorted[i])
}

// Correlation returns the 2x2 Pearson correlation matrix of x and y.
// The diagonal is 1. When either column is constant the off-diagonal
// coefficient is undefined and reported as 0.
func Correlation(x, y []float64) ([2][2]float64, error) {
	if len(x) != len(y) || len(x) < 2 {
		return [2][2]float64{}, fmt.Errorf("%w: correlation needs two equal columns of at least 2 values", models.ErrInvalidInput)
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		r = 0
	}
	return [2][2]float64{{1, r}, {r, 1}}, nil
}
