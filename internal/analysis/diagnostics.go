package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rewired-gh/labcal/internal/calibration"
	"github.com/rewired-gh/labcal/internal/regression"
)

// DefaultBins is the bucket count of the concentration histogram.
const DefaultBins = 10

// QQPoint pairs a theoretical standard normal quantile with an ordered sample.
type QQPoint struct {
	Theoretical float64 `json:"theoretical" yaml:"theoretical"`
	Sample      float64 `json:"sample" yaml:"sample"`
}

// QQ returns normal Q-Q points for values. The i-th smallest value (0-based)
// is paired with the standard normal quantile of (i+0.5)/n.
func QQ(values []float64) []QQPoint {
	n := len(values)
	if n == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	points := make([]QQPoint, n)
	for i, v := range sorted {
		p := (float64(i) + 0.5) / float64(n)
		points[i] = QQPoint{Theoretical: distuv.UnitNormal.Quantile(p), Sample: v}
	}
	return points
}

// Bin is one histogram bucket covering [Lo, Hi).
type Bin struct {
	Lo    float64 `json:"lo" yaml:"lo"`
	Hi    float64 `json:"hi" yaml:"hi"`
	Count int     `json:"count" yaml:"count"`
}

// Histogram splits values into bins equal-width buckets spanning their range.
// The maximum is counted in the last bucket. A constant column is centred in
// a bucket range of width 1.
func Histogram(values []float64, bins int) []Bin {
	if len(values) == 0 {
		return nil
	}
	if bins < 1 {
		bins = DefaultBins
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	// stat.Histogram treats the last divider as exclusive.
	last := dividers[bins]
	dividers[bins] = math.Nextafter(last, math.Inf(1))

	counts := stat.Histogram(nil, dividers, sorted, nil)
	out := make([]Bin, bins)
	for i := range out {
		out[i] = Bin{Lo: dividers[i], Hi: dividers[i+1], Count: int(counts[i])}
	}
	out[bins-1].Hi = last
	return out
}

// RegressionLine samples the fitted straight line at n evenly spaced points
// across the domain.
func RegressionLine(s regression.Stats, d calibration.Domain, n int) (xs, ys []float64) {
	if n < 2 {
		n = 2
	}
	xs = make([]float64, n)
	floats.Span(xs, d.Min, d.Max)
	ys = make([]float64, n)
	for i, x := range xs {
		ys[i] = s.Estimate(x)
	}
	return xs, ys
}
