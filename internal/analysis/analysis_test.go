package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/labcal/internal/calibration"
	"github.com/rewired-gh/labcal/internal/models"
)

func cortisol() *models.Standard {
	return &models.Standard{
		Name:          "Cortisol",
		OpticDensity:  []float64{0.1, 0.2, 0.3, 0.4, 0.5},
		Concentration: []float64{10, 20, 30, 40, 50},
		Unit:          "ng/mL",
	}
}

func TestDescribe(t *testing.T) {
	d, err := Describe([]float64{4, 1, 3, 2})
	require.NoError(t, err)

	assert.Equal(t, 4, d.Count)
	assert.InDelta(t, 2.5, d.Mean, 1e-12)
	assert.InDelta(t, 1.2909944487, d.Std, 1e-9)
	assert.Equal(t, 1.0, d.Min)
	assert.Equal(t, 4.0, d.Max)
	assert.InDelta(t, 1.75, d.Q25, 1e-12)
	assert.InDelta(t, 2.5, d.Median, 1e-12)
	assert.InDelta(t, 3.25, d.Q75, 1e-12)
}

func TestDescribeSingleValue(t *testing.T) {
	d, err := Describe([]float64{7})
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.Std)
	assert.Equal(t, 7.0, d.Q25)
	assert.Equal(t, 7.0, d.Q75)
}

func TestDescribeInvalid(t *testing.T) {
	_, err := Describe(nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestCorrelation(t *testing.T) {
	m, err := Correlation([]float64{1, 2, 3}, []float64{3, 2, 1})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, m[0][1], 1e-12)
	assert.Equal(t, m[0][1], m[1][0])
	assert.Equal(t, 1.0, m[0][0])

	m, err = Correlation([]float64{1, 2, 3}, []float64{5, 5, 5})
	require.NoError(t, err)
	assert.Equal(t, 0.0, m[0][1])

	_, err = Correlation([]float64{1}, []float64{1})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestQQ(t *testing.T) {
	points := QQ([]float64{3, -1, 0, 1, -3})
	require.Len(t, points, 5)
	assert.Equal(t, -3.0, points[0].Sample)
	assert.Equal(t, 3.0, points[4].Sample)
	assert.InDelta(t, 0.0, points[2].Theoretical, 1e-12)
	assert.InDelta(t, -points[0].Theoretical, points[4].Theoretical, 1e-12)
	for i := 1; i < len(points); i++ {
		assert.Greater(t, points[i].Theoretical, points[i-1].Theoretical)
	}
	assert.Nil(t, QQ(nil))
}

func TestHistogram(t *testing.T) {
	bins := Histogram([]float64{10, 20, 30, 40, 50}, 4)
	require.Len(t, bins, 4)
	assert.Equal(t, 10.0, bins[0].Lo)
	assert.Equal(t, 50.0, bins[3].Hi)

	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 5, total)
	assert.Equal(t, []int{1, 1, 1, 2}, []int{bins[0].Count, bins[1].Count, bins[2].Count, bins[3].Count})
}

func TestHistogramConstant(t *testing.T) {
	bins := Histogram([]float64{2, 2, 2}, 0)
	require.Len(t, bins, DefaultBins)
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 3, total)
	assert.Equal(t, 1.5, bins[0].Lo)
}

func TestSummarize(t *testing.T) {
	b := calibration.Batch{
		Predictions: []float64{5, 25, 60},
		Status:      []models.RangeStatus{models.BelowRange, models.InRange, models.AboveRange},
	}
	s := Summarize(b)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.InRange)
	assert.Equal(t, 1, s.BelowRange)
	assert.Equal(t, 1, s.AboveRange)
	assert.InDelta(t, 30.0, s.Mean, 1e-12)
	assert.Equal(t, 5.0, s.Min)
	assert.Equal(t, 60.0, s.Max)

	empty := Summarize(calibration.Batch{})
	assert.Equal(t, 0, empty.Total)
}

func TestAnalyze(t *testing.T) {
	std := cortisol()
	curve, err := calibration.Build(std, calibration.MethodLinear)
	require.NoError(t, err)
	batch, err := curve.Predict([]float64{0.25, 0.6})
	require.NoError(t, err)

	r, err := Analyze(std, curve, &batch)
	require.NoError(t, err)

	assert.Equal(t, "Cortisol", r.Standard)
	assert.InDelta(t, 1.0, r.Correlation[0][1], 1e-12)
	assert.InDelta(t, 100.0, r.Regression.Slope, 1e-9)
	require.Len(t, r.Residuals, 5)
	for _, res := range r.Residuals {
		assert.InDelta(t, 0.0, res, 1e-9)
	}
	assert.Len(t, r.QQ, 5)
	assert.Len(t, r.Histogram, DefaultBins)
	require.NotNil(t, r.Patients)
	assert.Equal(t, 1, r.Patients.AboveRange)

	metrics := r.Metrics()
	names := make(map[string]float64, len(metrics))
	for _, m := range metrics {
		names[m.Name] = m.Value
	}
	assert.InDelta(t, 1.0, names["r_squared"], 1e-12)
	assert.Equal(t, 5.0, names["optic_density_count"])
	assert.Equal(t, 2.0, names["patients_total"])

	noPatients, err := Analyze(std, curve, nil)
	require.NoError(t, err)
	assert.Nil(t, noPatients.Patients)
}

func TestRegressionLine(t *testing.T) {
	curve, err := calibration.Build(cortisol(), calibration.MethodCubic)
	require.NoError(t, err)

	xs, ys := RegressionLine(curve.Regression, curve.Domain, 5)
	require.Len(t, xs, 5)
	assert.InDelta(t, 0.1, xs[0], 1e-12)
	assert.InDelta(t, 0.5, xs[4], 1e-12)
	assert.InDelta(t, 30.0, ys[2], 1e-9)
}
