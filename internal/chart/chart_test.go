package chart

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/labcal/internal/analysis"
	"github.com/rewired-gh/labcal/internal/calibration"
	"github.com/rewired-gh/labcal/internal/models"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func fixture(t *testing.T) (*models.Standard, *calibration.Curve, []models.ResultRow) {
	t.Helper()
	std := &models.Standard{
		Name:          "TSH",
		OpticDensity:  []float64{0.05, 0.15, 0.25, 0.35, 0.45},
		Concentration: []float64{0.5, 1.5, 2.5, 3.5, 4.5},
		Unit:          "µIU/mL",
	}
	curve, err := calibration.Build(std, calibration.MethodSpline)
	require.NoError(t, err)

	patients := []models.Patient{{ID: "A", OpticDensity: 0.01}, {ID: "B", OpticDensity: 0.3}, {ID: "C", OpticDensity: 0.5}}
	batch, err := curve.Predict(models.OpticDensities(patients))
	require.NoError(t, err)
	rows, err := calibration.Rows(patients, batch)
	require.NoError(t, err)
	return std, curve, rows
}

func TestNewRenderer(t *testing.T) {
	_, err := NewRenderer(8, 5, "gif")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = NewRenderer(0, 5, "png")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	r, err := NewRenderer(8, 5, "SVG")
	require.NoError(t, err)
	assert.Equal(t, "svg", r.Format)
}

func TestRenderCharts(t *testing.T) {
	std, curve, rows := fixture(t)
	report, err := analysis.Analyze(std, curve, nil)
	require.NoError(t, err)

	r, err := NewRenderer(4, 3, "png")
	require.NoError(t, err)

	cal, err := Calibration(std, curve, 50)
	require.NoError(t, err)
	pat, err := Patients(curve, rows, 50)
	require.NoError(t, err)
	hist, err := Histogram(std.Concentration, 5, "TSH distribution", std.Unit)
	require.NoError(t, err)
	qq, err := QQ(report.QQ, "Residual Q-Q")
	require.NoError(t, err)

	for _, p := range []struct {
		name string
		data func() ([]byte, error)
	}{
		{"calibration", func() ([]byte, error) { return r.Render(cal) }},
		{"patients", func() ([]byte, error) { return r.Render(pat) }},
		{"histogram", func() ([]byte, error) { return r.Render(hist) }},
		{"qq", func() ([]byte, error) { return r.Render(qq) }},
	} {
		t.Run(p.name, func(t *testing.T) {
			data, err := p.data()
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, pngMagic))
		})
	}
}

func TestSaveSVG(t *testing.T) {
	std, curve, _ := fixture(t)
	r, err := NewRenderer(4, 3, "svg")
	require.NoError(t, err)

	p, err := Calibration(std, curve, 20)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "charts")
	path, err := r.Save(p, dir, "tsh_calibration")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tsh_calibration.svg"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
}

func TestChartErrors(t *testing.T) {
	_, curve, _ := fixture(t)
	_, err := Patients(curve, nil, 10)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = Histogram(nil, 5, "", "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = QQ(nil, "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
