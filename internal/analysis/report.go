package analysis

import (
	"fmt"

	"github.com/rewired-gh/labcal/internal/calibration"
	"github.com/rewired-gh/labcal/internal/models"
	"github.com/rewired-gh/labcal/internal/regression"
)

// Report collects every statistic shown for one calibrated standard.
type Report struct {
	Standard      string           `json:"standard" yaml:"standard"`
	Unit          string           `json:"unit" yaml:"unit"`
	OpticDensity  Description      `json:"optic_density" yaml:"optic_density"`
	Concentration Description      `json:"concentration" yaml:"concentration"`
	Correlation   [2][2]float64    `json:"correlation" yaml:"correlation"`
	Regression    regression.Stats `json:"regression" yaml:"regression"`
	Residuals     []float64        `json:"residuals" yaml:"residuals"`
	QQ            []QQPoint        `json:"qq" yaml:"qq"`
	Histogram     []Bin            `json:"histogram" yaml:"histogram"`
	Patients      *PatientSummary  `json:"patients,omitempty" yaml:"patients,omitempty"`
}

// Analyze builds a report for the standard behind curve. batch may be nil
// when no patients were predicted.
func Analyze(std *models.Standard, curve *calibration.Curve, batch *calibration.Batch) (*Report, error) {
	if err := std.Validate(); err != nil {
		return nil, err
	}

	od, err := Describe(std.OpticDensity)
	if err != nil {
		return nil, fmt.Errorf("failed to describe optic density: %w", err)
	}
	conc, err := Describe(std.Concentration)
	if err != nil {
		return nil, fmt.Errorf("failed to describe concentration: %w", err)
	}
	corr, err := Correlation(std.OpticDensity, std.Concentration)
	if err != nil {
		return nil, err
	}

	residuals := curve.Regression.Residuals(std.OpticDensity, std.Concentration)
	r := &Report{
		Standard:      std.Name,
		Unit:          std.Unit,
		OpticDensity:  od,
		Concentration: conc,
		Correlation:   corr,
		Regression:    curve.Regression,
		Residuals:     residuals,
		QQ:            QQ(residuals),
		Histogram:     Histogram(std.Concentration, DefaultBins),
	}
	if batch != nil && batch.Len() > 0 {
		s := Summarize(*batch)
		r.Patients = &s
	}
	return r, nil
}

// Metric is one named value in a flat statistics table.
type Metric struct {
	Name  string  `json:"metric" yaml:"metric"`
	Value float64 `json:"value" yaml:"value"`
}

// Metrics flattens the scalar parts of the report for tabular export.
func (r *Report) Metrics() []Metric {
	m := []Metric{
		{"slope", r.Regression.Slope},
		{"intercept", r.Regression.Intercept},
		{"r", r.Regression.R},
		{"r_squared", r.Regression.RSquared},
		{"p_value", r.Regression.PValue},
		{"std_err", r.Regression.StdErr},
		{"intercept_std_err", r.Regression.InterceptStdErr},
		{"correlation", r.Correlation[0][1]},
	}
	m = append(m, describeMetrics("optic_density", r.OpticDensity)...)
	m = append(m, describeMetrics("concentration", r.Concentration)...)
	if p := r.Patients; p != nil {
		m = append(m,
			Metric{"patients_total", float64(p.Total)},
			Metric{"patients_in_range", float64(p.InRange)},
			Metric{"patients_below_range", float64(p.BelowRange)},
			Metric{"patients_above_range", float64(p.AboveRange)},
			Metric{"patients_mean", p.Mean},
			Metric{"patients_std", p.Std},
			Metric{"patients_min", p.Min},
			Metric{"patients_max", p.Max},
		)
	}
	return m
}

func describeMetrics(prefix string, d Description) []Metric {
	return []Metric{
		{prefix + "_count", float64(d.Count)},
		{prefix + "_mean", d.Mean},
		{prefix + "_std", d.Std},
		{prefix + "_min", d.Min},
		{prefix + "_q25", d.Q25},
		{prefix + "_median", d.Median},
		{prefix + "_q75", d.Q75},
		{prefix + "_max", d.Max},
	}
}
