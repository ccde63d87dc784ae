package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/rewired-gh/labcal/internal/calibration"
	"github.com/rewired-gh/labcal/internal/models"
)

// PatientSummary aggregates a prediction batch.
type PatientSummary struct {
	Total      int     `json:"total" yaml:"total"`
	InRange    int     `json:"in_range" yaml:"in_range"`
	BelowRange int     `json:"below_range" yaml:"below_range"`
	AboveRange int     `json:"above_range" yaml:"above_range"`
	Mean       float64 `json:"mean" yaml:"mean"`
	Std        float64 `json:"std" yaml:"std"`
	Min        float64 `json:"min" yaml:"min"`
	Max        float64 `json:"max" yaml:"max"`
}

// Summarize counts range statuses and describes the finite predictions.
// Non-finite predictions are counted but excluded from the moments.
func Summarize(b calibration.Batch) PatientSummary {
	counts := b.Counts()
	s := PatientSummary{
		Total:      b.Len(),
		InRange:    counts[models.InRange],
		BelowRange: counts[models.BelowRange],
		AboveRange: counts[models.AboveRange],
	}

	finite := make([]float64, 0, len(b.Predictions))
	for _, v := range b.Predictions {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return s
	}
	s.Mean = stat.Mean(finite, nil)
	s.Min = floats.Min(finite)
	s.Max = floats.Max(finite)
	if len(finite) > 1 {
		s.Std = stat.StdDev(finite, nil)
	}
	return s
}
