package calibration

import (
	"fmt"

	"github.com/rewired-gh/labcal/internal/models"
)

// Batch holds estimates and range flags for a series of readings.
// Predictions[i] and Status[i] belong to the i-th input value.
type Batch struct {
	Predictions []float64            `json:"predictions" yaml:"predictions"`
	Status      []models.RangeStatus `json:"status" yaml:"status"`
}

// Len returns the number of predictions in the batch.
func (b Batch) Len() int {
	return len(b.Predictions)
}

// Counts tallies the batch by range status.
func (b Batch) Counts() map[models.RangeStatus]int {
	counts := map[models.RangeStatus]int{
		models.BelowRange: 0,
		models.InRange:    0,
		models.AboveRange: 0,
	}
	for _, s := range b.Status {
		counts[s]++
	}
	return counts
}

// Predict applies the curve to each optical density. Out-of-range values are
// extrapolated and flagged, never rejected. Empty or non-finite input returns
// an error wrapping models.ErrInvalidInput.
func (c *Curve) Predict(od []float64) (Batch, error) {
	if len(od) == 0 {
		return Batch{}, fmt.Errorf("%w: no optic density values to predict", models.ErrInvalidInput)
	}
	if err := models.CheckFinite(od); err != nil {
		return Batch{}, err
	}

	batch := Batch{
		Predictions: make([]float64, len(od)),
		Status:      make([]models.RangeStatus, len(od)),
	}
	for i, v := range od {
		batch.Predictions[i] = c.fn.Evaluate(v)
		batch.Status[i] = models.ClassifyRange(v, c.Domain.Min, c.Domain.Max)
	}
	return batch, nil
}

// Rows joins patients with their batch entries into export rows.
// The batch must have been produced from the same patients in order.
func Rows(patients []models.Patient, batch Batch) ([]models.ResultRow, error) {
	if len(patients) != batch.Len() {
		return nil, fmt.Errorf("%w: %d patients but %d predictions",
			models.ErrInvalidInput, len(patients), batch.Len())
	}
	rows := make([]models.ResultRow, len(patients))
	for i, p := range patients {
		rows[i] = models.ResultRow{
			ID:            p.ID,
			OpticDensity:  p.OpticDensity,
			Concentration: batch.Predictions[i],
			Status:        batch.Status[i],
			Note:          p.Note,
		}
	}
	return rows, nil
}
