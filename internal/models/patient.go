package models

import (
	"errors"
	"fmt"
)

// Patient is one measured sample awaiting conversion.
type Patient struct {
	ID           string  `json:"id" yaml:"id"`
	OpticDensity float64 `json:"optic_density" yaml:"optic_density"`
	Note         string  `json:"note,omitempty" yaml:"note,omitempty"`
}

// Validate checks that all patient fields are valid
func (p *Patient) Validate() error {
	if p.ID == "" {
		return errors.New("patient ID must not be empty")
	}
	if err := CheckFinite([]float64{p.OpticDensity}); err != nil {
		return fmt.Errorf("patient %s: %w", p.ID, err)
	}
	if p.OpticDensity < 0 {
		return fmt.Errorf("%w: patient %s optic density must not be negative", ErrInvalidInput, p.ID)
	}
	return nil
}

// OpticDensities extracts the OD column in patient order.
func OpticDensities(patients []Patient) []float64 {
	out := make([]float64, len(patients))
	for i := range patients {
		out[i] = patients[i].OpticDensity
	}
	return out
}
