// Package models defines the core domain entities for labcal.
// These models represent calibration standards, patient readings, range
// classifications and the flat result rows handed to exporters.
// All input models include built-in validation so bad data is rejected at the
// boundary instead of surfacing as NaN deep inside an interpolator.
//
// Terminology:
//   - Standard: reference (optical density, concentration) pairs for one hormone.
//   - Patient: a single measured optical density to be converted.
package models

import (
	"fmt"
	"math"
	"time"
)

// Standard is a named set of calibration points for one substance.
type Standard struct {
	Name          string    `json:"name" yaml:"name"`
	OpticDensity  []float64 `json:"optic_density" yaml:"optic_density"`
	Concentration []float64 `json:"concentration" yaml:"concentration"`
	Unit          string    `json:"unit" yaml:"unit"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
}

// MinStandardPoints is the smallest standard any method can be built from.
const MinStandardPoints = 2

// Len returns the number of calibration points.
func (s *Standard) Len() int {
	return len(s.OpticDensity)
}

// Validate checks that the standard can back a calibration curve.
// Errors wrap ErrInvalidInput.
func (s *Standard) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: standard name must not be empty", ErrInvalidInput)
	}
	if len(s.OpticDensity) != len(s.Concentration) {
		return fmt.Errorf("%w: standard %s has %d optic density values but %d concentrations",
			ErrInvalidInput, s.Name, len(s.OpticDensity), len(s.Concentration))
	}
	if len(s.OpticDensity) < MinStandardPoints {
		return fmt.Errorf("%w: standard %s needs at least %d points, got %d",
			ErrInvalidInput, s.Name, MinStandardPoints, len(s.OpticDensity))
	}
	if err := CheckFinite(s.OpticDensity); err != nil {
		return fmt.Errorf("standard %s optic density: %w", s.Name, err)
	}
	if err := CheckFinite(s.Concentration); err != nil {
		return fmt.Errorf("standard %s concentration: %w", s.Name, err)
	}

	// Interpolation is undefined for repeated optical densities.
	seen := make(map[float64]struct{}, len(s.OpticDensity))
	for _, od := range s.OpticDensity {
		if _, dup := seen[od]; dup {
			return fmt.Errorf("%w: standard %s repeats optic density %g", ErrInvalidInput, s.Name, od)
		}
		seen[od] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate registered data.
func (s *Standard) Clone() *Standard {
	c := *s
	c.OpticDensity = append([]float64(nil), s.OpticDensity...)
	c.Concentration = append([]float64(nil), s.Concentration...)
	return &c
}

// CheckFinite returns ErrInvalidInput if any value is NaN or infinite.
func CheckFinite(values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: value %d is not a finite number (%v)", ErrInvalidInput, i, v)
		}
	}
	return nil
}
