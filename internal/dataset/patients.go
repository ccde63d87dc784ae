package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/rewired-gh/labcal/internal/models"
)

// PatientOptions controls sample patient generation.
type PatientOptions struct {
	Count int
	Seed  uint64
	ODMin float64
	ODMax float64
}

// GeneratePatients creates Count patients with IDs P001, P002, ... and optic
// densities drawn uniformly from [ODMin, ODMax), rounded to three decimals.
// The same options always produce the same patients.
func GeneratePatients(opts PatientOptions) ([]models.Patient, error) {
	if opts.Count < 1 {
		return nil, fmt.Errorf("%w: patient count must be positive, got %d", models.ErrInvalidInput, opts.Count)
	}
	if opts.ODMin < 0 || opts.ODMax <= opts.ODMin {
		return nil, fmt.Errorf("%w: invalid optic density range [%g, %g)", models.ErrInvalidInput, opts.ODMin, opts.ODMax)
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	patients := make([]models.Patient, opts.Count)
	for i := range patients {
		od := opts.ODMin + rng.Float64()*(opts.ODMax-opts.ODMin)
		patients[i] = models.Patient{
			ID:           fmt.Sprintf("P%03d", i+1),
			OpticDensity: round3(od),
			Note:         fmt.Sprintf("Sample patient %d", i+1),
		}
	}
	return patients, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
