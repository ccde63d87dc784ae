package registry

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/rewired-gh/labcal/internal/calibration"
	"github.com/rewired-gh/labcal/internal/models"
)

func addCortisol(t *testing.T, r *Registry) {
	t.Helper()
	_, err := r.AddStandard("Cortisol",
		[]float64{0.1, 0.2, 0.3, 0.4, 0.5},
		[]float64{10, 20, 30, 40, 50},
		"ng/mL")
	if err != nil {
		t.Fatalf("AddStandard failed: %v", err)
	}
}

func TestRegistry_AddAndGetStandard(t *testing.T) {
	r := New()
	addCortisol(t, r)

	std, err := r.GetStandard("Cortisol")
	if err != nil {
		t.Fatalf("GetStandard failed: %v", err)
	}
	if std.Unit != "ng/mL" || std.Len() != 5 {
		t.Errorf("Unexpected standard: %+v", std)
	}
	if std.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}

	// Mutating the returned copy does not affect the registry.
	std.Concentration[0] = 999
	again, _ := r.GetStandard("Cortisol")
	if again.Concentration[0] != 10 {
		t.Errorf("registry data was mutated through returned standard")
	}

	if _, err := r.GetStandard("TSH"); !errors.Is(err, models.ErrUnknownStandard) {
		t.Errorf("Expected ErrUnknownStandard, got %v", err)
	}
}

func TestRegistry_AddStandardRejectsInvalid(t *testing.T) {
	r := New()
	_, err := r.AddStandard("Bad", []float64{0.1, 0.2}, []float64{1}, "")
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput, got %v", err)
	}
	if r.State("Bad") != Unregistered {
		t.Error("invalid standard must not be registered")
	}
}

func TestRegistry_StateMachine(t *testing.T) {
	r := New()
	if r.State("Cortisol") != Unregistered {
		t.Fatalf("Expected unregistered, got %s", r.State("Cortisol"))
	}

	addCortisol(t, r)
	if r.State("Cortisol") != Registered {
		t.Fatalf("Expected registered, got %s", r.State("Cortisol"))
	}

	if _, err := r.Calibrate("Cortisol", calibration.MethodCubic); err != nil {
		t.Fatalf("Calibrate failed: %v", err)
	}
	if r.State("Cortisol") != Calibrated {
		t.Fatalf("Expected calibrated, got %s", r.State("Cortisol"))
	}

	// Re-registering drops the stale curve.
	addCortisol(t, r)
	if r.State("Cortisol") != Registered {
		t.Fatalf("Expected registered after re-add, got %s", r.State("Cortisol"))
	}
}

func TestRegistry_PredictLazilyCalibrates(t *testing.T) {
	r := New()
	addCortisol(t, r)

	batch, err := r.Predict("Cortisol", []float64{0.25, 0.6})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	curve, ok := r.Curve("Cortisol")
	if !ok {
		t.Fatal("Expected Predict to cache a curve")
	}
	if curve.Method != calibration.MethodLinear {
		t.Errorf("Expected default linear method, got %s", curve.Method)
	}
	if diff := batch.Predictions[0] - 25.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected 25.0, got %v", batch.Predictions[0])
	}
	if batch.Status[1] != models.AboveRange {
		t.Errorf("Expected above-range, got %s", batch.Status[1])
	}
}

func TestRegistry_RecalibrateReplacesCurve(t *testing.T) {
	r := New()
	_, err := r.AddStandard("Testosterone",
		[]float64{0.08, 0.15, 0.27, 0.41, 0.62},
		[]float64{0.5, 1.9, 4.2, 7.7, 11.0},
		"ng/mL")
	if err != nil {
		t.Fatalf("AddStandard failed: %v", err)
	}

	if _, err := r.Calibrate("Testosterone", calibration.MethodLinear); err != nil {
		t.Fatalf("Calibrate linear failed: %v", err)
	}
	linear, _ := r.Predict("Testosterone", []float64{0.2})

	if _, err := r.Calibrate("Testosterone", calibration.MethodCubic); err != nil {
		t.Fatalf("Calibrate cubic failed: %v", err)
	}
	cubic, _ := r.Predict("Testosterone", []float64{0.2})

	curve, _ := r.Curve("Testosterone")
	if curve.Method != calibration.MethodCubic {
		t.Fatalf("Expected cubic curve, got %s", curve.Method)
	}
	if linear.Predictions[0] == cubic.Predictions[0] {
		t.Errorf("Predict used a stale curve: both methods gave %v", cubic.Predictions[0])
	}
}

func TestRegistry_ReRegisterRebuildsOnPredict(t *testing.T) {
	r := New()
	addCortisol(t, r)
	if _, err := r.Predict("Cortisol", []float64{0.3}); err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	if _, err := r.AddStandard("Cortisol",
		[]float64{0.1, 0.2, 0.3, 0.4, 0.5},
		[]float64{20, 40, 60, 80, 100},
		"ng/mL"); err != nil {
		t.Fatalf("AddStandard failed: %v", err)
	}

	batch, err := r.Predict("Cortisol", []float64{0.3})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if diff := batch.Predictions[0] - 60.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected prediction from new standard (60), got %v", batch.Predictions[0])
	}
}

func TestRegistry_Errors(t *testing.T) {
	r := New()

	if _, err := r.CalibrateMethod("X", "unknown"); !errors.Is(err, models.ErrUnknownMethod) {
		t.Errorf("Expected ErrUnknownMethod, got %v", err)
	}
	if _, err := r.Calibrate("X", calibration.MethodLinear); !errors.Is(err, models.ErrUnknownStandard) {
		t.Errorf("Expected ErrUnknownStandard, got %v", err)
	}
	if _, err := r.Predict("X", []float64{0.1}); !errors.Is(err, models.ErrUnknownStandard) {
		t.Errorf("Expected ErrUnknownStandard, got %v", err)
	}

	_, err := r.AddStandard("TSH", []float64{0.05, 0.15, 0.25}, []float64{0.5, 1.5, 2.5}, "mIU/L")
	if err != nil {
		t.Fatalf("AddStandard failed: %v", err)
	}
	if _, err := r.Calibrate("TSH", calibration.MethodSpline); !errors.Is(err, models.ErrInsufficientPoints) {
		t.Errorf("Expected ErrInsufficientPoints, got %v", err)
	}
	if r.State("TSH") != Registered {
		t.Errorf("failed calibration must not cache a curve")
	}
	if _, err := r.Predict("TSH", nil); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if _, err := r.Predict("TSH", []float64{0.1, math.NaN()}); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for NaN, got %v", err)
	}
	if r.State("TSH") != Registered {
		t.Errorf("rejected prediction input must not build a curve, state is %s", r.State("TSH"))
	}
}

func TestRegistry_NamesAndReset(t *testing.T) {
	r := New()
	addCortisol(t, r)
	if _, err := r.AddStandard("ACTH", []float64{0.1, 0.2}, []float64{5, 10}, "pg/mL"); err != nil {
		t.Fatalf("AddStandard failed: %v", err)
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "ACTH" || names[1] != "Cortisol" {
		t.Errorf("Unexpected names: %v", names)
	}

	r.Reset()
	if len(r.Names()) != 0 {
		t.Error("Expected empty registry after Reset")
	}
}

func TestRegistry_ConcurrentPredict(t *testing.T) {
	r := New()
	addCortisol(t, r)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Predict("Cortisol", []float64{0.15, 0.45}); err != nil {
				t.Errorf("Predict failed: %v", err)
			}
		}()
	}
	wg.Wait()
}
