// Package registry holds named calibration standards and the curves built
// from them.
//
// Each name moves through three states: Unregistered, Registered (standard
// only) and Calibrated (curve present). Registering a standard again drops
// its curve, so predictions never run against a curve built from replaced
// data. Predict builds a missing curve with the default method through an
// explicit ensure-calibrated step.
//
// A Registry is owned by one caller session. Its maps are guarded by a
// read/write mutex so a registry value may be shared between goroutines.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rewired-gh/labcal/internal/calibration"
	"github.com/rewired-gh/labcal/internal/logger"
	"github.com/rewired-gh/labcal/internal/models"
)

// State describes how far a name has progressed.
type State int

const (
	// Unregistered means no standard exists under the name.
	Unregistered State = iota
	// Registered means a standard exists but no curve has been built for it.
	Registered
	// Calibrated means a curve built from the current standard is cached.
	Calibrated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Registered:
		return "registered"
	case Calibrated:
		return "calibrated"
	default:
		return "unregistered"
	}
}

// Registry maps substance names to standards and calibration curves
type Registry struct {
	standards map[string]*models.Standard
	curves    map[string]*calibration.Curve
	mu        sync.RWMutex
}

// New creates an empty Registry
func New() *Registry {
	return &Registry{
		standards: make(map[string]*models.Standard),
		curves:    make(map[string]*calibration.Curve),
	}
}

// AddStandard registers a standard built from raw columns, replacing any
// standard of the same name.
func (r *Registry) AddStandard(name string, opticDensity, concentration []float64, unit string) (*models.Standard, error) {
	std := &models.Standard{
		Name:          name,
		OpticDensity:  opticDensity,
		Concentration: concentration,
		Unit:          unit,
	}
	if err := r.Register(std); err != nil {
		return nil, err
	}
	return r.GetStandard(name)
}

// Register validates and stores a copy of std. A zero CreatedAt is set to
// now. Any curve cached for the name is dropped.
func (r *Registry) Register(std *models.Standard) error {
	if err := std.Validate(); err != nil {
		return fmt.Errorf("invalid standard: %w", err)
	}

	stored := std.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.curves[stored.Name]; exists {
		logger.Debug("Standard %s replaced; dropping cached curve", stored.Name)
		delete(r.curves, stored.Name)
	}
	r.standards[stored.Name] = stored
	return nil
}

// GetStandard returns a copy of the standard registered under name.
func (r *Registry) GetStandard(name string) (*models.Standard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	std, exists := r.standards[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownStandard, name)
	}
	return std.Clone(), nil
}

// Curve returns the cached curve for name, if one has been built.
func (r *Registry) Curve(name string) (*calibration.Curve, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.curves[name]
	return c, ok
}

// State reports the lifecycle state of name.
func (r *Registry) State(name string) State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.curves[name]; ok {
		return Calibrated
	}
	if _, ok := r.standards[name]; ok {
		return Registered
	}
	return Unregistered
}

// Names returns all registered names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.standards))
	for name := range r.standards {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Calibrate builds a curve for name with method and stores it, replacing any
// previous curve. The method is checked before the name, so an unknown
// method is reported even for unregistered names.
func (r *Registry) Calibrate(name string, method calibration.Method) (*calibration.Curve, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("%w: %d", models.ErrUnknownMethod, int(method))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.calibrateLocked(name, method)
}

// CalibrateMethod is Calibrate with the method given by name.
func (r *Registry) CalibrateMethod(name, method string) (*calibration.Curve, error) {
	m, err := calibration.ParseMethod(method)
	if err != nil {
		return nil, err
	}
	return r.Calibrate(name, m)
}

func (r *Registry) calibrateLocked(name string, method calibration.Method) (*calibration.Curve, error) {
	std, exists := r.standards[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownStandard, name)
	}

	curve, err := calibration.Build(std, method)
	if err != nil {
		return nil, fmt.Errorf("failed to calibrate %s: %w", name, err)
	}

	r.curves[name] = curve
	logger.Info("Calibrated %s with %s interpolation (domain %g..%g, R²=%.4f)",
		name, method, curve.Domain.Min, curve.Domain.Max, curve.Regression.RSquared)
	return curve, nil
}

// ensureCalibrated moves name from Registered to Calibrated with the default
// method when no curve is cached. Calibrated names are returned unchanged.
func (r *Registry) ensureCalibrated(name string) (*calibration.Curve, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if curve, ok := r.curves[name]; ok {
		return curve, nil
	}
	if _, ok := r.standards[name]; !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownStandard, name)
	}

	logger.Debug("No curve cached for %s; building with default method %s", name, calibration.DefaultMethod)
	return r.calibrateLocked(name, calibration.DefaultMethod)
}

// Predict converts optical densities to concentrations with the curve for
// name, building it first with the default method if necessary. Query values
// are checked before any curve is built, so rejected input leaves the name's
// state unchanged.
func (r *Registry) Predict(name string, opticDensity []float64) (calibration.Batch, error) {
	if len(opticDensity) == 0 {
		return calibration.Batch{}, fmt.Errorf("%w: no optic density values to predict for %s", models.ErrInvalidInput, name)
	}
	if err := models.CheckFinite(opticDensity); err != nil {
		return calibration.Batch{}, fmt.Errorf("failed to predict %s: %w", name, err)
	}

	curve, err := r.ensureCalibrated(name)
	if err != nil {
		return calibration.Batch{}, err
	}

	batch, err := curve.Predict(opticDensity)
	if err != nil {
		return calibration.Batch{}, fmt.Errorf("failed to predict %s: %w", name, err)
	}
	return batch, nil
}

// Reset drops every standard and curve.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.standards = make(map[string]*models.Standard)
	r.curves = make(map[string]*calibration.Curve)
}
