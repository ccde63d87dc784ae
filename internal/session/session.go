// Package session ties the calibration pipeline together for one working
// set: a registry of standards, the selected hormone, its patients and the
// derived results, charts and exports.
package session

import (
	"fmt"
	"slices"

	"gonum.org/v1/plot"

	"github.com/rewired-gh/labcal/internal/analysis"
	"github.com/rewired-gh/labcal/internal/calibration"
	"github.com/rewired-gh/labcal/internal/chart"
	"github.com/rewired-gh/labcal/internal/config"
	"github.com/rewired-gh/labcal/internal/dataset"
	"github.com/rewired-gh/labcal/internal/export"
	"github.com/rewired-gh/labcal/internal/logger"
	"github.com/rewired-gh/labcal/internal/models"
	"github.com/rewired-gh/labcal/internal/registry"
)

// Session holds the state of one calibration run
type Session struct {
	cfg      *config.Config
	registry *registry.Registry
	catalog  *dataset.Catalog

	hormone  string
	patients []models.Patient
}

// New creates an empty session configured by cfg.
func New(cfg *config.Config) *Session {
	return &Session{
		cfg:      cfg,
		registry: registry.New(),
		catalog:  dataset.NewCatalog(cfg.Samples.CacheTTL),
	}
}

// Registry exposes the session's registry.
func (s *Session) Registry() *registry.Registry {
	return s.registry
}

// Catalog exposes the sample standard catalog.
func (s *Session) Catalog() *dataset.Catalog {
	return s.catalog
}

// Hormone returns the selected standard name, or "" if none is selected.
func (s *Session) Hormone() string {
	return s.hormone
}

// Patients returns the loaded patients.
func (s *Session) Patients() []models.Patient {
	return s.patients
}

// UseSample registers the named built-in standard and selects it.
func (s *Session) UseSample(name string) (*models.Standard, error) {
	std, err := s.catalog.Sample(name)
	if err != nil {
		return nil, err
	}
	if err := s.AddStandard(std); err != nil {
		return nil, err
	}
	return std, nil
}

// AddStandard registers std and selects it.
func (s *Session) AddStandard(std *models.Standard) error {
	if err := s.registry.Register(std); err != nil {
		return err
	}
	s.hormone = std.Name
	logger.Debug("Selected standard %s (%d points)", std.Name, std.Len())
	return nil
}

// LoadStandards registers every standard in the file and selects the first.
func (s *Session) LoadStandards(path string) ([]string, error) {
	stds, err := dataset.LoadStandards(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(stds))
	for _, std := range stds {
		if err := s.registry.Register(std); err != nil {
			return nil, err
		}
		names = append(names, std.Name)
	}
	s.hormone = names[0]
	logger.Info("Loaded %d standard(s) from %s", len(names), path)
	return names, nil
}

// Select makes a registered standard the current one.
func (s *Session) Select(name string) error {
	if s.registry.State(name) == registry.Unregistered {
		return fmt.Errorf("%w: %s", models.ErrUnknownStandard, name)
	}
	s.hormone = name
	return nil
}

// Standard returns the selected standard.
func (s *Session) Standard() (*models.Standard, error) {
	if s.hormone == "" {
		return nil, fmt.Errorf("%w: no standard selected", models.ErrUnknownStandard)
	}
	return s.registry.GetStandard(s.hormone)
}

// GeneratePatients replaces the patients with seeded sample readings.
func (s *Session) GeneratePatients() ([]models.Patient, error) {
	patients, err := dataset.GeneratePatients(dataset.PatientOptions{
		Count: s.cfg.Samples.PatientCount,
		Seed:  s.cfg.Samples.Seed,
		ODMin: s.cfg.Samples.ODMin,
		ODMax: s.cfg.Samples.ODMax,
	})
	if err != nil {
		return nil, err
	}
	s.patients = patients
	return patients, nil
}

// LoadPatients replaces the patients with those read from path.
func (s *Session) LoadPatients(path string) ([]models.Patient, error) {
	patients, err := dataset.LoadPatients(path)
	if err != nil {
		return nil, err
	}
	s.patients = patients
	logger.Info("Loaded %d patient(s) from %s", len(patients), path)
	return patients, nil
}

// SetPatients replaces the patients after validating each one.
func (s *Session) SetPatients(patients []models.Patient) error {
	for i := range patients {
		if err := patients[i].Validate(); err != nil {
			return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
		}
	}
	s.patients = append([]models.Patient(nil), patients...)
	return nil
}

// Calibrate builds the selected standard's curve. An empty method uses the
// configured default.
func (s *Session) Calibrate(method string) (*calibration.Curve, error) {
	if method == "" {
		method = s.cfg.Calibration.DefaultMethod
	}
	m, err := calibration.ParseMethod(method)
	if err != nil {
		return nil, err
	}
	if s.hormone == "" {
		return nil, fmt.Errorf("%w: no standard selected", models.ErrUnknownStandard)
	}
	return s.registry.Calibrate(s.hormone, m)
}

// Curve returns the selected standard's curve, calibrating with the
// configured default method when none is cached.
func (s *Session) Curve() (*calibration.Curve, error) {
	if s.hormone == "" {
		return nil, fmt.Errorf("%w: no standard selected", models.ErrUnknownStandard)
	}
	if c, ok := s.registry.Curve(s.hormone); ok {
		return c, nil
	}
	return s.Calibrate("")
}

// Predict converts the loaded patients and returns the batch with one
// result row per patient.
func (s *Session) Predict() (calibration.Batch, []models.ResultRow, error) {
	if len(s.patients) == 0 {
		return calibration.Batch{}, nil, fmt.Errorf("%w: no patients loaded", models.ErrInvalidInput)
	}
	if _, err := s.Curve(); err != nil {
		return calibration.Batch{}, nil, err
	}

	batch, err := s.registry.Predict(s.hormone, models.OpticDensities(s.patients))
	if err != nil {
		return calibration.Batch{}, nil, err
	}
	rows, err := calibration.Rows(s.patients, batch)
	if err != nil {
		return calibration.Batch{}, nil, err
	}
	logger.Debug("Predicted %d patient(s) for %s", len(rows), s.hormone)
	return batch, rows, nil
}

// derived holds what is computed from the selected standard and patients.
// batch and rows are nil when no patients are loaded.
type derived struct {
	std   *models.Standard
	curve *calibration.Curve
	batch *calibration.Batch
	rows  []models.ResultRow
}

// derive calibrates if needed and predicts the loaded patients once.
func (s *Session) derive() (*derived, error) {
	std, err := s.Standard()
	if err != nil {
		return nil, err
	}
	curve, err := s.Curve()
	if err != nil {
		return nil, err
	}
	d := &derived{std: std, curve: curve}
	if len(s.patients) > 0 {
		batch, rows, err := s.Predict()
		if err != nil {
			return nil, err
		}
		d.batch = &batch
		d.rows = rows
	}
	return d, nil
}

func (d *derived) report() (*analysis.Report, error) {
	return analysis.Analyze(d.std, d.curve, d.batch)
}

// Report computes the statistics of the selected standard. Patient
// statistics are included when patients are loaded.
func (s *Session) Report() (*analysis.Report, error) {
	d, err := s.derive()
	if err != nil {
		return nil, err
	}
	return d.report()
}

// Export writes the configured sections in the configured format and
// returns the written paths. Non-empty arguments override the configuration.
func (s *Session) Export(format, encoding, dir string, sections []string) ([]string, error) {
	if format == "" {
		format = s.cfg.Export.Format
	}
	if encoding == "" {
		encoding = s.cfg.Export.Encoding
	}
	if dir == "" {
		dir = s.cfg.Export.OutputDir
	}
	if len(sections) == 0 {
		sections = s.cfg.Export.Sections
	}

	secs, err := export.ParseSections(sections)
	if err != nil {
		return nil, err
	}
	w, err := export.NewWriter(dir, format, encoding)
	if err != nil {
		return nil, err
	}

	contents, err := s.contents(secs)
	if err != nil {
		return nil, err
	}
	bundle, err := export.NewBundle(contents, secs)
	if err != nil {
		return nil, err
	}
	return w.Write(bundle)
}

// contents gathers only what the selected sections need.
func (s *Session) contents(secs []export.Section) (export.Contents, error) {
	d, err := s.derive()
	if err != nil {
		return export.Contents{}, err
	}
	c := export.Contents{Standard: d.std, Curve: d.curve, Patients: s.patients, Results: d.rows}

	if slices.Contains(secs, export.SectionStatistics) {
		if c.Report, err = d.report(); err != nil {
			return export.Contents{}, err
		}
	}
	return c, nil
}

// Charts renders every applicable chart for the selected standard into dir
// and returns the written paths. The patient chart is skipped when no
// patients are loaded.
func (s *Session) Charts(dir string) ([]string, error) {
	if dir == "" {
		dir = s.cfg.Export.OutputDir
	}
	r, err := chart.NewRenderer(s.cfg.Chart.Width, s.cfg.Chart.Height, s.cfg.Chart.Format)
	if err != nil {
		return nil, err
	}
	d, err := s.derive()
	if err != nil {
		return nil, err
	}
	report, err := d.report()
	if err != nil {
		return nil, err
	}
	std, curve := d.std, d.curve

	samples := s.cfg.Chart.CurveSamples
	var paths []string

	cal, err := chart.Calibration(std, curve, samples)
	if err != nil {
		return nil, err
	}
	hist, err := chart.Histogram(std.Concentration, analysis.DefaultBins, std.Name+" concentration distribution", std.Unit)
	if err != nil {
		return nil, err
	}
	qq, err := chart.QQ(report.QQ, std.Name+" residual Q-Q plot")
	if err != nil {
		return nil, err
	}

	base := export.Slug(std.Name)
	for _, item := range []struct {
		name string
		plot *plot.Plot
	}{
		{base + "_calibration", cal},
		{base + "_histogram", hist},
		{base + "_qq", qq},
	} {
		path, err := r.Save(item.plot, dir, item.name)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	if len(d.rows) > 0 {
		pat, err := chart.Patients(curve, d.rows, samples)
		if err != nil {
			return nil, err
		}
		path, err := r.Save(pat, dir, base+"_patients")
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	logger.Info("Rendered %d chart(s) for %s", len(paths), std.Name)
	return paths, nil
}

// Reset clears all standards, curves and patients.
func (s *Session) Reset() {
	s.registry.Reset()
	s.hormone = ""
	s.patients = nil
}
