// Package export writes calibration results to disk as CSV, XLSX, JSON or
// YAML. A Bundle gathers the selectable sections (calibration points,
// patients, results and statistics) of one hormone; a Writer turns it into
// files under an output directory.
package export

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/labcal/internal/analysis"
	"github.com/rewired-gh/labcal/internal/calibration"
	"github.com/rewired-gh/labcal/internal/models"
)

// Section names one exportable table.
type Section string

const (
	SectionCalibration Section = "calibration"
	SectionPatients    Section = "patients"
	SectionResults     Section = "results"
	SectionStatistics  Section = "statistics"
)

// AllSections lists every section in export order.
var AllSections = []Section{SectionCalibration, SectionPatients, SectionResults, SectionStatistics}

var sectionTitles = map[Section]string{
	SectionCalibration: "Calibration",
	SectionPatients:    "Patients",
	SectionResults:     "Results",
	SectionStatistics:  "Statistics",
}

// ParseSection validates a section name.
func ParseSection(s string) (Section, error) {
	sec := Section(s)
	if _, ok := sectionTitles[sec]; !ok {
		return "", fmt.Errorf("%w: unknown export section %q", models.ErrInvalidInput, s)
	}
	return sec, nil
}

// ParseSections validates a list of section names.
func ParseSections(names []string) ([]Section, error) {
	out := make([]Section, 0, len(names))
	for _, n := range names {
		sec, err := ParseSection(n)
		if err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	return out, nil
}

// Title returns the sheet title of the section.
func (s Section) Title() string {
	return sectionTitles[s]
}

// Bundle is everything exported for one hormone. Sections not selected
// for export are left empty.
type Bundle struct {
	ID          string               `json:"id" yaml:"id"`
	CreatedAt   time.Time            `json:"created_at" yaml:"created_at"`
	Hormone     string               `json:"hormone" yaml:"hormone"`
	Unit        string               `json:"unit" yaml:"unit"`
	Curve       *calibration.Summary `json:"curve,omitempty" yaml:"curve,omitempty"`
	Calibration []models.StandardRow `json:"calibration,omitempty" yaml:"calibration,omitempty"`
	Patients    []models.Patient     `json:"patients,omitempty" yaml:"patients,omitempty"`
	Results     []models.ResultRow   `json:"results,omitempty" yaml:"results,omitempty"`
	Statistics  []analysis.Metric    `json:"statistics,omitempty" yaml:"statistics,omitempty"`
	sections    map[Section]bool
}

// Contents supplies the data a bundle can be built from. Only Standard is
// required.
type Contents struct {
	Standard *models.Standard
	Curve    *calibration.Curve
	Patients []models.Patient
	Results  []models.ResultRow
	Report   *analysis.Report
}

// NewBundle assembles the selected sections of c under a fresh bundle ID.
func NewBundle(c Contents, sections []Section) (*Bundle, error) {
	if c.Standard == nil {
		return nil, fmt.Errorf("%w: export needs a standard", models.ErrInvalidInput)
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: no export sections selected", models.ErrInvalidInput)
	}

	b := &Bundle{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Hormone:   c.Standard.Name,
		Unit:      c.Standard.Unit,
		sections:  make(map[Section]bool, len(sections)),
	}
	if c.Curve != nil {
		s := c.Curve.Summary()
		b.Curve = &s
	}

	for _, sec := range sections {
		switch sec {
		case SectionCalibration:
			b.Calibration = models.StandardRows(c.Standard)
		case SectionPatients:
			if len(c.Patients) == 0 {
				return nil, fmt.Errorf("%w: patients section selected but no patients loaded", models.ErrInvalidInput)
			}
			b.Patients = c.Patients
		case SectionResults:
			if len(c.Results) == 0 {
				return nil, fmt.Errorf("%w: results section selected but nothing was predicted", models.ErrInvalidInput)
			}
			b.Results = c.Results
		case SectionStatistics:
			if c.Report == nil {
				return nil, fmt.Errorf("%w: statistics section selected but no report was computed", models.ErrInvalidInput)
			}
			b.Statistics = c.Report.Metrics()
		default:
			return nil, fmt.Errorf("%w: unknown export section %q", models.ErrInvalidInput, sec)
		}
		b.sections[sec] = true
	}
	return b, nil
}

// Sections returns the included sections in export order.
func (b *Bundle) Sections() []Section {
	out := make([]Section, 0, len(b.sections))
	for _, sec := range AllSections {
		if b.sections[sec] {
			out = append(out, sec)
		}
	}
	return out
}

// Table renders one section as a header and rows of typed cells.
func (b *Bundle) Table(sec Section) ([]string, [][]any) {
	switch sec {
	case SectionCalibration:
		rows := make([][]any, len(b.Calibration))
		for i, r := range b.Calibration {
			rows[i] = []any{r.Index, r.OpticDensity, r.Concentration}
		}
		return []string{"index", "optic_density", "concentration"}, rows
	case SectionPatients:
		rows := make([][]any, len(b.Patients))
		for i, p := range b.Patients {
			rows[i] = []any{p.ID, p.OpticDensity, p.Note}
		}
		return []string{"id", "optic_density", "note"}, rows
	case SectionResults:
		rows := make([][]any, len(b.Results))
		for i, r := range b.Results {
			rows[i] = []any{r.ID, r.OpticDensity, r.Concentration, r.Status.String(), r.Note}
		}
		return []string{"id", "optic_density", "concentration", "status", "note"}, rows
	case SectionStatistics:
		rows := make([][]any, len(b.Statistics))
		for i, m := range b.Statistics {
			rows[i] = []any{m.Name, m.Value}
		}
		return []string{"metric", "value"}, rows
	}
	return nil, nil
}

// cellString formats a table cell for text output.
func cellString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
