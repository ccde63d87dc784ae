package dataset

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rewired-gh/labcal/internal/models"
)

// Format identifies an input file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: unsupported file extension %q", models.ErrInvalidInput, filepath.Ext(path))
	}
}

// standardDocument is the JSON/YAML shape of one named standard.
type standardDocument struct {
	OpticDensity  []float64 `json:"optic_density" yaml:"optic_density"`
	Concentration []float64 `json:"concentration" yaml:"concentration"`
	Unit          string    `json:"unit" yaml:"unit"`
}

// LoadStandards reads standards from a JSON, YAML or CSV file.
func LoadStandards(path string) ([]*models.Standard, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open standards file: %w", err)
	}
	defer f.Close()

	stds, err := DecodeStandards(f, format)
	if err != nil {
		return nil, fmt.Errorf("failed to load standards from %s: %w", path, err)
	}
	return stds, nil
}

// DecodeStandards parses standards in the given format. JSON and YAML input
// is a map from name to {optic_density, concentration, unit}; CSV input has
// the columns name, optic_density, concentration, unit with one row per point.
// Every decoded standard is validated.
func DecodeStandards(r io.Reader, format Format) ([]*models.Standard, error) {
	var stds []*models.Standard
	var err error
	switch format {
	case FormatJSON, FormatYAML:
		stds, err = decodeStandardDocuments(r, format)
	case FormatCSV:
		stds, err = decodeStandardsCSV(r)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", models.ErrInvalidInput, format)
	}
	if err != nil {
		return nil, err
	}
	if len(stds) == 0 {
		return nil, fmt.Errorf("%w: no standards found", models.ErrInvalidInput)
	}

	now := time.Now()
	for _, std := range stds {
		std.CreatedAt = now
		if err := std.Validate(); err != nil {
			return nil, err
		}
	}
	return stds, nil
}

func decodeStandardDocuments(r io.Reader, format Format) ([]*models.Standard, error) {
	docs := make(map[string]standardDocument)
	if format == FormatJSON {
		if err := json.NewDecoder(r).Decode(&docs); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
		}
	} else {
		if err := yaml.NewDecoder(r).Decode(&docs); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
		}
	}

	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)

	stds := make([]*models.Standard, len(names))
	for i, name := range names {
		doc := docs[name]
		stds[i] = &models.Standard{
			Name:          name,
			OpticDensity:  doc.OpticDensity,
			Concentration: doc.Concentration,
			Unit:          doc.Unit,
		}
	}
	return stds, nil
}

func decodeStandardsCSV(r io.Reader) ([]*models.Standard, error) {
	records, cols, err := readCSV(r, "name", "optic_density", "concentration")
	if err != nil {
		return nil, err
	}

	var stds []*models.Standard
	byName := make(map[string]*models.Standard)
	for line, rec := range records {
		name := strings.TrimSpace(rec[cols["name"]])
		od, err := parseFloat(rec[cols["optic_density"]], line+2)
		if err != nil {
			return nil, err
		}
		conc, err := parseFloat(rec[cols["concentration"]], line+2)
		if err != nil {
			return nil, err
		}

		std, ok := byName[name]
		if !ok {
			std = &models.Standard{Name: name}
			if i, ok := cols["unit"]; ok {
				std.Unit = strings.TrimSpace(rec[i])
			}
			byName[name] = std
			stds = append(stds, std)
		}
		std.OpticDensity = append(std.OpticDensity, od)
		std.Concentration = append(std.Concentration, conc)
	}
	return stds, nil
}

// LoadPatients reads patient readings from a JSON, YAML or CSV file.
func LoadPatients(path string) ([]models.Patient, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open patients file: %w", err)
	}
	defer f.Close()

	patients, err := DecodePatients(f, format)
	if err != nil {
		return nil, fmt.Errorf("failed to load patients from %s: %w", path, err)
	}
	return patients, nil
}

// DecodePatients parses a list of patients. CSV input has the columns
// id, optic_density and an optional note.
func DecodePatients(r io.Reader, format Format) ([]models.Patient, error) {
	var patients []models.Patient
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&patients); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&patients); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
		}
	case FormatCSV:
		records, cols, err := readCSV(r, "id", "optic_density")
		if err != nil {
			return nil, err
		}
		for line, rec := range records {
			od, err := parseFloat(rec[cols["optic_density"]], line+2)
			if err != nil {
				return nil, err
			}
			p := models.Patient{ID: strings.TrimSpace(rec[cols["id"]]), OpticDensity: od}
			if i, ok := cols["note"]; ok {
				p.Note = strings.TrimSpace(rec[i])
			}
			patients = append(patients, p)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", models.ErrInvalidInput, format)
	}

	if len(patients) == 0 {
		return nil, fmt.Errorf("%w: no patients found", models.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(patients))
	for i := range patients {
		if err := patients[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
		}
		if _, dup := seen[patients[i].ID]; dup {
			return nil, fmt.Errorf("%w: duplicate patient ID %s", models.ErrInvalidInput, patients[i].ID)
		}
		seen[patients[i].ID] = struct{}{}
	}
	return patients, nil
}

// readCSV reads a headed CSV table and maps lower-cased column names to
// indices. A leading UTF-8 byte order mark is ignored.
func readCSV(r io.Reader, required ...string) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read CSV header: %v", models.ErrInvalidInput, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("%w: CSV is missing column %q", models.ErrInvalidInput, name)
		}
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	return records, cols, nil
}

func parseFloat(s string, line int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: %q is not a number", models.ErrInvalidInput, line, s)
	}
	return v, nil
}
