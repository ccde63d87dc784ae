package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/rewired-gh/labcal/internal/analysis"
	"github.com/rewired-gh/labcal/internal/calibration"
	"github.com/rewired-gh/labcal/internal/models"
)

func testContents(t *testing.T) Contents {
	t.Helper()
	std := &models.Standard{
		Name:          "Cortisol",
		OpticDensity:  []float64{0.1, 0.2, 0.3, 0.4, 0.5},
		Concentration: []float64{10, 20, 30, 40, 50},
		Unit:          "ng/mL",
	}
	curve, err := calibration.Build(std, calibration.MethodLinear)
	require.NoError(t, err)

	patients := []models.Patient{
		{ID: "P001", OpticDensity: 0.25, Note: "Sample patient 1"},
		{ID: "P002", OpticDensity: 0.6, Note: "Sample patient 2"},
	}
	batch, err := curve.Predict(models.OpticDensities(patients))
	require.NoError(t, err)
	rows, err := calibration.Rows(patients, batch)
	require.NoError(t, err)
	report, err := analysis.Analyze(std, curve, &batch)
	require.NoError(t, err)

	return Contents{Standard: std, Curve: curve, Patients: patients, Results: rows, Report: report}
}

func TestNewBundle(t *testing.T) {
	c := testContents(t)
	b, err := NewBundle(c, []Section{SectionResults, SectionCalibration})
	require.NoError(t, err)

	_, err = uuid.Parse(b.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Cortisol", b.Hormone)
	assert.Equal(t, []Section{SectionCalibration, SectionResults}, b.Sections())
	assert.Len(t, b.Calibration, 5)
	assert.Len(t, b.Results, 2)
	assert.Empty(t, b.Patients)
	assert.Empty(t, b.Statistics)
	require.NotNil(t, b.Curve)
	assert.Equal(t, calibration.MethodLinear, b.Curve.Method)

	other, err := NewBundle(c, []Section{SectionResults})
	require.NoError(t, err)
	assert.NotEqual(t, b.ID, other.ID)
}

func TestNewBundleErrors(t *testing.T) {
	c := testContents(t)
	tests := []struct {
		name     string
		contents Contents
		sections []Section
	}{
		{"no standard", Contents{}, []Section{SectionCalibration}},
		{"no sections", c, nil},
		{"no patients", Contents{Standard: c.Standard}, []Section{SectionPatients}},
		{"no results", Contents{Standard: c.Standard}, []Section{SectionResults}},
		{"no report", Contents{Standard: c.Standard}, []Section{SectionStatistics}},
		{"unknown section", c, []Section{"charts"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBundle(tt.contents, tt.sections)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
		})
	}
}

func TestParseNames(t *testing.T) {
	secs, err := ParseSections([]string{"calibration", "statistics"})
	require.NoError(t, err)
	assert.Equal(t, []Section{SectionCalibration, SectionStatistics}, secs)
	_, err = ParseSections([]string{"plots"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	f, err := ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = ParseEncoding("latin1")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = NewWriter("", "csv", "utf-8")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		encoding Encoding
		input    string
		want     []byte
	}{
		{"utf-8", EncodingUTF8, "µg", []byte("µg")},
		{"utf-8-sig", EncodingUTF8BOM, "a", []byte{0xEF, 0xBB, 0xBF, 'a'}},
		{"cp1251 cyrillic", EncodingCP1251, "Кортизол", []byte{0xCA, 0xEE, 0xF0, 0xF2, 0xE8, 0xE7, 0xEE, 0xEB}},
		{"cp1251 micro sign", EncodingCP1251, "µ", []byte{0xB5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.encoding.Encode([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := EncodingCP1251.Encode([]byte("日本"))
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	b, err := NewBundle(testContents(t), []Section{SectionCalibration, SectionResults})
	require.NoError(t, err)

	w, err := NewWriter(dir, "csv", "utf-8-sig")
	require.NoError(t, err)
	paths, err := w.Write(b)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "cortisol_calibration.csv"),
		filepath.Join(dir, "cortisol_results.csv"),
	}, paths)

	data, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, utf8BOM))
	lines := strings.Split(strings.TrimSpace(string(data[len(utf8BOM):])), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,optic_density,concentration,status,note", lines[0])
	assert.True(t, strings.HasPrefix(lines[2], "P002,0.6,60"), lines[2])
	assert.True(t, strings.HasSuffix(lines[2], ",above-range,Sample patient 2"), lines[2])

	_, err = os.Stat(paths[0] + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteJSONAndYAML(t *testing.T) {
	c := testContents(t)
	b, err := NewBundle(c, AllSections)
	require.NoError(t, err)

	dir := t.TempDir()
	w, err := NewWriter(dir, "json", "utf-8")
	require.NoError(t, err)
	paths, err := w.Write(b)
	require.NoError(t, err)
	require.Len(t, paths, 1)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	var decoded struct {
		ID      string             `json:"id"`
		Hormone string             `json:"hormone"`
		Results []models.ResultRow `json:"results"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, b.ID, decoded.ID)
	require.Len(t, decoded.Results, 2)
	assert.Equal(t, models.AboveRange, decoded.Results[1].Status)

	w.Format = FormatYAML
	paths, err = w.Write(b)
	require.NoError(t, err)
	data, err = os.ReadFile(paths[0])
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "Cortisol", doc["hormone"])
	assert.Contains(t, doc, "statistics")
}

func TestWriteXLSX(t *testing.T) {
	b, err := NewBundle(testContents(t), AllSections)
	require.NoError(t, err)

	w, err := NewWriter(t.TempDir(), "xlsx", "cp1251")
	require.NoError(t, err)
	paths, err := w.Write(b)
	require.NoError(t, err)
	require.Len(t, paths, 1)

	f, err := excelize.OpenFile(paths[0])
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Calibration", "Patients", "Results", "Statistics"}, f.GetSheetList())
	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "optic_density", "concentration", "status", "note"}, rows[0])
	assert.Equal(t, "P001", rows[1][0])
	assert.Equal(t, "in-range", rows[1][3])

	cal, err := f.GetRows("Calibration")
	require.NoError(t, err)
	assert.Len(t, cal, 6)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "cortisol", Slug("Cortisol"))
	assert.Equal(t, "free_t4", Slug("Free T4"))
	assert.Equal(t, "тестостерон", Slug("Тестостерон"))
	assert.Equal(t, "standard", Slug("  "))
}
