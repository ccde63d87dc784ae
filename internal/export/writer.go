package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/rewired-gh/labcal/internal/logger"
	"github.com/rewired-gh/labcal/internal/models"
)

// Format is the file format of an export.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatCSV, FormatXLSX, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", models.ErrInvalidInput, s)
}

// Writer writes bundles into a directory.
type Writer struct {
	Dir      string
	Format   Format
	Encoding Encoding
}

// NewWriter validates format and encoding names and returns a Writer.
func NewWriter(dir, format, encoding string) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: export directory is required", models.ErrInvalidInput)
	}
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	e, err := ParseEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &Writer{Dir: dir, Format: f, Encoding: e}, nil
}

// Write exports the bundle and returns the paths of the files written.
// CSV produces one file per section; the other formats produce one file.
// The encoding applies to CSV, JSON and YAML; XLSX is always UTF-8.
func (w *Writer) Write(b *Bundle) ([]string, error) {
	var paths []string
	var err error
	switch w.Format {
	case FormatCSV:
		paths, err = w.writeCSV(b)
	case FormatXLSX:
		paths, err = w.writeXLSX(b)
	case FormatJSON:
		paths, err = w.writeDocument(b, json.MarshalIndent)
	case FormatYAML:
		paths, err = w.writeDocument(b, func(v any, _, _ string) ([]byte, error) { return yaml.Marshal(v) })
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", models.ErrInvalidInput, w.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to export %s as %s: %w", b.Hormone, w.Format, err)
	}

	logger.Info("Exported %s bundle %s to %d file(s) in %s", b.Hormone, b.ID, len(paths), w.Dir)
	return paths, nil
}

func (w *Writer) writeCSV(b *Bundle) ([]string, error) {
	sections := b.Sections()
	paths := make([]string, 0, len(sections))
	for _, sec := range sections {
		header, rows := b.Table(sec)

		var buf bytes.Buffer
		cw := csv.NewWriter(&buf)
		if err := cw.Write(header); err != nil {
			return nil, err
		}
		record := make([]string, len(header))
		for _, row := range rows {
			for i, cell := range row {
				record[i] = cellString(cell)
			}
			if err := cw.Write(record); err != nil {
				return nil, err
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return nil, err
		}

		data, err := w.Encoding.Encode(buf.Bytes())
		if err != nil {
			return nil, err
		}
		path := w.path(b, string(sec), "csv")
		if err := writeFileAtomic(path, data); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (w *Writer) writeDocument(b *Bundle, marshal func(v any, prefix, indent string) ([]byte, error)) ([]string, error) {
	data, err := marshal(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bundle: %w", err)
	}
	data, err = w.Encoding.Encode(data)
	if err != nil {
		return nil, err
	}
	path := w.path(b, "export", string(w.Format))
	if err := writeFileAtomic(path, data); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

// path builds <dir>/<hormone>_<suffix>.<ext> with a file-system safe hormone.
func (w *Writer) path(b *Bundle, suffix, ext string) string {
	return filepath.Join(w.Dir, fmt.Sprintf("%s_%s.%s", Slug(b.Hormone), suffix, ext))
}

// Slug lower-cases s and replaces everything but letters and digits with
// underscores, for use in file names.
func Slug(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	if sb.Len() == 0 {
		return "standard"
	}
	return sb.String()
}
