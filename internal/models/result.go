package models

import (
	"fmt"
	"strings"
)

// RangeStatus classifies a reading against the calibrated domain.
// The numeric values match the sign of the deviation.
type RangeStatus int

const (
	// BelowRange marks an OD smaller than the lowest standard.
	BelowRange RangeStatus = -1
	// InRange marks an OD inside [min, max] of the standard, bounds included.
	InRange RangeStatus = 0
	// AboveRange marks an OD larger than the highest standard.
	AboveRange RangeStatus = 1
)

var rangeStatusNames = map[RangeStatus]string{
	BelowRange: "below-range",
	InRange:    "in-range",
	AboveRange: "above-range",
}

// String returns the wire name of the status.
func (s RangeStatus) String() string {
	if name, ok := rangeStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler for JSON and YAML output.
func (s RangeStatus) MarshalText() ([]byte, error) {
	name, ok := rangeStatusNames[s]
	if !ok {
		return nil, fmt.Errorf("invalid range status %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *RangeStatus) UnmarshalText(text []byte) error {
	want := strings.ToLower(strings.TrimSpace(string(text)))
	for status, name := range rangeStatusNames {
		if name == want {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("%w: unknown range status %q", ErrInvalidInput, string(text))
}

// ClassifyRange places od relative to the closed interval [lo, hi].
func ClassifyRange(od, lo, hi float64) RangeStatus {
	switch {
	case od < lo:
		return BelowRange
	case od > hi:
		return AboveRange
	default:
		return InRange
	}
}

// ResultRow is one exported line: a patient reading with its estimate.
type ResultRow struct {
	ID            string      `json:"id" yaml:"id"`
	OpticDensity  float64     `json:"optic_density" yaml:"optic_density"`
	Concentration float64     `json:"concentration" yaml:"concentration"`
	Status        RangeStatus `json:"status" yaml:"status"`
	Note          string      `json:"note" yaml:"note"`
}

// StandardRow is one exported calibration point.
type StandardRow struct {
	Index         int     `json:"index" yaml:"index"`
	OpticDensity  float64 `json:"optic_density" yaml:"optic_density"`
	Concentration float64 `json:"concentration" yaml:"concentration"`
}

// StandardRows flattens a standard into numbered rows starting at 1.
func StandardRows(s *Standard) []StandardRow {
	rows := make([]StandardRow, s.Len())
	for i := range rows {
		rows[i] = StandardRow{
			Index:         i + 1,
			OpticDensity:  s.OpticDensity[i],
			Concentration: s.Concentration[i],
		}
	}
	return rows
}
