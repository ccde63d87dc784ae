package models

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestStandardValidate(t *testing.T) {
	tests := []struct {
		name     string
		standard Standard
		wantErr  bool
	}{
		{
			name: "valid standard",
			standard: Standard{
				Name:          "Cortisol",
				OpticDensity:  []float64{0.1, 0.2, 0.3, 0.4, 0.5},
				Concentration: []float64{10, 20, 30, 40, 50},
				Unit:          "ng/mL",
			},
			wantErr: false,
		},
		{
			name: "two points is enough",
			standard: Standard{
				Name:          "TSH",
				OpticDensity:  []float64{0.05, 0.45},
				Concentration: []float64{0.5, 4.5},
			},
			wantErr: false,
		},
		{
			name: "empty name",
			standard: Standard{
				OpticDensity:  []float64{0.1, 0.2},
				Concentration: []float64{10, 20},
			},
			wantErr: true,
		},
		{
			name: "mismatched lengths",
			standard: Standard{
				Name:          "Cortisol",
				OpticDensity:  []float64{0.1, 0.2, 0.3},
				Concentration: []float64{10, 20},
			},
			wantErr: true,
		},
		{
			name: "single point",
			standard: Standard{
				Name:          "Cortisol",
				OpticDensity:  []float64{0.1},
				Concentration: []float64{10},
			},
			wantErr: true,
		},
		{
			name: "NaN concentration",
			standard: Standard{
				Name:          "Cortisol",
				OpticDensity:  []float64{0.1, 0.2},
				Concentration: []float64{10, math.NaN()},
			},
			wantErr: true,
		},
		{
			name: "duplicate optic density",
			standard: Standard{
				Name:          "Cortisol",
				OpticDensity:  []float64{0.1, 0.2, 0.2},
				Concentration: []float64{10, 20, 25},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.standard.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Standard.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestStandardClone(t *testing.T) {
	s := &Standard{
		Name:          "Cortisol",
		OpticDensity:  []float64{0.1, 0.2},
		Concentration: []float64{10, 20},
	}
	c := s.Clone()
	c.OpticDensity[0] = 9

	if s.OpticDensity[0] != 0.1 {
		t.Errorf("clone shares backing array with original")
	}
}

func TestPatientValidate(t *testing.T) {
	tests := []struct {
		name    string
		patient Patient
		wantErr bool
	}{
		{name: "valid", patient: Patient{ID: "P001", OpticDensity: 0.25}},
		{name: "empty ID", patient: Patient{OpticDensity: 0.25}, wantErr: true},
		{name: "negative OD", patient: Patient{ID: "P001", OpticDensity: -0.1}, wantErr: true},
		{name: "infinite OD", patient: Patient{ID: "P001", OpticDensity: math.Inf(1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patient.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Patient.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClassifyRange(t *testing.T) {
	tests := []struct {
		od   float64
		want RangeStatus
	}{
		{0.05, BelowRange},
		{0.1, InRange},
		{0.3, InRange},
		{0.5, InRange},
		{0.6, AboveRange},
	}

	for _, tt := range tests {
		if got := ClassifyRange(tt.od, 0.1, 0.5); got != tt.want {
			t.Errorf("ClassifyRange(%v) = %s, want %s", tt.od, got, tt.want)
		}
	}
}

func TestRangeStatusJSON(t *testing.T) {
	row := ResultRow{ID: "P001", OpticDensity: 0.6, Concentration: 60, Status: AboveRange}
	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded ResultRow
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Status != AboveRange {
		t.Errorf("Expected %s, got %s", AboveRange, decoded.Status)
	}

	var bad RangeStatus
	if err := bad.UnmarshalText([]byte("sideways")); err == nil {
		t.Error("Expected error for unknown status")
	}
}

func TestStandardRows(t *testing.T) {
	s := &Standard{
		Name:          "TSH",
		OpticDensity:  []float64{0.05, 0.15},
		Concentration: []float64{0.5, 1.5},
	}
	rows := StandardRows(s)
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[1].Index != 2 || rows[1].Concentration != 1.5 {
		t.Errorf("Unexpected row: %+v", rows[1])
	}
}
