package units

import (
	"math"
	"testing"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid watts", Watts, true},
		{"valid kilowatts", Kilowatts, true},
		{"invalid unit", "hp", false},
		{"empty unit", "", false},
		{"uppercase W", "W", false}, // Case-sensitive
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValid(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestGetValidUnitsString(t *testing.T) {
	result := GetValidUnitsString()
	expected := "w, kw"
	if result != expected {
		t.Errorf("GetValidUnitsString() = %s, want %s", result, expected)
	}
}

func TestConvertPower(t *testing.T) {
	tests := []struct {
		name     string
		powerW   float64
		unit     string
		expected float64
	}{
		{"0 W to w", 0.0, Watts, 0.0},
		{"245 W to w", 245.0, Watts, 245.0},
		{"0 W to kw", 0.0, Kilowatts, 0.0},
		{"245 W to kw", 245.0, Kilowatts, 0.245},
		{"2000 W to kw", 2000.0, Kilowatts, 2.0},
		{"unknown unit passes through", 245.0, "hp", 245.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertPower(tt.powerW, tt.unit)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("ConvertPower(%f, %s) = %f, want %f", tt.powerW, tt.unit, result, tt.expected)
			}
		})
	}
}

func TestFormatPower(t *testing.T) {
	tests := []struct {
		name     string
		powerW   float64
		unit     string
		expected string
	}{
		{"watts", 245.0, Watts, "245.0 W"},
		{"kilowatts", 245.0, Kilowatts, "0.245 kW"},
		{"unknown falls back to watts", 245.0, "hp", "245.0 W"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatPower(tt.powerW, tt.unit)
			if result != tt.expected {
				t.Errorf("FormatPower(%f, %s) = %q, want %q", tt.powerW, tt.unit, result, tt.expected)
			}
		})
	}
}
