// Package units provides shared constants and validation for power units
package units

import "fmt"

// Unit constants
const (
	Watts     = "w"
	Kilowatts = "kw"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Watts, Kilowatts}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "w, kw"
}

// ConvertPower converts a power reading from watts to the target units.
// The pipeline and all sample sources carry power in watts.
func ConvertPower(powerW float64, targetUnits string) float64 {
	switch targetUnits {
	case Watts:
		return powerW
	case Kilowatts:
		return powerW / 1000.0
	default:
		return powerW
	}
}

// FormatPower renders a power reading with its unit suffix for CLI output
// and chart axis labels.
func FormatPower(powerW float64, targetUnits string) string {
	switch targetUnits {
	case Kilowatts:
		return fmt.Sprintf("%.3f kW", ConvertPower(powerW, Kilowatts))
	default:
		return fmt.Sprintf("%.1f W", powerW)
	}
}
