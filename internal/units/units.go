// Package units names the length units a point cloud may be recorded in.
// Every stage of the pipeline works in metres.
package units

import (
	"fmt"
	"strings"
)

// Unit constants
const (
	M  = "m"
	CM = "cm"
	MM = "mm"
	FT = "ft"
	IN = "in"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{M, CM, MM, FT, IN}

var metresPer = map[string]float64{
	M:  1,
	CM: 0.01,
	MM: 0.001,
	FT: 0.3048,
	IN: 0.0254,
}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	_, ok := metresPer[unit]
	return ok
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// MetresPer returns the length of one unit in metres.
func MetresPer(unit string) (float64, error) {
	f, ok := metresPer[unit]
	if !ok {
		return 0, fmt.Errorf("unknown length unit %q (valid: %s)", unit, GetValidUnitsString())
	}
	return f, nil
}

// ToMetres converts v from unit to metres. Unknown units are treated as metres.
func ToMetres(v float64, unit string) float64 {
	if f, ok := metresPer[unit]; ok {
		return v * f
	}
	return v
}
