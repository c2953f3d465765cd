// Package units converts the core's internal meters-per-second speed
// values into the display unit a CLI caller asked for.
package units

import "fmt"

const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// Valid lists every unit ConvertSpeed accepts.
var Valid = []string{MPS, MPH, KMPH, KPH}

// IsValid reports whether unit is one ConvertSpeed accepts.
func IsValid(unit string) bool {
	for _, v := range Valid {
		if v == unit {
			return true
		}
	}
	return false
}

// ConvertSpeed converts a speed in meters per second (the core's
// native unit) to the target display unit.
func ConvertSpeed(speedMPS float64, target string) (float64, error) {
	switch target {
	case MPS:
		return speedMPS, nil
	case MPH:
		return speedMPS * 2.2369362920544, nil
	case KMPH, KPH:
		return speedMPS * 3.6, nil
	default:
		return 0, fmt.Errorf("units: unknown target unit %q", target)
	}
}
