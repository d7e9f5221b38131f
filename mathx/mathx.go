// Package mathx holds the small numeric helpers shared by the drivers
package mathx

import "math"

// Round rounds a float to the nearest "unit" (0.1 for tenth, 0.01 for hundredth, and so on).
// Halves round away from zero, so negative setpoints round symmetrically.
func Round(x, unit float64) float64 {
	return math.Round(x/unit) * unit
}
