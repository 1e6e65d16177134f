package fields

import "math"

// NormalizeRate converts a null/unique rate to the 0–100 integer scale used by
// durable field records. Values above 1 are taken as percentages already, values
// at or below 1 as fractions. A rate of exactly 1 is therefore read as 100%.
func NormalizeRate(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	if v <= 1 {
		v *= 100
	}
	return int(math.Round(math.Min(100, math.Max(0, v))))
}

// Round1 rounds to one decimal place, the precision samplers report rates with.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
