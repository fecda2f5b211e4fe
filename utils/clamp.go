package utils

import "math"

// Clamp constrains t to the inclusive range [min, max].
func Clamp(t, min, max float64) float64 {
	min, max = math.Min(min, max), math.Max(min, max)
	return math.Max(math.Min(t, max), min)
}

// ClampInt constrains t to the inclusive range [min, max].
func ClampInt(t, min, max int) int {
	if min > max {
		min, max = max, min
	}
	if t < min {
		return min
	}
	if t > max {
		return max
	}
	return t
}
