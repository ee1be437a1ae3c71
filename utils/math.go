package utils

import (
	"math"
)

// IsFinite reports whether every value is neither NaN nor infinite.
func IsFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Clamp returns x limited to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// SignNonNegative returns -1 for negative x and 1 otherwise, including zero.
func SignNonNegative(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

// WrapIndex maps any integer onto [0, n).
func WrapIndex(i, n int) int {
	return ((i % n) + n) % n
}
