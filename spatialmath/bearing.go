package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// AngleIncrement is the uniform beam spacing of an n-beam scan covering [-π, π).
func AngleIncrement(n int) float64 {
	return 2 * math.Pi / float64(n)
}

// IndexToBearing returns the bearing of beam i of an n-beam scan.
func IndexToBearing(i, n int) float64 {
	return -math.Pi + float64(i)*AngleIncrement(n)
}

// BearingToIndex returns the beam index containing bearing beta. Bearings outside [-π, π) wrap.
func BearingToIndex(beta float64, n int) int {
	idx := int(math.Floor((beta + math.Pi) / AngleIncrement(n)))
	return ((idx % n) + n) % n
}

// HalfScanAngle converts a beam index into an angle using the half-scan convention of the gap
// pipeline, (idx - halfScan) / halfScan * π.
func HalfScanAngle(idx int, halfScan float64) float64 {
	return (float64(idx) - halfScan) / halfScan * math.Pi
}

// PolarPoint returns the XY point at the given range and bearing.
func PolarPoint(rng, bearing float64) r3.Vector {
	s, c := math.Sincos(bearing)
	return r3.Vector{X: rng * c, Y: rng * s}
}
