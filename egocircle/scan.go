// Package egocircle holds the range-versus-bearing horizon around the robot and the projectors
// that forecast it to a future instant.
package egocircle

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/dynamicgap/spatialmath"
)

// ErrMalformedScan is returned for a range array too small to plan against.
var ErrMalformedScan = errors.New("malformed range scan")

// Scan is an egocircle: N ranges over [-π, π) at a uniform 2π/N step. Beams with no return hold
// MaxRange.
type Scan struct {
	Ranges   []float64
	MaxRange float64
}

// NewScan copies ranges, replacing the sentinel, non-finite values and anything beyond maxRange
// with maxRange.
func NewScan(ranges []float64, sentinel, maxRange float64) Scan {
	out := make([]float64, len(ranges))
	for i, r := range ranges {
		switch {
		case r == sentinel, math.IsNaN(r), math.IsInf(r, 0), r > maxRange:
			out[i] = maxRange
		default:
			out[i] = r
		}
	}
	return Scan{Ranges: out, MaxRange: maxRange}
}

// Len returns the number of beams.
func (s Scan) Len() int { return len(s.Ranges) }

// AngleIncrement returns the beam spacing.
func (s Scan) AngleIncrement() float64 { return spatialmath.AngleIncrement(len(s.Ranges)) }

// AngleAt returns the bearing of beam i.
func (s Scan) AngleAt(i int) float64 { return spatialmath.IndexToBearing(i, len(s.Ranges)) }

// IndexOf returns the beam containing bearing.
func (s Scan) IndexOf(bearing float64) int { return spatialmath.BearingToIndex(bearing, len(s.Ranges)) }

// Point returns the endpoint of beam i in the robot frame.
func (s Scan) Point(i int) r3.Vector {
	return spatialmath.PolarPoint(s.Ranges[i], s.AngleAt(i))
}

// Free reports whether beam i saw nothing within range.
func (s Scan) Free(i int) bool { return s.Ranges[i] >= s.MaxRange }

// Clone returns a deep copy.
func (s Scan) Clone() Scan {
	out := make([]float64, len(s.Ranges))
	copy(out, s.Ranges)
	return Scan{Ranges: out, MaxRange: s.MaxRange}
}

// Validate checks the scan has at least minBeams beams and a positive max range.
func (s Scan) Validate(minBeams int) error {
	if len(s.Ranges) < minBeams {
		return errors.Wrapf(ErrMalformedScan, "got %d beams, need at least %d", len(s.Ranges), minBeams)
	}
	if s.MaxRange <= 0 {
		return errors.Wrapf(ErrMalformedScan, "max range %v must be positive", s.MaxRange)
	}
	return nil
}
