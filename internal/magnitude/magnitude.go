// Package magnitude converts a composite amplitude into a K-Class local
// magnitude using a piecewise log-linear attenuation law.
package magnitude

import (
	"fmt"
	"math"
)

// KmOfDegree is the length of one degree of arc on a sphere of radius 6371 km.
const KmOfDegree = 6371.0 * 2.0 * math.Pi / 360.0

// Type is the magnitude and amplitude type name.
const Type = "K_Class"

// Status is the outcome of a magnitude computation.
type Status int

const (
	OK Status = iota
	Error
	DistanceOutOfRange
	DepthOutOfRange
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case Error:
		return "Error"
	case DistanceOutOfRange:
		return "DistanceOutOfRange"
	case DepthOutOfRange:
		return "DepthOutOfRange"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Estimate is a magnitude value and the status it was computed with.
// Value is zero unless Status is OK.
type Estimate struct {
	Value  float64
	Status Status
}

// Model maps an amplitude at a distance and depth to a magnitude.
type Model interface {
	Estimate(amplitude, distanceDeg, depthKm float64) Estimate
}

// Coefficients of the attenuation law
//
//	M = A * (log10(amplitude) + a[i]*log10(R) + b[i])
//
// where R is the hypocentral distance in km and segment i is selected by the
// ascending breakpoints l1 < l2 < l3.  Segment i covers (l[i-1], l[i]].
type Coefficients struct {
	MinimumDistance float64 // degrees
	MaximumDistance float64 // degrees
	MaximumDepth    float64 // km

	A      float64    // scale
	Slope  [4]float64 // a1..a4
	Offset [4]float64 // b1..b4
	Breaks [3]float64 // l1..l3 in km
}

// DefaultCoefficients returns the documented default coefficients, valid
// between 0 and 15 degrees for depths to 180 km.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		MinimumDistance: 0.0,
		MaximumDistance: 15.0,
		MaximumDepth:    180.0,
		A:               1.84,
		Slope:           [4]float64{2.11, 1.1, 2.98, 0.0},
		Offset:          [4]float64{1.32, 3.21, -1.34, 8.0},
		Breaks:          [3]float64{75.0, 264.0, 800.0},
	}
}

// Segment returns the distance coefficients of segment i, from 1 to 4.
func (c Coefficients) Segment(i int) (a, b float64) {
	if i < 1 || i > 4 {
		return math.NaN(), math.NaN()
	}
	return c.Slope[i-1], c.Offset[i-1]
}

// SegmentFor returns the segment, from 1 to 4, for hypocentral distance r in km.
func (c Coefficients) SegmentFor(r float64) int {
	switch {
	case r <= c.Breaks[0]:
		return 1
	case r <= c.Breaks[1]:
		return 2
	case r <= c.Breaks[2]:
		return 3
	default:
		return 4
	}
}

// Validate checks the breakpoints ascend and the distance range is not inverted.
func (c Coefficients) Validate() error {
	if !(c.Breaks[0] < c.Breaks[1] && c.Breaks[1] < c.Breaks[2]) {
		return fmt.Errorf("breakpoints must ascend: %g %g %g", c.Breaks[0], c.Breaks[1], c.Breaks[2])
	}

	if c.MinimumDistance > c.MaximumDistance {
		return fmt.Errorf("minimum distance %g is greater than maximum distance %g", c.MinimumDistance, c.MaximumDistance)
	}

	return nil
}

// Estimate implements Model.
func (c Coefficients) Estimate(amplitude, distanceDeg, depthKm float64) Estimate {
	return Compute(amplitude, distanceDeg, depthKm, c)
}

// Compute returns the magnitude for amplitude (nm) at epicentral distance
// distanceDeg and depth depthKm.  Range checks are made before the amplitude
// is looked at.  NaN distances and depths are out of range.
func Compute(amplitude, distanceDeg, depthKm float64, c Coefficients) Estimate {
	if !(distanceDeg >= c.MinimumDistance && distanceDeg <= c.MaximumDistance) {
		return Estimate{Status: DistanceOutOfRange}
	}

	if !(depthKm <= c.MaximumDepth) {
		return Estimate{Status: DepthOutOfRange}
	}

	if !(amplitude > 0) || math.IsInf(amplitude, 1) {
		return Estimate{Status: Error}
	}

	r := HypocentralDistance(distanceDeg, depthKm)

	a, b := c.Segment(c.SegmentFor(r))

	return Estimate{
		Value:  c.A * (math.Log10(amplitude) + a*math.Log10(r) + b),
		Status: OK,
	}
}

// Deg2Km converts degrees of arc to km.
func Deg2Km(deg float64) float64 {
	return deg * KmOfDegree
}

// HypocentralDistance returns the straight line distance in km for an
// epicentral distance in degrees and a depth in km.
func HypocentralDistance(distanceDeg, depthKm float64) float64 {
	e := Deg2Km(distanceDeg)
	return math.Sqrt(e*e + depthKm*depthKm)
}
