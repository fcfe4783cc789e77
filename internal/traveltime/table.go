package traveltime

import (
	"math"

	"github.com/GeoNet/kit/wgs84"
)

// Homogeneous is a Table for a constant velocity half space with straight
// ray paths.  Velocities are in km/s; a phase with a velocity that is not
// positive is not returned.
type Homogeneous struct {
	Vp float64
	Vs float64
}

// Query implements Table.  Phases are returned in order of arrival.
func (h Homogeneous) Query(hypoLat, hypoLon, hypoDepthKm, recvLat, recvLon, recvElevKm float64, phases int) ([]Phase, error) {
	e, _, err := wgs84.DistanceBearing(hypoLat, hypoLon, recvLat, recvLon)
	if err != nil {
		return nil, err
	}

	z := hypoDepthKm + recvElevKm
	r := math.Sqrt(e*e + z*z)

	var p []Phase

	if h.Vp > 0 {
		p = append(p, Phase{Name: "P", Time: r / h.Vp})
	}

	if h.Vs > 0 {
		p = append(p, Phase{Name: "S", Time: r / h.Vs})
	}

	if len(p) == 2 && p[1].Time < p[0].Time {
		p[0], p[1] = p[1], p[0]
	}

	return p, nil
}
