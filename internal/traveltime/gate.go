// Package traveltime derives the P and S arrival window used to gate the
// vertical channel amplitude search.
package traveltime

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/GeoNet/kclass/internal/magnitude"
	"github.com/GeoNet/kit/wgs84"
)

var (
	ErrTravelTimeUnavailable = errors.New("no travel times available")
	ErrMissingPhase          = errors.New("missing P or S phase")
	ErrNoCoordinates         = errors.New("coordinates not available")
)

// FirstArrivals requests first arrivals only from a Table.
const FirstArrivals = 1

// Hypocenter is an event location.  Depth is in km.
type Hypocenter struct {
	Latitude  float64
	Longitude float64
	Depth     float64
	Time      time.Time
}

// Receiver is a station location.  Elevation is in m and may be unknown.
type Receiver struct {
	Latitude  float64
	Longitude float64
	Elevation *float64
}

// Phase is a travel time in seconds after the origin time.
type Phase struct {
	Name string
	Time float64
}

// Table is a source of travel times.
type Table interface {
	Query(hypoLat, hypoLon, hypoDepthKm, recvLat, recvLon, recvElevKm float64, phases int) ([]Phase, error)
}

// Window is the interval between the P and S arrivals.
type Window struct {
	P time.Time
	S time.Time
}

// Valid is true if S does not arrive before P.
func (w Window) Valid() bool {
	return !w.S.Before(w.P)
}

// Gate computes travel time windows using Table.
type Gate struct {
	Table Table
}

// Distance returns the epicentral distance in degrees and the azimuth from the
// hypocenter to the receiver.
func Distance(h Hypocenter, r Receiver) (distanceDeg, azimuth float64, err error) {
	for _, v := range []float64{h.Latitude, h.Longitude, r.Latitude, r.Longitude} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, ErrNoCoordinates
		}
	}

	km, az, err := wgs84.DistanceBearing(h.Latitude, h.Longitude, r.Latitude, r.Longitude)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrNoCoordinates, err)
	}

	return km / magnitude.KmOfDegree, az, nil
}

// Window queries the table and returns the P and S arrival times for h at r.
func (g Gate) Window(h Hypocenter, r Receiver) (Window, error) {
	if g.Table == nil {
		return Window{}, ErrTravelTimeUnavailable
	}

	var elev float64
	if r.Elevation != nil {
		elev = *r.Elevation / 1000.0
	}

	phases, err := g.Table.Query(h.Latitude, h.Longitude, h.Depth, r.Latitude, r.Longitude, elev, FirstArrivals)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrTravelTimeUnavailable, err)
	}

	if len(phases) == 0 {
		return Window{}, ErrTravelTimeUnavailable
	}

	var w Window
	var p, s bool

	for _, v := range phases {
		switch v.Name {
		case "P":
			if !p {
				w.P = h.Time.Add(seconds(v.Time))
				p = true
			}
		case "S":
			if !s {
				w.S = h.Time.Add(seconds(v.Time))
				s = true
			}
		}
	}

	if !p || !s {
		return Window{}, ErrMissingPhase
	}

	return w, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
