package traveltime_test

import (
	"errors"
	"math"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/GeoNet/kclass/internal/traveltime"
)

type table struct {
	phases []traveltime.Phase
	err    error
	elev   float64
	depth  float64
}

func (t *table) Query(hypoLat, hypoLon, hypoDepthKm, recvLat, recvLon, recvElevKm float64, phases int) ([]traveltime.Phase, error) {
	t.elev = recvElevKm
	t.depth = hypoDepthKm
	return t.phases, t.err
}

func TestWindow(t *testing.T) {
	origin := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	h := traveltime.Hypocenter{Latitude: -41.2, Longitude: 174.7, Depth: 25, Time: origin}

	in := []struct {
		id     string
		phases []traveltime.Phase
		qerr   error
		err    error
		w      traveltime.Window
	}{
		{
			id:     loc(),
			phases: []traveltime.Phase{{Name: "P", Time: 10.5}, {Name: "S", Time: 18.25}},
			w: traveltime.Window{
				P: origin.Add(10500 * time.Millisecond),
				S: origin.Add(18250 * time.Millisecond),
			},
		},
		{
			id:     loc(),
			phases: []traveltime.Phase{{Name: "Pn", Time: 9}, {Name: "S", Time: 18}, {Name: "P", Time: 10}, {Name: "P", Time: 11}},
			w: traveltime.Window{
				P: origin.Add(10 * time.Second),
				S: origin.Add(18 * time.Second),
			},
		},
		{id: loc(), err: traveltime.ErrTravelTimeUnavailable},
		{id: loc(), qerr: errors.New("table offline"), err: traveltime.ErrTravelTimeUnavailable},
		{id: loc(), phases: []traveltime.Phase{{Name: "P", Time: 10}}, err: traveltime.ErrMissingPhase},
		{id: loc(), phases: []traveltime.Phase{{Name: "S", Time: 10}}, err: traveltime.ErrMissingPhase},
		{id: loc(), phases: []traveltime.Phase{{Name: "Pg", Time: 10}, {Name: "Sg", Time: 12}}, err: traveltime.ErrMissingPhase},
	}

	for _, v := range in {
		g := traveltime.Gate{Table: &table{phases: v.phases, err: v.qerr}}

		w, err := g.Window(h, traveltime.Receiver{Latitude: -41.3, Longitude: 174.8})
		if !errors.Is(err, v.err) {
			t.Errorf("%s expected error %v got %v", v.id, v.err, err)
			continue
		}

		if !w.P.Equal(v.w.P) || !w.S.Equal(v.w.S) {
			t.Errorf("%s expected window %v got %v", v.id, v.w, w)
		}
	}
}

func TestWindowElevation(t *testing.T) {
	tb := &table{phases: []traveltime.Phase{{Name: "P", Time: 1}, {Name: "S", Time: 2}}}
	g := traveltime.Gate{Table: tb}
	h := traveltime.Hypocenter{Latitude: -41.2, Longitude: 174.7, Depth: 12}

	if _, err := g.Window(h, traveltime.Receiver{Latitude: -41.3, Longitude: 174.8}); err != nil {
		t.Fatal(err)
	}

	if tb.elev != 0 {
		t.Errorf("expected elevation 0 got %g", tb.elev)
	}

	if tb.depth != 12 {
		t.Errorf("expected depth 12 got %g", tb.depth)
	}

	e := 350.0
	if _, err := g.Window(h, traveltime.Receiver{Latitude: -41.3, Longitude: 174.8, Elevation: &e}); err != nil {
		t.Fatal(err)
	}

	if tb.elev != 0.35 {
		t.Errorf("expected elevation 0.35 got %g", tb.elev)
	}
}

func TestWindowNoTable(t *testing.T) {
	var g traveltime.Gate

	if _, err := g.Window(traveltime.Hypocenter{}, traveltime.Receiver{}); !errors.Is(err, traveltime.ErrTravelTimeUnavailable) {
		t.Errorf("expected ErrTravelTimeUnavailable got %v", err)
	}
}

func TestWindowValid(t *testing.T) {
	now := time.Now()

	if !(traveltime.Window{P: now, S: now}).Valid() {
		t.Error("expected equal arrivals to be valid")
	}

	if (traveltime.Window{P: now, S: now.Add(-time.Second)}).Valid() {
		t.Error("expected S before P to be invalid")
	}
}

func TestDistance(t *testing.T) {
	d, _, err := traveltime.Distance(traveltime.Hypocenter{Latitude: 0, Longitude: 170}, traveltime.Receiver{Latitude: 1, Longitude: 170})
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(d-1.0) > 0.01 {
		t.Errorf("expected about 1 degree got %g", d)
	}

	d, _, err = traveltime.Distance(traveltime.Hypocenter{Latitude: -41, Longitude: 174}, traveltime.Receiver{Latitude: -41, Longitude: 174})
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(d) > 1e-9 {
		t.Errorf("expected 0 got %g", d)
	}

	_, _, err = traveltime.Distance(traveltime.Hypocenter{Latitude: math.NaN(), Longitude: 174}, traveltime.Receiver{Latitude: -41, Longitude: 174})
	if !errors.Is(err, traveltime.ErrNoCoordinates) {
		t.Errorf("expected ErrNoCoordinates got %v", err)
	}
}

func TestHomogeneous(t *testing.T) {
	h := traveltime.Homogeneous{Vp: 5.0, Vs: 2.5}

	p, err := h.Query(-41, 174, 10, -41, 174, 0.5, traveltime.FirstArrivals)
	if err != nil {
		t.Fatal(err)
	}

	if len(p) != 2 {
		t.Fatalf("expected 2 phases got %d", len(p))
	}

	if p[0].Name != "P" || math.Abs(p[0].Time-2.1) > 1e-9 {
		t.Errorf("expected P at 2.1 got %s at %g", p[0].Name, p[0].Time)
	}

	if p[1].Name != "S" || math.Abs(p[1].Time-4.2) > 1e-9 {
		t.Errorf("expected S at 4.2 got %s at %g", p[1].Name, p[1].Time)
	}

	p, err = traveltime.Homogeneous{Vp: 6}.Query(-41, 174, 10, -41, 174, 0, traveltime.FirstArrivals)
	if err != nil {
		t.Fatal(err)
	}

	if len(p) != 1 || p[0].Name != "P" {
		t.Errorf("expected only P got %v", p)
	}

	// a gate on the table gives S after P.
	o := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	w, err := traveltime.Gate{Table: h}.Window(traveltime.Hypocenter{Latitude: -41, Longitude: 174, Depth: 10, Time: o}, traveltime.Receiver{Latitude: -41.5, Longitude: 174.5})
	if err != nil {
		t.Fatal(err)
	}

	if !w.Valid() || !w.P.After(o) {
		t.Errorf("unexpected window %v", w)
	}
}

func loc() string {
	_, _, l, _ := runtime.Caller(1)
	return "L" + strconv.Itoa(l)
}
