package magnitude_test

import (
	"math"
	"runtime"
	"strconv"
	"testing"

	"github.com/GeoNet/kclass/internal/magnitude"
)

const tolerance = 1e-9

func TestComputeNonPositiveAmplitude(t *testing.T) {
	c := magnitude.DefaultCoefficients()

	for _, amp := range []float64{0, -1, -1e-12, math.Inf(-1), math.Inf(1), math.NaN()} {
		for _, dist := range []float64{0, 1, 7.5, 15} {
			for _, depth := range []float64{0, 10, 180} {
				m := magnitude.Compute(amp, dist, depth, c)
				if m.Status != magnitude.Error || m.Value != 0 {
					t.Errorf("amplitude %g dist %g depth %g: expected Error and 0 got %s %g", amp, dist, depth, m.Status, m.Value)
				}
			}
		}
	}
}

func TestComputeRanges(t *testing.T) {
	c := magnitude.DefaultCoefficients()
	c.MinimumDistance = 0.5

	in := []struct {
		id               string
		amp, dist, depth float64
		status           magnitude.Status
	}{
		{id: loc(), amp: 10, dist: 0.4, depth: 10, status: magnitude.DistanceOutOfRange},
		{id: loc(), amp: 10, dist: 15.01, depth: 10, status: magnitude.DistanceOutOfRange},
		{id: loc(), amp: 10, dist: 20, depth: 200, status: magnitude.DistanceOutOfRange},
		{id: loc(), amp: -1, dist: 20, depth: 10, status: magnitude.DistanceOutOfRange},
		{id: loc(), amp: 10, dist: 1, depth: 180.5, status: magnitude.DepthOutOfRange},
		{id: loc(), amp: 0, dist: 1, depth: 180.5, status: magnitude.DepthOutOfRange},
		{id: loc(), amp: 10, dist: math.NaN(), depth: 10, status: magnitude.DistanceOutOfRange},
		{id: loc(), amp: 10, dist: math.Inf(1), depth: 10, status: magnitude.DistanceOutOfRange},
		{id: loc(), amp: 10, dist: 1, depth: math.NaN(), status: magnitude.DepthOutOfRange},
		{id: loc(), amp: 10, dist: 1, depth: math.Inf(1), status: magnitude.DepthOutOfRange},
		{id: loc(), amp: 10, dist: 0.5, depth: 180, status: magnitude.OK},
		{id: loc(), amp: 10, dist: 15, depth: 0, status: magnitude.OK},
	}

	for _, v := range in {
		m := magnitude.Compute(v.amp, v.dist, v.depth, c)
		if m.Status != v.status {
			t.Errorf("%s expected status %s got %s", v.id, v.status, m.Status)
		}
		if v.status != magnitude.OK && m.Value != 0 {
			t.Errorf("%s expected zero value got %g", v.id, m.Value)
		}
		if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
			t.Errorf("%s expected a finite value got %g", v.id, m.Value)
		}
	}
}

func TestSegmentFor(t *testing.T) {
	c := magnitude.DefaultCoefficients()

	in := []struct {
		id  string
		r   float64
		exp int
	}{
		{id: loc(), r: 1, exp: 1},
		{id: loc(), r: 75, exp: 1},
		{id: loc(), r: 75.000001, exp: 2},
		{id: loc(), r: 264, exp: 2},
		{id: loc(), r: 264.5, exp: 3},
		{id: loc(), r: 800, exp: 3},
		{id: loc(), r: 800.1, exp: 4},
	}

	for _, v := range in {
		if got := c.SegmentFor(v.r); got != v.exp {
			t.Errorf("%s expected segment %d got %d", v.id, v.exp, got)
		}
	}
}

// at exactly l1 the first segment applies.
func TestComputeBoundary(t *testing.T) {
	c := magnitude.DefaultCoefficients()

	m := magnitude.Compute(100, 0, 75, c)
	if m.Status != magnitude.OK {
		t.Fatalf("unexpected status %s", m.Status)
	}

	exp := 1.84 * (math.Log10(100) + 2.11*math.Log10(75) + 1.32)
	if math.Abs(m.Value-exp) > tolerance {
		t.Errorf("expected %g got %g", exp, m.Value)
	}

	m = magnitude.Compute(100, 0, 75.5, c)

	exp = 1.84 * (math.Log10(100) + 1.1*math.Log10(75.5) + 3.21)
	if math.Abs(m.Value-exp) > tolerance {
		t.Errorf("expected %g got %g", exp, m.Value)
	}
}

func TestComputeScenario(t *testing.T) {
	c := magnitude.DefaultCoefficients()

	in := []struct {
		id               string
		amp, dist, depth float64
	}{
		{id: loc(), amp: 50, dist: 5, depth: 20},
		{id: loc(), amp: 50, dist: 0.5, depth: 10},
		{id: loc(), amp: 1234, dist: 2, depth: 33},
		{id: loc(), amp: 0.7, dist: 12, depth: 100},
	}

	for _, v := range in {
		r := math.Sqrt(math.Pow(magnitude.Deg2Km(v.dist), 2) + v.depth*v.depth)

		var a, b float64
		switch {
		case r <= 75:
			a, b = 2.11, 1.32
		case r <= 264:
			a, b = 1.1, 3.21
		case r <= 800:
			a, b = 2.98, -1.34
		default:
			a, b = 0.0, 8.0
		}

		exp := 1.84 * (math.Log10(v.amp) + a*math.Log10(r) + b)

		m := magnitude.Compute(v.amp, v.dist, v.depth, c)
		if m.Status != magnitude.OK {
			t.Errorf("%s unexpected status %s", v.id, m.Status)
			continue
		}

		if math.Abs(m.Value-exp) > tolerance {
			t.Errorf("%s expected %g got %g", v.id, exp, m.Value)
		}

		if e := c.Estimate(v.amp, v.dist, v.depth); e != m {
			t.Errorf("%s Estimate and Compute differ: %+v %+v", v.id, e, m)
		}
	}
}

func TestHypocentralDistance(t *testing.T) {
	if r := magnitude.HypocentralDistance(0, 20); r != 20 {
		t.Errorf("expected 20 got %g", r)
	}

	if r := magnitude.HypocentralDistance(1, 0); math.Abs(r-111.19492664455873) > 1e-9 {
		t.Errorf("expected 111.19492664455873 got %g", r)
	}

	if d := magnitude.Deg2Km(3.3); math.Abs(d-3.3*magnitude.KmOfDegree) > 1e-9 {
		t.Errorf("expected %g got %g", 3.3*magnitude.KmOfDegree, d)
	}
}

func TestValidate(t *testing.T) {
	c := magnitude.DefaultCoefficients()
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error %s", err)
	}

	c.Breaks[1] = 70
	if err := c.Validate(); err == nil {
		t.Error("expected error for descending breakpoints")
	}

	c = magnitude.DefaultCoefficients()
	c.MinimumDistance = 20
	if err := c.Validate(); err == nil {
		t.Error("expected error for inverted distance range")
	}
}

func TestSegment(t *testing.T) {
	c := magnitude.DefaultCoefficients()

	if a, b := c.Segment(3); a != 2.98 || b != -1.34 {
		t.Errorf("expected 2.98 -1.34 got %g %g", a, b)
	}

	if a, _ := c.Segment(5); !math.IsNaN(a) {
		t.Errorf("expected NaN for unknown segment got %g", a)
	}
}

func loc() string {
	_, _, l, _ := runtime.Caller(1)
	return "L" + strconv.Itoa(l)
}
