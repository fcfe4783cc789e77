// Package valid checks identifiers and coordinates before they are used for a magnitude.
package valid

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

var (
	pid      = regexp.MustCompile(`^[0-9]+[a-z]?[0-9]+$`) // quake public ids are of the form 2013p407387 or a number e.g., 345679
	network  = regexp.MustCompile(`^[A-Z0-9]{1,2}$`)
	station  = regexp.MustCompile(`^[A-Z0-9]{1,5}$`)
	location = regexp.MustCompile(`^[A-Z0-9]{0,2}$`)
	channel  = regexp.MustCompile(`^[A-Z0-9]{3}$`)
)

type Validator func(string) error

// Error is a validation failure for a named field.
type Error struct {
	Field string
	Err   error
}

func (s Error) Error() string {
	if s.Err == nil {
		return "<nil>"
	}
	return s.Field + ": " + s.Err.Error()
}

func (s Error) Unwrap() error {
	return s.Err
}

func match(field string, re *regexp.Regexp) Validator {
	return func(s string) error {
		if re.MatchString(s) {
			return nil
		}
		return Error{Field: field, Err: fmt.Errorf("invalid value: %q", s)}
	}
}

// PublicID for validating quake publicIDs
var PublicID = match("publicID", pid)

// Network, Station, Location, and Channel validate SEED stream codes.
var (
	Network  = match("network", network)
	Station  = match("station", station)
	Location = match("location", location)
	Channel  = match("channel", channel)
)

func number(field string, min, max float64) Validator {
	return func(s string) error {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Error{Field: field, Err: err}
		}

		if math.IsNaN(f) || f < min || f > max {
			return Error{Field: field, Err: fmt.Errorf("%g outside %g to %g", f, min, max)}
		}

		return nil
	}
}

var (
	Latitude  = number("latitude", -90, 90)
	Longitude = number("longitude", -180, 360)
	Depth     = number("depth", -10, 800)
)

// Stream validates the codes of a stream.
func Stream(net, sta, loc, cha string) error {
	for _, v := range []struct {
		fn Validator
		s  string
	}{
		{fn: Network, s: net},
		{fn: Station, s: sta},
		{fn: Location, s: loc},
		{fn: Channel, s: cha},
	} {
		if err := v.fn(v.s); err != nil {
			return err
		}
	}

	return nil
}

// Hypocenter validates a location.  Depth is in km.
func Hypocenter(lat, lon, depth float64) error {
	for _, v := range []struct {
		fn Validator
		f  float64
	}{
		{fn: Latitude, f: lat},
		{fn: Longitude, f: lon},
		{fn: Depth, f: depth},
	} {
		if err := v.fn(strconv.FormatFloat(v.f, 'g', -1, 64)); err != nil {
			return err
		}
	}

	return nil
}
