// kclass computes a K-Class station magnitude for one event from miniSEED files.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/GeoNet/kclass/internal/inventory"
	"github.com/GeoNet/kclass/internal/magnitude"
	"github.com/GeoNet/kclass/internal/platform/cfg"
	"github.com/GeoNet/kclass/internal/station"
	"github.com/GeoNet/kclass/internal/traveltime"
	"github.com/GeoNet/kclass/internal/valid"
	"github.com/GeoNet/kclass/internal/waveform"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
)

var (
	settingsFile string
	publicID     string
	origin       string
	latitude     float64
	longitude    float64
	depth        float64
	staLatitude  float64
	staLongitude float64
	elevation    float64
	gains        string
)

func init() {
	flag.StringVar(&settingsFile, "settings", "", "K-Class settings file.")
	flag.StringVar(&publicID, "id", "", "event public id.")
	flag.StringVar(&origin, "origin", "", "event origin time (RFC3339).")
	flag.Float64Var(&latitude, "lat", math.NaN(), "event latitude.")
	flag.Float64Var(&longitude, "lon", math.NaN(), "event longitude.")
	flag.Float64Var(&depth, "depth", 0, "event depth (km).")
	flag.Float64Var(&staLatitude, "sta-lat", math.NaN(), "station latitude.")
	flag.Float64Var(&staLongitude, "sta-lon", math.NaN(), "station longitude.")
	flag.Float64Var(&elevation, "elevation", math.NaN(), "station elevation (m), optional.")
	flag.StringVar(&gains, "gains", "", "comma separated gains for the first horizontal, second horizontal, and vertical channels.")
}

func main() {
	flag.Parse()

	if settingsFile == "" || flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] file.mseed...\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	m, err := run(flag.Args())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%s %s_%s_%s %s %.2f %s amplitude=%g distance=%.3f depth=%.1f\n",
		m.PublicID, m.Network, m.Station, m.Location, magnitude.Type, m.Estimate.Value, m.Estimate.Status,
		m.Amplitude.Value.Value, m.Distance, m.Depth)
}

func run(files []string) (station.Magnitude, error) {
	s, err := cfg.ReadSettings(settingsFile)
	if err != nil {
		return station.Magnitude{}, errors.Wrapf(err, "reading settings %s", settingsFile)
	}

	if err = valid.PublicID(publicID); err != nil {
		return station.Magnitude{}, err
	}

	if err = valid.Hypocenter(latitude, longitude, depth); err != nil {
		return station.Magnitude{}, err
	}

	t, err := time.Parse(time.RFC3339Nano, origin)
	if err != nil {
		return station.Magnitude{}, errors.Wrap(err, "parsing origin time")
	}

	g, err := parseGains(gains)
	if err != nil {
		return station.Magnitude{}, err
	}

	records, err := readFiles(files)
	if err != nil {
		return station.Magnitude{}, err
	}

	if len(records) == 0 {
		return station.Magnitude{}, errors.New("no records")
	}

	r := records[0]

	var e *float64
	if !math.IsNaN(elevation) {
		e = &elevation
	}

	var streams []inventory.Stream
	for i, c := range s.Codes() {
		streams = append(streams, inventory.Stream{
			Network:   r.Network,
			Station:   r.Station,
			Location:  r.Location,
			Channel:   c,
			Latitude:  staLatitude,
			Longitude: staLongitude,
			Elevation: e,
			Gain:      g[i],
		})
	}

	var out []station.Magnitude

	p, err := station.NewProcessor(streams, station.Config{
		Settings: s,
		Model:    s.Coefficients(),
		Table:    traveltime.Homogeneous{Vp: s.Vp, Vs: s.Vs},
		Buffer:   24 * time.Hour,
	}, clockwork.NewRealClock(), func(m station.Magnitude) { out = append(out, m) })
	if err != nil {
		return station.Magnitude{}, err
	}

	for _, v := range records {
		p.Feed(v)
	}

	status := p.Start(station.Event{
		PublicID: publicID,
		Hypocenter: traveltime.Hypocenter{
			Latitude:  latitude,
			Longitude: longitude,
			Depth:     depth,
			Time:      t,
		},
	})

	if len(out) == 0 {
		return station.Magnitude{}, errors.Errorf("no amplitude for %s: %s", p.Key(), status)
	}

	return out[0], nil
}

func parseGains(s string) ([3]float64, error) {
	var g [3]float64

	p := strings.Split(s, ",")
	if len(p) != 3 {
		return g, errors.Errorf("expected 3 gains got %d", len(p))
	}

	for i := range p {
		var err error

		g[i], err = strconv.ParseFloat(strings.TrimSpace(p[i]), 64)
		if err != nil {
			return g, errors.Wrapf(err, "parsing gain %q", p[i])
		}
	}

	return g, nil
}

// readFiles returns the records for the first station location in the files
// sorted by start time.
func readFiles(files []string) ([]waveform.Record, error) {
	var records []waveform.Record

	for _, f := range files {
		in, err := os.Open(f)
		if err != nil {
			return nil, err
		}

		r, err := waveform.ReadRecords(in)
		in.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", f)
		}

		records = append(records, r...)
	}

	if len(records) == 0 {
		return nil, nil
	}

	key := records[0].StationKey()

	var s []waveform.Record
	for _, v := range records {
		if v.StationKey() == key {
			s = append(s, v)
		}
	}

	sort.SliceStable(s, func(i, j int) bool { return s[i].Start.Before(s[j].Start) })

	return s, nil
}
