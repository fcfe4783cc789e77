// Package cfg reads the K-Class amplitude and magnitude settings.
package cfg

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/GeoNet/kclass/internal/magnitude"
	"github.com/gorilla/schema"
)

// prefixes are removed from setting names.
var prefixes = []string{"amplitudes.K_Class.", "magnitudes.K_Class."}

// Settings for K-Class amplitudes and magnitudes.  Durations are read as
// seconds or as Go durations e.g., 30 or 30s.
type Settings struct {
	MinimumDistance float64 `schema:"minimumDistance"` // degrees
	MaximumDistance float64 `schema:"maximumDistance"` // degrees
	MaximumDepth    float64 `schema:"maximumDepth"`    // km

	// Scale is the Mexican Hat wavelet scale in samples.  There is no default.
	Scale float64 `schema:"scale,required"`

	A  float64 `schema:"A"`
	A1 float64 `schema:"a1"`
	A2 float64 `schema:"a2"`
	A3 float64 `schema:"a3"`
	A4 float64 `schema:"a4"`
	B1 float64 `schema:"b1"`
	B2 float64 `schema:"b2"`
	B3 float64 `schema:"b3"`
	B4 float64 `schema:"b4"`
	L1 float64 `schema:"l1"` // km
	L2 float64 `schema:"l2"` // km
	L3 float64 `schema:"l3"` // km

	HorizontalWindow time.Duration `schema:"horizontalWindow"`
	NoiseBegin       time.Duration `schema:"noiseBegin"`
	NoiseEnd         time.Duration `schema:"noiseEnd"`

	FirstHorizontal  string `schema:"firstHorizontal"`
	SecondHorizontal string `schema:"secondHorizontal"`
	Vertical         string `schema:"vertical"`

	Vp float64 `schema:"vp"` // km/s
	Vs float64 `schema:"vs"` // km/s
}

// DefaultSettings returns Settings with the documented defaults.  Scale is not set.
func DefaultSettings() Settings {
	c := magnitude.DefaultCoefficients()

	return Settings{
		MinimumDistance:  c.MinimumDistance,
		MaximumDistance:  c.MaximumDistance,
		MaximumDepth:     c.MaximumDepth,
		A:                c.A,
		A1:               c.Slope[0],
		A2:               c.Slope[1],
		A3:               c.Slope[2],
		A4:               c.Slope[3],
		B1:               c.Offset[0],
		B2:               c.Offset[1],
		B3:               c.Offset[2],
		B4:               c.Offset[3],
		L1:               c.Breaks[0],
		L2:               c.Breaks[1],
		L3:               c.Breaks[2],
		HorizontalWindow: 30 * time.Second,
		NoiseBegin:       -35 * time.Second,
		NoiseEnd:         -5 * time.Second,
		FirstHorizontal:  "HHN",
		SecondHorizontal: "HHE",
		Vertical:         "HHZ",
		Vp:               6.3,
		Vs:               3.6,
	}
}

// Coefficients returns the attenuation law for s.
func (s Settings) Coefficients() magnitude.Coefficients {
	return magnitude.Coefficients{
		MinimumDistance: s.MinimumDistance,
		MaximumDistance: s.MaximumDistance,
		MaximumDepth:    s.MaximumDepth,
		A:               s.A,
		Slope:           [4]float64{s.A1, s.A2, s.A3, s.A4},
		Offset:          [4]float64{s.B1, s.B2, s.B3, s.B4},
		Breaks:          [3]float64{s.L1, s.L2, s.L3},
	}
}

// Codes returns the channel codes in channel order.
func (s Settings) Codes() [3]string {
	return [3]string{s.FirstHorizontal, s.SecondHorizontal, s.Vertical}
}

// Validate checks the settings that can't be corrected with a default.
func (s Settings) Validate() error {
	if !(s.Scale > 0) {
		return fmt.Errorf("scale must be positive got %g", s.Scale)
	}

	if s.HorizontalWindow <= 0 {
		return fmt.Errorf("horizontalWindow must be positive got %s", s.HorizontalWindow)
	}

	c := s.Codes()
	for i := range c {
		if c[i] == "" {
			return fmt.Errorf("empty channel code")
		}
		for j := i + 1; j < len(c); j++ {
			if c[i] == c[j] {
				return fmt.Errorf("duplicate channel code %s", c[i])
			}
		}
	}

	return s.Coefficients().Validate()
}

// ReadSettings returns Settings from a file of key = value lines.  See LoadSettings.
func ReadSettings(name string) (Settings, error) {
	f, err := os.Open(name)
	if err != nil {
		return DefaultSettings(), err
	}
	defer f.Close()

	return LoadSettings(f)
}

// LoadSettings returns Settings from key = value lines read from r.  Lines
// starting with # are ignored.  Settings not in r keep their default.  When a
// value can't be decoded the setting keeps its default and the error is returned
// along with the rest of the settings.
func LoadSettings(r io.Reader) (Settings, error) {
	s := DefaultSettings()

	v, err := values(r)
	if err != nil {
		return s, err
	}

	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.RegisterConverter(time.Duration(0), convertDuration)

	err = d.Decode(&s, v)
	if err != nil {
		return s, err
	}

	return s, s.Validate()
}

func values(r io.Reader) (url.Values, error) {
	v := url.Values{}

	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		k, val, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("expected key = value got %q", line)
		}

		k = strings.TrimSpace(k)
		for _, p := range prefixes {
			k = strings.TrimPrefix(k, p)
		}

		v.Set(k, strings.Trim(strings.TrimSpace(val), `"`))
	}

	return v, scanner.Err()
}

func convertDuration(s string) reflect.Value {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return reflect.ValueOf(time.Duration(f * float64(time.Second)))
	}

	if d, err := time.ParseDuration(s); err == nil {
		return reflect.ValueOf(d)
	}

	return reflect.Value{}
}
