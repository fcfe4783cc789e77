// waveform is for decoding miniSEED records into sample records.
package waveform

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/GeoNet/kit/seis/ms"
)

// the record length of the miniSEED records.  Constant for all GNS miniSEED files.
const recordLength int = 512

// Record is a contiguous block of samples from a single stream.
type Record struct {
	Network, Station, Location, Channel string
	Start                               time.Time // time of the first sample.
	SampleRate                          float64   // samples per second.
	Samples                             []float64
}

// Decode unpacks a single miniSEED record.
func Decode(b []byte) (Record, error) {
	m, err := ms.NewRecord(b)
	if err != nil {
		return Record{}, err
	}

	samples, err := m.Float64s()
	if err != nil {
		return Record{}, fmt.Errorf("%s_%s_%s_%s: sample problem %w", m.Network(), m.Station(), m.Location(), m.Channel(), err)
	}

	return Record{
		Network:    strings.Trim(m.Network(), "\x00"),
		Station:    strings.Trim(m.Station(), "\x00"),
		Location:   strings.Trim(m.Location(), "\x00"),
		Channel:    strings.Trim(m.Channel(), "\x00"),
		Start:      m.StartTime(),
		SampleRate: m.SampleRate(),
		Samples:    samples,
	}, nil
}

// ReadRecords reads miniSEED from r in 512 byte records.
// Records that are not waveform data (e.g. log channels) are skipped.
func ReadRecords(r io.Reader) ([]Record, error) {
	var recs []Record

	buf := make([]byte, recordLength)

	for {
		// a non nil error can be the end of the Reader (EOF),
		// a short record or some other error.
		_, err := io.ReadFull(r, buf)
		switch {
		case err == io.EOF:
			return recs, nil
		case err != nil:
			return nil, err
		}

		rec, err := Decode(buf)
		if err != nil {
			return nil, err
		}

		if rec.SampleRate <= 0 || len(rec.Samples) == 0 {
			continue
		}

		recs = append(recs, rec)
	}
}

// SrcName returns the stream identifier in the form NET_STA_LOC_CHA.
func (r Record) SrcName() string {
	return strings.Join([]string{r.Network, r.Station, r.Location, r.Channel}, "_")
}

// StationKey identifies the station the record belongs to, NET_STA_LOC.
func (r Record) StationKey() string {
	return strings.Join([]string{r.Network, r.Station, r.Location}, "_")
}

// End returns the time of the last sample.
func (r Record) End() time.Time {
	if len(r.Samples) == 0 {
		return r.Start
	}
	return r.Start.Add(time.Duration(float64(len(r.Samples)-1) / r.SampleRate * float64(time.Second)))
}

// Follows returns true if r starts one sample period after the end of p,
// within half a sample, and has the same sample rate.
func (r Record) Follows(p Record) bool {
	if r.SampleRate != p.SampleRate || r.SampleRate <= 0 {
		return false
	}

	d := r.Start.Sub(p.End()).Seconds()

	return math.Abs(d-1.0/r.SampleRate) <= 0.5/r.SampleRate
}
