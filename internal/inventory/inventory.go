// Package inventory provides a RAM cache of stream metadata for the stations
// amplitudes are measured at.
package inventory

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/GeoNet/kclass/internal/traveltime"
	"github.com/golang/groupcache"
	"github.com/vmihailenco/msgpack/v5"
)

var ErrNotFound = errors.New("stream not found")

// Stream is the metadata for one channel.  Elevation is in m and may be unknown.
// Gain converts physical units to counts.
type Stream struct {
	Network   string   `msgpack:"n"`
	Station   string   `msgpack:"s"`
	Location  string   `msgpack:"l"`
	Channel   string   `msgpack:"c"`
	Latitude  float64  `msgpack:"lat"`
	Longitude float64  `msgpack:"lon"`
	Elevation *float64 `msgpack:"elev,omitempty"`
	Gain      float64  `msgpack:"gain"`
}

// Receiver returns the location of s.
func (s Stream) Receiver() traveltime.Receiver {
	return traveltime.Receiver{
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Elevation: s.Elevation,
	}
}

// A SourceFunc returns the streams for a station location code.
type SourceFunc func(network, station, location string) ([]Stream, error)

type Cache struct {
	source  SourceFunc
	streams *groupcache.Group

	// buster and t limit the time streams are cached for.
	buster *int64
	t      <-chan time.Time
}

// InitCache returns a Cache ready for use.  size is the max size of the RAM cache.
// Streams are cached for a max duration d.
func InitCache(name string, size int64, d time.Duration, s SourceFunc) Cache {
	c := Cache{
		source: s,
		buster: new(int64),
		t:      time.NewTicker(d).C,
	}

	c.streams = groupcache.NewGroup(name+"streams", size, groupcache.GetterFunc(c.streamsGetter))

	go func() {
		for range c.t {
			atomic.AddInt64(c.buster, 1)
		}
	}()

	return c
}

// Station returns the streams for a station location code.
func (c *Cache) Station(network, station, location string) ([]Stream, error) {
	var b []byte

	err := c.streams.Get(nil, toKey(network, station, location, atomic.LoadInt64(c.buster)), groupcache.AllocatingByteSliceSink(&b))
	if err != nil {
		return nil, err
	}

	var s []Stream

	err = msgpack.Unmarshal(b, &s)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Stream returns the metadata for one channel.
func (c *Cache) Stream(network, station, location, channel string) (Stream, error) {
	s, err := c.Station(network, station, location)
	if err != nil {
		return Stream{}, err
	}

	for _, v := range s {
		if v.Channel == channel {
			return v, nil
		}
	}

	return Stream{}, fmt.Errorf("%s_%s_%s_%s: %w", network, station, location, channel, ErrNotFound)
}

func (c *Cache) streamsGetter(ctx groupcache.Context, key string, dest groupcache.Sink) error {
	n, s, l, err := fromKey(key)
	if err != nil {
		return err
	}

	st, err := c.source(n, s, l)
	if err != nil {
		return err
	}

	b, err := msgpack.Marshal(st)
	if err != nil {
		return err
	}

	return dest.SetBytes(b)
}

func toKey(network, station, location string, b int64) string {
	return fmt.Sprintf("%s_%s_%s_%d", network, station, location, b)
}

func fromKey(key string) (network, station, location string, err error) {
	p := strings.Split(key, "_")

	if len(p) != 4 {
		err = fmt.Errorf("splitting key expected 4 parts got %d", len(p))
		return
	}

	return p[0], p[1], p[2], nil
}

// DBSource returns a SourceFunc that reads streams from the kclass.stream table.
func DBSource(db *sql.DB) SourceFunc {
	return func(network, station, location string) ([]Stream, error) {
		rows, err := db.Query(`SELECT channel, latitude, longitude, elevation, gain FROM kclass.stream
			WHERE network = $1 AND station = $2 AND location = $3 ORDER BY channel`, network, station, location)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var s []Stream

		for rows.Next() {
			v := Stream{Network: network, Station: station, Location: location}
			var elev sql.NullFloat64

			err = rows.Scan(&v.Channel, &v.Latitude, &v.Longitude, &elev, &v.Gain)
			if err != nil {
				return nil, err
			}

			if elev.Valid {
				e := elev.Float64
				v.Elevation = &e
			}

			s = append(s, v)
		}

		return s, rows.Err()
	}
}
