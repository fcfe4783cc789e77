package main

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/GeoNet/kclass/internal/inventory"
	"github.com/GeoNet/kclass/internal/magnitude"
	"github.com/GeoNet/kclass/internal/platform/cfg"
	"github.com/GeoNet/kclass/internal/station"
	"github.com/GeoNet/kclass/internal/traveltime"
	"github.com/GeoNet/kclass/internal/valid"
	"github.com/GeoNet/kclass/internal/waveform"
	dbcfg "github.com/GeoNet/kit/cfg"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
)

// app is for shared application resources
type app struct {
	ctx      context.Context
	db       *sql.DB
	settings cfg.Settings
	clock    clockwork.Clock
	streams  inventory.Cache

	mu         sync.Mutex
	processors map[string]*station.Processor
	missing    map[string]time.Time

	magnitudes chan station.Magnitude
}

func (a *app) initDB() error {
	p, err := dbcfg.PostgresEnv()
	if err != nil {
		return errors.Wrap(err, "error reading DB config from the environment vars")
	}

	a.db, err = sql.Open("postgres", p.Connection())
	if err != nil {
		return errors.Wrap(err, "error with DB config")
	}

	a.db.SetMaxIdleConns(p.MaxIdle)
	a.db.SetMaxOpenConns(p.MaxOpen)

	for {
		err = a.db.Ping()
		if err != nil {
			log.Printf("error pinging a.db, waiting and trying again: %s", err.Error())
			time.Sleep(time.Second * 20)
			continue
		}
		break
	}

	a.streams = inventory.InitCache("kclass", 10<<20, time.Hour, inventory.DBSource(a.db))
	a.processors = make(map[string]*station.Processor)
	a.missing = make(map[string]time.Time)
	a.magnitudes = make(chan station.Magnitude, 1000)

	return nil
}

// Process implements metrics.Processor for a miniSEED record.
func (a *app) Process(b []byte) error {
	r, err := waveform.Decode(b)
	if err != nil {
		return errors.Wrap(err, "decoding record")
	}

	err = valid.Stream(r.Network, r.Station, r.Location, r.Channel)
	if err != nil {
		return err
	}

	p, err := a.processor(r.Network, r.Station, r.Location)
	if err != nil {
		return err
	}

	if p == nil {
		return nil
	}

	p.Feed(r)

	return nil
}

// processor returns the processor for a station location code, creating it if needed.
// A nil processor is returned for stations without the streams to make a magnitude.
func (a *app) processor(network, sta, location string) (*station.Processor, error) {
	key := network + "_" + sta + "_" + location

	a.mu.Lock()
	defer a.mu.Unlock()

	if p, ok := a.processors[key]; ok {
		return p, nil
	}

	// don't look up stations without metadata on every record.
	if t, ok := a.missing[key]; ok && a.clock.Since(t) < time.Hour {
		return nil, nil
	}

	s, err := a.streams.Station(network, sta, location)
	if err != nil {
		return nil, errors.Wrapf(err, "reading streams for %s", key)
	}

	p, err := station.NewProcessor(s, station.Config{
		Settings: a.settings,
		Model:    a.settings.Coefficients(),
		Table:    traveltime.Homogeneous{Vp: a.settings.Vp, Vs: a.settings.Vs},
		Buffer:   bufferFor,
		Deadline: deadline,
	}, a.clock, a.publish)
	if err != nil {
		log.Printf("not processing %s: %s", key, err)
		a.missing[key] = a.clock.Now()
		return nil, nil
	}

	a.processors[key] = p

	go p.Run(a.ctx)

	return p, nil
}

// publish is called with the processor locked so the DB work happens in save.
func (a *app) publish(m station.Magnitude) {
	select {
	case a.magnitudes <- m:
	default:
		log.Printf("magnitudes chan full, dropping %s %s_%s_%s", m.PublicID, m.Network, m.Station, m.Location)
	}
}

// poll reads events modified since since and starts a cycle for them at every station.
func (a *app) poll(ctx context.Context, since time.Time) {
	ticker := a.clock.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			e, last, err := a.events(since)
			if err != nil {
				log.Printf("reading events: %s", err)
				continue
			}

			since = last

			for _, v := range e {
				a.start(v)
			}
		}
	}
}

func (a *app) start(e station.Event) {
	a.mu.Lock()
	p := make([]*station.Processor, 0, len(a.processors))
	for _, v := range a.processors {
		p = append(p, v)
	}
	a.mu.Unlock()

	log.Printf("starting cycles for %s at %d stations", e.PublicID, len(p))

	for _, v := range p {
		v.Start(e)
	}
}

// events returns events modified after since that still have data in the record buffers.
func (a *app) events(since time.Time) ([]station.Event, time.Time, error) {
	rows, err := a.db.Query(`SELECT PublicID, ModificationTime, OriginTime, Latitude, Longitude, Depth
	FROM fdsn.event
	WHERE ModificationTime > $1
	AND Deleted != true
	ORDER BY ModificationTime`, since)
	if err != nil {
		return nil, since, err
	}
	defer rows.Close()

	var e []station.Event
	last := since

	for rows.Next() {
		var v station.Event
		var modified time.Time

		err = rows.Scan(&v.PublicID, &modified, &v.Hypocenter.Time, &v.Hypocenter.Latitude, &v.Hypocenter.Longitude, &v.Hypocenter.Depth)
		if err != nil {
			return nil, since, err
		}

		if modified.After(last) {
			last = modified
		}

		if err := valid.PublicID(v.PublicID); err != nil {
			log.Printf("skipping event: %s", err)
			continue
		}

		h := v.Hypocenter
		if err := valid.Hypocenter(h.Latitude, h.Longitude, h.Depth); err != nil {
			log.Printf("skipping event %s: %s", v.PublicID, err)
			continue
		}

		if a.clock.Since(h.Time) > bufferFor {
			continue
		}

		e = append(e, v)
	}

	return e, last, rows.Err()
}

// save saves magnitudes to the DB until ctx is done.
func (a *app) save(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-a.magnitudes:
			if m.Estimate.Status != magnitude.OK {
				log.Printf("%s %s_%s_%s no magnitude: %s", m.PublicID, m.Network, m.Station, m.Location, m.Estimate.Status)
				continue
			}

			for {
				err := a.saveMagnitude(m)
				if err != nil {
					log.Printf("error saving magnitude sleeping and trying again: %s", err)
					time.Sleep(time.Second * 10)
					continue
				}
				break
			}

			log.Printf("%s %s_%s_%s %s %.2f", m.PublicID, m.Network, m.Station, m.Location, magnitude.Type, m.Estimate.Value)
		}
	}
}

func (a *app) close() {
	a.db.Close()
}
