// Package station runs K-Class amplitude cycles for events at a single station
// and converts the composite amplitudes into station magnitudes.
package station

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/GeoNet/kclass/internal/amplitude"
	"github.com/GeoNet/kclass/internal/inventory"
	"github.com/GeoNet/kclass/internal/magnitude"
	"github.com/GeoNet/kclass/internal/platform/cfg"
	"github.com/GeoNet/kclass/internal/platform/metrics"
	"github.com/GeoNet/kclass/internal/traveltime"
	"github.com/GeoNet/kclass/internal/waveform"
	"github.com/jonboulle/clockwork"
)

var ErrMissingStream = errors.New("missing stream")

// Event is an origin to measure a magnitude for.
type Event struct {
	PublicID   string
	Hypocenter traveltime.Hypocenter
}

// Magnitude is the station magnitude for an event.
type Magnitude struct {
	PublicID  string
	Network   string
	Station   string
	Location  string
	Amplitude amplitude.Composite
	Distance  float64 // degrees
	Depth     float64 // km
	Estimate  magnitude.Estimate
}

// Config for a Processor.
type Config struct {
	Settings cfg.Settings
	Model    magnitude.Model
	Table    traveltime.Table

	// Buffer is how long records are kept for replay into a new cycle.
	Buffer time.Duration

	// Deadline is how long a cycle can run before the watchdog resets it.
	Deadline time.Duration
}

// Processor measures amplitudes at one station location.  It is safe for concurrent use.
type Processor struct {
	mu sync.Mutex

	network, station, location string

	cfg      Config
	clock    clockwork.Clock
	receiver traveltime.Receiver
	coord    *amplitude.Coordinator
	codes    map[string]bool

	history []waveform.Record

	event   *Event
	started time.Time
	done    bool

	out func(Magnitude)
}

// NewProcessor returns a Processor for the station location the streams are for.
// Streams must include the channel codes in the settings.  out is called for
// each finished cycle.
func NewProcessor(streams []inventory.Stream, c Config, clock clockwork.Clock, out func(Magnitude)) (*Processor, error) {
	if len(streams) == 0 {
		return nil, ErrMissingStream
	}

	p := &Processor{
		network:  streams[0].Network,
		station:  streams[0].Station,
		location: streams[0].Location,
		cfg:      c,
		clock:    clock,
		receiver: streams[0].Receiver(),
		codes:    make(map[string]bool),
		out:      out,
	}

	var ac [3]amplitude.Config

	for i, code := range c.Settings.Codes() {
		var found bool

		for _, s := range streams {
			if s.Channel == code {
				ac[i] = p.amplitudeConfig(code, s.Gain)
				found = true
				break
			}
		}

		if !found {
			return nil, fmt.Errorf("%s_%s_%s_%s: %w", p.network, p.station, p.location, code, ErrMissingStream)
		}

		p.codes[code] = true
	}

	p.coord = amplitude.NewCoordinator(ac[0], ac[1], ac[2], p.publish)

	return p, nil
}

func (p *Processor) amplitudeConfig(code string, gain float64) amplitude.Config {
	s := p.cfg.Settings

	return amplitude.Config{
		Code:             code,
		Gain:             gain,
		Scale:            s.Scale,
		HorizontalWindow: s.HorizontalWindow,
		NoiseBegin:       s.NoiseBegin,
		NoiseEnd:         s.NoiseEnd,
		MinimumDistance:  s.MinimumDistance,
		MaximumDistance:  s.MaximumDistance,
		MaximumDepth:     s.MaximumDepth,
		Gate:             traveltime.Gate{Table: p.cfg.Table},
	}
}

// Key is NET_STA_LOC for the station location.
func (p *Processor) Key() string {
	return p.network + "_" + p.station + "_" + p.location
}

// Active is true while a cycle is running.
func (p *Processor) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.event != nil
}

// Start begins a cycle for e.  A running cycle is abandoned.  Buffered records
// are replayed into the new cycle.
func (p *Processor) Start(e Event) amplitude.Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.event != nil {
		log.Printf("%s abandoning cycle for %s, starting %s", p.Key(), p.event.PublicID, e.PublicID)
		p.reset()
	}

	p.event = &e
	p.started = p.clock.Now()
	metrics.CycleStart()

	h := e.Hypocenter
	r := p.receiver

	// horizontal windows are centred on the S arrival.
	trigger := h.Time
	if w, err := (traveltime.Gate{Table: p.cfg.Table}).Window(h, r); err == nil {
		trigger = w.S
	}

	p.coord.Start(trigger, &h, &r)

	for _, v := range p.history {
		if p.done || p.coord.Status().Terminal() {
			break
		}
		p.coord.Feed(v)
	}

	return p.finish()
}

// Feed buffers r and feeds it to a running cycle.  It returns false for records
// that are not for a configured channel at this station location.
func (p *Processor) Feed(r waveform.Record) bool {
	if r.StationKey() != p.Key() || !p.codes[r.Channel] {
		metrics.Rejected()
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.buffer(r)

	if p.event != nil {
		p.coord.Feed(r)
		p.finish()
	}

	return true
}

// buffer adds r to the history and drops records ending before the buffer duration.
func (p *Processor) buffer(r waveform.Record) {
	p.history = append(p.history, r)

	cut := r.End().Add(-p.cfg.Buffer)

	var i int
	for i < len(p.history) && p.history[i].End().Before(cut) {
		i++
	}

	p.history = p.history[i:]
}

// publish is called by the coordinator with p.mu held.
func (p *Processor) publish(a amplitude.Composite) {
	if p.event == nil {
		return
	}

	h := p.event.Hypocenter

	m := Magnitude{
		PublicID:  p.event.PublicID,
		Network:   p.network,
		Station:   p.station,
		Location:  p.location,
		Amplitude: a,
		Depth:     h.Depth,
	}

	d, _, err := traveltime.Distance(h, p.receiver)
	switch err {
	case nil:
		m.Distance = d
		m.Estimate = p.cfg.Model.Estimate(a.Value.Value, d, h.Depth)
	default:
		m.Estimate = magnitude.Estimate{Status: magnitude.Error}
	}

	if m.Estimate.Status == magnitude.OK {
		metrics.Magnitude()
	}

	p.done = true

	if p.out != nil {
		p.out(m)
	}
}

// finish ends the cycle once it is terminal.
func (p *Processor) finish() amplitude.Status {
	s := p.coord.Status()

	switch {
	case s == amplitude.Finished:
		metrics.CycleFinish()
	case s.IsError():
		log.Printf("%s cycle for %s: %s", p.Key(), p.event.PublicID, s.Err())
		metrics.CycleErr()
	default:
		return s
	}

	_ = metrics.Track("cycle", p.clock.Since(p.started))

	p.reset()

	return s
}

func (p *Processor) reset() {
	p.coord.Reset()
	p.event = nil
	p.done = false
}

// Expire resets a cycle that has run for longer than the deadline.  It returns
// true if a cycle was reset.
func (p *Processor) Expire() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.event == nil || p.clock.Since(p.started) < p.cfg.Deadline {
		return false
	}

	log.Printf("%s cycle for %s expired with status %s", p.Key(), p.event.PublicID, p.coord.Status())
	metrics.CycleExpire()

	p.reset()

	return true
}

// Run checks for expired cycles until ctx is done.
func (p *Processor) Run(ctx context.Context) {
	if p.cfg.Deadline <= 0 {
		<-ctx.Done()
		return
	}

	t := p.clock.NewTicker(p.cfg.Deadline / 4)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Chan():
			p.Expire()
		}
	}
}
