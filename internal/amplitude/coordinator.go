package amplitude

import (
	"log"
	"sync"
	"time"

	"github.com/GeoNet/kclass/internal/traveltime"
	"github.com/GeoNet/kclass/internal/waveform"
)

// Coordinator routes records to an Extractor per channel and fuses the
// results once all three channels have finished.  It is safe for concurrent use.
type Coordinator struct {
	mu sync.Mutex

	extractors [3]*Extractor
	results    [3]*Result

	composite Composite
	fused     bool

	publish func(Composite)
}

// NewCoordinator returns a Coordinator for the three channels.  publish, if not
// nil, is called once per cycle with the composite amplitude.  It is called with
// the Coordinator locked and must not call back into it.
func NewCoordinator(first, second, vertical Config, publish func(Composite)) *Coordinator {
	first.Channel, second.Channel, vertical.Channel = FirstHorizontal, SecondHorizontal, Vertical

	return &Coordinator{
		extractors: [3]*Extractor{
			NewExtractor(first),
			NewExtractor(second),
			NewExtractor(vertical),
		},
		publish: publish,
	}
}

// Start begins a cycle for an event.  trigger centres the horizontal windows;
// h and r locate the event and station for the vertical window.
func (c *Coordinator) Start(trigger time.Time, h *traveltime.Hypocenter, r *traveltime.Receiver) Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.extractors {
		e.SetTrigger(trigger)
		e.SetEnvironment(h, r)
		e.ComputeTimeWindow()
	}

	c.collect()

	return c.status()
}

// Feed routes r to the extractor for its channel code.  It returns false for a
// channel code that is not configured or when the cycle is already over.
func (c *Coordinator) Feed(r waveform.Record) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	var e *Extractor

	for _, v := range c.extractors {
		if v.Code() == r.Channel {
			e = v
			break
		}
	}

	if e == nil {
		log.Printf("WARNING unexpected channel %s", r.SrcName())
		return false
	}

	if c.status().Terminal() {
		return false
	}

	e.Feed(r)
	c.collect()

	return true
}

// collect stores finished results and fuses them when all three are present.
func (c *Coordinator) collect() {
	if c.fused {
		return
	}

	for i, e := range c.extractors {
		if c.results[i] != nil {
			continue
		}
		if res, ok := e.Result(); ok {
			c.results[i] = &res
		}
	}

	for _, r := range c.results {
		if r == nil {
			return
		}
	}

	c.composite = Fuse(*c.results[FirstHorizontal], *c.results[SecondHorizontal], *c.results[Vertical])
	c.fused = true

	if c.publish != nil {
		c.publish(c.composite)
	}
}

// Status is Finished once fused, otherwise the first channel error in channel
// order or the status of the least advanced channel.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status()
}

func (c *Coordinator) status() Status {
	if c.fused {
		return Finished
	}

	s := Finished

	for _, e := range c.extractors {
		if e.Status().IsError() {
			return e.Status()
		}
		if e.Status() < s {
			s = e.Status()
		}
	}

	return s
}

// Result returns the composite amplitude once the Coordinator is Finished.
func (c *Coordinator) Result() (Composite, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.composite, c.fused
}

// Component returns the result for channel ch if it has finished.
func (c *Coordinator) Component(ch Channel) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ch < FirstHorizontal || ch > Vertical || c.results[ch] == nil {
		return Result{}, false
	}

	return *c.results[ch], true
}

// Codes returns the channel codes in channel order.
func (c *Coordinator) Codes() [3]string {
	return [3]string{c.extractors[0].Code(), c.extractors[1].Code(), c.extractors[2].Code()}
}

// Reset clears all results and extractors ready for a new cycle.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, e := range c.extractors {
		e.Reset()
		c.results[i] = nil
	}

	c.composite = Composite{}
	c.fused = false
}
