// Package metrics gathers counts and durations of amplitude cycles.
package metrics

import (
	"sync/atomic"
	"time"
)

const (
	started = iota
	finished
	errored
	expired
	magnitudes
	rejected
	numCounters
)

var cycleCounters [numCounters]uint64
var cycleLast [numCounters]uint64
var cycleCurrent [numCounters]uint64

// A CycleCounters records amplitude cycle counters.
type CycleCounters struct {
	// Started is the count of cycles started for an event at a station.
	Started uint64

	// Finished is the count of cycles with a composite amplitude.
	Finished uint64

	// Errored is the count of cycles ending with an error status.
	Errored uint64

	// Expired is the count of cycles reset by the watchdog.
	Expired uint64

	// Magnitudes is the count of station magnitudes with an OK status.
	Magnitudes uint64

	// Rejected is the count of records for unconfigured channels.
	Rejected uint64

	// At is the time the counters were sampled at.
	At time.Time
}

// ReadCycleCounters populates c with counter delta values
// since last time it was called.
func ReadCycleCounters(c *CycleCounters) {
	c.At = time.Now().UTC()

	for i := range cycleCounters {
		cycleCurrent[i] = atomic.LoadUint64(&cycleCounters[i])
	}

	c.Started = cycleCurrent[started] - cycleLast[started]
	c.Finished = cycleCurrent[finished] - cycleLast[finished]
	c.Errored = cycleCurrent[errored] - cycleLast[errored]
	c.Expired = cycleCurrent[expired] - cycleLast[expired]
	c.Magnitudes = cycleCurrent[magnitudes] - cycleLast[magnitudes]
	c.Rejected = cycleCurrent[rejected] - cycleLast[rejected]

	for i := range cycleCounters {
		cycleLast[i] = cycleCurrent[i]
	}
}

// CycleStart increments the cycle started counter. It is safe for concurrent access.
func CycleStart() {
	atomic.AddUint64(&cycleCounters[started], 1)
}

// CycleFinish increments the cycle finished counter. It is safe for concurrent access.
func CycleFinish() {
	atomic.AddUint64(&cycleCounters[finished], 1)
}

// CycleErr increments the cycle error counter. It is safe for concurrent access.
func CycleErr() {
	atomic.AddUint64(&cycleCounters[errored], 1)
}

// CycleExpire increments the watchdog reset counter. It is safe for concurrent access.
func CycleExpire() {
	atomic.AddUint64(&cycleCounters[expired], 1)
}

// Magnitude increments the magnitude counter. It is safe for concurrent access.
func Magnitude() {
	atomic.AddUint64(&cycleCounters[magnitudes], 1)
}

// Rejected increments the rejected record counter. It is safe for concurrent access.
func Rejected() {
	atomic.AddUint64(&cycleCounters[rejected], 1)
}
