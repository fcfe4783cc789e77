package amplitude

import (
	"errors"
	"math"
	"time"

	"github.com/GeoNet/kclass/internal/traveltime"
	"github.com/GeoNet/kclass/internal/waveform"
	"github.com/GeoNet/kclass/internal/wavelet"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// defaultNoiseLevel is used for peak detection without a noise estimate.
const defaultNoiseLevel = 1.0

// Config for an Extractor.
type Config struct {
	Channel Channel
	Code    string  // channel code, e.g. HHZ
	Gain    float64 // counts per physical unit

	// Scale of the Mexican Hat wavelet in samples.  Vertical only.
	Scale float64

	// HorizontalWindow is the half width of the horizontal window around the trigger.
	HorizontalWindow time.Duration

	// NoiseBegin and NoiseEnd are relative to the start of the signal window.
	// The noise window is not used when NoiseBegin is not before NoiseEnd.
	NoiseBegin time.Duration
	NoiseEnd   time.Duration

	MinimumDistance float64 // degrees
	MaximumDistance float64 // degrees
	MaximumDepth    float64 // km

	Gate traveltime.Gate
}

// Extractor measures the peak amplitude of one channel.  It is not safe for
// concurrent use; the Coordinator serialises access.
type Extractor struct {
	cfg    Config
	status Status

	trigger    time.Time
	arrivals   traveltime.Window
	hasArrival bool

	begin, end time.Time
	hasWindow  bool

	buf    waveform.Record
	result Result
}

// NewExtractor returns an Extractor that is WaitingForData.
func NewExtractor(cfg Config) *Extractor {
	return &Extractor{cfg: cfg}
}

func (e *Extractor) Channel() Channel {
	return e.cfg.Channel
}

func (e *Extractor) Code() string {
	return e.cfg.Code
}

func (e *Extractor) Status() Status {
	return e.status
}

// Result returns the amplitude once the Extractor is Finished.
func (e *Extractor) Result() (Result, bool) {
	return e.result, e.status == Finished
}

// Window returns the signal window once it is known.
func (e *Extractor) Window() (begin, end time.Time, ok bool) {
	return e.begin, e.end, e.hasWindow
}

// SetTrigger sets the time the horizontal window is centred on.
func (e *Extractor) SetTrigger(t time.Time) {
	e.trigger = t
}

// SetEnvironment checks the source receiver geometry and finds the P and S
// arrivals for the vertical channel.  Horizontal channels ignore it.
func (e *Extractor) SetEnvironment(h *traveltime.Hypocenter, r *traveltime.Receiver) Status {
	if e.cfg.Channel != Vertical || e.status.Terminal() {
		return e.status
	}

	if h == nil || r == nil {
		return e.fail(EnvironmentUnavailable)
	}

	d, _, err := traveltime.Distance(*h, *r)
	if err != nil {
		return e.fail(EnvironmentUnavailable)
	}

	if d < e.cfg.MinimumDistance || d > e.cfg.MaximumDistance {
		return e.fail(DistanceOutOfRange)
	}

	if h.Depth > e.cfg.MaximumDepth {
		return e.fail(DepthOutOfRange)
	}

	w, err := e.cfg.Gate.Window(*h, *r)
	switch {
	case errors.Is(err, traveltime.ErrMissingPhase):
		return e.fail(MissingPhase)
	case err != nil:
		return e.fail(TravelTimeUnavailable)
	}

	e.arrivals = w
	e.hasArrival = true

	return e.status
}

// ComputeTimeWindow sets the signal window: the P to S interval for the
// vertical channel and the trigger plus or minus HorizontalWindow for the
// horizontals.  Buffered data covering the window is processed.
func (e *Extractor) ComputeTimeWindow() Status {
	if e.status.Terminal() {
		return e.status
	}

	switch e.cfg.Channel {
	case Vertical:
		if !e.hasArrival {
			return e.status
		}
		if !e.arrivals.Valid() {
			return e.fail(InvalidRange)
		}
		e.begin, e.end = e.arrivals.P, e.arrivals.S
	default:
		if e.trigger.IsZero() {
			return e.status
		}
		e.begin, e.end = e.trigger.Add(-e.cfg.HorizontalWindow), e.trigger.Add(e.cfg.HorizontalWindow)
	}

	e.hasWindow = true

	return e.advance()
}

// Feed adds a record to the buffer.  A record that does not follow on from
// the buffer starts it again.  Once the window is known a buffer that starts
// after the window begin is IncompleteData.
func (e *Extractor) Feed(r waveform.Record) Status {
	if e.status.Terminal() || r.SampleRate <= 0 || len(r.Samples) == 0 {
		return e.status
	}

	switch {
	case len(e.buf.Samples) > 0 && r.Follows(e.buf):
		e.buf.Samples = append(e.buf.Samples, r.Samples...)
	default:
		e.buf = r
		e.buf.Samples = append([]float64(nil), r.Samples...)
	}

	return e.advance()
}

// Reset clears the buffer, window, and result.
func (e *Extractor) Reset() {
	*e = Extractor{cfg: e.cfg}
}

func (e *Extractor) fail(s Status) Status {
	e.status = s
	e.buf = waveform.Record{}
	return s
}

func (e *Extractor) advance() Status {
	if !e.hasWindow || len(e.buf.Samples) == 0 {
		return e.status
	}

	// a buffer starting after the window begin, allowing half a sample, can
	// not cover it.
	if e.index(e.begin) < -0.5 {
		return e.fail(IncompleteData)
	}

	last := e.buf.End()

	if last.Before(e.begin) {
		return e.status
	}

	e.status = Processing

	if last.Before(e.end) {
		return e.status
	}

	return e.compute()
}

// index returns the fractional sample index of t in the buffer.
func (e *Extractor) index(t time.Time) float64 {
	return t.Sub(e.buf.Start).Seconds() * e.buf.SampleRate
}

// span returns the buffer indexes inside [begin, end], clipped to the buffer.
func (e *Extractor) span(begin, end time.Time) (int, int, bool) {
	n := len(e.buf.Samples)

	i1 := int(math.Ceil(e.index(begin) - 1e-9))
	i2 := int(math.Floor(e.index(end) + 1e-9))

	if i1 < 0 {
		i1 = 0
	}
	if i2 > n-1 {
		i2 = n - 1
	}

	return i1, i2, i1 <= i2
}

// noise returns the mean and standard deviation of the noise window, or
// zero and the default noise level when the window is not in the buffer.
func (e *Extractor) noise() (offset, level float64) {
	if e.cfg.NoiseBegin >= e.cfg.NoiseEnd {
		return 0, defaultNoiseLevel
	}

	nb, ne := e.begin.Add(e.cfg.NoiseBegin), e.begin.Add(e.cfg.NoiseEnd)
	if nb.Before(e.buf.Start) {
		return 0, defaultNoiseLevel
	}

	i1, i2, ok := e.span(nb, ne)
	if !ok || i2-i1 < 1 {
		return 0, defaultNoiseLevel
	}

	x := e.buf.Samples[i1 : i2+1]

	return stat.Mean(x, nil), stat.StdDev(x, nil)
}

func (e *Extractor) compute() Status {
	i1, i2, ok := e.span(e.begin, e.end)
	if !ok {
		return e.fail(InvalidRange)
	}

	data := e.buf.Samples
	offset, level := e.noise()

	var idx int
	var amp float64

	switch e.cfg.Channel {
	case Vertical:
		var err error
		idx, err = wavelet.DetectPeak(data, i1, i2, level, e.cfg.Scale)
		if err != nil {
			return e.fail(InvalidRange)
		}
		amp = math.Abs(data[idx]) - offset
	default:
		d := make([]float64, i2-i1+1)
		for k := range d {
			d[k] = math.Abs(data[i1+k] - offset)
		}
		idx = i1 + floats.MaxIdx(d)
		amp = d[idx-i1]
	}

	if !(amp > 0) {
		return e.fail(NoValidPeak)
	}

	if e.cfg.Gain == 0 {
		return e.fail(InvalidGain)
	}

	e.result = Result{
		Channel: e.cfg.Channel,
		Value:   Value{Value: math.Abs(amp / e.cfg.Gain * 1000.0)},
		Time: Time{
			Reference: e.buf.Start.Add(time.Duration(float64(idx) / e.buf.SampleRate * float64(time.Second))),
		},
		Index:  idx,
		Period: -1,
		SNR:    -1,
	}

	e.status = Finished
	e.buf = waveform.Record{}

	return e.status
}
