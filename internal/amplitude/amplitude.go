// Package amplitude extracts K-Class peak amplitudes from the three
// components of a station and fuses them into a single amplitude.
package amplitude

import (
	"fmt"
	"math"
	"time"
)

// Channel identifies a component by its role.
type Channel int

const (
	FirstHorizontal Channel = iota
	SecondHorizontal
	Vertical
)

// Channels lists the components in priority order.
var Channels = [3]Channel{FirstHorizontal, SecondHorizontal, Vertical}

func (c Channel) String() string {
	switch c {
	case FirstHorizontal:
		return "FirstHorizontal"
	case SecondHorizontal:
		return "SecondHorizontal"
	case Vertical:
		return "Vertical"
	default:
		return fmt.Sprintf("Channel(%d)", int(c))
	}
}

// Value is an amplitude with optional uncertainties.  A nil uncertainty is zero.
type Value struct {
	Value            float64
	LowerUncertainty *float64
	UpperUncertainty *float64
}

// Time is a reference time and a window [Reference+Begin, Reference+End]
// with Begin and End in seconds.
type Time struct {
	Reference time.Time
	Begin     float64
	End       float64
}

// Result is the amplitude measured on one channel.
type Result struct {
	Channel Channel
	Value   Value
	Time    Time
	Index   int
	Period  float64
	SNR     float64
}

// Composite is the amplitude fused from all three channels.
type Composite struct {
	Value  Value
	Time   Time
	Period float64
	SNR    float64
}

// Sum adds two amplitudes.  Uncertainties add in quadrature and are nil
// only if both are nil.
func Sum(a, b Value) Value {
	return Value{
		Value:            a.Value + b.Value,
		LowerUncertainty: quadrature(a.LowerUncertainty, b.LowerUncertainty),
		UpperUncertainty: quadrature(a.UpperUncertainty, b.UpperUncertainty),
	}
}

func quadrature(a, b *float64) *float64 {
	if a == nil && b == nil {
		return nil
	}

	var x, y float64
	if a != nil {
		x = *a
	}
	if b != nil {
		y = *b
	}

	q := math.Sqrt(x*x + y*y)

	return &q
}

// Average returns a Time referenced to the midpoint of a and b with a window
// spanning both windows and the new reference, so Begin <= 0 <= End.
func Average(a, b Time) Time {
	ref := a.Reference.Add(b.Reference.Sub(a.Reference) / 2)

	lo, hi := ref, ref

	for _, t := range []time.Time{
		a.Reference.Add(seconds(a.Begin)),
		a.Reference.Add(seconds(a.End)),
		b.Reference.Add(seconds(b.Begin)),
		b.Reference.Add(seconds(b.End)),
	} {
		if t.Before(lo) {
			lo = t
		}
		if t.After(hi) {
			hi = t
		}
	}

	return Time{
		Reference: ref,
		Begin:     lo.Sub(ref).Seconds(),
		End:       hi.Sub(ref).Seconds(),
	}
}

// Fuse combines the larger of the two horizontals with the vertical.  When
// the horizontals are equal the second horizontal is used.
func Fuse(first, second, vertical Result) Composite {
	h := second
	if math.Abs(first.Value.Value) > math.Abs(second.Value.Value) {
		h = first
	}

	return Composite{
		Value:  Sum(h.Value, vertical.Value),
		Time:   Average(h.Time, vertical.Time),
		Period: -1,
		SNR:    -1,
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
