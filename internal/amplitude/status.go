package amplitude

import (
	"errors"
	"fmt"

	"github.com/GeoNet/kclass/internal/traveltime"
	"github.com/GeoNet/kclass/internal/wavelet"
)

// Status of an Extractor or Coordinator.  Values greater than Finished are errors.
type Status int

const (
	WaitingForData Status = iota
	Processing
	Finished
	InvalidRange
	EnvironmentUnavailable
	DistanceOutOfRange
	DepthOutOfRange
	TravelTimeUnavailable
	MissingPhase
	NoValidPeak
	InvalidGain
	IncompleteData
)

var (
	ErrEnvironmentUnavailable = errors.New("hypocenter or receiver not available")
	ErrDistanceOutOfRange     = errors.New("distance out of range")
	ErrDepthOutOfRange        = errors.New("depth out of range")
	ErrNoValidPeak            = errors.New("no valid peak")
	ErrInvalidGain            = errors.New("invalid gain")
	ErrIncompleteData         = errors.New("data does not cover the window")
)

var statusNames = map[Status]string{
	WaitingForData:         "WaitingForData",
	Processing:             "Processing",
	Finished:               "Finished",
	InvalidRange:           "InvalidRange",
	EnvironmentUnavailable: "EnvironmentUnavailable",
	DistanceOutOfRange:     "DistanceOutOfRange",
	DepthOutOfRange:        "DepthOutOfRange",
	TravelTimeUnavailable:  "TravelTimeUnavailable",
	MissingPhase:           "MissingPhase",
	NoValidPeak:            "NoValidPeak",
	InvalidGain:            "InvalidGain",
	IncompleteData:         "IncompleteData",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// IsError is true for the error statuses.
func (s Status) IsError() bool {
	return s > Finished
}

// Terminal is true when no more processing happens before a reset.
func (s Status) Terminal() bool {
	return s >= Finished
}

// Err returns the error for s or nil if s is not an error status.
func (s Status) Err() error {
	switch s {
	case WaitingForData, Processing, Finished:
		return nil
	case InvalidRange:
		return wavelet.ErrInvalidRange
	case EnvironmentUnavailable:
		return ErrEnvironmentUnavailable
	case DistanceOutOfRange:
		return ErrDistanceOutOfRange
	case DepthOutOfRange:
		return ErrDepthOutOfRange
	case TravelTimeUnavailable:
		return traveltime.ErrTravelTimeUnavailable
	case MissingPhase:
		return traveltime.ErrMissingPhase
	case NoValidPeak:
		return ErrNoValidPeak
	case InvalidGain:
		return ErrInvalidGain
	case IncompleteData:
		return ErrIncompleteData
	default:
		return fmt.Errorf("unknown status %d", int(s))
	}
}
