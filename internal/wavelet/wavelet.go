// Package wavelet finds the first prominent peak in a sample window using a
// Mexican Hat continuous wavelet transform.
package wavelet

import (
	"errors"
	"math"
)

// ErrInvalidRange is returned for index bounds outside the sample buffer.
var ErrInvalidRange = errors.New("invalid range specified for i1 and i2")

var ErrInvalidScale = errors.New("scale must be positive")

// prominence is the multiple of the noise level a value must drop from a
// local maximum by for the maximum to count as a peak.
const prominence = 1.5

// MexicanHat returns the Mexican Hat (Ricker) wavelet at t for scale.
func MexicanHat(t, scale float64) float64 {
	ts := t / scale
	return (1 - ts*ts) * math.Exp(-0.5*ts*ts)
}

// Transform returns the wavelet transform of data[i1:i2+1] at scale.
// The kernel is truncated at ceil(3*scale) samples either side of each
// index and never reaches outside [i1,i2].
func Transform(data []float64, i1, i2 int, scale float64) ([]float64, error) {
	if i1 < 0 || i1 > i2 || i2 >= len(data) {
		return nil, ErrInvalidRange
	}

	if !(scale > 0) {
		return nil, ErrInvalidScale
	}

	half := int(math.Ceil(3.0 * scale))
	norm := math.Sqrt(scale)

	cwt := make([]float64, i2-i1+1)

	for i := i1; i <= i2; i++ {
		var sum float64

		for k := max(i1, i-half); k <= min(i2, i+half); k++ {
			sum += data[k] * MexicanHat(float64(k-i), scale)
		}

		cwt[i-i1] = sum / norm
	}

	return cwt, nil
}

// FirstProminentPeak returns the index of the first local maximum in cwt
// followed by a drop of at least threshold.  Zero is returned when there is
// no such maximum, which can't be told apart from a peak on the first value.
func FirstProminentPeak(cwt []float64, threshold float64) int {
	if len(cwt) == 0 {
		return 0
	}

	last := cwt[0]
	increasing := false

	for i := 1; i < len(cwt); i++ {
		switch {
		case cwt[i] > last:
			increasing = true
		case increasing && last-cwt[i] >= threshold:
			return i - 1
		}
		last = cwt[i]
	}

	return 0
}

// DetectPeak returns the index in data of the first prominent peak of the
// wavelet transform over [i1,i2].  noiseLevel sets the prominence threshold.
func DetectPeak(data []float64, i1, i2 int, noiseLevel, scale float64) (int, error) {
	cwt, err := Transform(data, i1, i2, scale)
	if err != nil {
		return 0, err
	}

	return i1 + FirstProminentPeak(cwt, prominence*noiseLevel), nil
}
