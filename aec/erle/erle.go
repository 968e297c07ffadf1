// Package erle estimates the echo return loss enhancement (ERLE) achieved by
// the linear echo canceller, per frequency bin.
//
// [SubbandEstimator] tracks the average ERLE from capture and residual echo
// power. [SignalDependentEstimator] corrects that average depending on which
// part of the adaptive filter carries most of the current echo estimate.
// [Estimator] chains the two.
package erle

import "github.com/cwbudde/algo-aec/aec"

const (
	// X2BandEnergyThreshold is the render power a band needs before its
	// ERLE statistics are trusted.
	X2BandEnergyThreshold = 44015068.0

	// NumSubbands is the number of correction factor subbands.
	NumSubbands = 6
)

// subbandBoundaries are the first bins of each correction factor subband.
var subbandBoundaries = [NumSubbands + 1]int{1, 8, 16, 24, 32, 48, aec.FftLengthBy2Plus1}

// bandToSubband maps a frequency bin to its correction factor subband.
// Bin 0 belongs to the first subband.
func bandToSubband(band int) int {
	for idx := 1; idx < NumSubbands; idx++ {
		if band < subbandBoundaries[idx] {
			return idx - 1
		}
	}
	return NumSubbands - 1
}

// maxErle returns the upper ERLE bound of bin k.
func maxErle(k int, maxL, maxH float64) float64 {
	if k < aec.FftLengthBy2/2 {
		return maxL
	}
	return maxH
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}

func fill(dst []float64, v float64) {
	for i := range dst {
		dst[i] = v
	}
}
