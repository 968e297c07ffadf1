package reverb

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-aec/aec"
	"github.com/cwbudde/algo-vecmath"
)

// Errors returned by SchroederDecay.
var (
	ErrEmptyResponse = errors.New("reverb: impulse response is empty")
	ErrNoDecay       = errors.New("reverb: insufficient decay after the peak")
)

const (
	schroederStartDB = -5
	schroederEndDB   = -25
	schroederFloorDB = -200
)

// SchroederDecay measures the per-block energy decay of the tail following
// the largest tap of ir, by regression on the Schroeder backward integral
// between -5 dB and -25 dB. It serves as an offline reference for the
// online Estimator.
func SchroederDecay(ir []float64) (float64, error) {
	if len(ir) == 0 {
		return 0, ErrEmptyResponse
	}

	peak := 0
	for i, v := range ir {
		if math.Abs(v) > math.Abs(ir[peak]) {
			peak = i
		}
	}

	slope, ok := regressionSlope(schroederCurve(ir[peak+1:]), schroederStartDB, schroederEndDB)
	if !ok {
		return 0, ErrNoDecay
	}
	return math.Pow(10, slope*aec.FftLengthBy2/10), nil
}

// RT60 returns the time in seconds a tail with the given per-block energy
// decay needs to fall by 60 dB. Decays outside (0, 1) yield 0.
func RT60(decay float64) float64 {
	if decay <= 0 || decay >= 1 {
		return 0
	}
	return -60 / (10 * math.Log10(decay) * aec.NumBlocksPerSecond)
}

// schroederCurve returns the normalized backward energy integral of h in dB.
func schroederCurve(h []float64) []float64 {
	curve := make([]float64, len(h))
	if len(h) == 0 {
		return curve
	}
	vecmath.MulBlock(curve, h, h)

	var acc float64
	for i := len(curve) - 1; i >= 0; i-- {
		acc += curve[i]
		curve[i] = acc
	}
	if curve[0] <= 0 {
		return curve
	}

	total := curve[0]
	for i, v := range curve {
		if v <= 0 {
			curve[i] = schroederFloorDB
		} else {
			curve[i] = 10 * math.Log10(v/total)
		}
	}
	return curve
}

// regressionSlope fits a line to curve between the first points falling
// below startDB and endDB and returns its slope in dB per sample.
func regressionSlope(curve []float64, startDB, endDB float64) (float64, bool) {
	start, end := -1, -1
	for i, v := range curve {
		if start < 0 && v <= startDB {
			start = i
		}
		if start >= 0 && v <= endDB {
			end = i
			break
		}
	}
	if start < 0 || end <= start {
		return 0, false
	}

	var sumX, sumY, sumXX, sumXY float64
	for i := start; i <= end; i++ {
		x := float64(i - start)
		sumX += x
		sumY += curve[i]
		sumXX += x * x
		sumXY += x * curve[i]
	}
	n := float64(end - start + 1)
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, false
	}

	slope := (n*sumXY - sumX*sumY) / denom
	if slope >= 0 {
		return 0, false
	}
	return slope, true
}
