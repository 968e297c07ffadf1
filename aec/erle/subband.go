package erle

import (
	"github.com/cwbudde/algo-aec/aec"
	"github.com/cwbudde/algo-aec/aec/config"
)

const (
	// ErleHold is the number of blocks an onset estimate is held before
	// the ERLE starts to fall back towards it.
	ErleHold = 100

	onsetWindowBlocks  = ErleHold + 150
	pointsToAccumulate = 6
)

// accumulated collects capture and error power over pointsToAccumulate
// converged blocks per bin.
type accumulated struct {
	Y2, E2    spectrum
	numPoints [aec.FftLengthBy2Plus1]int
	lowRender [aec.FftLengthBy2Plus1]bool
}

func (a *accumulated) reset() { *a = accumulated{} }

func (a *accumulated) add(X2, Y2, E2 []float64) {
	for k := range aec.FftLengthBy2Plus1 {
		if a.numPoints[k] == pointsToAccumulate {
			a.Y2[k] = 0
			a.E2[k] = 0
			a.numPoints[k] = 0
			a.lowRender[k] = false
		}
		a.lowRender[k] = a.lowRender[k] || X2[k] < X2BandEnergyThreshold
		a.Y2[k] += Y2[k]
		a.E2[k] += E2[k]
		a.numPoints[k]++
	}
}

// SubbandEstimator tracks the average ERLE per bin together with the ERLE
// observed at the start of echo onsets.
type SubbandEstimator struct {
	minErle, maxErleL, maxErleH float64

	accum        accumulated
	erle         spectrum
	erleOnsets   spectrum
	comingOnset  [aec.FftLengthBy2Plus1]bool
	holdCounters [aec.FftLengthBy2Plus1]int
}

// NewSubband returns an estimator bounded by cfg.Erle.
func NewSubband(cfg config.Config) *SubbandEstimator {
	e := &SubbandEstimator{
		minErle:  cfg.Erle.Min,
		maxErleL: cfg.Erle.MaxL,
		maxErleH: cfg.Erle.MaxH,
	}
	e.Reset()
	return e
}

// Reset restores the initial estimates.
func (e *SubbandEstimator) Reset() {
	fill(e.erle[:], e.minErle)
	fill(e.erleOnsets[:], e.minErle)
	for k := range e.comingOnset {
		e.comingOnset[k] = true
	}
	e.holdCounters = [aec.FftLengthBy2Plus1]int{}
	e.accum.reset()
}

// Erle returns the ERLE per bin. The slice is owned by the estimator.
func (e *SubbandEstimator) Erle() []float64 { return e.erle[:] }

// ErleOnsets returns the ERLE measured at echo onsets.
func (e *SubbandEstimator) ErleOnsets() []float64 { return e.erleOnsets[:] }

// Update feeds one block of render, capture and residual echo power. The
// estimates adapt only for a converged filter. With onsetDetection the ERLE
// of bins without recent render energy decays towards the onset ERLE.
func (e *SubbandEstimator) Update(X2, Y2, E2 []float64, converged, onsetDetection bool) {
	if converged {
		e.accum.add(X2, Y2, E2)
		e.updateBands(1, aec.FftLengthBy2/2, e.maxErleL, onsetDetection)
		e.updateBands(aec.FftLengthBy2/2, aec.FftLengthBy2, e.maxErleH, onsetDetection)
	}

	if onsetDetection {
		e.decreaseForLowRender()
	}

	e.erle[0] = e.erle[1]
	e.erle[aec.FftLengthBy2] = e.erle[aec.FftLengthBy2-1]
}

func (e *SubbandEstimator) updateBands(start, stop int, maxE float64, onsetDetection bool) {
	for k := start; k < stop; k++ {
		if e.accum.numPoints[k] != pointsToAccumulate || e.accum.E2[k] <= 0 {
			continue
		}
		newErle := e.accum.Y2[k] / e.accum.E2[k]
		lowRender := e.accum.lowRender[k]

		if onsetDetection && !lowRender {
			if e.comingOnset[k] {
				e.comingOnset[k] = false
				alpha := 0.15
				if newErle < e.erleOnsets[k] {
					alpha = 0.3
				}
				e.erleOnsets[k] = clamp(e.erleOnsets[k]+alpha*(newErle-e.erleOnsets[k]), e.minErle, maxE)
			}
			e.holdCounters[k] = onsetWindowBlocks
		}

		alpha := 0.05
		if newErle < e.erle[k] {
			if lowRender {
				alpha = 0
			} else {
				alpha = 0.1
			}
		}
		e.erle[k] = clamp(e.erle[k]+alpha*(newErle-e.erle[k]), e.minErle, maxE)
	}
}

func (e *SubbandEstimator) decreaseForLowRender() {
	for k := 1; k < aec.FftLengthBy2; k++ {
		e.holdCounters[k]--
		if e.holdCounters[k] > onsetWindowBlocks-ErleHold {
			continue
		}
		if e.erle[k] > e.erleOnsets[k] {
			e.erle[k] = max(e.erleOnsets[k], 0.97*e.erle[k])
		}
		if e.holdCounters[k] <= 0 {
			e.comingOnset[k] = true
			e.holdCounters[k] = 0
		}
	}
}
