// Package signal classifies the render signal for the echo canceller.
//
// An [Analyzer] flags narrow-band render content, which excites the
// adaptive filter poorly, and masks the bins around it so that estimators
// can ignore them.
package signal

import (
	"slices"

	"github.com/cwbudde/algo-aec/aec"
	"github.com/cwbudde/algo-aec/aec/config"
	"github.com/cwbudde/algo-aec/aec/render"
	"github.com/cwbudde/algo-vecmath"
)

const (
	// maskThreshold is the number of consecutive narrow-band detections
	// after which MaskRegionsAroundNarrowBands clears a bin's neighborhood.
	maskThreshold = 5
	// poorExcitationThreshold is the counter value above which the render
	// signal excites the filter poorly.
	poorExcitationThreshold = 10

	narrowBandRatio  = 3
	strongPeakRatio  = 100
	strongPeakMinAbs = 100
)

// Analyzer tracks narrow-band components of the render signal.
type Analyzer struct {
	freezeBlocks int

	// counters[k-1] counts consecutive blocks in which bin k stood out
	// against both neighbors, for k in [1, aec.FftLengthBy2).
	counters [aec.FftLengthBy2Minus1]int

	peakBand    aec.Optional[int]
	peakCounter int
}

// New returns an analyzer that holds a detected strong narrow-band peak for
// cfg.Filter.LengthBlocks blocks.
func New(cfg config.Config) *Analyzer {
	return &Analyzer{freezeBlocks: cfg.Filter.LengthBlocks}
}

// Reset clears all counters and the detected peak.
func (a *Analyzer) Reset() {
	a.counters = [aec.FftLengthBy2Minus1]int{}
	a.peakBand = aec.None[int]()
	a.peakCounter = 0
}

// Update analyzes the spectrum delayBlocks slots older than the read cursor
// of rb, where the echo path aligns, and the newest readable block. Without
// a delay the narrow-band counters are cleared.
func (a *Analyzer) Update(rb *render.Buffer, delayBlocks aec.Optional[int]) {
	a.updateNarrowBands(rb, delayBlocks)
	a.updateStrongPeak(rb)
}

// PoorSignalExcitation reports whether some bin has been narrow-band for
// long enough to leave the filter poorly excited.
func (a *Analyzer) PoorSignalExcitation() bool {
	return slices.ContainsFunc(a.counters[:], func(c int) bool {
		return c > poorExcitationThreshold
	})
}

// NarrowPeakBand returns the bin of a strong narrow-band peak detected
// within the last freeze period.
func (a *Analyzer) NarrowPeakBand() aec.Optional[int] { return a.peakBand }

// MaskRegionsAroundNarrowBands zeroes v, one value per bin, within two
// bins of every persistent narrow band.
func (a *Analyzer) MaskRegionsAroundNarrowBands(v []float64) {
	v = v[:aec.FftLengthBy2Plus1]
	c := a.counters[:]

	if c[0] > maskThreshold {
		v[0], v[1] = 0, 0
	}
	for k := 2; k < aec.FftLengthBy2-1; k++ {
		if c[k-1] > maskThreshold {
			clear(v[k-2 : k+3])
		}
	}
	if c[aec.FftLengthBy2-2] > maskThreshold {
		v[aec.FftLengthBy2-1], v[aec.FftLengthBy2] = 0, 0
	}
}

func (a *Analyzer) updateNarrowBands(rb *render.Buffer, delayBlocks aec.Optional[int]) {
	d, ok := delayBlocks.Get()
	if !ok {
		a.counters = [aec.FftLengthBy2Minus1]int{}
		return
	}

	X2 := rb.Spectrum(d)
	for k := 1; k < aec.FftLengthBy2; k++ {
		if X2[k] > narrowBandRatio*max(X2[k-1], X2[k+1]) {
			a.counters[k-1]++
		} else {
			a.counters[k-1] = 0
		}
	}
}

func (a *Analyzer) updateStrongPeak(rb *render.Buffer) {
	if a.peakBand.IsSet() {
		a.peakCounter++
		if a.peakCounter > a.freezeBlocks {
			a.peakBand = aec.None[int]()
		}
	}

	X2 := rb.Spectrum(0)[:aec.FftLengthBy2Plus1]
	peak := 0
	for k, v := range X2 {
		if v > X2[peak] {
			peak = k
		}
	}

	// Level of the spectrum outside the peak's immediate neighborhood.
	var floor float64
	for k := max(0, peak-14); k < peak-4; k++ {
		floor = max(floor, X2[k])
	}
	for k := peak + 5; k < min(peak+15, aec.FftLengthBy2Plus1); k++ {
		floor = max(floor, X2[k])
	}

	block := rb.Block(0)
	maxAbs := vecmath.MaxAbs(block[0])
	if len(block) > 1 {
		maxAbs = max(maxAbs, vecmath.MaxAbs(block[1]))
	}

	if peak > 0 && maxAbs > strongPeakMinAbs && X2[peak] > strongPeakRatio*floor {
		a.peakBand = aec.Some(peak)
		a.peakCounter = 0
	}
}
