// Package analyzer inspects the time-domain adaptive filter to find the
// echo path delay, the filter gain and whether the estimate is consistent
// enough to be trusted.
//
// The filter is analyzed one block-sized region per update, so a full pass
// over a filter of N blocks takes N updates.
package analyzer

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-aec/aec"
	"github.com/cwbudde/algo-aec/aec/config"
	"github.com/cwbudde/algo-aec/aec/render"
	"github.com/cwbudde/algo-vecmath"
)

const (
	// consistentBlocks is the number of active render blocks at a stable
	// delay before the filter is considered consistent.
	consistentBlocks = 3 * aec.NumBlocksPerSecond / 2
	// convergenceBlocks is the number of updates after a reset before the
	// gain may drop below its running maximum.
	convergenceBlocks = 5 * aec.NumBlocksPerSecond
	boundedErlGain    = 0.01
)

// highpass is a minimum phase high-pass filter applied before peak search.
var highpass = [3]float64{0.7929742, -0.36072128, -0.47047766}

type region struct {
	start, end int
	last       bool
}

// Analyzer tracks the delay, gain and consistency of the linear filter.
type Analyzer struct {
	boundedErl            bool
	defaultGain           float64
	activeRenderThreshold float64
	incremental           bool
	preprocess            bool

	filtered []float64
	region   region
	peaks    peakDetector

	delayBlocks        int
	peakIndex          int
	filterLengthBlocks int
	gain               float64

	blocksSinceReset  int
	consistent        bool
	consistentCounter int
	consistentRef     int
}

// New returns an analyzer for filters of up to cfg.Filter.LengthBlocks
// blocks.
func New(cfg config.Config, opts ...Option) *Analyzer {
	limit := cfg.RenderLevels.ActiveRenderLimit
	a := &Analyzer{
		boundedErl:            cfg.EpStrength.BoundedErl,
		defaultGain:           cfg.EpStrength.Lf,
		activeRenderThreshold: limit * limit * aec.FftLengthBy2,
		incremental:           true,
		preprocess:            true,
		filtered:              make([]float64, aec.TimeDomainLength(cfg.Filter.LengthBlocks)),
		filterLengthBlocks:    cfg.Filter.LengthBlocks,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.Reset()
	return a
}

// Reset forgets all analysis results.
func (a *Analyzer) Reset() {
	a.delayBlocks = 0
	a.blocksSinceReset = 0
	a.consistent = false
	a.consistentCounter = 0
	a.consistentRef = -10
	a.gain = a.defaultGain
	a.peakIndex = 0
	a.region = region{}
	a.peaks.reset()
}

// DelayBlocks returns the block holding the filter peak.
func (a *Analyzer) DelayBlocks() int { return a.delayBlocks }

// Consistent reports whether the delay has been stable with a significant
// peak during enough active render.
func (a *Analyzer) Consistent() bool { return a.consistent }

// Gain returns the estimated gain of the echo path.
func (a *Analyzer) Gain() float64 { return a.gain }

// FilterLengthBlocks returns the length of the last analyzed filter.
func (a *Analyzer) FilterLengthBlocks() int { return a.filterLengthBlocks }

// Update analyzes the next region of filter. Render activity is judged on
// the block delayBlocks slots older than the read cursor of rb, the one the
// filter peak aligns with.
func (a *Analyzer) Update(filter []float64, rb *render.Buffer) {
	n := len(filter)
	if n == 0 || n > len(a.filtered) {
		panic(fmt.Sprintf("analyzer: filter length %d outside (0, %d]", n, len(a.filtered)))
	}
	if a.peakIndex >= n {
		a.peakIndex = 0
	}

	a.setRegion(n)
	h := filter
	if a.preprocess {
		h = a.filter(filter)
	}

	a.peakIndex = findPeak(h, a.peakIndex, a.region.start, a.region.end)
	a.delayBlocks = a.peakIndex >> aec.BlockSizeLog2
	a.updateGain(h)
	a.filterLengthBlocks = n / aec.BlockSize

	x := rb.Block(a.delayBlocks)[0]
	activeRender := vecmath.DotProduct(x, x) > a.activeRenderThreshold

	a.peaks.update(h, a.region, a.peakIndex)
	if a.consistentRef == a.delayBlocks && a.peaks.significant {
		if activeRender {
			a.consistentCounter++
		}
	} else {
		a.consistentCounter = 0
		a.consistentRef = a.delayBlocks
	}
	a.consistent = a.consistentCounter > consistentBlocks
}

func (a *Analyzer) setRegion(n int) {
	r := &a.region
	if !a.incremental {
		*r = region{start: 0, end: n, last: true}
		return
	}
	if r.last || r.end >= n {
		r.start = 0
	} else {
		r.start = r.end
	}
	r.end = min(r.start+aec.BlockSize, n)
	r.last = r.end == n
}

// filter runs the high-pass over the current region and returns the
// filtered response.
func (a *Analyzer) filter(h []float64) []float64 {
	out := a.filtered[:len(h)]
	r := a.region
	clear(out[r.start:r.end])
	for k := max(len(highpass)-1, r.start); k < r.end; k++ {
		for j, c := range highpass {
			out[k] += h[k-j] * c
		}
	}
	return out
}

func (a *Analyzer) updateGain(h []float64) {
	a.blocksSinceReset++
	peak := math.Abs(h[a.peakIndex])

	if a.blocksSinceReset > convergenceBlocks && a.consistent {
		a.gain = peak
	} else if a.gain != 0 {
		a.gain = max(a.gain, peak)
	}

	if a.boundedErl && a.gain != 0 {
		a.gain = max(a.gain, boundedErlGain)
	}
}

// findPeak returns the index of the largest squared tap in [start, end),
// keeping current unless a tap strictly exceeds it.
func findPeak(h []float64, current, start, end int) int {
	peak := current
	maxH2 := h[peak] * h[peak]
	for k := start; k < end; k++ {
		if v := h[k] * h[k]; v > maxH2 {
			peak = k
			maxH2 = v
		}
	}
	return peak
}
