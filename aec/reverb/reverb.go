// Package reverb estimates the reverberant tail of the echo path from the
// adaptive filter.
//
// The decay is found by a least-squares fit of the log2 energy of the
// impulse response, one filter section per update, between the direct path
// peak and the point where the response sinks into its noise floor. The
// tail frequency response extrapolates the filter's last partition relative
// to its direct path partition.
package reverb

import (
	"math"

	"github.com/cwbudde/algo-aec/aec"
	"github.com/cwbudde/algo-aec/aec/config"
	"github.com/cwbudde/algo-vecmath"
)

const (
	// MinDecay and MaxDecay bound a solved decay (about 15 ms to 1 s RT60).
	MinDecay = 0.02
	MaxDecay = 0.95

	blocksFirstReflections = 2
	minGoodSections        = 5
	energyFloor            = 1e-32
	logFloor               = 1e-10
)

// Estimator tracks the reverb decay and tail frequency response.
type Estimator struct {
	filterLengthBlocks int
	defaultDecay       float64

	regressor linearRegressor
	sections  sectionRegressors

	reverbDecay       float64
	tailEnergy        float64
	blockEnergies     []float64
	freqRespTail      [aec.FftLengthBy2Plus1]float64
	ratioTailToDirect float64
	squared           []float64

	alpha                      float64
	currentSection             int
	numSections                int
	numSectionsNext            int
	foundEnd                   bool
	peakIndex                  int
	blockAfterEarlyReflections int
}

// New returns an estimator for the main filter length of cfg. The decay
// starts at the magnitude of cfg.EpStrength.DefaultLen.
func New(cfg config.Config) *Estimator {
	blocks := cfg.Filter.LengthBlocks
	e := &Estimator{
		filterLengthBlocks: blocks,
		defaultDecay:       math.Abs(cfg.EpStrength.DefaultLen),
		sections:           newSectionRegressors(blocks - blocksFirstReflections),
		blockEnergies:      make([]float64, blocks),
		squared:            make([]float64, aec.TimeDomainLength(blocks)),
	}
	e.Reset()
	return e
}

// Reset returns the estimator to its initial state.
func (e *Estimator) Reset() {
	e.reverbDecay = e.defaultDecay
	e.tailEnergy = 0
	e.ratioTailToDirect = 0
	e.peakIndex = 0
	e.blockAfterEarlyReflections = 0
	clear(e.blockEnergies)
	e.freqRespTail = [aec.FftLengthBy2Plus1]float64{}
	e.sections.reset()
	e.resetDecayEstimation()
}

// ReverbDecay returns the per-block energy decay of the tail.
func (e *Estimator) ReverbDecay() float64 { return e.reverbDecay }

// FreqRespTail returns the estimated power response of the tail beyond the
// filter. The slice is owned by the estimator.
func (e *Estimator) FreqRespTail() []float64 { return e.freqRespTail[:] }

// Update refines the estimates from the current filter. impulseResponse is
// the time-domain filter, freqResp holds one power response per filter
// partition and quality in [0, 1] is the linear filter quality, if known.
// A negative defaultDecay enables online decay estimation. Stationary
// blocks are ignored.
func (e *Estimator) Update(
	impulseResponse []float64,
	freqResp [][]float64,
	quality aec.Optional[float64],
	filterDelayBlocks int,
	usableLinearEstimate bool,
	defaultDecay float64,
	stationaryBlock bool,
) {
	if stationaryBlock {
		return
	}

	alpha := 0.0
	if q, ok := quality.Get(); ok {
		alpha = 0.2 * min(max(q, 0), 1)
		e.updateFreqRespTail(freqResp, filterDelayBlocks, alpha)
	}

	if !e.goodFilter(filterDelayBlocks, usableLinearEstimate, len(impulseResponse)) {
		e.resetDecayEstimation()
		return
	}

	e.alpha = max(alpha, e.alpha)
	if e.alpha > 0 && defaultDecay < 0 {
		e.updateReverbDecay(impulseResponse)
	}
}

func (e *Estimator) goodFilter(delayBlocks int, usable bool, length int) bool {
	return delayBlocks != 0 && usable &&
		delayBlocks <= e.filterLengthBlocks-4 &&
		length >= aec.TimeDomainLength(e.filterLengthBlocks)
}

func (e *Estimator) resetDecayEstimation() {
	e.regressor.reset()
	e.currentSection = 0
	e.numSections = 0
	e.numSectionsNext = 0
	e.foundEnd = false
	e.alpha = 0
}

// updateReverbDecay analyzes one filter section per call and solves for the
// decay once every section has been visited.
func (e *Estimator) updateReverbDecay(ir []float64) {
	if e.currentSection < e.filterLengthBlocks {
		e.analyzeSection(ir)
		return
	}
	e.solveDecay(ir)
}

func (e *Estimator) analyzeSection(ir []float64) {
	start := e.currentSection * aec.FftLengthBy2
	sq := e.squared[start : start+aec.FftLengthBy2]
	x := ir[start : start+aec.FftLengthBy2]
	vecmath.MulBlock(sq, x, x)

	energy := max(vecmath.Sum(sq)/aec.FftLengthBy2, energyFloor)
	ratio := e.blockEnergies[e.currentSection] / energy
	e.foundEnd = e.foundEnd || ratio > 1.1 || ratio < 0.9

	if !e.foundEnd && energy > e.tailEnergy {
		e.numSectionsNext++
	} else {
		e.foundEnd = true
	}
	e.blockEnergies[e.currentSection] = energy

	if e.numSections > 0 {
		block := e.currentSection - e.peakIndex - blocksFirstReflections
		e.sections.startBlock(block)
		for _, v := range sq {
			z := log2(v + logFloor)
			if e.currentSection >= e.blockAfterEarlyReflections {
				e.regressor.update(z)
			}
			e.sections.update(z)
		}
		e.sections.endBlock(block, e.alpha)
	}

	e.numSections = max(e.numSections-1, 0)
	e.currentSection++
}

func (e *Estimator) solveDecay(ir []float64) {
	n := aec.TimeDomainLength(e.filterLengthBlocks)
	sq := e.squared[:n]
	vecmath.MulBlock(sq, ir[:n], ir[:n])

	decay := e.regressor.estimateDecay(e.reverbDecay)

	e.tailEnergy = vecmath.Sum(sq[n-aec.FftLengthBy2:]) / aec.FftLengthBy2

	e.numSections = e.numSectionsNext
	e.numSectionsNext = 0
	if e.numSections < minGoodSections {
		e.numSections = 0
	}

	peak := 0
	for i, v := range sq {
		if v > sq[peak] {
			peak = i
		}
	}
	e.peakIndex = peak / aec.FftLengthBy2
	e.currentSection = e.peakIndex + blocksFirstReflections

	regressionSections := e.numSections
	early := e.sections.earlyReflections()
	if regressionSections-early > minGoodSections {
		e.blockAfterEarlyReflections = e.currentSection + early
		regressionSections -= early
	} else {
		regressionSections = 0
		e.numSections = 0
	}
	e.regressor.initAccumulators(float64(regressionSections * aec.FftLengthBy2))

	if e.currentSection+1 >= e.filterLengthBlocks {
		e.currentSection = e.filterLengthBlocks
	}

	// The first section after the reflections; past the end of the filter
	// there is nothing left to compare against the tail.
	firstSectionEnergy := 0.0
	if start := e.currentSection * aec.FftLengthBy2; start+aec.FftLengthBy2 <= n {
		firstSectionEnergy = vecmath.Sum(sq[start:start+aec.FftLengthBy2]) / aec.FftLengthBy2
	}

	hasReverb := firstSectionEnergy > 4*e.tailEnergy
	sane := firstSectionEnergy > 2*e.tailEnergy && sq[peak] < 100

	if sane && e.numSections > 0 {
		decay = max(0.97*e.reverbDecay, decay)
		decay = min(max(decay, MinDecay), MaxDecay)
		e.reverbDecay -= e.alpha * (e.reverbDecay - decay)
	}

	e.foundEnd = !(sane && hasReverb)
	e.alpha = 0
}

// updateFreqRespTail scales the direct path response by the smoothed
// tail-to-direct energy ratio and fills spectral dips from the neighbors.
func (e *Estimator) updateFreqRespTail(freqResp [][]float64, delayBlocks int, alpha float64) {
	if len(freqResp) == 0 || delayBlocks < 0 || delayBlocks >= len(freqResp) {
		return
	}
	tail := freqResp[len(freqResp)-1]
	direct := freqResp[delayBlocks]

	ratio := 0.0
	if directEnergy := vecmath.Sum(direct[1:aec.FftLengthBy2Plus1]); directEnergy > 0 {
		ratio = vecmath.Sum(tail[1:aec.FftLengthBy2Plus1]) / directEnergy
	}
	e.ratioTailToDirect += alpha * (ratio - e.ratioTailToDirect)

	vecmath.ScaleBlock(e.freqRespTail[:], direct[:aec.FftLengthBy2Plus1], e.ratioTailToDirect)

	for k := 1; k < aec.FftLengthBy2; k++ {
		avg := 0.5 * (e.freqRespTail[k-1] + e.freqRespTail[k+1])
		e.freqRespTail[k] = max(e.freqRespTail[k], avg)
	}
}
