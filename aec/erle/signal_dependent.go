package erle

import (
	"fmt"

	"github.com/cwbudde/algo-aec/aec"
	"github.com/cwbudde/algo-aec/aec/config"
	"github.com/cwbudde/algo-aec/aec/render"
	"github.com/cwbudde/algo-vecmath"
)

const (
	smoothingDecrease = 0.1
	smoothingIncrease = smoothingDecrease / 2
	// correctionUpdates is the number of subband updates before correction
	// factors start to adapt.
	correctionUpdates = 50
	correctionRate    = 0.1
	activeTarget      = 0.9
)

type spectrum = [aec.FftLengthBy2Plus1]float64

// SignalDependentEstimator scales the average ERLE by a correction factor
// that depends on how many filter sections are needed to explain most of
// the echo estimate in each bin.
type SignalDependentEstimator struct {
	minErle, maxErleL, maxErleH float64
	numSections                 int
	numBlocks                   int
	boundaries                  []int

	erle              spectrum
	estimators        [][NumSubbands]float64
	reference         [NumSubbands]float64
	correctionFactors [][NumSubbands]float64
	numUpdates        [NumSubbands]int

	s2Accum       []spectrum
	nActive       [aec.FftLengthBy2Plus1]int
	x2Section     spectrum
	h2Section     spectrum
	energyTargets spectrum
}

// NewSignalDependent returns an estimator for cfg.Erle.NumSections
// sections of the main filter.
func NewSignalDependent(cfg config.Config) *SignalDependentEstimator {
	n := cfg.Erle.NumSections
	blocks := cfg.Filter.LengthBlocks
	headroom := cfg.Delay.DelayHeadroomBlocks
	if n < 1 || n > blocks-headroom {
		panic(fmt.Sprintf("erle: %d sections do not fit a %d block filter with %d blocks headroom",
			n, blocks, headroom))
	}

	e := &SignalDependentEstimator{
		minErle:           cfg.Erle.Min,
		maxErleL:          cfg.Erle.MaxL,
		maxErleH:          cfg.Erle.MaxH,
		numSections:       n,
		numBlocks:         blocks,
		boundaries:        sectionBoundaries(headroom, blocks, sectionSizes(n, blocks-headroom)),
		estimators:        make([][NumSubbands]float64, n),
		correctionFactors: make([][NumSubbands]float64, n),
		s2Accum:           make([]spectrum, n),
	}
	e.Reset()
	return e
}

// Reset restores the initial estimates.
func (e *SignalDependentEstimator) Reset() {
	fill(e.erle[:], e.minErle)
	for i := range e.estimators {
		fill(e.estimators[i][:], e.minErle)
		fill(e.correctionFactors[i][:], 1)
	}
	fill(e.reference[:], e.minErle)
	e.numUpdates = [NumSubbands]int{}
}

// Erle returns the corrected ERLE per bin. The slice is owned by the
// estimator.
func (e *SignalDependentEstimator) Erle() []float64 { return e.erle[:] }

// NumSections returns the number of filter sections.
func (e *SignalDependentEstimator) NumSections() int { return e.numSections }

// CorrectionFactor returns the correction applied to subband when section
// filter sections are active.
func (e *SignalDependentEstimator) CorrectionFactor(section, subband int) float64 {
	return e.correctionFactors[section][subband]
}

// Update corrects erleIn using the render spectra behind rb and the filter
// power response H2, one entry per filter block. X2, Y2 and E2 are the
// render, capture and residual echo power spectra. Correction factors adapt
// only while the filter has converged. A single section makes Update a
// no-op.
func (e *SignalDependentEstimator) Update(
	rb *render.Buffer,
	H2 [][]float64,
	X2, Y2, E2, erleIn []float64,
	converged bool,
) {
	if e.numSections <= 1 {
		return
	}

	e.computeEchoEstimatePerSection(rb, H2)
	e.computeActiveSections()

	if converged {
		e.updateCorrectionFactors(X2, Y2, E2)
	}

	for k := range aec.FftLengthBy2Plus1 {
		cf := e.correctionFactors[e.nActive[k]][bandToSubband(k)]
		e.erle[k] = clamp(erleIn[k]*cf, e.minErle, maxErle(k, e.maxErleL, e.maxErleH))
	}
}

// computeEchoEstimatePerSection accumulates, section by section, the echo
// power explained by the filter up to and including that section.
func (e *SignalDependentEstimator) computeEchoEstimatePerSection(rb *render.Buffer, H2 [][]float64) {
	ring := rb.SpectrumRing()
	idx := ring.Offset(rb.Position(), e.boundaries[0])

	for s := range e.numSections {
		e.x2Section = spectrum{}
		e.h2Section = spectrum{}
		for block := e.boundaries[s]; block < e.boundaries[s+1]; block++ {
			vecmath.AddBlockInPlace(e.x2Section[:], rb.SpectrumAt(idx)[:aec.FftLengthBy2Plus1])
			vecmath.AddBlockInPlace(e.h2Section[:], H2[block][:aec.FftLengthBy2Plus1])
			idx = ring.Inc(idx)
		}
		vecmath.MulBlock(e.s2Accum[s][:], e.x2Section[:], e.h2Section[:])
	}

	for s := 1; s < e.numSections; s++ {
		vecmath.AddBlockInPlace(e.s2Accum[s][:], e.s2Accum[s-1][:])
	}
}

// computeActiveSections finds per bin the first section whose cumulative
// echo estimate reaches the target share of the full filter.
func (e *SignalDependentEstimator) computeActiveSections() {
	vecmath.ScaleBlock(e.energyTargets[:], e.s2Accum[e.numSections-1][:], activeTarget)

	for k := range aec.FftLengthBy2Plus1 {
		e.nActive[k] = e.numSections - 1
		for s := range e.numSections {
			if e.s2Accum[s][k] >= e.energyTargets[k] {
				e.nActive[k] = s
				break
			}
		}
	}
}

func (e *SignalDependentEstimator) updateCorrectionFactors(X2, Y2, E2 []float64) {
	subbandLf := bandToSubband(aec.FftLengthBy2 / 2)

	for sb := range NumSubbands {
		lo, hi := subbandBoundaries[sb], subbandBoundaries[sb+1]
		x2 := vecmath.Sum(X2[lo:hi])
		e2 := vecmath.Sum(E2[lo:hi])
		if x2 <= X2BandEnergyThreshold || e2 <= 0 {
			continue
		}
		newErle := vecmath.Sum(Y2[lo:hi]) / e2

		// The shallowest bin of the subband decides which table row adapts.
		idx := e.numBlocks
		for _, n := range e.nActive[lo:hi] {
			idx = min(idx, n)
		}

		maxE := e.maxErleH
		if sb < subbandLf {
			maxE = e.maxErleL
		}

		est := &e.estimators[idx][sb]
		*est = clamp(*est+smoothing(newErle, *est)*(newErle-*est), e.minErle, maxE)

		ref := &e.reference[sb]
		*ref = clamp(*ref+smoothing(newErle, *ref)*(newErle-*ref), e.minErle, maxE)

		if e.numUpdates[sb] == correctionUpdates {
			cf := &e.correctionFactors[idx][sb]
			*cf += correctionRate * (*est / *ref - *cf)
		} else {
			e.numUpdates[sb]++
		}
	}
}

func smoothing(newValue, current float64) float64 {
	if newValue > current {
		return smoothingIncrease
	}
	return smoothingDecrease
}

// sectionSizes splits numBlocks into numSections groups that double in
// size while the remaining blocks allow it, then share the rest evenly.
func sectionSizes(numSections, numBlocks int) []int {
	sizes := make([]int, numSections)
	remainingBlocks := numBlocks
	remainingSections := numSections
	size := 2
	idx := 0
	for remainingSections > 1 && remainingBlocks/remainingSections > size {
		sizes[idx] = size
		remainingBlocks -= size
		remainingSections--
		size *= 2
		idx++
	}

	last := remainingBlocks / remainingSections
	for ; idx < numSections; idx++ {
		sizes[idx] = last
	}
	sizes[numSections-1] += remainingBlocks - last*remainingSections
	return sizes
}

// sectionBoundaries returns the first block of every section plus the
// filter length. A single section spans the whole filter.
func sectionBoundaries(headroomBlocks, numBlocks int, sizes []int) []int {
	b := make([]int, len(sizes)+1)
	if len(sizes) == 1 {
		b[1] = numBlocks
		return b
	}

	b[0] = headroomBlocks
	idx := 0
	current := 0
	for k := headroomBlocks; k < numBlocks; k++ {
		current++
		if current < sizes[idx] {
			continue
		}
		idx++
		if idx == len(sizes) {
			break
		}
		b[idx] = k + 1
		current = 0
	}
	b[len(sizes)] = numBlocks
	return b
}
