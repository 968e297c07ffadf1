package reverb

import "github.com/cwbudde/algo-aec/aec"

// linearRegressor fits a line to N equally spaced samples centered on zero.
// Only the slope numerator is accumulated; the denominator is known in
// closed form once N is fixed.
type linearRegressor struct {
	nz    float64
	nn    float64
	count float64
}

func (r *linearRegressor) reset() {
	r.nz = 0
	r.nn = 0
	r.count = 0
}

func (r *linearRegressor) initAccumulators(n float64) {
	r.nz = 0
	r.nn = n * (n*n - 1) / 12
	r.count = -n*0.5 + 0.5
}

func (r *linearRegressor) update(z float64) {
	r.nz += r.count * z
	r.count++
}

// estimateDecay returns the per-block energy decay implied by the fitted
// log2 slope, or fallback when nothing was accumulated.
func (r *linearRegressor) estimateDecay(fallback float64) float64 {
	if r.nn == 0 {
		return fallback
	}
	return pow2(r.nz / r.nn * aec.FftLengthBy2)
}

func (r *linearRegressor) numerator() float64 { return r.nz }

const (
	blocksPerSection  = 6
	sectionsToAnalyze = 3

	// Slope numerators of a section whose energy rises by 10% or falls by 20%
	// per block: log2(1.1) and log2(0.8).
	tiltRising  = 0.13750352374993502
	tiltFalling = -0.32192809488736229
)

// sectionRegressors fits one line per group of blocksPerSection blocks to
// find early reflections that would bias the main regression.
type sectionRegressors struct {
	regressors []linearRegressor
	numerators []float64
	idx        int
	started    bool
}

func newSectionRegressors(blocks int) sectionRegressors {
	n := 1 + blocks/blocksPerSection
	return sectionRegressors{
		regressors: make([]linearRegressor, n),
		numerators: make([]float64, n),
	}
}

func (s *sectionRegressors) startBlock(block int) {
	s.idx = block / blocksPerSection
	if s.idx*blocksPerSection == block {
		s.regressors[s.idx].initAccumulators(blocksPerSection * aec.FftLengthBy2)
		s.started = true
	}
}

func (s *sectionRegressors) update(z float64) {
	s.regressors[s.idx].update(z)
}

func (s *sectionRegressors) endBlock(block int, alpha float64) {
	s.idx = block / blocksPerSection
	if (s.idx+1)*blocksPerSection-1 != block {
		return
	}
	// A section entered mid-way has an incomplete fit.
	if !s.started {
		s.regressors[s.idx].reset()
	}
	s.started = false
	s.numerators[s.idx] += alpha * (s.regressors[s.idx].numerator() - s.numerators[s.idx])
}

// earlyReflections returns the number of blocks after the first reflections
// to skip. Filters too short to have a stable region after the analyzed
// sections report none.
func (s *sectionRegressors) earlyReflections() int {
	if len(s.numerators) <= sectionsToAnalyze {
		return 0
	}

	const n = blocksPerSection * aec.FftLengthBy2
	const nn = n * (n*n - 1) / 12.0
	const numeratorRising = tiltRising * nn / aec.FftLengthBy2
	const numeratorFalling = tiltFalling * nn / aec.FftLengthBy2

	minStable := s.numerators[sectionsToAnalyze]
	for _, v := range s.numerators[sectionsToAnalyze+1:] {
		minStable = min(minStable, v)
	}

	early := 0
	for k := range sectionsToAnalyze {
		v := s.numerators[k]
		if v > numeratorRising || (v < numeratorFalling && v < 0.9*minStable) {
			early = (k + 1) * blocksPerSection
		}
	}
	return early
}

func (s *sectionRegressors) reset() {
	for i := range s.regressors {
		s.regressors[i].reset()
	}
	clear(s.numerators)
	s.idx = 0
	s.started = false
}
