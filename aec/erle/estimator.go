package erle

import (
	"github.com/cwbudde/algo-aec/aec/config"
	"github.com/cwbudde/algo-aec/aec/render"
)

// Estimator combines the subband ERLE with the signal-dependent correction,
// which is only present for more than one filter section.
type Estimator struct {
	onsetDetection  bool
	subband         *SubbandEstimator
	signalDependent *SignalDependentEstimator
}

// New returns an estimator configured by cfg.Erle.
func New(cfg config.Config) *Estimator {
	e := &Estimator{
		onsetDetection: cfg.Erle.OnsetDetection,
		subband:        NewSubband(cfg),
	}
	if cfg.Erle.NumSections > 1 {
		e.signalDependent = NewSignalDependent(cfg)
	}
	return e
}

// Reset restores the initial estimates.
func (e *Estimator) Reset() {
	e.subband.Reset()
	if e.signalDependent != nil {
		e.signalDependent.Reset()
	}
}

// Update feeds one block. H2 is the filter power response per block.
func (e *Estimator) Update(
	rb *render.Buffer,
	H2 [][]float64,
	X2, Y2, E2 []float64,
	converged bool,
) {
	e.subband.Update(X2, Y2, E2, converged, e.onsetDetection)
	if e.signalDependent != nil {
		e.signalDependent.Update(rb, H2, X2, Y2, E2, e.subband.Erle(), converged)
	}
}

// Erle returns the ERLE per bin.
func (e *Estimator) Erle() []float64 {
	if e.signalDependent != nil {
		return e.signalDependent.Erle()
	}
	return e.subband.Erle()
}

// ErleOnsets returns the ERLE measured at echo onsets.
func (e *Estimator) ErleOnsets() []float64 { return e.subband.ErleOnsets() }

// SignalDependent returns the correction stage, or nil for a single
// filter section.
func (e *Estimator) SignalDependent() *SignalDependentEstimator { return e.signalDependent }
