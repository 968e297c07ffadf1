// Package decimator down-samples the first render band for the low-rate
// delay estimation history.
//
// Each decimator runs a sixth-order Butterworth anti-aliasing cascade
// followed by sample dropping. Factor 8 adds a second-order high-pass
// section that removes low-frequency noise the coarse delay search would
// otherwise lock onto.
package decimator

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-aec/aec"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design/pass"
)

// ErrInvalidFactor is returned for unsupported down-sampling factors.
var ErrInvalidFactor = errors.New("decimator: down-sampling factor must be 1, 2, 4 or 8")

const (
	antiAliasOrder = 6
	// antiAliasCutoff is the cutoff as a fraction of the full-rate sample
	// rate, before division by the down-sampling factor.
	antiAliasCutoff = 0.35
	// noiseReductionCutoff is the high-pass cutoff for factor 8, as a
	// fraction of the full-rate sample rate.
	noiseReductionCutoff = 0.0125
	noiseReductionOrder  = 2

	// Cutoffs are designed against a unit sample rate.
	normalizedRate = 1
)

// Decimator converts aec.BlockSize samples into aec.BlockSize/factor
// samples. It is stateful and must be fed consecutive blocks.
type Decimator struct {
	factor    int
	antiAlias *biquad.Chain
	noise     *biquad.Chain
	scratch   [aec.BlockSize]float64
}

// New returns a decimator for the given down-sampling factor.
func New(factor int) (*Decimator, error) {
	switch factor {
	case 1, 2, 4, 8:
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidFactor, factor)
	}

	d := &Decimator{factor: factor}
	if factor == 1 {
		return d, nil
	}

	d.antiAlias = biquad.NewChain(pass.ButterworthLP(antiAliasCutoff/float64(factor), antiAliasOrder, normalizedRate))
	if factor == 8 {
		d.noise = biquad.NewChain(pass.ButterworthHP(noiseReductionCutoff, noiseReductionOrder, normalizedRate))
	}

	return d, nil
}

// Factor returns the down-sampling factor.
func (d *Decimator) Factor() int { return d.factor }

// OutputSize returns the number of samples produced per block.
func (d *Decimator) OutputSize() int { return aec.BlockSize / d.factor }

// Decimate filters the aec.BlockSize samples of in and writes every
// factor-th filtered sample to out.
func (d *Decimator) Decimate(in, out []float64) {
	if len(in) != aec.BlockSize {
		panic(fmt.Sprintf("decimator: input length %d, want %d", len(in), aec.BlockSize))
	}
	if len(out) != aec.BlockSize/d.factor {
		panic(fmt.Sprintf("decimator: output length %d, want %d", len(out), aec.BlockSize/d.factor))
	}

	x := d.scratch[:]
	copy(x, in)

	if d.antiAlias != nil {
		d.antiAlias.ProcessBlock(x)
	}
	if d.noise != nil {
		d.noise.ProcessBlock(x)
	}

	for j, k := 0, 0; j < len(out); j, k = j+1, k+d.factor {
		out[j] = x[k]
	}
}

// Reset clears the filter state.
func (d *Decimator) Reset() {
	if d.antiAlias != nil {
		d.antiAlias.Reset()
	}
	if d.noise != nil {
		d.noise.Reset()
	}
}
