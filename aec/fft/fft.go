// Package fft provides the fixed-size real transform used by the echo
// canceller: 128-point transforms of two consecutive 64-sample blocks,
// returning the 65 non-redundant bins.
package fft

import (
	"fmt"

	"github.com/cwbudde/algo-aec/aec"
	"github.com/cwbudde/algo-aec/internal/cpu"
	algofft "github.com/cwbudde/algo-fft"
)

// Fft is a 128-point real transform. It owns its scratch memory, so one
// instance must not be used from several goroutines at once.
type Fft struct {
	plan *algofft.Plan[complex128]
	buf  []complex128
	opt  cpu.Optimization
}

// New creates a transform with a cached plan.
func New() (*Fft, error) {
	plan, err := algofft.NewPlan64(aec.FftLength)
	if err != nil {
		return nil, fmt.Errorf("fft: failed to create FFT plan: %w", err)
	}

	return &Fft{
		plan: plan,
		buf:  make([]complex128, aec.FftLength),
		opt:  cpu.DetectOptimization(),
	}, nil
}

// Optimization reports the vector level detected for the spectral kernels.
func (f *Fft) Optimization() cpu.Optimization { return f.opt }

// Fft transforms the aec.FftLength samples in x into X.
func (f *Fft) Fft(x []float64, X *Data) {
	if len(x) != aec.FftLength {
		panic(fmt.Sprintf("fft: input length %d, want %d", len(x), aec.FftLength))
	}

	for i, v := range x {
		f.buf[i] = complex(v, 0)
	}

	f.forward(X)
}

// ZeroPaddedFft transforms aec.FftLengthBy2 zeros followed by x.
func (f *Fft) ZeroPaddedFft(x []float64, X *Data) {
	if len(x) != aec.FftLengthBy2 {
		panic(fmt.Sprintf("fft: input length %d, want %d", len(x), aec.FftLengthBy2))
	}

	for i := range aec.FftLengthBy2 {
		f.buf[i] = 0
		f.buf[aec.FftLengthBy2+i] = complex(x[i], 0)
	}

	f.forward(X)
}

// PaddedFft transforms the concatenation of xOld and x, both
// aec.FftLengthBy2 samples long.
func (f *Fft) PaddedFft(x, xOld []float64, X *Data) {
	if len(x) != aec.FftLengthBy2 || len(xOld) != aec.FftLengthBy2 {
		panic(fmt.Sprintf("fft: input lengths %d/%d, want %d", len(x), len(xOld), aec.FftLengthBy2))
	}

	for i := range aec.FftLengthBy2 {
		f.buf[i] = complex(xOld[i], 0)
		f.buf[aec.FftLengthBy2+i] = complex(x[i], 0)
	}

	f.forward(X)
}

// Ifft writes the aec.FftLength-sample inverse transform of X into x. The
// inverse is normalized, so Ifft(Fft(x)) reproduces x.
func (f *Fft) Ifft(X *Data, x []float64) {
	if len(x) != aec.FftLength {
		panic(fmt.Sprintf("fft: output length %d, want %d", len(x), aec.FftLength))
	}

	f.buf[0] = complex(X.Re[0], 0)
	f.buf[aec.FftLengthBy2] = complex(X.Re[aec.FftLengthBy2], 0)
	for k := 1; k < aec.FftLengthBy2; k++ {
		f.buf[k] = complex(X.Re[k], X.Im[k])
		f.buf[aec.FftLength-k] = complex(X.Re[k], -X.Im[k])
	}

	if err := f.plan.Inverse(f.buf, f.buf); err != nil {
		panic(fmt.Sprintf("fft: inverse transform failed: %v", err))
	}

	for i := range x {
		x[i] = real(f.buf[i])
	}
}

func (f *Fft) forward(X *Data) {
	if err := f.plan.Forward(f.buf, f.buf); err != nil {
		panic(fmt.Sprintf("fft: forward transform failed: %v", err))
	}

	for k := range aec.FftLengthBy2Plus1 {
		X.Re[k] = real(f.buf[k])
		X.Im[k] = imag(f.buf[k])
	}
	X.Im[0] = 0
	X.Im[aec.FftLengthBy2] = 0
}
