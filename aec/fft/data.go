package fft

import (
	"github.com/cwbudde/algo-aec/aec"
	"github.com/cwbudde/algo-aec/internal/cpu"
	"github.com/cwbudde/algo-vecmath"
)

// Data holds the non-redundant half of a 128-point real spectrum.
type Data struct {
	Re [aec.FftLengthBy2Plus1]float64
	Im [aec.FftLengthBy2Plus1]float64
}

// Clear zeroes all bins.
func (d *Data) Clear() {
	d.Re = [aec.FftLengthBy2Plus1]float64{}
	d.Im = [aec.FftLengthBy2Plus1]float64{}
}

// Assign copies v into d.
func (d *Data) Assign(v *Data) {
	d.Re = v.Re
	d.Im = v.Im
}

// Spectrum writes the power |X[k]|^2 of every bin into dst, which must hold
// aec.FftLengthBy2Plus1 values. Level cpu.None selects the scalar loop,
// any vector level the vecmath kernel.
func (d *Data) Spectrum(opt cpu.Optimization, dst []float64) {
	dst = dst[:aec.FftLengthBy2Plus1]
	if opt == cpu.None {
		for k := range dst {
			dst[k] = d.Re[k]*d.Re[k] + d.Im[k]*d.Im[k]
		}
		return
	}
	vecmath.Power(dst, d.Re[:], d.Im[:])
}
