package testutil

import (
	"math"
	"math/rand"
)

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Block returns a render block with numBands bands of blockSize samples. Band
// zero carries noise of the given amplitude; upper bands are silent.
func Block(numBands, blockSize int, amplitude float64, seed int64) [][]float64 {
	block := make([][]float64, numBands)
	block[0] = DeterministicNoise(seed, amplitude, blockSize)
	for b := 1; b < numBands; b++ {
		block[b] = make([]float64, blockSize)
	}
	return block
}

// SilentBlock returns an all-zero render block.
func SilentBlock(numBands, blockSize int) [][]float64 {
	block := make([][]float64, numBands)
	for b := range block {
		block[b] = make([]float64, blockSize)
	}
	return block
}

// ExponentialImpulseResponse generates a deterministic impulse response of
// the given length. It is silent up to peak, has a unit spike at peak, and
// then decays with noise whose energy drops by decayPerSection every
// sectionLength samples. Samples past tailStart are replaced by a noise floor
// of the given amplitude.
func ExponentialImpulseResponse(length, peak, sectionLength, tailStart int,
	decayPerSection, floor float64, seed int64,
) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))

	// Energy scales by decayPerSection per section, amplitude by its square root.
	ampStep := math.Pow(decayPerSection, 0.5/float64(sectionLength))
	amp := 1.0
	for i := peak; i < length; i++ {
		sign := 1.0
		if rng.Intn(2) == 0 {
			sign = -1
		}
		switch {
		case i == peak:
			out[i] = 1
		case i >= tailStart:
			out[i] = sign * floor
		default:
			out[i] = sign * amp * 0.5
		}
		amp *= ampStep
	}
	return out
}
