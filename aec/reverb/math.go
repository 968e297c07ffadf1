//go:build !fastmath

package reverb

import "math"

// log2 computes log2(x) using standard library math.
func log2(x float64) float64 {
	return math.Log2(x)
}

// pow2 computes 2^x using standard library math.
func pow2(x float64) float64 {
	return math.Pow(2, x)
}
