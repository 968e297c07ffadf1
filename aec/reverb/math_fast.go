//go:build fastmath

package reverb

import (
	"github.com/meko-christian/algo-approx"
)

const ln2 = 0.693147180559945309417232121458

// log2 computes log2(x) using fast approximation.
func log2(x float64) float64 {
	return approx.FastLog(x) / ln2
}

// pow2 computes 2^x using fast approximation.
func pow2(x float64) float64 {
	return approx.FastExp(x * ln2)
}
