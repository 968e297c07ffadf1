// Package cpu reports the vector instruction level the echo canceller's
// spectral kernels can rely on.
//
// Detection runs once, on the first call to [DetectOptimization], and the
// result is cached. Tests can pin a level with [SetForcedOptimization].
package cpu

import (
	"sync"
)

// Optimization is the vector instruction level used by the spectral path.
type Optimization int

const (
	// None selects the pure Go kernels.
	None Optimization = iota
	// SSE2 is the amd64 baseline.
	SSE2
	// AVX2 enables 256-bit kernels on amd64.
	AVX2
	// NEON is ARM Advanced SIMD.
	NEON
)

// String returns a human-readable name for the level.
func (o Optimization) String() string {
	switch o {
	case None:
		return "none"
	case SSE2:
		return "sse2"
	case AVX2:
		return "avx2"
	case NEON:
		return "neon"
	default:
		return "unknown"
	}
}

// features is the raw capability set gathered per architecture.
type features struct {
	hasSSE2 bool
	hasAVX2 bool
	hasNEON bool
	arch    string
}

func (f features) optimization() Optimization {
	switch {
	case f.hasAVX2:
		return AVX2
	case f.hasSSE2:
		return SSE2
	case f.hasNEON:
		return NEON
	default:
		return None
	}
}

var (
	detected   Optimization
	detectOnce sync.Once

	forcedMu sync.RWMutex
	forced   *Optimization
)

// DetectOptimization returns the best level supported by this machine.
// It is safe for concurrent use.
func DetectOptimization() Optimization {
	forcedMu.RLock()
	f := forced
	forcedMu.RUnlock()

	if f != nil {
		return *f
	}

	detectOnce.Do(func() {
		detected = detectFeatures().optimization()
	})

	return detected
}

// Architecture returns the GOARCH the detection ran on.
func Architecture() string {
	return detectFeatures().arch
}

// SetForcedOptimization overrides detection. Intended for tests.
func SetForcedOptimization(o Optimization) {
	forcedMu.Lock()
	defer forcedMu.Unlock()
	forced = &o
}

// ResetForcedOptimization restores hardware detection.
func ResetForcedOptimization() {
	forcedMu.Lock()
	defer forcedMu.Unlock()
	forced = nil
}
