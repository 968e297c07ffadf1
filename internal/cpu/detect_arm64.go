//go:build arm64

package cpu

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// detectFeatures reports NEON, which is mandatory on ARMv8.
func detectFeatures() features {
	return features{
		hasNEON: cpu.ARM64.HasASIMD,
		arch:    runtime.GOARCH,
	}
}
