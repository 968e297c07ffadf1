//go:build amd64

package cpu

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// detectFeatures reads CPUID through golang.org/x/sys/cpu. SSE2 is part of
// the x86-64 baseline.
func detectFeatures() features {
	return features{
		hasSSE2: cpu.X86.HasSSE2,
		hasAVX2: cpu.X86.HasAVX2,
		arch:    runtime.GOARCH,
	}
}
