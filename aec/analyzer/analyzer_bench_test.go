package analyzer

import (
	"testing"

	"github.com/cwbudde/algo-aec/aec/config"
)

func BenchmarkUpdate(b *testing.B) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"incremental", nil},
		{"full", []Option{WithFullAnalysis()}},
	}
	for _, tc := range tests {
		b.Run(tc.name, func(b *testing.B) {
			a := New(config.Default(), tc.opts...)
			h := impulseFilter(1)
			rb := renderBuffer(1000)

			b.ResetTimer()

			for b.Loop() {
				a.Update(h, rb)
			}
		})
	}
}
