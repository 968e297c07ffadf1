package reverb

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-aec/aec"
	"github.com/cwbudde/algo-aec/internal/testutil"
)

func TestSchroederDecay(t *testing.T) {
	for _, r := range []float64{0.3, 0.5} {
		n := aec.TimeDomainLength(testFilterBlocks)
		ir := testutil.ExponentialImpulseResponse(n, aec.FftLengthBy2, aec.FftLengthBy2, n, r, 0, 1)
		got, err := SchroederDecay(ir)
		if err != nil {
			t.Fatalf("SchroederDecay(r=%v) error = %v", r, err)
		}
		testutil.RequireNear(t, "schroeder decay", got, r, 0.05)
	}
}

func TestSchroederDecayErrors(t *testing.T) {
	tests := []struct {
		name string
		ir   []float64
		want error
	}{
		{"empty", nil, ErrEmptyResponse},
		{"impulse only", testutil.Impulse(256, 10), ErrNoDecay},
		{"flat tail", append(testutil.Impulse(1, 0), testutil.DC(0.01, 49)...), ErrNoDecay},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := SchroederDecay(tc.ir); !errors.Is(err, tc.want) {
				t.Fatalf("SchroederDecay() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRT60(t *testing.T) {
	want := 60 / (10 * math.Log10(2) * aec.NumBlocksPerSecond)
	testutil.RequireNear(t, "RT60(0.5)", RT60(0.5), want, 1e-12)
	if RT60(0) != 0 || RT60(1) != 0 {
		t.Fatal("RT60 outside (0, 1) should be 0")
	}
}
