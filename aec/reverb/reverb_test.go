package reverb

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-aec/aec"
	"github.com/cwbudde/algo-aec/aec/config"
	"github.com/cwbudde/algo-aec/internal/testutil"
)

const testFilterBlocks = 13

// syntheticFilter returns an impulse response with a direct path in block 1,
// an exponential tail with per-block energy decay r and a noise floor in the
// last block, plus a flat per-partition frequency response.
func syntheticFilter(r float64, seed int64) ([]float64, [][]float64) {
	n := aec.TimeDomainLength(testFilterBlocks)
	ir := testutil.ExponentialImpulseResponse(n, aec.FftLengthBy2, aec.FftLengthBy2,
		n-aec.FftLengthBy2, r, 1e-4, seed)
	return ir, flatResponse(testFilterBlocks, 1)
}

func flatResponse(blocks int, v float64) [][]float64 {
	resp := make([][]float64, blocks)
	for i := range resp {
		resp[i] = testutil.DC(v, aec.FftLengthBy2Plus1)
	}
	return resp
}

func TestInitialDecayIsDefaultMagnitude(t *testing.T) {
	e := New(config.New(config.WithDefaultDecay(-0.83)))
	if got := e.ReverbDecay(); got != 0.83 {
		t.Fatalf("ReverbDecay() = %v, want 0.83", got)
	}
}

func TestDecayConvergesToSyntheticTail(t *testing.T) {
	for _, r := range []float64{0.6, 0.3} {
		e := New(config.Default())
		ir, resp := syntheticFilter(r, 1)
		for range 5000 {
			e.Update(ir, resp, aec.Some(1.0), 1, true, -0.83, false)
		}
		testutil.RequireNear(t, "decay", e.ReverbDecay(), r, 1e-3)
	}
}

func TestDecayStaysBounded(t *testing.T) {
	for _, r := range []float64{1e-3, 0.05, 0.5, 0.9, 0.999} {
		e := New(config.Default())
		ir, resp := syntheticFilter(r, 7)
		for i := range 2000 {
			e.Update(ir, resp, aec.Some(1.0), 1+i%3, true, -0.83, false)
			if d := e.ReverbDecay(); d < MinDecay || d > MaxDecay {
				t.Fatalf("r=%v update %d: decay %v outside [%v, %v]", r, i, d, MinDecay, MaxDecay)
			}
		}
	}
}

func TestPositiveDefaultDecayDisablesEstimation(t *testing.T) {
	e := New(config.Default())
	ir, resp := syntheticFilter(0.3, 2)
	for range 500 {
		e.Update(ir, resp, aec.Some(1.0), 1, true, 0.83, false)
	}
	if got := e.ReverbDecay(); got != 0.83 {
		t.Fatalf("ReverbDecay() = %v, want 0.83", got)
	}
}

func TestStationaryBlocksAreIgnored(t *testing.T) {
	e := New(config.Default())
	ir, resp := syntheticFilter(0.5, 3)
	for range 100 {
		e.Update(ir, resp, aec.Some(1.0), 1, true, -0.83, true)
	}
	if e.currentSection != 0 || e.alpha != 0 {
		t.Fatalf("regression advanced on stationary blocks: section %d alpha %v", e.currentSection, e.alpha)
	}
	for k, v := range e.FreqRespTail() {
		if v != 0 {
			t.Fatalf("FreqRespTail()[%d] = %v, want 0", k, v)
		}
	}
}

func TestBadFilterResetsRegression(t *testing.T) {
	tests := []struct {
		name   string
		delay  int
		usable bool
		irLen  int
	}{
		{"unusable", 1, false, aec.TimeDomainLength(testFilterBlocks)},
		{"zero delay", 0, true, aec.TimeDomainLength(testFilterBlocks)},
		{"late delay", testFilterBlocks - 3, true, aec.TimeDomainLength(testFilterBlocks)},
		{"short response", 1, true, aec.TimeDomainLength(testFilterBlocks) - 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := New(config.Default())
			ir, resp := syntheticFilter(0.5, 4)
			for range 20 {
				e.Update(ir, resp, aec.Some(1.0), 1, true, -0.83, false)
			}
			if e.currentSection == 0 {
				t.Fatal("regression did not advance on a good filter")
			}
			decay := e.ReverbDecay()

			e.Update(ir[:tc.irLen], resp, aec.Some(1.0), tc.delay, tc.usable, -0.83, false)
			if e.currentSection != 0 || e.numSections != 0 || e.alpha != 0 || e.foundEnd {
				t.Fatalf("decay estimation not reset: section %d sections %d alpha %v",
					e.currentSection, e.numSections, e.alpha)
			}
			if e.ReverbDecay() != decay {
				t.Fatalf("ReverbDecay() = %v after reset, want %v", e.ReverbDecay(), decay)
			}
		})
	}
}

func TestFreqRespTailRatio(t *testing.T) {
	e := New(config.Default())
	resp := flatResponse(testFilterBlocks, 1)
	resp[testFilterBlocks-1] = testutil.DC(0.25, aec.FftLengthBy2Plus1)

	e.Update(nil, resp, aec.Some(1.0), 1, false, 0.83, false)

	// One update moves the ratio 0.2 of the way from 0 to 0.25.
	for _, v := range e.FreqRespTail() {
		testutil.RequireNear(t, "tail", v, 0.05, 1e-12)
	}
}

func TestFreqRespTailFillsDips(t *testing.T) {
	e := New(config.Default())
	resp := flatResponse(testFilterBlocks, 1)
	resp[testFilterBlocks-1] = testutil.DC(0.25, aec.FftLengthBy2Plus1)
	resp[1][10] = 0

	e.Update(nil, resp, aec.Some(1.0), 1, false, 0.83, false)

	tail := e.FreqRespTail()
	if tail[10] <= 0 || tail[10] != tail[9] {
		t.Fatalf("tail[10] = %v, want neighbor average %v", tail[10], tail[9])
	}
}

func TestFreqRespTailNeedsQuality(t *testing.T) {
	e := New(config.Default())
	resp := flatResponse(testFilterBlocks, 1)
	e.Update(nil, resp, aec.None[float64](), 1, false, 0.83, false)
	for _, v := range e.FreqRespTail() {
		if v != 0 {
			t.Fatal("tail response updated without a quality estimate")
		}
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	e := New(config.Default())
	ir, resp := syntheticFilter(0.3, 5)
	for range 1000 {
		e.Update(ir, resp, aec.Some(1.0), 1, true, -0.83, false)
	}
	e.Reset()
	if e.ReverbDecay() != 0.83 || e.FreqRespTail()[3] != 0 {
		t.Fatalf("Reset left decay %v tail %v", e.ReverbDecay(), e.FreqRespTail()[3])
	}
}

func TestLinearRegressorRecoversSlope(t *testing.T) {
	const n = 4 * aec.FftLengthBy2
	var r linearRegressor
	if got := r.estimateDecay(0.5); got != 0.5 {
		t.Fatalf("estimateDecay() without data = %v, want fallback 0.5", got)
	}

	slope := math.Log2(0.7) / aec.FftLengthBy2
	r.initAccumulators(n)
	for i := range n {
		r.update(3 + slope*float64(i))
	}
	testutil.RequireNear(t, "decay", r.estimateDecay(0), 0.7, 1e-9)
}

func TestEarlyReflections(t *testing.T) {
	const n = blocksPerSection * aec.FftLengthBy2
	nn := float64(n) * (float64(n)*float64(n) - 1) / 12
	rising := tiltRising * nn / aec.FftLengthBy2

	s := newSectionRegressors(30)
	if got := s.earlyReflections(); got != 0 {
		t.Fatalf("earlyReflections() = %d, want 0", got)
	}

	s.numerators[1] = 2 * rising
	if got := s.earlyReflections(); got != 2*blocksPerSection {
		t.Fatalf("earlyReflections() = %d, want %d", got, 2*blocksPerSection)
	}

	short := newSectionRegressors(testFilterBlocks - blocksFirstReflections)
	short.numerators[0] = 2 * rising
	if got := short.earlyReflections(); got != 0 {
		t.Fatalf("short filter earlyReflections() = %d, want 0", got)
	}
}
