package erle

import (
	"slices"
	"testing"

	"github.com/cwbudde/algo-aec/aec"
	"github.com/cwbudde/algo-aec/aec/config"
	"github.com/cwbudde/algo-aec/aec/render"
	"github.com/cwbudde/algo-aec/internal/testutil"
)

const (
	testBlocks = 13
	loudRender = 1e8
)

func dc(v float64) []float64 { return testutil.DC(v, aec.FftLengthBy2Plus1) }

// flatRenderBuffer returns a render buffer whose spectra are all ones.
func flatRenderBuffer() *render.Buffer {
	const slots = 20
	h := render.NewHistory(slots, 1, slots*16, 16)
	for i := range slots {
		copy(h.Spectrum(i), dc(1))
	}
	return render.NewBuffer(h)
}

// responseIn returns a filter power response that is one in blocks
// [from, to) and zero elsewhere.
func responseIn(from, to int) [][]float64 {
	H2 := make([][]float64, testBlocks)
	for i := range H2 {
		v := 0.0
		if i >= from && i < to {
			v = 1
		}
		H2[i] = dc(v)
	}
	return H2
}

func requireErleBounds(t *testing.T, erle []float64, cfg config.Config) {
	t.Helper()
	for k, v := range erle {
		if v < cfg.Erle.Min || v > maxErle(k, cfg.Erle.MaxL, cfg.Erle.MaxH) {
			t.Fatalf("erle[%d] = %v outside bounds", k, v)
		}
	}
}

func TestBandToSubband(t *testing.T) {
	tests := []struct{ band, want int }{
		{0, 0}, {7, 0}, {8, 1}, {31, 3}, {32, 4}, {47, 4}, {48, 5}, {64, 5},
	}
	for _, tc := range tests {
		if got := bandToSubband(tc.band); got != tc.want {
			t.Fatalf("bandToSubband(%d) = %d, want %d", tc.band, got, tc.want)
		}
	}
}

func TestSectionLayout(t *testing.T) {
	tests := []struct {
		sections       int
		wantSizes      []int
		wantBoundaries []int
	}{
		{1, []int{11}, []int{0, 13}},
		{2, []int{2, 9}, []int{2, 4, 13}},
		{3, []int{2, 4, 5}, []int{2, 4, 8, 13}},
		{4, []int{2, 2, 2, 5}, []int{2, 4, 6, 8, 13}},
	}
	for _, tc := range tests {
		sizes := sectionSizes(tc.sections, testBlocks-2)
		if !slices.Equal(sizes, tc.wantSizes) {
			t.Fatalf("sectionSizes(%d) = %v, want %v", tc.sections, sizes, tc.wantSizes)
		}
		b := sectionBoundaries(2, testBlocks, sizes)
		if !slices.Equal(b, tc.wantBoundaries) {
			t.Fatalf("sectionBoundaries(%d) = %v, want %v", tc.sections, b, tc.wantBoundaries)
		}
	}
}

func TestNewSignalDependentPanicsOnTooManySections(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewSignalDependent(config.New(config.WithErleSections(testBlocks)))
}

func TestSingleSectionKeepsMinimum(t *testing.T) {
	cfg := config.Default()
	e := NewSignalDependent(cfg)
	e.Update(flatRenderBuffer(), responseIn(0, testBlocks), dc(loudRender), dc(4), dc(1), dc(3), true)
	for k, v := range e.Erle() {
		if v != cfg.Erle.Min {
			t.Fatalf("Erle()[%d] = %v, want %v", k, v, cfg.Erle.Min)
		}
	}
}

func TestLowRenderKeepsCorrectionFactors(t *testing.T) {
	cfg := config.New(config.WithErleSections(3))
	e := NewSignalDependent(cfg)
	rb := flatRenderBuffer()

	for i := range 1000 {
		H2 := responseIn(2, 4)
		if i%2 == 1 {
			H2 = responseIn(8, testBlocks)
		}
		e.Update(rb, H2, dc(1), dc(4), dc(1), dc(2), true)
	}

	for s := range e.NumSections() {
		for sb := range NumSubbands {
			if got := e.CorrectionFactor(s, sb); got != 1 {
				t.Fatalf("CorrectionFactor(%d, %d) = %v, want 1", s, sb, got)
			}
		}
	}
	for k, v := range e.Erle() {
		want := min(2, maxErle(k, cfg.Erle.MaxL, cfg.Erle.MaxH))
		if v != want {
			t.Fatalf("Erle()[%d] = %v, want %v", k, v, want)
		}
	}
}

func TestCorrectionFactorsFollowActiveSection(t *testing.T) {
	cfg := config.New(config.WithErleSections(3))
	e := NewSignalDependent(cfg)
	rb := flatRenderBuffer()

	// Early echo comes with a high ERLE, late echo with none.
	for i := range 1000 {
		if i%2 == 0 {
			e.Update(rb, responseIn(2, 4), dc(loudRender), dc(4), dc(1), dc(2), true)
		} else {
			e.Update(rb, responseIn(8, testBlocks), dc(loudRender), dc(1), dc(1), dc(2), true)
		}
		requireErleBounds(t, e.Erle(), cfg)
	}

	if got := e.CorrectionFactor(0, 0); got < 1.5 {
		t.Fatalf("CorrectionFactor(0, 0) = %v, want > 1.5", got)
	}
	if got := e.CorrectionFactor(2, 0); got > 0.7 {
		t.Fatalf("CorrectionFactor(2, 0) = %v, want < 0.7", got)
	}
	if got := e.CorrectionFactor(1, 0); got != 1 {
		t.Fatalf("CorrectionFactor(1, 0) = %v, want 1", got)
	}

	e.Reset()
	if got := e.CorrectionFactor(0, 0); got != 1 {
		t.Fatalf("CorrectionFactor(0, 0) after Reset = %v, want 1", got)
	}
}

func TestSignalDependentErleStaysBounded(t *testing.T) {
	cfg := config.New(config.WithErleSections(4))
	e := NewSignalDependent(cfg)
	rb := flatRenderBuffer()
	noise := testutil.DeterministicNoise(3, 1, 4*aec.FftLengthBy2Plus1*500)

	for i := range 500 {
		at := func(j int) []float64 {
			out := make([]float64, aec.FftLengthBy2Plus1)
			base := (4*i + j) * aec.FftLengthBy2Plus1
			for k := range out {
				out[k] = noise[base+k] * noise[base+k]
			}
			return out
		}
		H2 := make([][]float64, testBlocks)
		for b := range H2 {
			H2[b] = at(b % 4)
		}
		X2 := at(0)
		for k := range X2 {
			X2[k] *= 10 * loudRender
		}
		erleIn := at(3)
		for k := range erleIn {
			erleIn[k] = 1 + 10*erleIn[k]
		}
		e.Update(rb, H2, X2, at(1), at(2), erleIn, true)
		requireErleBounds(t, e.Erle(), cfg)
	}
}

func TestSubbandConvergesAndHoldsOnset(t *testing.T) {
	cfg := config.Default()
	e := NewSubband(cfg)

	for range 2000 {
		e.Update(dc(loudRender), dc(3), dc(1), true, true)
	}

	erle := e.Erle()
	testutil.RequireNear(t, "erle[5]", erle[5], 3, 1e-3)
	if erle[40] != cfg.Erle.MaxH {
		t.Fatalf("erle[40] = %v, want %v", erle[40], cfg.Erle.MaxH)
	}
	if erle[0] != erle[1] || erle[aec.FftLengthBy2] != erle[aec.FftLengthBy2-1] {
		t.Fatalf("edge bins not copied: %v %v %v %v",
			erle[0], erle[1], erle[aec.FftLengthBy2], erle[aec.FftLengthBy2-1])
	}

	// The first converged update of each bin sets the onset once.
	testutil.RequireNear(t, "onset[5]", e.ErleOnsets()[5], 1.3, 1e-12)

	// Without converged updates the hold expires and the ERLE falls to the
	// onset value.
	for range 400 {
		e.Update(dc(loudRender), dc(3), dc(1), false, true)
	}
	if got, want := e.Erle()[5], e.ErleOnsets()[5]; got != want {
		t.Fatalf("erle[5] = %v after hold, want onset %v", got, want)
	}
}

func TestSubbandLowRenderDoesNotDecrease(t *testing.T) {
	e := NewSubband(config.Default())
	for range 1200 {
		e.Update(dc(loudRender), dc(3), dc(1), true, false)
	}
	before := e.Erle()[10]

	for range 600 {
		e.Update(dc(1), dc(1), dc(1), true, false)
	}
	if got := e.Erle()[10]; got != before {
		t.Fatalf("erle[10] = %v on low render, want unchanged %v", got, before)
	}
}

func TestSubbandReset(t *testing.T) {
	cfg := config.Default()
	e := NewSubband(cfg)
	for range 600 {
		e.Update(dc(loudRender), dc(3), dc(1), true, true)
	}
	e.Reset()
	for k := range aec.FftLengthBy2Plus1 {
		if e.Erle()[k] != cfg.Erle.Min || e.ErleOnsets()[k] != cfg.Erle.Min {
			t.Fatalf("bin %d not reset: erle %v onset %v", k, e.Erle()[k], e.ErleOnsets()[k])
		}
	}
}

func TestEstimatorSelectsStage(t *testing.T) {
	rb := flatRenderBuffer()
	H2 := responseIn(2, 4)

	single := New(config.Default())
	if single.SignalDependent() != nil {
		t.Fatal("single section estimator has a correction stage")
	}
	for range 300 {
		single.Update(rb, H2, dc(loudRender), dc(3), dc(1), true)
	}
	if &single.Erle()[0] != &single.subband.Erle()[0] {
		t.Fatal("single section Erle() is not the subband estimate")
	}

	cfg := config.New(config.WithErleSections(3))
	multi := New(cfg)
	for range 300 {
		multi.Update(rb, H2, dc(loudRender), dc(3), dc(1), true)
		requireErleBounds(t, multi.Erle(), cfg)
	}
	if &multi.Erle()[0] != &multi.SignalDependent().Erle()[0] {
		t.Fatal("multi section Erle() is not the corrected estimate")
	}

	multi.Reset()
	for k, v := range multi.Erle() {
		if v != cfg.Erle.Min {
			t.Fatalf("Erle()[%d] = %v after Reset, want %v", k, v, cfg.Erle.Min)
		}
	}
}
