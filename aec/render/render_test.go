package render

import (
	"testing"

	"github.com/cwbudde/algo-aec/aec"
)

func TestRingOffset(t *testing.T) {
	r := NewRing(10)
	tests := []struct {
		index, offset, want int
	}{
		{0, 0, 0},
		{0, -1, 9},
		{9, 1, 0},
		{3, 25, 8},
		{3, -25, 8},
		{0, -10, 0},
	}
	for _, tc := range tests {
		if got := r.Offset(tc.index, tc.offset); got != tc.want {
			t.Fatalf("Offset(%d, %d) = %d, want %d", tc.index, tc.offset, got, tc.want)
		}
	}
	if r.Inc(9) != 0 || r.Dec(0) != 9 {
		t.Fatalf("Inc(9) = %d, Dec(0) = %d, want 0 and 9", r.Inc(9), r.Dec(0))
	}
}

func TestRingUpdate(t *testing.T) {
	r := NewRing(4)
	r.UpdateWrite(-1)
	r.UpdateRead(5)
	if r.Write != 3 || r.Read != 1 {
		t.Fatalf("cursors = (%d, %d), want (1, 3)", r.Read, r.Write)
	}
}

func TestNewHistoryPanicsOnSizeRatio(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for low-rate size not divisible by sub-block size")
		}
	}()
	NewHistory(10, 1, 100, 16)
}

func TestHistoryAdvanceKeepsViewsInStep(t *testing.T) {
	h := NewHistory(7, 2, 7*16, 16)
	for range 20 {
		h.AdvanceWrite()
		w := h.Ring(ViewBlocks).Write
		if h.Ring(ViewSpectra).Write != w || h.Ring(ViewFfts).Write != w {
			t.Fatalf("full-rate write cursors diverged: %d %d %d",
				w, h.Ring(ViewSpectra).Write, h.Ring(ViewFfts).Write)
		}
		if got := h.Ring(ViewLowRate).Write; got != w*16 {
			t.Fatalf("low-rate write = %d, want %d", got, w*16)
		}
	}
}

func TestHistoryWriteMovesBackwards(t *testing.T) {
	h := NewHistory(5, 1, 5*16, 16)
	h.AdvanceWrite()
	if got := h.Ring(ViewBlocks).Write; got != 4 {
		t.Fatalf("write = %d, want 4", got)
	}
	if got := h.Ring(ViewLowRate).Write; got != 64 {
		t.Fatalf("low-rate write = %d, want 64", got)
	}
}

func TestHistoryAdvanceReadStopsAtWrite(t *testing.T) {
	h := NewHistory(5, 1, 5*16, 16)
	h.AdvanceRead()
	if got := h.Ring(ViewBlocks).Read; got != 0 {
		t.Fatalf("read advanced to %d with no unread slot", got)
	}

	h.ApplyDelay(2)
	h.AdvanceRead()
	for _, v := range []View{ViewBlocks, ViewSpectra, ViewFfts} {
		if got := h.Ring(v).Read; got != 1 {
			t.Fatalf("%v read = %d, want 1", v, got)
		}
	}
}

func TestHistoryLatency(t *testing.T) {
	h := NewHistory(10, 1, 10*16, 16)
	h.ResetLowRateRead()
	if got := h.LatencyBlocks(); got != 1 {
		t.Fatalf("LatencyBlocks() = %d, want 1", got)
	}
	h.AdvanceWrite()
	h.AdvanceWrite()
	if got := h.Latency(); got != 48 {
		t.Fatalf("Latency() = %d, want 48", got)
	}
	h.AdvanceLowRateRead()
	if got := h.LatencyBlocks(); got != 2 {
		t.Fatalf("LatencyBlocks() = %d, want 2", got)
	}
}

func TestHistoryOffsetScalesLowRate(t *testing.T) {
	h := NewHistory(10, 1, 10*8, 8)
	if got := h.Offset(ViewLowRate, 0, -1); got != 72 {
		t.Fatalf("low-rate Offset = %d, want 72", got)
	}
	if got := h.Offset(ViewBlocks, 0, -1); got != 9 {
		t.Fatalf("block Offset = %d, want 9", got)
	}
}

func TestBufferOffsetsReachOlderData(t *testing.T) {
	h := NewHistory(6, 1, 6*16, 16)
	for i := range 4 {
		h.AdvanceWrite()
		w := h.Ring(ViewBlocks).Write
		h.Block(w)[0][0] = float64(i + 1)
		h.Spectrum(w)[0] = float64(i + 1)
		h.Fft(w).Re[0] = float64(i + 1)
	}
	h.ApplyDelay(0)

	b := NewBuffer(h)
	for offset := range 4 {
		want := float64(4 - offset)
		if got := b.Block(offset)[0][0]; got != want {
			t.Fatalf("Block(%d) = %v, want %v", offset, got, want)
		}
		if got := b.Spectrum(offset)[0]; got != want {
			t.Fatalf("Spectrum(%d) = %v, want %v", offset, got, want)
		}
		if got := b.FftData(offset).Re[0]; got != want {
			t.Fatalf("FftData(%d) = %v, want %v", offset, got, want)
		}
	}
	if b.Position() != h.Ring(ViewFfts).Read {
		t.Fatalf("Position() = %d, want %d", b.Position(), h.Ring(ViewFfts).Read)
	}
	if b.NumBands() != 1 {
		t.Fatalf("NumBands() = %d, want 1", b.NumBands())
	}
}

func TestBufferSpectralSums(t *testing.T) {
	h := NewHistory(6, 1, 6*16, 16)
	for i := range 6 {
		for k := range aec.FftLengthBy2Plus1 {
			h.Spectrum(i)[k] = float64(i)
		}
	}
	b := NewBuffer(h)

	sum := make([]float64, aec.FftLengthBy2Plus1)
	b.SpectralSum(3, sum)
	if sum[10] != 0+1+2 {
		t.Fatalf("SpectralSum(3) = %v, want 3", sum[10])
	}

	short := make([]float64, aec.FftLengthBy2Plus1)
	long := make([]float64, aec.FftLengthBy2Plus1)
	b.SpectralSums(2, 6, short, long)
	if short[0] != 1 || long[0] != 15 {
		t.Fatalf("SpectralSums = (%v, %v), want (1, 15)", short[0], long[0])
	}
}

func TestBufferHeadroom(t *testing.T) {
	h := NewHistory(8, 1, 8*16, 16)
	b := NewBuffer(h)
	if got := b.Headroom(); got != 8 {
		t.Fatalf("Headroom() = %d, want 8", got)
	}
	h.ApplyDelay(3)
	if got := b.Headroom(); got != 3 {
		t.Fatalf("Headroom() = %d, want 3", got)
	}
}

func TestBufferRenderActivity(t *testing.T) {
	b := NewBuffer(NewHistory(4, 1, 4*16, 16))
	if b.RenderActivity() {
		t.Fatal("new buffer reports activity")
	}
	b.SetRenderActivity(true)
	if !b.RenderActivity() {
		t.Fatal("SetRenderActivity(true) not visible")
	}
}

func TestDownsampledView(t *testing.T) {
	h := NewHistory(4, 1, 4*16, 16)
	h.AdvanceWrite()
	copy(h.LowRateSlot(), []float64{5, 6})
	d := NewDownsampled(h)

	if d.Len() != 64 {
		t.Fatalf("Len() = %d, want 64", d.Len())
	}
	if d.Write() != 48 || d.Read() != 0 {
		t.Fatalf("cursors = (%d, %d), want (0, 48)", d.Read(), d.Write())
	}
	if d.At(48) != 5 || d.Samples()[49] != 6 {
		t.Fatalf("slot = (%v, %v), want (5, 6)", d.At(48), d.Samples()[49])
	}
}

func TestViewString(t *testing.T) {
	if ViewLowRate.String() != "low-rate" || View(9).String() != "View(9)" {
		t.Fatalf("unexpected names %q %q", ViewLowRate.String(), View(9).String())
	}
}
