package render

import (
	"github.com/cwbudde/algo-aec/aec/fft"
	"github.com/cwbudde/algo-vecmath"
)

// Buffer is the full-rate view bound to the current read cursors.
// Offsets count slots towards older data.
type Buffer struct {
	h              *History
	renderActivity bool
}

// NewBuffer returns a view of h.
func NewBuffer(h *History) *Buffer {
	return &Buffer{h: h}
}

// Block returns the bands of the block offset slots before the read cursor.
func (b *Buffer) Block(offset int) [][]float64 {
	r := b.h.rings[ViewBlocks]
	return b.h.blocks[r.Offset(r.Read, offset)]
}

// Spectrum returns the power spectrum offset slots before the read cursor.
func (b *Buffer) Spectrum(offset int) []float64 {
	r := b.h.rings[ViewSpectra]
	return b.h.spectra[r.Offset(r.Read, offset)]
}

// FftData returns the transform offset slots before the read cursor.
func (b *Buffer) FftData(offset int) *fft.Data {
	r := b.h.rings[ViewFfts]
	return &b.h.ffts[r.Offset(r.Read, offset)]
}

// Position returns the read cursor of the transform view.
func (b *Buffer) Position() int { return b.h.rings[ViewFfts].Read }

// SpectrumRing returns the cursors of the spectrum view.
func (b *Buffer) SpectrumRing() Ring { return b.h.rings[ViewSpectra] }

// SpectrumAt returns the power spectrum stored at an absolute slot.
func (b *Buffer) SpectrumAt(slot int) []float64 { return b.h.spectra[slot] }

// SpectralSum writes the sum of the n most recent readable spectra to dst.
func (b *Buffer) SpectralSum(n int, dst []float64) {
	clear(dst)
	r := b.h.rings[ViewSpectra]
	idx := r.Read
	for range n {
		vecmath.AddBlockInPlace(dst, b.h.spectra[idx])
		idx = r.Inc(idx)
	}
}

// SpectralSums computes SpectralSum for nShort and nLong spectra in one
// pass. nShort must not exceed nLong.
func (b *Buffer) SpectralSums(nShort, nLong int, short, long []float64) {
	clear(short)
	r := b.h.rings[ViewSpectra]
	idx := r.Read
	k := 0
	for ; k < nShort; k++ {
		vecmath.AddBlockInPlace(short, b.h.spectra[idx])
		idx = r.Inc(idx)
	}
	copy(long, short)
	for ; k < nLong; k++ {
		vecmath.AddBlockInPlace(long, b.h.spectra[idx])
		idx = r.Inc(idx)
	}
}

// Headroom returns the number of transform slots between the write and
// read cursors.
func (b *Buffer) Headroom() int {
	r := b.h.rings[ViewFfts]
	if r.Write < r.Read {
		return r.Read - r.Write
	}
	return r.Size - r.Write + r.Read
}

// NumBands returns the number of bands per block.
func (b *Buffer) NumBands() int { return b.h.numBands }

// RenderActivity reports whether render was active since the previous
// capture block.
func (b *Buffer) RenderActivity() bool { return b.renderActivity }

// SetRenderActivity publishes the activity flag. It is called by the render
// delay buffer once per capture block.
func (b *Buffer) SetRenderActivity(active bool) { b.renderActivity = active }
