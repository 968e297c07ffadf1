package render

import (
	"fmt"

	"github.com/cwbudde/algo-aec/aec"
	"github.com/cwbudde/algo-aec/aec/fft"
)

// View selects one representation of the render history.
type View int

const (
	// ViewBlocks holds the full-rate multi-band time-domain blocks.
	ViewBlocks View = iota
	// ViewSpectra holds the power spectrum of each block.
	ViewSpectra
	// ViewFfts holds the transform of each block.
	ViewFfts
	// ViewLowRate holds the decimated first band, one sub-block per slot.
	ViewLowRate

	numViews
)

func (v View) String() string {
	switch v {
	case ViewBlocks:
		return "blocks"
	case ViewSpectra:
		return "spectra"
	case ViewFfts:
		return "ffts"
	case ViewLowRate:
		return "low-rate"
	default:
		return fmt.Sprintf("View(%d)", int(v))
	}
}

// History is the synchronized multi-view render ring. One logical slot is
// one block in the full-rate views and subBlockSize samples in the low-rate
// view.
type History struct {
	rings        [numViews]Ring
	numBands     int
	subBlockSize int

	blocks  [][][]float64
	spectra [][]float64
	ffts    []fft.Data
	lowRate []float64
}

// NewHistory allocates a history with numSlots full-rate slots of numBands
// bands and a low-rate ring of lowRateSize samples. lowRateSize must be a
// multiple of subBlockSize.
func NewHistory(numSlots, numBands, lowRateSize, subBlockSize int) *History {
	if numSlots <= 0 || numBands <= 0 {
		panic(fmt.Sprintf("render: invalid history geometry: %d slots, %d bands", numSlots, numBands))
	}
	if subBlockSize <= 0 || lowRateSize <= 0 || lowRateSize%subBlockSize != 0 {
		panic(fmt.Sprintf("render: low-rate size %d is not a multiple of sub-block size %d",
			lowRateSize, subBlockSize))
	}

	h := &History{
		numBands:     numBands,
		subBlockSize: subBlockSize,
		blocks:       make([][][]float64, numSlots),
		spectra:      make([][]float64, numSlots),
		ffts:         make([]fft.Data, numSlots),
		lowRate:      make([]float64, lowRateSize),
	}

	for i := range numSlots {
		h.blocks[i] = make([][]float64, numBands)
		for b := range numBands {
			h.blocks[i][b] = make([]float64, aec.BlockSize)
		}
		h.spectra[i] = make([]float64, aec.FftLengthBy2Plus1)
	}

	h.rings[ViewBlocks] = NewRing(numSlots)
	h.rings[ViewSpectra] = NewRing(numSlots)
	h.rings[ViewFfts] = NewRing(numSlots)
	h.rings[ViewLowRate] = NewRing(lowRateSize)

	return h
}

// Ring returns a copy of the cursors of view v.
func (h *History) Ring(v View) Ring { return h.rings[v] }

// NumSlots returns the number of full-rate slots.
func (h *History) NumSlots() int { return len(h.blocks) }

// NumBands returns the number of bands per block.
func (h *History) NumBands() int { return h.numBands }

// SubBlockSize returns the number of low-rate samples per slot.
func (h *History) SubBlockSize() int { return h.subBlockSize }

// Offset moves index of view v by slots logical slots.
func (h *History) Offset(v View, index, slots int) int {
	if v == ViewLowRate {
		slots *= h.subBlockSize
	}
	return h.rings[v].Offset(index, slots)
}

// AdvanceWrite moves every write cursor to the next slot.
func (h *History) AdvanceWrite() {
	h.rings[ViewLowRate].UpdateWrite(-h.subBlockSize)
	h.rings[ViewBlocks].UpdateWrite(-1)
	h.rings[ViewSpectra].UpdateWrite(-1)
	h.rings[ViewFfts].UpdateWrite(-1)
}

// AdvanceRead moves the full-rate read cursors one slot towards newer data.
// It does nothing while the block view has no unread slot.
func (h *History) AdvanceRead() {
	if h.rings[ViewBlocks].Read == h.rings[ViewBlocks].Write {
		return
	}
	h.rings[ViewBlocks].UpdateRead(-1)
	h.rings[ViewSpectra].UpdateRead(-1)
	h.rings[ViewFfts].UpdateRead(-1)
}

// AdvanceLowRateRead moves the low-rate read cursor one slot.
func (h *History) AdvanceLowRateRead() {
	h.rings[ViewLowRate].UpdateRead(-h.subBlockSize)
}

// ResetLowRateRead places the low-rate read cursor one slot behind the
// write cursor.
func (h *History) ResetLowRateRead() {
	r := &h.rings[ViewLowRate]
	r.Read = r.Offset(r.Write, h.subBlockSize)
}

// ApplyDelay points the full-rate read cursors delay slots behind their
// write cursors.
func (h *History) ApplyDelay(delay int) {
	for _, v := range [...]View{ViewBlocks, ViewSpectra, ViewFfts} {
		r := &h.rings[v]
		r.Read = r.Offset(r.Write, delay)
	}
}

// Latency returns the number of unread low-rate samples.
func (h *History) Latency() int {
	r := h.rings[ViewLowRate]
	return (r.Size + r.Read - r.Write) % r.Size
}

// LatencyBlocks returns Latency in slots.
func (h *History) LatencyBlocks() int { return h.Latency() / h.subBlockSize }

// Block returns the bands stored at slot.
func (h *History) Block(slot int) [][]float64 { return h.blocks[slot] }

// Spectrum returns the power spectrum stored at slot.
func (h *History) Spectrum(slot int) []float64 { return h.spectra[slot] }

// Fft returns the transform stored at slot.
func (h *History) Fft(slot int) *fft.Data { return &h.ffts[slot] }

// LowRate returns the whole low-rate ring.
func (h *History) LowRate() []float64 { return h.lowRate }

// LowRateSlot returns the sub-block at the low-rate write cursor.
func (h *History) LowRateSlot() []float64 {
	w := h.rings[ViewLowRate].Write
	return h.lowRate[w : w+h.subBlockSize]
}
