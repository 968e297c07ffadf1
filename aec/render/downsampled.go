package render

// Downsampled is the read-only view of the low-rate render ring used by the
// delay estimator. Samples are stored newest first.
type Downsampled struct {
	h *History
}

// NewDownsampled returns a view of the low-rate ring of h.
func NewDownsampled(h *History) Downsampled {
	return Downsampled{h: h}
}

// Len returns the ring size in samples.
func (d Downsampled) Len() int { return len(d.h.lowRate) }

// Read returns the read cursor.
func (d Downsampled) Read() int { return d.h.rings[ViewLowRate].Read }

// Write returns the write cursor.
func (d Downsampled) Write() int { return d.h.rings[ViewLowRate].Write }

// At returns the sample at index i.
func (d Downsampled) At(i int) float64 { return d.h.lowRate[i] }

// Samples returns the ring storage. Callers must not modify it.
func (d Downsampled) Samples() []float64 { return d.h.lowRate }
