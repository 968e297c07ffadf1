// Package render keeps the render signal history shared by the echo
// canceller stages.
//
// A [History] stores every render block in four synchronized views: the
// full-rate multi-band blocks, their transforms, their power spectra and a
// down-sampled copy of the first band. All views advance together. Write
// cursors move backwards, so the newest block sits at the lowest index and
// positive offsets from a read cursor reach older data.
//
// [Buffer] and [Downsampled] are the read-only views handed to the
// estimators. Only the render delay buffer moves the cursors.
package render

// Ring is a read/write index pair over a circular buffer of Size slots.
type Ring struct {
	Size  int
	Read  int
	Write int
}

// NewRing returns a ring of the given size with both cursors at zero.
func NewRing(size int) Ring {
	if size <= 0 {
		panic("render: ring size must be positive")
	}
	return Ring{Size: size}
}

// Offset returns index moved by offset slots, wrapped into [0, Size).
func (r Ring) Offset(index, offset int) int {
	i := (index + offset) % r.Size
	if i < 0 {
		i += r.Size
	}
	return i
}

// Inc returns the index following index.
func (r Ring) Inc(index int) int { return r.Offset(index, 1) }

// Dec returns the index preceding index.
func (r Ring) Dec(index int) int { return r.Offset(index, -1) }

// UpdateRead moves the read cursor by offset.
func (r *Ring) UpdateRead(offset int) { r.Read = r.Offset(r.Read, offset) }

// UpdateWrite moves the write cursor by offset.
func (r *Ring) UpdateWrite(offset int) { r.Write = r.Offset(r.Write, offset) }
