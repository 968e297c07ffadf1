// Package delay aligns the render history with capture processing.
//
// A [RenderDelayBuffer] receives render blocks through Insert and, once per
// capture block, moves its read cursors in PrepareCaptureProcessing so the
// [render.Buffer] view points at the render block that left the loudspeaker
// Delay() blocks ago. Buffer anomalies are reported as [BufferingEvent]
// values and recovered from locally; neither call ever fails.
//
// Callers must serialize all calls. Nothing in this package starts
// goroutines or takes locks.
package delay

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-aec/aec/config"
	"github.com/cwbudde/algo-aec/aec/render"
)

// ErrUnknownKind is returned by [New] for an unsupported buffer kind.
var ErrUnknownKind = errors.New("delay: unknown render delay buffer kind")

// ErrInvalidBands is returned when the band count is outside [1, 3].
var ErrInvalidBands = errors.New("delay: number of bands must be in [1,3]")

// BufferingEvent reports a render buffering anomaly.
type BufferingEvent int

const (
	// None means the call completed without anomaly.
	None BufferingEvent = iota
	// RenderUnderrun means capture asked for render data not yet inserted.
	RenderUnderrun
	// RenderOverrun means render outpaced capture and the buffer was reset.
	RenderOverrun
)

func (e BufferingEvent) String() string {
	switch e {
	case None:
		return "none"
	case RenderUnderrun:
		return "render underrun"
	case RenderOverrun:
		return "render overrun"
	default:
		return fmt.Sprintf("BufferingEvent(%d)", int(e))
	}
}

// RenderDelayBuffer buffers render blocks and applies the echo path delay.
type RenderDelayBuffer interface {
	// Reset re-centers the read cursors on the external audio buffer delay
	// when one was reported, otherwise on the default delay.
	Reset()
	// Insert stores one render block of aec.BlockSize samples per band.
	Insert(block [][]float64) BufferingEvent
	// PrepareCaptureProcessing advances the read cursors for the next
	// capture block.
	PrepareCaptureProcessing() BufferingEvent
	// SetDelay applies an external delay in blocks and reports whether it
	// changed.
	SetDelay(delay int) bool
	// Delay returns the applied external delay in blocks.
	Delay() int
	// MaxDelay returns the largest internal delay the buffer can apply.
	MaxDelay() int
	// RenderBuffer returns the full-rate view at the read cursors.
	RenderBuffer() *render.Buffer
	// DownsampledRenderBuffer returns the low-rate view.
	DownsampledRenderBuffer() render.Downsampled
	// CausalDelay reports whether delay can be served from inserted data.
	CausalDelay(delay int) bool
	// SetAudioBufferDelay reports the delay of the platform audio buffers.
	SetAudioBufferDelay(ms int)
}

// Kind selects a RenderDelayBuffer implementation.
type Kind int

const (
	// KindMultiRate is the multi-rate render history design.
	KindMultiRate Kind = iota
)

func (k Kind) String() string {
	switch k {
	case KindMultiRate:
		return "multi-rate"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// New returns a render delay buffer of the given kind. id tags the log
// records of the owning echo canceller instance.
func New(kind Kind, cfg config.Config, numBands, id int) (RenderDelayBuffer, error) {
	switch kind {
	case KindMultiRate:
		b, err := NewMultiRate(cfg, numBands, id)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownKind, kind)
	}
}
