package delay

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/algo-aec/aec"
	"github.com/cwbudde/algo-aec/aec/config"
	"github.com/cwbudde/algo-aec/aec/decimator"
	"github.com/cwbudde/algo-aec/aec/fft"
	"github.com/cwbudde/algo-aec/aec/render"
	"github.com/cwbudde/algo-aec/internal/cpu"
	"github.com/cwbudde/algo-vecmath"
)

const (
	// activeRenderBlocks is the number of active blocks needed before render
	// is flagged active.
	activeRenderBlocks = 20
	// audioBufferDelayHeadroom is subtracted from the reported audio buffer
	// delay on reset.
	audioBufferDelayHeadroom = 2
)

// MultiRate is the RenderDelayBuffer built on a [render.History].
type MultiRate struct {
	cfg         config.Config
	log         *slog.Logger
	opt         cpu.Optimization
	history     *render.History
	buffer      *render.Buffer
	downsampled render.Downsampled
	decimator   *decimator.Decimator
	fft         *fft.Fft
	ds          []float64
	headroom    int
	numBands    int

	delay                           aec.Optional[int]
	internalDelay                   aec.Optional[int]
	externalAudioBufferDelay        aec.Optional[int]
	externalDelayVerifiedAfterReset bool

	lastCallWasRender     bool
	numAPICallsInARow     int
	maxObservedJitter     int
	captureCallCounter    int
	renderCallCounter     int
	renderActivity        bool
	renderActivityCounter int
	minLatencyBlocks      int
	excessRenderCounter   int
}

// NewMultiRate returns a multi-rate render delay buffer for numBands bands.
func NewMultiRate(cfg config.Config, numBands, id int) (*MultiRate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if numBands < 1 || numBands > 3 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBands, numBands)
	}

	factor := cfg.Delay.DownSamplingFactor
	dec, err := decimator.New(factor)
	if err != nil {
		return nil, fmt.Errorf("delay: %w", err)
	}
	f, err := fft.New()
	if err != nil {
		return nil, fmt.Errorf("delay: %w", err)
	}

	subBlockSize := aec.BlockSize / factor
	h := render.NewHistory(
		aec.RenderDelayBufferSize(factor, cfg.Delay.NumFilters, cfg.Filter.LengthBlocks),
		numBands,
		aec.DownsampledBufferSize(factor, cfg.Delay.NumFilters),
		subBlockSize,
	)

	b := &MultiRate{
		cfg:               cfg,
		log:               cfg.Log().With("component", "render_delay_buffer", "id", id),
		opt:               cpu.DetectOptimization(),
		history:           h,
		buffer:            render.NewBuffer(h),
		downsampled:       render.NewDownsampled(h),
		decimator:         dec,
		fft:               f,
		ds:                make([]float64, subBlockSize),
		headroom:          cfg.Filter.LengthBlocks,
		numBands:          numBands,
		maxObservedJitter: 1,
	}
	b.Reset()

	return b, nil
}

// Reset re-centers the read cursors and clears the jitter and excess render
// detectors.
func (b *MultiRate) Reset() {
	b.lastCallWasRender = false
	b.numAPICallsInARow = 1
	b.minLatencyBlocks = 0
	b.excessRenderCounter = 0

	b.history.ResetLowRateRead()

	if ext, ok := b.externalAudioBufferDelay.Get(); ok {
		d := 1
		if ext > audioBufferDelayHeadroom {
			d = ext - audioBufferDelayHeadroom
		}
		d = min(d, b.MaxDelay())

		b.internalDelay = aec.Some(d)
		b.applyDelay(d)
		b.delay = aec.Some(b.mapInternalToExternal())
		b.externalDelayVerifiedAfterReset = false
		return
	}

	b.applyDelay(b.cfg.Delay.DefaultDelay)
	b.delay = aec.None[int]()
	b.internalDelay = aec.None[int]()
}

// Insert stores a render block and returns RenderOverrun, after resetting,
// when the write cursor caught up with a read cursor.
func (b *MultiRate) Insert(block [][]float64) BufferingEvent {
	if len(block) != b.numBands {
		panic(fmt.Sprintf("delay: block has %d bands, want %d", len(block), b.numBands))
	}
	for k := range block {
		if len(block[k]) != aec.BlockSize {
			panic(fmt.Sprintf("delay: band %d has %d samples, want %d", k, len(block[k]), aec.BlockSize))
		}
	}

	b.renderCallCounter++
	if b.delay.IsSet() {
		if !b.lastCallWasRender {
			b.lastCallWasRender = true
			b.numAPICallsInARow = 1
		} else {
			b.trackJitter("render", b.renderCallCounter)
		}
	}

	previousWrite := b.history.Ring(render.ViewBlocks).Write
	b.history.AdvanceWrite()

	event := None
	if b.overrun() {
		event = RenderOverrun
	}

	if !b.renderActivity {
		if b.activeRender(block[0]) {
			b.renderActivityCounter++
		}
		b.renderActivity = b.renderActivityCounter >= activeRenderBlocks
	}

	b.insertBlock(block, previousWrite)

	if event != None {
		b.Reset()
	}

	return event
}

// PrepareCaptureProcessing advances the read cursors for one capture block.
// On underrun only the full-rate cursors move, which shortens the applied
// delay by one block.
func (b *MultiRate) PrepareCaptureProcessing() BufferingEvent {
	event := None
	b.captureCallCounter++

	if b.delay.IsSet() {
		if b.lastCallWasRender {
			b.lastCallWasRender = false
			b.numAPICallsInARow = 1
		} else {
			b.trackJitter("capture", b.captureCallCounter)
		}
	}

	switch {
	case b.excessRender():
		b.log.Warn("excess render blocks detected", "block", b.captureCallCounter)
		b.Reset()
		event = RenderOverrun
	case b.underrun():
		b.log.Warn("render buffer underrun", "block", b.captureCallCounter)
		b.history.AdvanceRead()
		if d, ok := b.delay.Get(); ok && d > 0 {
			b.delay = aec.Some(d - 1)
		}
		event = RenderUnderrun
	default:
		b.history.AdvanceLowRateRead()
		b.history.AdvanceRead()
	}

	b.buffer.SetRenderActivity(b.renderActivity)
	if b.renderActivity {
		b.renderActivityCounter = 0
		b.renderActivity = false
	}

	return event
}

// SetDelay applies the external delay and reports whether it changed.
func (b *MultiRate) SetDelay(delay int) bool {
	current, hasDelay := b.delay.Get()
	if !b.externalDelayVerifiedAfterReset && b.externalAudioBufferDelay.IsSet() && hasDelay {
		b.log.Warn("mismatch between first estimated delay after reset and external delay",
			"difference_blocks", delay-current)
		b.externalDelayVerifiedAfterReset = true
	}
	if hasDelay && current == delay {
		return false
	}
	b.delay = aec.Some(delay)

	internal := min(b.MaxDelay(), max(b.mapExternalToInternal(delay), 0))
	b.internalDelay = aec.Some(internal)
	b.applyDelay(internal)

	return true
}

// Delay returns the external delay implied by the current read cursors.
func (b *MultiRate) Delay() int { return b.mapInternalToExternal() }

// MaxDelay returns the block ring capacity minus one and the filter headroom.
func (b *MultiRate) MaxDelay() int {
	return b.history.NumSlots() - 1 - b.headroom
}

// RenderBuffer returns the full-rate view.
func (b *MultiRate) RenderBuffer() *render.Buffer { return b.buffer }

// DownsampledRenderBuffer returns the low-rate view.
func (b *MultiRate) DownsampledRenderBuffer() render.Downsampled { return b.downsampled }

// CausalDelay accepts every delay.
func (b *MultiRate) CausalDelay(int) bool { return true }

// SetAudioBufferDelay records the platform audio buffer delay, converting
// milliseconds to blocks rounded down.
func (b *MultiRate) SetAudioBufferDelay(ms int) {
	if !b.externalAudioBufferDelay.IsSet() {
		b.log.Warn("first reported external audio buffer delay", "ms", ms)
	}

	shift := 2
	if b.numBands == 1 {
		shift = 1
	}
	b.externalAudioBufferDelay = aec.Some(max(ms, 0) >> shift)
}

// MaxObservedJitter returns the longest run of same-kind calls seen while a
// delay was set.
func (b *MultiRate) MaxObservedJitter() int { return b.maxObservedJitter }

// Optimization returns the vector level detected for the spectral path.
func (b *MultiRate) Optimization() cpu.Optimization { return b.opt }

func (b *MultiRate) trackJitter(call string, counter int) {
	b.numAPICallsInARow++
	if b.numAPICallsInARow > b.maxObservedJitter {
		b.maxObservedJitter = b.numAPICallsInARow
		b.log.Warn("new max api call jitter observed",
			"call", call, "block", counter, "jitter_blocks", b.numAPICallsInARow)
	}
}

func (b *MultiRate) overrun() bool {
	l := b.history.Ring(render.ViewLowRate)
	bl := b.history.Ring(render.ViewBlocks)
	return l.Read == l.Write || bl.Read == bl.Write
}

// underrun counts the block ring only once an internal delay is known,
// since the full-rate offset is arbitrary before that.
func (b *MultiRate) underrun() bool {
	l := b.history.Ring(render.ViewLowRate)
	bl := b.history.Ring(render.ViewBlocks)
	return l.Read == l.Write || (b.internalDelay.IsSet() && bl.Read == bl.Write)
}

func (b *MultiRate) excessRender() bool {
	latency := b.history.LatencyBlocks()
	b.minLatencyBlocks = min(b.minLatencyBlocks, latency)

	b.excessRenderCounter++
	if b.excessRenderCounter < b.cfg.Buffering.ExcessRenderDetectionIntervalBlocks {
		return false
	}

	detected := b.minLatencyBlocks > b.cfg.Buffering.MaxAllowedExcessRenderBlocks
	b.minLatencyBlocks = latency
	b.excessRenderCounter = 0

	return detected
}

func (b *MultiRate) activeRender(x []float64) bool {
	limit := b.cfg.RenderLevels.ActiveRenderLimit
	return vecmath.DotProduct(x, x) > limit*limit*aec.FftLengthBy2
}

func (b *MultiRate) insertBlock(block [][]float64, previousWrite int) {
	bl := b.history.Ring(render.ViewBlocks)
	dst := b.history.Block(bl.Write)
	for k := range block {
		copy(dst[k], block[k])
	}

	b.decimator.Decimate(block[0], b.ds)
	slot := b.history.LowRateSlot()
	for i, v := range b.ds {
		slot[len(slot)-1-i] = v
	}

	w := b.history.Ring(render.ViewFfts).Write
	X := b.history.Fft(w)
	b.fft.PaddedFft(block[0], b.history.Block(previousWrite)[0], X)
	X.Spectrum(b.opt, b.history.Spectrum(b.history.Ring(render.ViewSpectra).Write))
}

func (b *MultiRate) applyDelay(delay int) {
	b.log.Warn("applying internal delay", "blocks", delay)
	b.history.ApplyDelay(delay)
}

func (b *MultiRate) mapExternalToInternal(external int) int {
	return b.history.LatencyBlocks() + external
}

func (b *MultiRate) mapInternalToExternal() int {
	s := b.history.Ring(render.ViewSpectra)
	internal := s.Read - s.Write
	if internal < 0 {
		internal += s.Size
	}
	return internal - b.history.LatencyBlocks()
}
