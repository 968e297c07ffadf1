package aec

// Block and transform geometry shared by every stage of the echo canceller.
const (
	BlockSize          = 64
	BlockSizeLog2      = 6
	FftLengthBy2       = 64
	FftLengthBy2Plus1  = FftLengthBy2 + 1
	FftLengthBy2Minus1 = FftLengthBy2 - 1
	FftLength          = 2 * FftLengthBy2
	NumBlocksPerSecond = 250

	// MatchedFilterWindowSizeSubBlocks is the length of one delay-estimator
	// matched filter in down-sampled sub-blocks.
	MatchedFilterWindowSizeSubBlocks = 32
	// MatchedFilterAlignmentShiftSizeSubBlocks is the overlap shift between
	// consecutive matched filters.
	MatchedFilterAlignmentShiftSizeSubBlocks = MatchedFilterWindowSizeSubBlocks * 3 / 4

	// MaxAdaptiveFilterLength bounds the adaptive filter length in blocks.
	MaxAdaptiveFilterLength = 50
)

// DownsampledBufferSize returns the number of samples held by the low-rate
// render ring for the given down-sampling factor and matched filter count.
func DownsampledBufferSize(downSamplingFactor, numMatchedFilters int) int {
	return BlockSize / downSamplingFactor *
		(MatchedFilterAlignmentShiftSizeSubBlocks*numMatchedFilters +
			MatchedFilterWindowSizeSubBlocks + 1)
}

// RenderDelayBufferSize returns the number of full-rate block slots needed so
// that the full-rate rings cover the low-rate history plus one filter length.
func RenderDelayBufferSize(downSamplingFactor, numMatchedFilters, filterLengthBlocks int) int {
	subBlockSize := BlockSize / downSamplingFactor
	return DownsampledBufferSize(downSamplingFactor, numMatchedFilters)/subBlockSize +
		filterLengthBlocks + 1
}

// TimeDomainLength returns the impulse response length in samples of a
// filter with the given number of partitions.
func TimeDomainLength(filterLengthBlocks int) int {
	return filterLengthBlocks * FftLengthBy2
}

// NumBandsForRate returns the number of 16 kHz bands used at sampleRateHz.
func NumBandsForRate(sampleRateHz int) int {
	switch sampleRateHz {
	case 32000:
		return 2
	case 48000:
		return 3
	default:
		return 1
	}
}
