package analyzer

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithFullAnalysis analyzes the whole filter on every update instead of
// one block-sized region.
func WithFullAnalysis() Option {
	return func(a *Analyzer) { a.incremental = false }
}

// WithRawFilter searches the peak in the unfiltered response.
func WithRawFilter() Option {
	return func(a *Analyzer) { a.preprocess = false }
}
