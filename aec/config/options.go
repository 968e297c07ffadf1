package config

import "log/slog"

// Option mutates a Config.
type Option func(*Config)

// New applies zero or more options to the default configuration.
func New(opts ...Option) Config {
	cfg := Default()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithFilterLength sets the main adaptive filter length in blocks. The render
// delay buffer reserves the same number of blocks as headroom.
func WithFilterLength(blocks int) Option {
	return func(cfg *Config) { cfg.Filter.LengthBlocks = blocks }
}

// WithDefaultDelay sets the delay in blocks applied when no external estimate exists.
func WithDefaultDelay(blocks int) Option {
	return func(cfg *Config) { cfg.Delay.DefaultDelay = blocks }
}

// WithDownSamplingFactor sets the low-rate render down-sampling factor.
func WithDownSamplingFactor(factor int) Option {
	return func(cfg *Config) { cfg.Delay.DownSamplingFactor = factor }
}

// WithNumFilters sets the number of matched filters sizing the low-rate ring.
func WithNumFilters(n int) Option {
	return func(cfg *Config) { cfg.Delay.NumFilters = n }
}

// WithDelayHeadroom sets the adaptive filter delay headroom in blocks.
func WithDelayHeadroom(blocks int) Option {
	return func(cfg *Config) { cfg.Delay.DelayHeadroomBlocks = blocks }
}

// WithErleSections sets the number of filter sections used by the
// signal-dependent ERLE correction.
func WithErleSections(n int) Option {
	return func(cfg *Config) { cfg.Erle.NumSections = n }
}

// WithErleBounds sets the ERLE bounds.
func WithErleBounds(minErle, maxLow, maxHigh float64) Option {
	return func(cfg *Config) {
		cfg.Erle.Min = minErle
		cfg.Erle.MaxL = maxLow
		cfg.Erle.MaxH = maxHigh
	}
}

// WithDefaultDecay sets the default reverb decay. A negative value enables
// online decay estimation starting from its magnitude.
func WithDefaultDecay(decay float64) Option {
	return func(cfg *Config) { cfg.EpStrength.DefaultLen = decay }
}

// WithExcessRenderDetection sets the excess render detection interval and threshold.
func WithExcessRenderDetection(intervalBlocks, maxExcessBlocks int) Option {
	return func(cfg *Config) {
		cfg.Buffering.ExcessRenderDetectionIntervalBlocks = intervalBlocks
		cfg.Buffering.MaxAllowedExcessRenderBlocks = maxExcessBlocks
	}
}

// WithActiveRenderLimit sets the per-sample amplitude above which render is active.
func WithActiveRenderLimit(limit float64) Option {
	return func(cfg *Config) { cfg.RenderLevels.ActiveRenderLimit = limit }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *Config) { cfg.Logger = l }
}
