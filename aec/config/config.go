// Package config holds the numeric tunables of the echo canceller core.
//
// Values are expected to be validated and clamped by the caller; [Config.Validate]
// only checks the construction-time contracts the core relies on.
package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cwbudde/algo-aec/aec"
)

// ErrInvalidConfig is wrapped by every error returned from [Config.Validate].
var ErrInvalidConfig = errors.New("config: invalid echo canceller configuration")

// Delay configures the render delay buffer and delay estimator geometry.
type Delay struct {
	DefaultDelay        int // blocks applied when no external estimate exists
	DownSamplingFactor  int // full-rate to low-rate ratio; divides aec.BlockSize
	NumFilters          int // matched filters covering the low-rate history
	DelayHeadroomBlocks int // blocks before the direct path in the adaptive filter
}

// Filter configures the main adaptive filter.
type Filter struct {
	LengthBlocks int
}

// Erle bounds the echo return loss enhancement estimates.
type Erle struct {
	Min            float64
	MaxL           float64 // upper bound below aec.FftLengthBy2/2
	MaxH           float64 // upper bound from aec.FftLengthBy2/2 upwards
	OnsetDetection bool
	NumSections    int // filter sections for the signal-dependent correction
}

// EpStrength describes the echo path.
type EpStrength struct {
	Lf         float64
	DefaultLen float64 // reverb decay; negative requests online estimation
	BoundedErl bool
}

// RenderLevels configures render activity detection.
type RenderLevels struct {
	ActiveRenderLimit float64
}

// Buffering configures excess render detection.
type Buffering struct {
	ExcessRenderDetectionIntervalBlocks int
	MaxAllowedExcessRenderBlocks        int
}

// Config is the bundle of tunables consumed by the core.
type Config struct {
	Delay        Delay
	Filter       Filter
	Erle         Erle
	EpStrength   EpStrength
	RenderLevels RenderLevels
	Buffering    Buffering

	// Logger receives buffering diagnostics. Nil discards them.
	Logger *slog.Logger
}

// Default returns the default echo canceller configuration.
func Default() Config {
	return Config{
		Delay: Delay{
			DefaultDelay:        5,
			DownSamplingFactor:  4,
			NumFilters:          5,
			DelayHeadroomBlocks: 2,
		},
		Filter: Filter{LengthBlocks: 13},
		Erle: Erle{
			Min:            1,
			MaxL:           4,
			MaxH:           1.5,
			OnsetDetection: true,
			NumSections:    1,
		},
		EpStrength: EpStrength{
			Lf:         1,
			DefaultLen: 0.83,
		},
		RenderLevels: RenderLevels{ActiveRenderLimit: 100},
		Buffering: Buffering{
			ExcessRenderDetectionIntervalBlocks: 250,
			MaxAllowedExcessRenderBlocks:        8,
		},
	}
}

// Log returns the configured logger or a logger that discards everything.
func (c Config) Log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Validate checks the contracts the core asserts at construction time.
func (c Config) Validate() error {
	f := c.Delay.DownSamplingFactor
	if f <= 0 || aec.BlockSize%f != 0 {
		return fmt.Errorf("%w: down-sampling factor %d must divide %d", ErrInvalidConfig, f, aec.BlockSize)
	}
	if c.Delay.NumFilters <= 0 {
		return fmt.Errorf("%w: number of matched filters must be > 0: %d", ErrInvalidConfig, c.Delay.NumFilters)
	}
	if c.Delay.DefaultDelay < 0 {
		return fmt.Errorf("%w: default delay must be >= 0: %d", ErrInvalidConfig, c.Delay.DefaultDelay)
	}
	if c.Filter.LengthBlocks <= 0 || c.Filter.LengthBlocks > aec.MaxAdaptiveFilterLength {
		return fmt.Errorf("%w: filter length must be in [1,%d]: %d",
			ErrInvalidConfig, aec.MaxAdaptiveFilterLength, c.Filter.LengthBlocks)
	}
	if c.Delay.DelayHeadroomBlocks < 0 || c.Delay.DelayHeadroomBlocks >= c.Filter.LengthBlocks {
		return fmt.Errorf("%w: delay headroom %d must be in [0,%d)",
			ErrInvalidConfig, c.Delay.DelayHeadroomBlocks, c.Filter.LengthBlocks)
	}
	if c.Erle.NumSections < 1 || c.Erle.NumSections > c.Filter.LengthBlocks-c.Delay.DelayHeadroomBlocks {
		return fmt.Errorf("%w: erle sections %d must be in [1,%d]",
			ErrInvalidConfig, c.Erle.NumSections, c.Filter.LengthBlocks-c.Delay.DelayHeadroomBlocks)
	}
	if c.Erle.Min <= 0 || c.Erle.MaxL < c.Erle.Min || c.Erle.MaxH < c.Erle.Min {
		return fmt.Errorf("%w: erle bounds min=%g maxL=%g maxH=%g",
			ErrInvalidConfig, c.Erle.Min, c.Erle.MaxL, c.Erle.MaxH)
	}
	if c.Buffering.ExcessRenderDetectionIntervalBlocks <= 0 {
		return fmt.Errorf("%w: excess render detection interval must be > 0: %d",
			ErrInvalidConfig, c.Buffering.ExcessRenderDetectionIntervalBlocks)
	}
	if c.RenderLevels.ActiveRenderLimit < 0 {
		return fmt.Errorf("%w: active render limit must be >= 0: %g", ErrInvalidConfig, c.RenderLevels.ActiveRenderLimit)
	}
	return nil
}
