// Command aecsim runs the echo canceller's render buffering and estimators
// on a synthetic render stream and echo path.
//
// Usage:
//
//	aecsim [flags]
//
// Every -every capture blocks, and on every buffering event, it prints the
// buffer delay, the filter analysis, render excitation, delay drift, the
// reverb decay and the ERLE averaged over four band groups.
//
// Examples:
//
//	aecsim
//	aecsim -delay 12 -blocks 5000
//	aecsim -burst 40 -rate 48000
//	aecsim -estimate -decay 0.3 -sections 3
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-aec/aec/config"
	"github.com/cwbudde/algo-aec/aec/reverb"
)

func main() {
	var p params
	flag.IntVar(&p.rate, "rate", 16000, "sample rate in Hz (8000, 16000, 32000 or 48000)")
	flag.IntVar(&p.blocks, "blocks", 3000, "number of capture blocks to simulate")
	flag.IntVar(&p.delay, "delay", 8, "external echo delay in blocks")
	flag.IntVar(&p.burst, "burst", 0, "insert and capture in bursts of this many blocks (0 alternates)")
	flag.IntVar(&p.every, "every", 250, "print a row every this many capture blocks")
	flag.Float64Var(&p.decay, "decay", 0.5, "per-block energy decay of the synthetic echo tail")
	flag.Float64Var(&p.gain, "gain", 0.5, "direct path gain of the synthetic echo path")
	flag.Int64Var(&p.seed, "seed", 1, "random seed")
	estimate := flag.Bool("estimate", false, "estimate the reverb decay online")
	sections := flag.Int("sections", 1, "filter sections for the signal-dependent ERLE")
	verbose := flag.Bool("v", false, "log buffering diagnostics to stderr")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: aecsim [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Simulates render buffering, filter analysis, reverb and ERLE estimation.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  aecsim -delay 12 -blocks 5000\n")
		fmt.Fprintf(os.Stderr, "  aecsim -burst 40 -rate 48000\n")
		fmt.Fprintf(os.Stderr, "  aecsim -estimate -decay 0.3 -sections 3\n")
	}
	flag.Parse()

	if err := validate(p); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	defaultDecay := config.Default().EpStrength.DefaultLen
	if *estimate {
		defaultDecay = -defaultDecay
	}
	cfg := config.New(
		config.WithErleSections(*sections),
		config.WithDefaultDecay(defaultDecay),
		config.WithLogger(logger),
	)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	sim, err := newSimulator(cfg, p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	printRows(sim.run())

	if d, err := reverb.SchroederDecay(sim.filter); err == nil {
		fmt.Printf("\necho path tail: decay %.4f per block, RT60 %.3f s\n", d, reverb.RT60(d))
	}
}

func validate(p params) error {
	switch p.rate {
	case 8000, 16000, 32000, 48000:
	default:
		return fmt.Errorf("unsupported sample rate %d", p.rate)
	}
	if p.blocks <= 0 || p.every <= 0 {
		return errors.New("-blocks and -every must be positive")
	}
	if p.burst < 0 || p.delay < 0 {
		return errors.New("-burst and -delay must not be negative")
	}
	if p.decay <= 0 || p.decay >= 1 {
		return fmt.Errorf("decay %g outside (0, 1)", p.decay)
	}
	return nil
}

func printRows(rows []row) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "Block\tEvent\tDelay\tFilter Delay\tConsistent\tPoor Render\tDrift\tDecay\tERLE 0-2k\tERLE 2-4k\tERLE 4-6k\tERLE 6-8k\n"); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: failed to write output header: %v\n", err)
		return
	}
	if _, err := fmt.Fprintf(tw, "-----\t-----\t-----\t------------\t----------\t-----------\t-----\t-----\t---------\t---------\t---------\t---------\n"); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: failed to write output header: %v\n", err)
		return
	}

	for _, r := range rows {
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%t\t%t\t%s\t%.4f\t%.3f\t%.3f\t%.3f\t%.3f\n",
			r.capture,
			r.event,
			r.delay,
			r.filterDelay,
			r.consistent,
			r.poorRender,
			r.drift,
			r.decay,
			r.erle[0], r.erle[1], r.erle[2], r.erle[3],
		); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "error: failed to write output row: %v\n", err)
			return
		}
	}
	if err := tw.Flush(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}
