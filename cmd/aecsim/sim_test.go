package main

import (
	"testing"

	"github.com/cwbudde/algo-aec/aec/config"
	"github.com/cwbudde/algo-aec/aec/delay"
)

func defaultParams() params {
	return params{rate: 16000, blocks: 1000, delay: 8, every: 100, decay: 0.5, gain: 0.5, seed: 1}
}

func TestSteadyRunSettles(t *testing.T) {
	p := defaultParams()
	cfg := config.Default()
	sim, err := newSimulator(cfg, p)
	if err != nil {
		t.Fatalf("newSimulator() error = %v", err)
	}
	rows := sim.run()

	var last row
	periodic := 0
	for _, r := range rows {
		if r.event == delay.None {
			periodic++
			last = r
		}
		for g, v := range r.erle {
			if v < cfg.Erle.Min || v > cfg.Erle.MaxL {
				t.Fatalf("block %d: erle group %d = %v out of range", r.capture, g, v)
			}
		}
	}
	if periodic != p.blocks/p.every {
		t.Fatalf("got %d periodic rows, want %d", periodic, p.blocks/p.every)
	}
	if last.capture != p.blocks || last.delay != p.delay {
		t.Fatalf("last row block %d delay %d, want %d and %d", last.capture, last.delay, p.blocks, p.delay)
	}
	if last.poorRender || last.drift.IsSet() {
		t.Fatalf("white render flagged poor %v with drift %v", last.poorRender, last.drift)
	}
	if !last.consistent || last.filterDelay != cfg.Delay.DelayHeadroomBlocks {
		t.Fatalf("filter analysis consistent %v delay %d, want true and %d",
			last.consistent, last.filterDelay, cfg.Delay.DelayHeadroomBlocks)
	}
}

func TestLongBurstsOverrun(t *testing.T) {
	p := defaultParams()
	p.burst = 160
	p.blocks = 320
	sim, err := newSimulator(config.Default(), p)
	if err != nil {
		t.Fatalf("newSimulator() error = %v", err)
	}
	for _, r := range sim.run() {
		if r.event == delay.RenderOverrun {
			return
		}
	}
	t.Fatal("no render overrun reported")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*params)
		wantErr bool
	}{
		{"defaults", func(*params) {}, false},
		{"rate", func(p *params) { p.rate = 44100 }, true},
		{"blocks", func(p *params) { p.blocks = 0 }, true},
		{"every", func(p *params) { p.every = 0 }, true},
		{"burst", func(p *params) { p.burst = -1 }, true},
		{"decay", func(p *params) { p.decay = 1 }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := defaultParams()
			tc.mutate(&p)
			if err := validate(p); (err != nil) != tc.wantErr {
				t.Fatalf("validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
