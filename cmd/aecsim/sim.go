package main

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-aec/aec"
	"github.com/cwbudde/algo-aec/aec/analyzer"
	"github.com/cwbudde/algo-aec/aec/config"
	"github.com/cwbudde/algo-aec/aec/delay"
	"github.com/cwbudde/algo-aec/aec/erle"
	"github.com/cwbudde/algo-aec/aec/fft"
	"github.com/cwbudde/algo-aec/aec/reverb"
	"github.com/cwbudde/algo-aec/aec/signal"
	"github.com/cwbudde/algo-vecmath"
)

const (
	renderAmplitude = 3000
	tailFloor       = 1e-5
	trueErleLow     = 3
	trueErleHigh    = 1.3
	driftMemory     = 250
)

// bandGroups split the spectrum for the ERLE columns.
var bandGroups = [...][2]int{{1, 16}, {16, 32}, {32, 48}, {48, aec.FftLengthBy2}}

type params struct {
	rate   int
	blocks int
	delay  int
	burst  int
	every  int
	decay  float64
	gain   float64
	seed   int64
}

type row struct {
	capture     int
	event       delay.BufferingEvent
	delay       int
	filterDelay int
	consistent  bool
	poorRender  bool
	drift       aec.Optional[float64]
	decay       float64
	erle        [len(bandGroups)]float64
}

// simulator drives the render delay buffer with a synthetic render stream
// and feeds the estimators with a fixed synthetic echo path.
type simulator struct {
	p   params
	cfg config.Config

	buffer   delay.RenderDelayBuffer
	analyzer *analyzer.Analyzer
	reverb   *reverb.Estimator
	erle     *erle.Estimator
	signal   *signal.Analyzer
	drift    *delay.DriftDetector

	captures  int
	lastDrift aec.Optional[float64]

	rng    *rand.Rand
	block  [][]float64
	filter []float64
	H2     [][]float64
	Y2, E2 []float64
}

func newSimulator(cfg config.Config, p params) (*simulator, error) {
	buffer, err := delay.New(delay.KindMultiRate, cfg, aec.NumBandsForRate(p.rate), 0)
	if err != nil {
		return nil, err
	}
	f, err := fft.New()
	if err != nil {
		return nil, fmt.Errorf("aecsim: %w", err)
	}

	s := &simulator{
		p:        p,
		cfg:      cfg,
		buffer:   buffer,
		analyzer: analyzer.New(cfg),
		reverb:   reverb.New(cfg),
		erle:     erle.New(cfg),
		signal:   signal.New(cfg),
		drift:    delay.NewDriftDetector(driftMemory),
		rng:      rand.New(rand.NewSource(p.seed)),
		block:    make([][]float64, aec.NumBandsForRate(p.rate)),
		Y2:       make([]float64, aec.FftLengthBy2Plus1),
		E2:       make([]float64, aec.FftLengthBy2Plus1),
	}
	for b := range s.block {
		s.block[b] = make([]float64, aec.BlockSize)
	}

	blocks := cfg.Filter.LengthBlocks
	s.filter = echoPath(blocks, cfg.Delay.DelayHeadroomBlocks, p.decay, p.gain, s.rng)
	s.H2 = partitionSpectra(f, s.filter, blocks)
	return s, nil
}

// echoPath returns an impulse response with a direct path in block
// peakBlock followed by an exponential tail whose energy decays by decay
// per block.
func echoPath(blocks, peakBlock int, decay, gain float64, rng *rand.Rand) []float64 {
	h := make([]float64, aec.TimeDomainLength(blocks))
	peak := peakBlock*aec.FftLengthBy2 + 5
	h[peak] = gain

	perSample := math.Pow(decay, 1.0/(2*aec.FftLengthBy2))
	amp := 0.1 * gain
	for n := peak + 1; n < len(h); n++ {
		amp *= perSample
		h[n] = (amp + tailFloor) * (2*rng.Float64() - 1)
	}
	return h
}

func partitionSpectra(f *fft.Fft, h []float64, blocks int) [][]float64 {
	H2 := make([][]float64, blocks)
	var X fft.Data
	for b := range H2 {
		f.ZeroPaddedFft(h[b*aec.FftLengthBy2:(b+1)*aec.FftLengthBy2], &X)
		H2[b] = make([]float64, aec.FftLengthBy2Plus1)
		X.Spectrum(f.Optimization(), H2[b])
	}
	return H2
}

// run interleaves render and capture calls, in bursts when p.burst > 0,
// and returns one row every p.every captures plus one per buffering event.
func (s *simulator) run() []row {
	var rows []row
	renders, captures := 1, 1
	if s.p.burst > 0 {
		renders, captures = s.p.burst, s.p.burst
	}

	n := 0
	for n < s.p.blocks {
		for range renders {
			if ev := s.render(); ev != delay.None {
				rows = append(rows, s.snapshot(n, ev))
			}
		}
		for range captures {
			if n == s.p.blocks {
				break
			}
			ev := s.capture()
			n++
			if ev != delay.None || n%s.p.every == 0 {
				rows = append(rows, s.snapshot(n, ev))
			}
		}
	}
	return rows
}

func (s *simulator) render() delay.BufferingEvent {
	for _, band := range s.block {
		for i := range band {
			band[i] = renderAmplitude * (2*s.rng.Float64() - 1)
		}
	}
	return s.buffer.Insert(s.block)
}

func (s *simulator) capture() delay.BufferingEvent {
	ev := s.buffer.PrepareCaptureProcessing()
	s.buffer.SetDelay(s.p.delay)
	rb := s.buffer.RenderBuffer()

	s.analyzer.Update(s.filter, rb)
	consistent := s.analyzer.Consistent()
	s.signal.Update(rb, aec.Some(s.analyzer.DelayBlocks()))
	s.lastDrift = s.drift.Update(float64(s.captures), float64(s.buffer.Delay()))
	s.captures++

	quality := aec.None[float64]()
	if consistent {
		quality = aec.Some(1.0)
	}
	s.reverb.Update(s.filter, s.H2, quality, s.analyzer.DelayBlocks(), consistent,
		s.cfg.EpStrength.DefaultLen, false)

	X2 := rb.Spectrum(0)
	for k := range aec.FftLengthBy2Plus1 {
		var pathGain float64
		for _, h := range s.H2 {
			pathGain += h[k]
		}
		s.Y2[k] = X2[k] * pathGain
		if k < aec.FftLengthBy2/2 {
			s.E2[k] = s.Y2[k] / trueErleLow
		} else {
			s.E2[k] = s.Y2[k] / trueErleHigh
		}
	}
	s.erle.Update(rb, s.H2, X2, s.Y2, s.E2, consistent)
	return ev
}

func (s *simulator) snapshot(capture int, ev delay.BufferingEvent) row {
	r := row{
		capture:     capture,
		event:       ev,
		delay:       s.buffer.Delay(),
		filterDelay: s.analyzer.DelayBlocks(),
		consistent:  s.analyzer.Consistent(),
		poorRender:  s.signal.PoorSignalExcitation(),
		drift:       s.lastDrift,
		decay:       s.reverb.ReverbDecay(),
	}
	e := s.erle.Erle()
	for g, b := range bandGroups {
		r.erle[g] = vecmath.Sum(e[b[0]:b[1]]) / float64(b[1]-b[0])
	}
	return r
}
