package analyzer

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// peakDetector decides whether the filter peak stands out from the rest of
// the response. Taps close to the previous peak are excluded.
type peakDetector struct {
	significant   bool
	floorAccum    float64
	secondaryPeak float64
	limit1        int
	limit2        int
}

func (p *peakDetector) reset() { *p = peakDetector{} }

func (p *peakDetector) accumulate(h []float64) {
	if len(h) == 0 {
		return
	}
	for _, v := range h {
		p.floorAccum += math.Abs(v)
	}
	p.secondaryPeak = max(p.secondaryPeak, vecmath.MaxAbs(h))
}

func (p *peakDetector) update(h []float64, r region, peakIndex int) {
	if end := min(r.end, p.limit1); r.start < end {
		p.accumulate(h[r.start:end])
	}
	if start := max(p.limit2, r.start); start < r.end {
		p.accumulate(h[start:r.end])
	}

	if !r.last {
		return
	}

	n := len(h)
	floor := p.floorAccum / float64(p.limit1+n-p.limit2)
	peak := math.Abs(h[peakIndex])
	p.significant = peak > 10*floor && peak > 2*p.secondaryPeak

	p.floorAccum = 0
	p.secondaryPeak = 0
	p.limit1 = max(peakIndex-64, 0)
	if peakIndex > n-129 {
		p.limit2 = 0
	} else {
		p.limit2 = peakIndex + 128
	}
}
