package delay

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-aec/aec"
	"github.com/cwbudde/algo-vecmath"
)

const (
	// minDriftPoints is the number of points a drift fit needs.
	minDriftPoints = 11
	// driftSetRatio and driftClearRatio bound the fitted slope in units of
	// its standard error for reporting and for dropping a drift.
	driftSetRatio   = 1
	driftClearRatio = 0.02
)

// DriftDetector fits a line to the most recent (time, delay) observations
// and reports the slope once it is significant. It detects clock drift
// between render and capture devices.
type DriftDetector struct {
	t, v []float64
	n    int
	last int

	drift, stdErr float64
	detected      aec.Optional[float64]
}

// NewDriftDetector returns a detector that fits the latest memory points.
func NewDriftDetector(memory int) *DriftDetector {
	if memory < minDriftPoints {
		panic(fmt.Sprintf("delay: drift memory %d below %d points", memory, minDriftPoints))
	}
	d := &DriftDetector{
		t: make([]float64, memory),
		v: make([]float64, memory),
	}
	d.Reset()
	return d
}

// Reset forgets all observations. A reported drift stays reported until
// a later fit clears it.
func (d *DriftDetector) Reset() {
	d.n = 0
	d.last = len(d.t) - 1
}

// Update adds the observation value at time and returns the drift in value
// units per time unit, if one is detected. A detected drift is reported
// while the slope stays above driftClearRatio standard errors.
func (d *DriftDetector) Update(time, value float64) aec.Optional[float64] {
	d.last = (d.last + 1) % len(d.t)
	d.n = min(d.n+1, len(d.t))
	d.t[d.last] = time
	d.v[d.last] = value

	d.fit()
	if math.Abs(d.drift) <= driftClearRatio*d.stdErr {
		d.detected = aec.None[float64]()
	}
	if math.Abs(d.drift) > driftSetRatio*d.stdErr {
		d.detected = aec.Some(d.drift)
	}
	return d.detected
}

// fit estimates the least squares slope and its standard error over the
// stored points. Too few points, or points sharing one time, yield zero.
func (d *DriftDetector) fit() {
	d.drift, d.stdErr = 0, 0
	if d.n < minDriftPoints {
		return
	}

	t, v := d.t[:d.n], d.v[:d.n]
	n := float64(d.n)
	tAvg := vecmath.Sum(t) / n
	vAvg := vecmath.Sum(v) / n

	var num, denom float64
	for i := range t {
		dt := t[i] - tAvg
		num += dt * (v[i] - vAvg)
		denom += dt * dt
	}
	if denom == 0 {
		return
	}
	d.drift = num / denom

	intercept := vAvg - d.drift*tAvg
	var rss float64
	for i := range t {
		r := v[i] - t[i]*d.drift - intercept
		rss += r * r
	}
	d.stdErr = math.Sqrt(rss/(n-2)) / math.Sqrt(denom)
}
