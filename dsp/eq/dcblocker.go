package eq

import "math"

// dcBlocker removes DC offset with a per-channel one-pole high-pass at 5 Hz:
//
//	y[n] = x[n] - x[n-1] + c*y[n-1]
//
// Cascaded boost filters can otherwise accumulate a small offset that eats
// headroom before the limiter.
type dcBlocker struct {
	coeff float64
	xPrev [2]float64
	yPrev [2]float64
}

const dcCutoffHz = 5.0

func (d *dcBlocker) init(sampleRate float64) {
	c := 1 - 2*math.Pi*dcCutoffHz/sampleRate

	if c < 0.95 {
		c = 0.95
	}

	if c > 0.9999 {
		c = 0.9999
	}

	d.coeff = c
	d.reset()
}

func (d *dcBlocker) reset() {
	d.xPrev = [2]float64{}
	d.yPrev = [2]float64{}
}

func (d *dcBlocker) process(ch int, x float64) float64 {
	y := x - d.xPrev[ch] + d.coeff*d.yPrev[ch]
	d.xPrev[ch] = x
	d.yPrev[ch] = y

	return y
}
