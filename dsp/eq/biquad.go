package eq

// biquad is one stereo EQ band: a Direct-Form-II-Transposed section with
// per-channel state and a per-sample coefficient interpolator. Realtime
// parameter updates retarget the interpolator instead of replacing the
// coefficients, so a gain sweep never steps the transfer function.
type biquad struct {
	current coeffs
	target  coeffs
	delta   coeffs
	// remaining counts interpolation samples; when it hits zero the current
	// coefficients snap to the target to stop float drift.
	remaining int

	z1 [2]float64
	z2 [2]float64
}

func (b *biquad) init() {
	b.setImmediate(flatCoeffs)
	b.resetState()
}

func (b *biquad) resetState() {
	b.z1 = [2]float64{}
	b.z2 = [2]float64{}
}

// setImmediate replaces the coefficients with no ramp. Cold path only.
func (b *biquad) setImmediate(c coeffs) {
	b.current = c
	b.target = c
	b.delta = coeffs{}
	b.remaining = 0
}

// setTarget schedules a linear per-sample transition to c over n samples.
func (b *biquad) setTarget(c coeffs, n int) {
	if n <= 0 {
		b.setImmediate(c)
		return
	}

	b.target = c
	b.delta = coeffs{
		b0: (c.b0 - b.current.b0) / float64(n),
		b1: (c.b1 - b.current.b1) / float64(n),
		b2: (c.b2 - b.current.b2) / float64(n),
		a1: (c.a1 - b.current.a1) / float64(n),
		a2: (c.a2 - b.current.a2) / float64(n),
	}
	b.remaining = n
}

func (b *biquad) step() {
	if b.remaining == 0 {
		return
	}

	b.current.b0 += b.delta.b0
	b.current.b1 += b.delta.b1
	b.current.b2 += b.delta.b2
	b.current.a1 += b.delta.a1
	b.current.a2 += b.delta.a2

	b.remaining--
	if b.remaining == 0 {
		b.current = b.target
	}
}

// processFrame filters one stereo frame. A non-finite output zeroes the
// state for that channel and emits silence, so a blown-up filter self-heals
// instead of latching NaN.
func (b *biquad) processFrame(l, r float64) (float64, float64) {
	b.step()

	c := &b.current

	yl := c.b0*l + b.z1[0]
	b.z1[0] = c.b1*l - c.a1*yl + b.z2[0]
	b.z2[0] = c.b2*l - c.a2*yl

	yr := c.b0*r + b.z1[1]
	b.z1[1] = c.b1*r - c.a1*yr + b.z2[1]
	b.z2[1] = c.b2*r - c.a2*yr

	if !finite(yl) {
		b.z1[0], b.z2[0] = 0, 0
		yl = 0
	}

	if !finite(yr) {
		b.z1[1], b.z2[1] = 0, 0
		yr = 0
	}

	return yl, yr
}
