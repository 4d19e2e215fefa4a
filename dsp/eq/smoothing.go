package eq

import "math"

// gainSmoother ramps the preamp gain toward its target with a second-order
// exponential: a smoothed velocity term damps the approach, which keeps
// per-sample steps far below audibility for the 10 ms time constant.
type gainSmoother struct {
	current  float64
	target   float64
	velocity float64
	alpha    float64
	beta     float64
}

func (g *gainSmoother) init(sampleRate float64, timeConstantMS float64) {
	// The velocity term makes the response second order: its slow mode
	// decays 1/(1-sqrt(1/2)) times slower than the per-sample pole. The pole
	// is placed that much faster so the ramp as a whole has the requested
	// time constant.
	tau := timeConstantMS * sampleRate / 1000 * (1 - math.Sqrt(0.5))

	coeff := 0.0
	if tau > 0 {
		coeff = math.Exp(-1 / tau)
	}

	g.alpha = coeff
	g.beta = coeff
	g.velocity = 0
}

// setValue jumps current and target with no ramp.
func (g *gainSmoother) setValue(v float64) {
	g.current = v
	g.target = v
	g.velocity = 0
}

func (g *gainSmoother) setTarget(v float64) {
	g.target = v
}

// next advances one sample and returns the smoothed gain.
func (g *gainSmoother) next() float64 {
	err := g.target - g.current
	g.velocity = g.alpha*g.velocity + (1-g.alpha)*err
	g.current = g.beta*g.current + (1-g.beta)*(g.target-0.5*g.velocity)

	return g.current
}
