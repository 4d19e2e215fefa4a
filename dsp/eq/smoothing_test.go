package eq

import (
	"math"
	"testing"
)

func TestSmootherNoZipper(t *testing.T) {
	var g gainSmoother

	g.init(48000, 10)
	g.setValue(0)
	g.setTarget(1)

	// 50 ms ramp: no inter-sample step may exceed 0.01.
	n := 48000 / 20

	prev := 0.0
	maxStep := 0.0

	for i := 0; i < n; i++ {
		v := g.next()

		step := math.Abs(v - prev)
		if step > maxStep {
			maxStep = step
		}

		prev = v
	}

	if maxStep > 0.01 {
		t.Errorf("max inter-sample step = %v, want <= 0.01", maxStep)
	}

	if prev < 0.95 || prev > 1.05 {
		t.Errorf("value after 50 ms = %v, want near 1", prev)
	}
}

func TestSmootherConvergesAndHolds(t *testing.T) {
	var g gainSmoother

	g.init(48000, 10)
	g.setValue(1)
	g.setTarget(0.25)

	for i := 0; i < 48000; i++ {
		g.next()
	}

	if d := math.Abs(g.current - 0.25); d > 1e-6 {
		t.Errorf("converged value = %v, want 0.25", g.current)
	}

	// Stable at target: further samples must not oscillate.
	for i := 0; i < 1000; i++ {
		v := g.next()
		if math.Abs(v-0.25) > 1e-6 {
			t.Fatalf("sample %d drifted to %v", i, v)
		}
	}
}

func TestSmootherSetValueJumps(t *testing.T) {
	var g gainSmoother

	g.init(48000, 10)
	g.setValue(0.5)

	if v := g.next(); math.Abs(v-0.5) > 1e-9 {
		t.Errorf("next after setValue = %v, want 0.5", v)
	}
}

func TestCoefficientInterpolationSnapsToTarget(t *testing.T) {
	var b biquad

	b.init()

	target := designBand(Band{FreqHz: 1000, GainDB: 6, Q: 2, Type: Peak}, 48000)
	b.setTarget(target, 480)

	for i := 0; i < 480; i++ {
		b.step()
	}

	if b.current != target {
		t.Errorf("coefficients did not snap: %+v vs %+v", b.current, target)
	}

	if b.remaining != 0 {
		t.Errorf("remaining = %d, want 0", b.remaining)
	}
}

func TestBiquadSelfHealsFromNonFinite(t *testing.T) {
	var b biquad

	b.init()
	b.z1[0] = math.NaN()

	l, r := b.processFrame(0.5, 0.5)

	if l != 0 {
		t.Errorf("left output = %v, want silence on blowup", l)
	}

	if r != 0.5 {
		t.Errorf("right output = %v, want clean channel untouched", r)
	}

	// Next frame must be clean again.
	l, _ = b.processFrame(0.5, 0.5)
	if math.IsNaN(l) {
		t.Error("state did not self-heal")
	}
}
