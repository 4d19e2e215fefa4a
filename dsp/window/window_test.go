package window

import (
	"math"
	"testing"
)

func TestHannShape(t *testing.T) {
	w := Hann(64)

	if len(w) != 64 {
		t.Fatalf("length = %d", len(w))
	}

	if w[0] != 0 || w[63] != 0 {
		t.Errorf("endpoints = %v, %v, want 0", w[0], w[63])
	}

	for i := range w {
		if w[i] < 0 || w[i] > 1 {
			t.Fatalf("coefficient %d = %v outside [0, 1]", i, w[i])
		}

		if w[i] != w[len(w)-1-i] {
			t.Fatalf("asymmetry at %d: %v vs %v", i, w[i], w[len(w)-1-i])
		}
	}

	mid := w[31] + (w[32]-w[31])/2
	if math.Abs(mid-1) > 0.01 {
		t.Errorf("centre = %v, want near 1", mid)
	}
}

func TestHannDegenerateLengths(t *testing.T) {
	if w := Hann(1); len(w) != 1 || w[0] != 1 {
		t.Errorf("Hann(1) = %v", w)
	}

	if w := Hann(0); len(w) != 0 {
		t.Errorf("Hann(0) = %v", w)
	}
}

func TestApply(t *testing.T) {
	buf := []float64{1, 1, 1, 1}
	coeffs := []float64{0, 0.5, 0.5, 0}

	Apply(buf, coeffs)

	for i := range buf {
		if buf[i] != coeffs[i] {
			t.Fatalf("index %d: %v, want %v", i, buf[i], coeffs[i])
		}
	}
}
