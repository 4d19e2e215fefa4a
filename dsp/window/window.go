// Package window provides the analysis window used by the measurement
// helpers.
package window

import (
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
)

// Hann returns an n-point Hann window. Hann keeps spectral leakage low
// enough that harmonic bins a few octaves above the fundamental stay
// readable, which is all the THD measurement needs.
func Hann(n int) []float64 {
	coeffs := make([]float64, n)

	if n == 1 {
		coeffs[0] = 1
		return coeffs
	}

	// Compute the first half and mirror it so the window is exactly
	// symmetric.
	for i := 0; i < (n+1)/2; i++ {
		v := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		coeffs[i] = v
		coeffs[n-1-i] = v
	}

	return coeffs
}

// Apply multiplies buf by coeffs element-wise in place. The slices must have
// equal length.
func Apply(buf, coeffs []float64) {
	vecmath.MulBlockInPlace(buf, coeffs)
}
