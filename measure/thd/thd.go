// Package thd measures total harmonic distortion of a time-domain signal.
// It windows the signal, transforms it, locates the fundamental, and relates
// the harmonic magnitudes to it.
package thd

import (
	"errors"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/radioform/radioform/dsp/window"
)

// ErrShortSignal indicates the signal is too short to analyse.
var ErrShortSignal = errors.New("thd: signal too short")

// Result holds one THD measurement.
type Result struct {
	FundamentalFreq  float64   // detected fundamental, Hz
	FundamentalLevel float64   // linear magnitude of the fundamental bin
	THD              float64   // harmonic/fundamental amplitude ratio
	THDdB            float64   // THD in dB (20*log10)
	Harmonics        []float64 // linear magnitudes of harmonics 2..N
}

// Analyze measures THD over harmonics 2..maxHarmonic relative to the
// strongest spectral component. The search tolerates a few bins of leakage
// around each expected harmonic position.
func Analyze(signal []float64, sampleRate float64, maxHarmonic int) (Result, error) {
	if len(signal) < 16 {
		return Result{}, ErrShortSignal
	}

	fftSize := nextPowerOf2(len(signal))

	buf := make([]float64, len(signal))
	copy(buf, signal)
	window.Apply(buf, window.Hann(len(buf)))

	in := make([]complex128, fftSize)
	for i, v := range buf {
		in[i] = complex(v, 0)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return Result{}, err
	}

	out := make([]complex128, fftSize)
	if err := plan.Forward(out, in); err != nil {
		return Result{}, err
	}

	bins := fftSize/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)

	for i := 0; i < bins; i++ {
		re[i] = real(out[i])
		im[i] = imag(out[i])
	}

	mag := make([]float64, bins)
	vecmath.Magnitude(mag, re, im)

	fundBin := 1
	for i := 2; i < bins; i++ {
		if mag[i] > mag[fundBin] {
			fundBin = i
		}
	}

	fundLevel := mag[fundBin]
	if fundLevel == 0 {
		return Result{}, ErrShortSignal
	}

	binHz := sampleRate / float64(fftSize)

	res := Result{
		FundamentalFreq:  float64(fundBin) * binHz,
		FundamentalLevel: fundLevel,
	}

	sum := 0.0

	for k := 2; k <= maxHarmonic; k++ {
		center := k * fundBin
		if center >= bins {
			break
		}

		level := peakAround(mag, center, 2)
		res.Harmonics = append(res.Harmonics, level)
		sum += level * level
	}

	res.THD = math.Sqrt(sum) / fundLevel
	if res.THD > 0 {
		res.THDdB = 20 * math.Log10(res.THD)
	} else {
		res.THDdB = math.Inf(-1)
	}

	return res, nil
}

// peakAround returns the largest magnitude within radius bins of center.
func peakAround(mag []float64, center, radius int) float64 {
	lo := center - radius
	if lo < 0 {
		lo = 0
	}

	hi := center + radius
	if hi > len(mag)-1 {
		hi = len(mag) - 1
	}

	peak := 0.0
	for i := lo; i <= hi; i++ {
		if mag[i] > peak {
			peak = mag[i]
		}
	}

	return peak
}

func nextPowerOf2(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}

	return size
}
