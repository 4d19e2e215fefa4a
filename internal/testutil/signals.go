// Package testutil provides deterministic signals and tolerance helpers for
// the transport and DSP tests.
package testutil

import (
	"math"
	"math/rand"
)

// Sine generates a deterministic sine wave.
func Sine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate

	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}

	return out
}

// SineF32 generates a deterministic float32 sine wave.
func SineF32(freqHz, sampleRate, amplitude float64, length int) []float32 {
	out := make([]float32, length)
	step := 2 * math.Pi * freqHz / sampleRate

	for i := range out {
		out[i] = float32(amplitude * math.Sin(step*float64(i)))
	}

	return out
}

// NoiseF32 generates float32 white noise with a fixed seed.
func NoiseF32(seed int64, amplitude float64, length int) []float32 {
	out := make([]float32, length)
	rng := rand.New(rand.NewSource(seed))

	for i := range out {
		out[i] = float32((rng.Float64()*2 - 1) * amplitude)
	}

	return out
}

// ImpulseF32 generates a float32 unit impulse at pos.
func ImpulseF32(length, pos int) []float32 {
	out := make([]float32, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}

	return out
}

// StereoInterleave duplicates a mono signal onto both channels of an
// interleaved stereo buffer.
func StereoInterleave(mono []float32) []float32 {
	out := make([]float32, 2*len(mono))

	for i, v := range mono {
		out[2*i] = v
		out[2*i+1] = v
	}

	return out
}

// DeinterleaveLeft extracts the left channel of an interleaved stereo buffer.
func DeinterleaveLeft(interleaved []float32) []float32 {
	out := make([]float32, len(interleaved)/2)
	for i := range out {
		out[i] = interleaved[2*i]
	}

	return out
}

// RMS computes the root-mean-square level of a float32 signal.
func RMS(x []float32) float64 {
	if len(x) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range x {
		sum += float64(v) * float64(v)
	}

	return math.Sqrt(sum / float64(len(x)))
}

// GainDB returns the out/in level ratio in decibels.
func GainDB(out, in float64) float64 {
	return 20 * math.Log10(out/in)
}
