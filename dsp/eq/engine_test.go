package eq

import (
	"errors"
	"math"
	"testing"

	"github.com/radioform/radioform/internal/testutil"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	e, err := New(48000)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return e
}

func singleBandPreset(band Band) Preset {
	p := FlatPreset()
	band.Enabled = true
	p.Bands[0] = band

	return p
}

func TestNewRejectsBadSampleRate(t *testing.T) {
	for _, rate := range []uint32{0, 7999, 384001} {
		if _, err := New(rate); !errors.Is(err, ErrInvalidParam) {
			t.Errorf("New(%d) err = %v, want ErrInvalidParam", rate, err)
		}
	}
}

func TestBypassIsBitExactInterleaved(t *testing.T) {
	e := newTestEngine(t)
	e.SetBypass(true)

	in := testutil.StereoInterleave(testutil.SineF32(1000, 48000, 1, 1000))

	out := make([]float32, len(in))
	e.ProcessInterleaved(in, out, 1000)
	testutil.RequireSliceEqual(t, out, in)

	// In-place aliasing must also be untouched.
	inPlace := append([]float32(nil), in...)
	e.ProcessInterleaved(inPlace, inPlace, 1000)
	testutil.RequireSliceEqual(t, inPlace, in)
}

func TestBypassIsBitExactPlanar(t *testing.T) {
	e := newTestEngine(t)
	e.SetBypass(true)

	inL := testutil.NoiseF32(1, 1, 777)
	inR := testutil.NoiseF32(2, 1, 777)

	outL := make([]float32, len(inL))
	outR := make([]float32, len(inR))
	e.ProcessPlanar(inL, inR, outL, outR, len(inL))

	testutil.RequireSliceEqual(t, outL, inL)
	testutil.RequireSliceEqual(t, outR, inR)
}

func TestFlatPresetIsNearTransparent(t *testing.T) {
	for _, freq := range []float64{100, 500, 1000, 5000, 10000} {
		e := newTestEngine(t)

		mono := testutil.SineF32(freq, 48000, 0.5, 9600)
		in := testutil.StereoInterleave(mono)

		out := make([]float32, len(in))
		e.ProcessInterleaved(in, out, len(mono))

		gain := testutil.GainDB(testutil.RMS(out), testutil.RMS(in))
		if math.Abs(gain) > 0.8 {
			t.Errorf("%v Hz: flat gain = %.3f dB, want within +-0.8 dB", freq, gain)
		}
	}
}

func TestResetRestoresColdStart(t *testing.T) {
	e := newTestEngine(t)

	p := singleBandPreset(Band{FreqHz: 1000, GainDB: 6, Q: 2, Type: Peak})
	if err := e.ApplyPreset(&p); err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}

	impulse := testutil.StereoInterleave(testutil.ImpulseF32(512, 0))

	first := make([]float32, len(impulse))
	e.ProcessInterleaved(impulse, first, 512)

	e.Reset()

	var stats Stats
	e.GetStats(&stats)

	if stats.FramesProcessed != 0 {
		t.Errorf("frames processed after reset = %d, want 0", stats.FramesProcessed)
	}

	second := make([]float32, len(impulse))
	e.ProcessInterleaved(impulse, second, 512)

	testutil.RequireSliceEqual(t, second, first)
}

func TestStatsTrackFramesAndPeaks(t *testing.T) {
	e := newTestEngine(t)

	in := testutil.StereoInterleave(testutil.SineF32(1000, 48000, 0.5, 4800))

	out := make([]float32, len(in))
	e.ProcessInterleaved(in, out, 4800)

	var stats Stats
	e.GetStats(&stats)

	if stats.FramesProcessed != 4800 {
		t.Errorf("frames processed = %d, want 4800", stats.FramesProcessed)
	}

	if stats.SampleRate != 48000 {
		t.Errorf("sample rate = %d", stats.SampleRate)
	}

	// A 0.5 amplitude sine peaks at about -6 dBFS.
	if stats.PeakLeftDB < -7 || stats.PeakLeftDB > -5 {
		t.Errorf("peak left = %.2f dBFS, want around -6", stats.PeakLeftDB)
	}
}

func TestPeakMeterDecays(t *testing.T) {
	e := newTestEngine(t)

	loud := testutil.StereoInterleave(testutil.SineF32(1000, 48000, 0.9, 4800))
	out := make([]float32, len(loud))
	e.ProcessInterleaved(loud, out, 4800)

	var after Stats
	e.GetStats(&after)

	// A second of near-silence must pull the meter down.
	quiet := make([]float32, 2*48000)
	quietOut := make([]float32, len(quiet))
	e.ProcessInterleaved(quiet, quietOut, 48000)

	var decayed Stats
	e.GetStats(&decayed)

	if decayed.PeakLeftDB >= after.PeakLeftDB-10 {
		t.Errorf("peak did not decay: %.1f -> %.1f dBFS", after.PeakLeftDB, decayed.PeakLeftDB)
	}
}

func TestNilEngineIsTolerated(t *testing.T) {
	var e *Engine

	buf := make([]float32, 16)
	e.ProcessInterleaved(buf, buf, 8)
	e.ProcessPlanar(buf, buf, buf, buf, 8)
	e.Reset()
	e.SetBypass(true)
	e.UpdateBandGain(0, 3)
	e.UpdatePreamp(3)
	e.GetStats(nil)

	if !e.Bypass() {
		t.Error("nil engine should report bypass")
	}

	if err := e.SetSampleRate(48000); !errors.Is(err, ErrNil) {
		t.Errorf("SetSampleRate err = %v, want ErrNil", err)
	}

	if err := e.ApplyPreset(nil); !errors.Is(err, ErrNil) {
		t.Errorf("ApplyPreset err = %v, want ErrNil", err)
	}
}

func TestSetSampleRateReappliesPreset(t *testing.T) {
	e := newTestEngine(t)

	p := singleBandPreset(Band{FreqHz: 1000, GainDB: 6, Q: 2, Type: Peak})
	if err := e.ApplyPreset(&p); err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}

	if err := e.SetSampleRate(96000); err != nil {
		t.Fatalf("SetSampleRate: %v", err)
	}

	if e.SampleRate() != 96000 {
		t.Fatalf("sample rate = %d", e.SampleRate())
	}

	// The band must still boost 1 kHz by about 6 dB at the new rate.
	mono := testutil.SineF32(1000, 96000, 0.5, 9600)
	in := testutil.StereoInterleave(mono)

	out := make([]float32, len(in))
	e.ProcessInterleaved(in, out, len(mono))

	gain := testutil.GainDB(testutil.RMS(out), testutil.RMS(in))
	if gain < 5 || gain > 7 {
		t.Errorf("gain after rate change = %.2f dB, want [5, 7]", gain)
	}
}

func TestVersion(t *testing.T) {
	if Version() == "" {
		t.Fatal("empty version")
	}
}
