package driver

import "testing"

// fakeTicks drives a ClockGen with a hand-set nanosecond counter.
type fakeTicks struct {
	ns int64
}

func newClockUnderTest() (*ClockGen, *fakeTicks) {
	ticks := &fakeTicks{ns: 1_000_000_000}

	c := NewClockGen()
	c.now = func() int64 { return ticks.ns }

	return c, ticks
}

func TestClockAnchorsOnFirstCall(t *testing.T) {
	c, _ := newClockUnderTest()

	sampleTime, hostTime, seed := c.ZeroTimestamp(48000, 512)

	if sampleTime != 0 {
		t.Errorf("sample time = %v, want 0 at anchor", sampleTime)
	}

	if hostTime != 1_000_000_000 {
		t.Errorf("host time = %v, want anchor", hostTime)
	}

	if seed != 1 {
		t.Errorf("seed = %d, want 1", seed)
	}
}

func TestClockAdvancesByWholePeriods(t *testing.T) {
	c, ticks := newClockUnderTest()

	// 40 kHz divides a nanosecond tick exactly (25000 ns per frame), so the
	// expected values are exact. 400 frames = one 10 ms period.
	c.ZeroTimestamp(40000, 400)

	ticks.ns += 10_000_000 // exactly one period
	sampleTime, hostTime, _ := c.ZeroTimestamp(40000, 400)

	if sampleTime != 400 {
		t.Errorf("sample time = %v, want 400", sampleTime)
	}

	if hostTime != 1_010_000_000 {
		t.Errorf("host time = %v, want anchor + one period", hostTime)
	}
}

func TestClockCatchesUpAfterLateWakeups(t *testing.T) {
	c, ticks := newClockUnderTest()

	c.ZeroTimestamp(40000, 400)

	// The daemon goes quiet for 55 ms; the next call must land on period 5,
	// not period 1.
	ticks.ns += 55_000_000
	sampleTime, _, _ := c.ZeroTimestamp(40000, 400)

	if sampleTime != 5*400 {
		t.Errorf("sample time = %v, want %v", sampleTime, 5*400)
	}
}

func TestClockMonotonicUnderJitter(t *testing.T) {
	c, ticks := newClockUnderTest()

	c.ZeroTimestamp(48000, 480)

	prevSample := -1.0
	prevHost := int64(-1)

	for _, step := range []int64{9_700_000, 10_200_000, 9_950_000, 30_000_000, 10_050_000} {
		ticks.ns += step

		sampleTime, hostTime, _ := c.ZeroTimestamp(48000, 480)

		if sampleTime < prevSample || hostTime < prevHost {
			t.Fatalf("timestamps went backwards: %v/%v after %v/%v",
				sampleTime, hostTime, prevSample, prevHost)
		}

		prevSample, prevHost = sampleTime, hostTime
	}
}

func TestClockSurvivesSampleRateChange(t *testing.T) {
	c, ticks := newClockUnderTest()

	c.ZeroTimestamp(40000, 400)

	ticks.ns += 20_000_000
	c.ZeroTimestamp(40000, 400)

	// Nominal rate changes: ticks per frame re-derives, anchor stays.
	ticks.ns += 10_000_000
	sampleTime, _, _ := c.ZeroTimestamp(80000, 400)

	// 30 ms at 80 kHz with 400-frame (5 ms) periods is period 6.
	if sampleTime != 6*400 {
		t.Errorf("sample time = %v, want %v", sampleTime, 6*400)
	}
}
