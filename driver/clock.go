package driver

import "time"

// ClockGen produces the monotonic (sample time, host time) pair the platform
// demands once per I/O period.
//
// A naive counter that adds one period per call falls behind whenever the
// daemon schedules the callback late. Dividing elapsed host time by the
// period length instead keeps the pair monotonic, catches up after late
// wakeups, and survives I/O start/stop cycles without resetting the anchor,
// which would otherwise feed cold-start drift into the host's clock
// compensation.
type ClockGen struct {
	// ticksPerNS is the number of platform clock ticks per nanosecond; cached
	// at construction. The Go monotonic clock ticks in nanoseconds.
	ticksPerNS float64

	anchor         int64
	periodCounter  uint64
	ticksPerFrame  float64
	lastSampleRate float64

	now func() int64
}

var clockEpoch = time.Now()

func monotonicNow() int64 {
	return int64(time.Since(clockEpoch))
}

// NewClockGen returns a clock generator backed by the monotonic clock.
func NewClockGen() *ClockGen {
	return &ClockGen{
		ticksPerNS: 1,
		now:        monotonicNow,
	}
}

// ZeroTimestamp returns the timestamp pair for the current I/O period:
// sampleTime in frames, hostTime in clock ticks, and the timeline seed.
// The caller must serialise calls with its I/O lock.
func (c *ClockGen) ZeroTimestamp(sampleRate float64, period uint32) (sampleTime float64, hostTime int64, seed uint64) {
	now := c.now()

	if c.anchor == 0 {
		c.anchor = now
		c.periodCounter = 0
	}

	if sampleRate != c.lastSampleRate {
		c.ticksPerFrame = c.ticksPerNS * 1e9 / sampleRate
		c.lastSampleRate = sampleRate
	}

	ticksPerPeriod := c.ticksPerFrame * float64(period)
	if ticksPerPeriod > 0 {
		c.periodCounter = uint64(float64(now-c.anchor) / ticksPerPeriod)
	}

	sampleTime = float64(c.periodCounter) * float64(period)
	hostTime = c.anchor + int64(float64(c.periodCounter)*ticksPerPeriod)

	return sampleTime, hostTime, 1
}
