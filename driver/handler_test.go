package driver

import (
	"encoding/binary"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/radioform/radioform/internal/testutil"
	"github.com/radioform/radioform/shmem"
)

// testClock is a manually advanced wall clock for handler timing tests.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1000, 0)}
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newTestHandler wires a handler to a segment file under the test's temp
// dir, with sleeps disabled and time under test control.
func newTestHandler(t *testing.T, uid string) (*Handler, *testClock, string) {
	t.Helper()

	clock := newTestClock()

	h := NewHandler(uid, nil)
	h.segPath = filepath.Join(t.TempDir(), "segment")
	h.now = clock.Now
	h.sleep = func(time.Duration) {}

	return h, clock, h.segPath
}

func hostSegment(t *testing.T, path string) *shmem.Segment {
	t.Helper()

	seg, err := shmem.Create(path, 48000, 2, shmem.FormatFloat32, 20)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	t.Cleanup(func() { seg.Close() })

	return seg
}

func float32Bytes(samples []float32) []byte {
	out := make([]byte, 4*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}

	return out
}

var float32Stereo48k = StreamFormat{
	SampleRate:  48000,
	Channels:    2,
	Encoding:    EncFloat32,
	Interleaved: true,
}

func TestStartIOConnects(t *testing.T) {
	h, _, path := newTestHandler(t, "dev-a")
	hostSegment(t, path)

	if h.State() != StateUninitialized {
		t.Fatalf("initial state = %v", h.State())
	}

	if err := h.StartIO(); err != nil {
		t.Fatalf("StartIO: %v", err)
	}

	if h.State() != StateConnected {
		t.Errorf("state = %v, want Connected", h.State())
	}

	if !h.Segment().DriverConnected() {
		t.Error("driver connected flag not raised")
	}

	// A second client must not reopen the segment.
	segBefore := h.Segment()

	if err := h.StartIO(); err != nil {
		t.Fatalf("second StartIO: %v", err)
	}

	if h.Segment() != segBefore {
		t.Error("second StartIO reopened the segment")
	}

	if h.Clients() != 2 {
		t.Errorf("clients = %d, want 2", h.Clients())
	}

	if h.State() != StateConnected {
		t.Errorf("state = %v, want Connected", h.State())
	}
}

func TestStartIOFailsWithoutSegment(t *testing.T) {
	h, _, _ := newTestHandler(t, "dev-missing")

	err := h.StartIO()
	if !errors.Is(err, ErrIOStartFailed) {
		t.Fatalf("err = %v, want ErrIOStartFailed", err)
	}

	if h.State() != StateError {
		t.Errorf("state = %v, want Error", h.State())
	}

	if h.Clients() != 0 {
		t.Errorf("clients = %d, want 0 after failed start", h.Clients())
	}

	if got := h.Stats().ClientStarts; got != 1 {
		t.Errorf("client starts = %d, want 1", got)
	}
}

func TestStopIOPairing(t *testing.T) {
	h, _, path := newTestHandler(t, "dev-b")
	hostSegment(t, path)

	if err := h.StartIO(); err != nil {
		t.Fatal(err)
	}

	if err := h.StartIO(); err != nil {
		t.Fatal(err)
	}

	h.StopIO()

	if h.State() != StateConnected || h.Segment() == nil {
		t.Error("segment unmapped before last client stopped")
	}

	h.StopIO()

	if h.State() != StateDisconnected {
		t.Errorf("state = %v, want Disconnected", h.State())
	}

	if h.Segment() != nil {
		t.Error("segment still mapped after last stop")
	}

	// A mismatched StopIO is a logged bug, not fatal.
	h.StopIO()

	if got := h.Stats().ClientStops; got != 2 {
		t.Errorf("client stops = %d, want 2", got)
	}
}

func TestWriteMixedOutputFeedsRing(t *testing.T) {
	h, _, path := newTestHandler(t, "dev-c")
	host := hostSegment(t, path)

	if err := h.StartIO(); err != nil {
		t.Fatal(err)
	}

	in := testutil.StereoInterleave(testutil.SineF32(440, 48000, 0.5, 240))
	h.WriteMixedOutput(float32Stereo48k, float32Bytes(in))

	if got := host.Used(); got != 240 {
		t.Fatalf("ring used = %d, want 240", got)
	}

	out := make([]float32, len(in))
	host.ReadFrames(out, 240)
	testutil.RequireSliceEqual(t, out, in)

	if got := h.Stats().TotalWrites; got != 1 {
		t.Errorf("total writes = %d, want 1", got)
	}

	if got := h.Stats().FailedWrites; got != 0 {
		t.Errorf("failed writes = %d, want 0", got)
	}
}

func TestWriteMixedOutputWhileDisconnected(t *testing.T) {
	h, _, _ := newTestHandler(t, "dev-d")

	h.WriteMixedOutput(float32Stereo48k, make([]byte, 256))

	stats := h.Stats()
	if stats.FailedWrites != 1 {
		t.Errorf("failed writes = %d, want 1", stats.FailedWrites)
	}
}

func TestWriteMixedOutputRejectsEmptyBlock(t *testing.T) {
	h, _, path := newTestHandler(t, "dev-e")
	hostSegment(t, path)

	if err := h.StartIO(); err != nil {
		t.Fatal(err)
	}

	h.WriteMixedOutput(float32Stereo48k, nil)

	if got := h.Stats().FailedWrites; got != 1 {
		t.Errorf("failed writes = %d, want 1", got)
	}
}

func TestChannelMismatchCountsFormatMismatch(t *testing.T) {
	h, _, path := newTestHandler(t, "dev-f")
	host := hostSegment(t, path)

	if err := h.StartIO(); err != nil {
		t.Fatal(err)
	}

	mono := StreamFormat{SampleRate: 48000, Channels: 1, Encoding: EncFloat32, Interleaved: true}
	h.WriteMixedOutput(mono, float32Bytes(make([]float32, 240)))

	if got := host.FormatMismatchCount(); got != 1 {
		t.Errorf("format mismatch count = %d, want 1", got)
	}

	if got := h.Stats().FailedWrites; got != 1 {
		t.Errorf("failed writes = %d, want 1", got)
	}

	if got := h.Stats().FormatChanges; got != 1 {
		t.Errorf("format changes = %d, want 1", got)
	}

	if got := host.Used(); got != 0 {
		t.Errorf("ring used = %d, want 0", got)
	}
}

func TestSampleRateConversionPath(t *testing.T) {
	h, _, path := newTestHandler(t, "dev-g")
	host := hostSegment(t, path) // segment at 48 kHz

	if err := h.StartIO(); err != nil {
		t.Fatal(err)
	}

	in441 := StreamFormat{SampleRate: 44100, Channels: 2, Encoding: EncFloat32, Interleaved: true}

	block := testutil.StereoInterleave(testutil.SineF32(440, 44100, 0.5, 441))
	h.WriteMixedOutput(in441, float32Bytes(block))

	// 441 frames at 44.1 kHz resample to roughly 480 at 48 kHz.
	used := int(host.Used())
	if used < 470 || used > 490 {
		t.Errorf("ring used = %d, want about 480", used)
	}

	if got := h.Stats().SampleRateConversions; got != 1 {
		t.Errorf("sample rate conversions = %d, want 1", got)
	}

	if got := h.Stats().FormatChanges; got != 1 {
		t.Errorf("format changes = %d, want 1", got)
	}
}

func TestHeartbeatUpdatedOncePerInterval(t *testing.T) {
	h, clock, path := newTestHandler(t, "dev-h")
	host := hostSegment(t, path)

	if err := h.StartIO(); err != nil {
		t.Fatal(err)
	}

	block := float32Bytes(make([]float32, 2*48))

	h.WriteMixedOutput(float32Stereo48k, block)
	h.WriteMixedOutput(float32Stereo48k, block)

	if got := host.DriverHeartbeat(); got != 0 {
		t.Fatalf("heartbeat = %d before interval elapsed", got)
	}

	clock.Advance(heartbeatInterval)
	h.WriteMixedOutput(float32Stereo48k, block)

	if got := host.DriverHeartbeat(); got != 1 {
		t.Errorf("heartbeat = %d, want 1", got)
	}
}

func TestHeartbeatStallTriggersRecovery(t *testing.T) {
	h, clock, path := newTestHandler(t, "dev-i")
	host := hostSegment(t, path)

	if err := h.StartIO(); err != nil {
		t.Fatal(err)
	}

	block := float32Bytes(make([]float32, 2*48))

	// Host heartbeat never advances. After the timeout the health check
	// fails and the handler reconnects.
	clock.Advance(shmem.HeartbeatTimeout + time.Second)
	h.WriteMixedOutput(float32Stereo48k, block)

	stats := h.Stats()

	if stats.HealthFailures != 1 {
		t.Errorf("health failures = %d, want 1", stats.HealthFailures)
	}

	if stats.Reconnections != 1 {
		t.Errorf("reconnections = %d, want 1", stats.Reconnections)
	}

	// The reopen succeeded (segment file still present and valid).
	if h.State() != StateConnected {
		t.Errorf("state = %v, want Connected after recovery", h.State())
	}

	// A live host keeps the connection healthy across the same span.
	host.UpdateHostHeartbeat()
	clock.Advance(healthCheckInterval)
	h.WriteMixedOutput(float32Stereo48k, block)

	if got := h.Stats().HealthFailures; got != 1 {
		t.Errorf("health failures = %d after fresh heartbeat, want still 1", got)
	}
}

func TestShutdownDisconnects(t *testing.T) {
	h, _, path := newTestHandler(t, "dev-j")
	hostSegment(t, path)

	if err := h.StartIO(); err != nil {
		t.Fatal(err)
	}

	h.Shutdown()

	if h.State() != StateDisconnected {
		t.Errorf("state = %v, want Disconnected", h.State())
	}

	if h.Segment() != nil {
		t.Error("segment still mapped after shutdown")
	}
}
