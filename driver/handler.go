package driver

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/radioform/radioform/shmem"
)

// ErrIOStartFailed indicates the shared segment could not be opened and
// validated after all retries. The plug-in surface maps it to the platform's
// unspecified hardware error.
var ErrIOStartFailed = errors.New("driver: I/O start failed")

const (
	healthCheckInterval = 3 * time.Second
	heartbeatInterval   = time.Second
	statsInterval       = 30 * time.Second

	maxOpenRetries  = 15
	baseRetryDelay  = 30 * time.Millisecond
	maxBackoffShift = 6 // caps the delay at 30ms << 6 = 1920ms
)

// initialBufferFrames sizes the pre-allocated conversion buffers. Resizing
// later is permitted but is a cold path; it never happens once the buffers
// reach the largest block the daemon delivers.
const initialBufferFrames = 4096

// HandlerStats is a snapshot of a handler's counters.
type HandlerStats struct {
	TotalWrites           uint64
	FailedWrites          uint64
	HealthFailures        uint64
	Reconnections         uint64
	FormatChanges         uint64
	SampleRateConversions uint64
	ClientStarts          uint64
	ClientStops           uint64
}

type handlerCounters struct {
	totalWrites           atomic.Uint64
	failedWrites          atomic.Uint64
	healthFailures        atomic.Uint64
	reconnections         atomic.Uint64
	formatChanges         atomic.Uint64
	sampleRateConversions atomic.Uint64
	clientStarts          atomic.Uint64
	clientStops           atomic.Uint64
}

func (c *handlerCounters) snapshot() HandlerStats {
	return HandlerStats{
		TotalWrites:           c.totalWrites.Load(),
		FailedWrites:          c.failedWrites.Load(),
		HealthFailures:        c.healthFailures.Load(),
		Reconnections:         c.reconnections.Load(),
		FormatChanges:         c.formatChanges.Load(),
		SampleRateConversions: c.sampleRateConversions.Load(),
		ClientStarts:          c.clientStarts.Load(),
		ClientStops:           c.clientStops.Load(),
	}
}

// Handler implements the I/O callbacks for one proxy device. The first
// client StartIO opens the device's shared segment (with retries); the last
// matching StopIO closes it. The steady-state write path converts the client
// stream to interleaved float32, resamples if the stream rate differs from
// the segment rate, and feeds the ring; it allocates nothing once the
// pre-allocated buffers have reached their working size.
type Handler struct {
	uid     string
	segPath string

	// mu protects state transitions, segment map/unmap, and the client
	// count. The write path itself runs without it.
	mu      sync.Mutex
	clients int
	seg     *shmem.Segment

	state atomic.Int32

	hb              shmem.HeartbeatState
	lastHealthCheck time.Time
	lastHeartbeat   time.Time
	lastStats       time.Time

	inFormat  StreamFormat
	resampler *Resampler

	interleavedBuf []float32
	resampledBuf   []float32

	clock    *ClockGen
	counters handlerCounters
	logger   *log.Logger

	// test seams
	now   func() time.Time
	sleep func(time.Duration)
}

// NewHandler creates the handler for a device UID. logger may be nil.
func NewHandler(uid string, logger *log.Logger) *Handler {
	return &Handler{
		uid:     uid,
		segPath: SegmentPathForUID(uid),
		clock:   NewClockGen(),
		logger:  logger,
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// UID returns the device UID this handler serves.
func (h *Handler) UID() string { return h.uid }

// State returns the current connection state.
func (h *Handler) State() DeviceState {
	return DeviceState(h.state.Load())
}

// Clients returns the current I/O client count.
func (h *Handler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.clients
}

// Stats returns a snapshot of the handler's counters.
func (h *Handler) Stats() HandlerStats {
	return h.counters.snapshot()
}

// Segment returns the mapped segment, or nil when disconnected.
func (h *Handler) Segment() *shmem.Segment {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.seg
}

// StartIO registers one I/O client. The first client drives the segment
// open with exponential backoff; later clients only verify health.
func (h *Handler) StartIO() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients++
	h.counters.clientStarts.Add(1)

	if h.clients == 1 {
		h.state.Store(int32(StateConnecting))

		for attempt := 1; attempt <= maxOpenRetries; attempt++ {
			seg, err := shmem.Open(h.segPath)
			if err == nil {
				h.attach(seg)
				h.logf("connected %s on attempt %d", h.uid, attempt)

				return nil
			}

			h.logf("open %s attempt %d/%d: %v", h.segPath, attempt, maxOpenRetries, err)

			if attempt < maxOpenRetries {
				shift := attempt - 1
				if shift > maxBackoffShift {
					shift = maxBackoffShift
				}

				h.sleep(baseRetryDelay << shift)
			}
		}

		h.clients--
		h.state.Store(int32(StateError))

		return fmt.Errorf("%w: %s", ErrIOStartFailed, h.segPath)
	}

	// Additional client: verify the existing connection.
	if !h.healthyLocked() {
		h.logf("unhealthy connection for client #%d of %s", h.clients, h.uid)
		h.attemptRecoveryLocked()
	}

	if h.seg == nil {
		return fmt.Errorf("%w: %s", ErrIOStartFailed, h.segPath)
	}

	return nil
}

// StopIO unregisters one I/O client. The last client unmaps the segment.
// A StopIO with no matching StartIO is a logged bug, not fatal.
func (h *Handler) StopIO() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients == 0 {
		h.logf("StopIO for %s with client count already 0", h.uid)
		return
	}

	h.clients--
	h.counters.clientStops.Add(1)

	if h.clients == 0 {
		h.disconnectLocked()
		h.state.Store(int32(StateDisconnected))
	}
}

// attach adopts a freshly opened segment. Caller holds mu.
func (h *Handler) attach(seg *shmem.Segment) {
	h.seg = seg
	h.state.Store(int32(StateConnected))

	// Start the heartbeat freshness window at attach time so a host that
	// never beats goes stale once the window elapses.
	h.hb = shmem.HeartbeatState{LastValue: seg.HostHeartbeat(), LastChange: h.now()}
	h.lastHeartbeat = h.now()
	h.lastHealthCheck = h.now()

	want := int(seg.Channels()) * initialBufferFrames
	if cap(h.interleavedBuf) < want {
		h.interleavedBuf = make([]float32, want)
	}

	if cap(h.resampledBuf) < want {
		h.resampledBuf = make([]float32, want)
	}
}

// disconnectLocked unmaps the segment and drops the resampler. Caller holds
// mu.
func (h *Handler) disconnectLocked() {
	if h.seg != nil {
		_ = h.seg.Close()
		h.seg = nil
	}

	h.resampler = nil
}

// Shutdown force-disconnects regardless of client count. Called when the
// device is removed from the fleet.
func (h *Handler) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.disconnectLocked()
	h.state.Store(int32(StateDisconnected))
}

func (h *Handler) healthyLocked() bool {
	return h.seg.Healthy(&h.hb, h.now())
}

// attemptRecoveryLocked tears down and reopens the segment once. Caller
// holds mu.
func (h *Handler) attemptRecoveryLocked() {
	h.logf("attempting recovery for %s", h.uid)
	h.counters.reconnections.Add(1)

	h.disconnectLocked()

	if h.clients == 0 {
		return
	}

	seg, err := shmem.Open(h.segPath)
	if err != nil {
		h.logf("recovery failed for %s: %v", h.uid, err)
		h.state.Store(int32(StateError))

		return
	}

	h.attach(seg)
	h.logf("recovery succeeded for %s", h.uid)
}

// WriteMixedOutput is the steady-state I/O callback: it receives one block
// of the client mix in the stream's format and pushes it into the ring.
// Errors are absorbed locally; failures increment counters and either
// continue (transient) or trigger recovery (persistent).
func (h *Handler) WriteMixedOutput(f StreamFormat, data []byte) {
	h.counters.totalWrites.Add(1)

	now := h.now()

	if now.Sub(h.lastHealthCheck) >= healthCheckInterval {
		h.lastHealthCheck = now

		if !h.seg.Healthy(&h.hb, now) {
			h.counters.healthFailures.Add(1)

			h.mu.Lock()
			h.attemptRecoveryLocked()
			h.mu.Unlock()
		}
	}

	if now.Sub(h.lastHeartbeat) >= heartbeatInterval {
		if h.seg != nil {
			h.seg.UpdateDriverHeartbeat()
		}

		h.lastHeartbeat = now
	}

	seg := h.seg
	if seg == nil || !seg.Mapped() {
		h.counters.failedWrites.Add(1)
		return
	}

	bpf := int(f.BytesPerFrame())
	if bpf == 0 {
		h.counters.failedWrites.Add(1)
		return
	}

	frames := len(data) / bpf
	if frames == 0 {
		h.counters.failedWrites.Add(1)
		return
	}

	if f.SampleRate != h.inFormat.SampleRate || f.Channels != h.inFormat.Channels {
		h.handleFormatChange(f, seg)
	}

	// A channel-count mismatch cannot be remixed in the steady state; it is
	// counted against the segment and the block dropped.
	if f.Channels != seg.Channels() {
		seg.IncrementFormatMismatch()
		h.counters.failedWrites.Add(1)

		return
	}

	need := frames * int(f.Channels)
	if cap(h.interleavedBuf) < need {
		h.interleavedBuf = make([]float32, need)
	}

	buf := h.interleavedBuf[:need]
	if !convertToFloat32Interleaved(buf, data, frames, f) {
		h.counters.failedWrites.Add(1)
		return
	}

	if f.SampleRate != seg.SampleRate() {
		h.writeResampled(buf, frames, f, seg)
	} else {
		seg.WriteFrames(buf, frames)
	}

	h.maybeLogStats(now)
}

func (h *Handler) writeResampled(buf []float32, frames int, f StreamFormat, seg *shmem.Segment) {
	if h.resampler == nil {
		h.counters.failedWrites.Add(1)
		return
	}

	h.counters.sampleRateConversions.Add(1)

	outCap := frames*int(seg.SampleRate())/int(f.SampleRate) + 10

	need := outCap * int(f.Channels)
	if cap(h.resampledBuf) < need {
		h.resampledBuf = make([]float32, need)
	}

	out := h.resampledBuf[:need]

	n := h.resampler.Process(buf, frames, out, outCap)
	if n > 0 {
		seg.WriteFrames(out, n)
	}
}

// handleFormatChange records a stream format transition and rebuilds the
// resampler when the stream rate no longer matches the segment.
func (h *Handler) handleFormatChange(f StreamFormat, seg *shmem.Segment) {
	h.counters.formatChanges.Add(1)
	h.logf("format change for %s: %dHz %dch -> %dHz %dch",
		h.uid, h.inFormat.SampleRate, h.inFormat.Channels, f.SampleRate, f.Channels)

	h.inFormat = f

	if f.SampleRate != seg.SampleRate() {
		h.resampler = NewResampler(f.SampleRate, seg.SampleRate(), int(f.Channels))
	} else {
		h.resampler = nil
	}
}

// ZeroTimestamp supplies the per-period timestamp pair for this device.
func (h *Handler) ZeroTimestamp(sampleRate float64, period uint32) (float64, int64, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.clock.ZeroTimestamp(sampleRate, period)
}

func (h *Handler) maybeLogStats(now time.Time) {
	if h.logger == nil || now.Sub(h.lastStats) < statsInterval {
		return
	}

	h.lastStats = now
	s := h.counters.snapshot()
	h.logf("stats %s: writes=%d failed=%d health=%d reconnects=%d formats=%d src=%d",
		h.uid, s.TotalWrites, s.FailedWrites, s.HealthFailures,
		s.Reconnections, s.FormatChanges, s.SampleRateConversions)
}

func (h *Handler) logf(format string, args ...any) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
	}
}
