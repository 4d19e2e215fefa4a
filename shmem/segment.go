package shmem

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// HeartbeatTimeout is how long a heartbeat may stay unchanged before the
// peer is considered dead.
const HeartbeatTimeout = 5 * time.Second

// Segment is a mapped view of one shared-audio segment. The host creates the
// backing file and writes the initial header; the driver only maps it. Both
// sides share the payload and the header atomics; neither owns the other's
// view. The producer (driver) calls WriteFrames, the consumer (host) calls
// ReadFrames; each role must be held by exactly one thread.
type Segment struct {
	path  string
	mem   []byte
	hdr   *header
	data  []byte
	owner bool
}

// Create builds a new segment file at path, maps it read/write, and writes
// the header. Host side only. The file is truncated to the exact size for the
// requested ring; existing content is discarded.
func Create(path string, sampleRate, channels uint32, format Format, durationMS uint32) (*Segment, error) {
	if !SampleRateSupported(sampleRate) {
		return nil, fmt.Errorf("%w: sample rate %d", ErrConfig, sampleRate)
	}

	if channels < 1 || channels > MaxChannels {
		return nil, fmt.Errorf("%w: channels %d", ErrConfig, channels)
	}

	if durationMS < RingDurationMSMin || durationMS > RingDurationMSMax {
		return nil, fmt.Errorf("%w: ring duration %d ms", ErrConfig, durationMS)
	}

	if !format.valid() {
		return nil, fmt.Errorf("%w: format %d", ErrConfig, format)
	}

	capacity := FramesForDuration(sampleRate, durationMS)
	bps := format.BytesPerSample()
	size := SegmentSize(capacity, channels, bps)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("shmem: create %s: %w", path, err)
	}
	defer f.Close()

	if err := f.Truncate(0); err != nil {
		return nil, fmt.Errorf("shmem: truncate %s: %w", path, err)
	}

	if err := f.Truncate(size); err != nil {
		return nil, fmt.Errorf("shmem: truncate %s: %w", path, err)
	}

	mem, err := mapFile(f, int(size), true)
	if err != nil {
		return nil, err
	}

	clear(mem[:HeaderBytes])

	hdr := headerAt(mem)
	hdr.protocolVersion = ProtocolVersion
	hdr.headerSize = HeaderBytes
	hdr.sampleRate = sampleRate
	hdr.channels = channels
	hdr.format = uint32(format)
	hdr.bytesPerSample = bps
	hdr.bytesPerFrame = bps * channels
	hdr.ringCapacityFrames = capacity
	hdr.ringDurationMS = durationMS
	hdr.driverCapabilities = driverCapabilities
	hdr.creationTimestamp = uint64(time.Now().Unix())
	hdr.setHostConnected(true)

	return &Segment{
		path:  path,
		mem:   mem,
		hdr:   hdr,
		data:  mem[HeaderBytes:],
		owner: true,
	}, nil
}

// Open maps an existing segment read/write and validates its header.
// Driver side. On success the driver-connected flag is raised.
func Open(path string) (*Segment, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSegmentNotFound, path)
		}

		return nil, fmt.Errorf("shmem: stat %s: %w", path, err)
	}

	if fi.Size() < HeaderBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrSegmentTooSmall, fi.Size())
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("shmem: open %s: %w", path, err)
	}
	defer f.Close()

	mem, err := mapFile(f, int(fi.Size()), true)
	if err != nil {
		return nil, err
	}

	hdr := headerAt(mem)

	if err := validateHeader(hdr, fi.Size()); err != nil {
		_ = unmapFile(mem)
		return nil, err
	}

	hdr.setDriverConnected(true)

	return &Segment{
		path: path,
		mem:  mem,
		hdr:  hdr,
		data: mem[HeaderBytes:],
	}, nil
}

func validateHeader(hdr *header, fileSize int64) error {
	if hdr.protocolVersion != ProtocolVersion {
		return fmt.Errorf("%w: 0x%08x (want 0x%08x)", ErrProtocolMismatch,
			hdr.protocolVersion, uint32(ProtocolVersion))
	}

	if hdr.headerSize < HeaderBytes {
		return fmt.Errorf("%w: header size %d", ErrUnsupportedFormat, hdr.headerSize)
	}

	if !SampleRateSupported(hdr.sampleRate) {
		return fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, hdr.sampleRate)
	}

	if hdr.channels < 1 || hdr.channels > MaxChannels {
		return fmt.Errorf("%w: channels %d", ErrUnsupportedFormat, hdr.channels)
	}

	format := Format(hdr.format)
	if !format.valid() || hdr.bytesPerSample != format.BytesPerSample() {
		return fmt.Errorf("%w: format %d / %d bytes per sample",
			ErrUnsupportedFormat, hdr.format, hdr.bytesPerSample)
	}

	if hdr.bytesPerFrame != hdr.bytesPerSample*hdr.channels {
		return fmt.Errorf("%w: bytes per frame %d", ErrUnsupportedFormat, hdr.bytesPerFrame)
	}

	need := int64(hdr.headerSize) + int64(hdr.ringCapacityFrames)*int64(hdr.bytesPerFrame)
	if fileSize < need {
		return fmt.Errorf("%w: %d bytes, need %d", ErrSegmentTooSmall, fileSize, need)
	}

	return nil
}

// Close drops this side's connected flag and unmaps the segment. The backing
// file is left in place; only the owner removes it via Unlink.
func (s *Segment) Close() error {
	if s.mem == nil {
		return nil
	}

	if s.owner {
		s.hdr.setHostConnected(false)
	} else {
		s.hdr.setDriverConnected(false)
	}

	err := unmapFile(s.mem)
	s.mem = nil
	s.hdr = nil
	s.data = nil

	return err
}

// Unlink removes the backing file. Only meaningful on the creating side.
func (s *Segment) Unlink() error {
	return os.Remove(s.path)
}

// Mapped reports whether the segment is currently mapped.
func (s *Segment) Mapped() bool { return s.mem != nil }

// Path returns the backing file path.
func (s *Segment) Path() string { return s.path }

// SampleRate returns the negotiated sample rate.
func (s *Segment) SampleRate() uint32 { return s.hdr.sampleRate }

// Channels returns the negotiated channel count.
func (s *Segment) Channels() uint32 { return s.hdr.channels }

// Format returns the payload sample format.
func (s *Segment) Format() Format { return Format(s.hdr.format) }

// BytesPerFrame returns the byte size of one interleaved frame.
func (s *Segment) BytesPerFrame() uint32 { return s.hdr.bytesPerFrame }

// RingCapacityFrames returns the ring capacity in frames.
func (s *Segment) RingCapacityFrames() uint32 { return s.hdr.ringCapacityFrames }

// RingDurationMS returns the duration that sized the ring.
func (s *Segment) RingDurationMS() uint32 { return s.hdr.ringDurationMS }

// WriteIndex returns the monotonic producer index in frames.
func (s *Segment) WriteIndex() uint64 { return s.hdr.WriteIndex() }

// ReadIndex returns the monotonic consumer index in frames.
func (s *Segment) ReadIndex() uint64 { return s.hdr.ReadIndex() }

// Used returns the number of frames currently buffered.
func (s *Segment) Used() uint64 { return s.hdr.WriteIndex() - s.hdr.ReadIndex() }

// TotalFramesWritten returns the monotonic producer frame counter.
func (s *Segment) TotalFramesWritten() uint64 { return s.hdr.TotalFramesWritten() }

// TotalFramesRead returns the monotonic consumer frame counter. The overrun
// path does not advance it; it tracks consumer consumption only.
func (s *Segment) TotalFramesRead() uint64 { return s.hdr.TotalFramesRead() }

// OverrunCount returns the number of producer overruns.
func (s *Segment) OverrunCount() uint64 { return s.hdr.OverrunCount() }

// UnderrunCount returns the number of consumer underruns.
func (s *Segment) UnderrunCount() uint64 { return s.hdr.UnderrunCount() }

// FormatMismatchCount returns the number of rejected format-mismatched writes.
func (s *Segment) FormatMismatchCount() uint64 { return s.hdr.FormatMismatchCount() }

// IncrementFormatMismatch counts one rejected format-mismatched write.
func (s *Segment) IncrementFormatMismatch() {
	atomic.AddUint64(&s.hdr.formatMismatchCount, 1)
}

// FormatChangeCounter returns the renegotiation counter.
func (s *Segment) FormatChangeCounter() uint64 { return s.hdr.FormatChangeCounter() }

// DriverConnected reports the driver presence flag.
func (s *Segment) DriverConnected() bool { return s.hdr.DriverConnected() }

// HostConnected reports the host presence flag.
func (s *Segment) HostConnected() bool { return s.hdr.HostConnected() }

// DriverHeartbeat returns the driver heartbeat tick.
func (s *Segment) DriverHeartbeat() uint64 { return s.hdr.DriverHeartbeat() }

// HostHeartbeat returns the host heartbeat tick.
func (s *Segment) HostHeartbeat() uint64 { return s.hdr.HostHeartbeat() }

// UpdateDriverHeartbeat bumps the driver heartbeat and asserts presence.
func (s *Segment) UpdateDriverHeartbeat() {
	atomic.AddUint64(&s.hdr.driverHeartbeat, 1)
	s.hdr.setDriverConnected(true)
}

// UpdateHostHeartbeat bumps the host heartbeat and asserts presence.
func (s *Segment) UpdateHostHeartbeat() {
	atomic.AddUint64(&s.hdr.hostHeartbeat, 1)
	s.hdr.setHostConnected(true)
}

// HeartbeatState tracks one observed heartbeat counter across health checks.
// The zero value means "not yet observed"; the first observation starts the
// freshness window, so a never-started heartbeat goes stale once the window
// elapses.
type HeartbeatState struct {
	LastValue  uint64
	LastChange time.Time
}

// Observe folds a new heartbeat reading into the state and reports whether
// the counter is fresh at time now.
func (st *HeartbeatState) Observe(value uint64, now time.Time) bool {
	if st.LastChange.IsZero() || value != st.LastValue {
		st.LastValue = value
		st.LastChange = now
	}

	return now.Sub(st.LastChange) < HeartbeatTimeout
}

// Healthy checks the segment from the driver's point of view: still mapped,
// backing file present, host connected, host heartbeat fresh, and ring
// indices inside the invariant 0 <= write-read <= capacity.
func (s *Segment) Healthy(hb *HeartbeatState, now time.Time) bool {
	if s == nil || s.mem == nil {
		return false
	}

	if _, err := os.Stat(s.path); err != nil {
		return false
	}

	if !s.hdr.HostConnected() {
		return false
	}

	if !hb.Observe(s.hdr.HostHeartbeat(), now) {
		return false
	}

	w := s.hdr.WriteIndex()
	r := s.hdr.ReadIndex()

	if w < r {
		return false
	}

	if w-r > uint64(s.hdr.ringCapacityFrames) {
		return false
	}

	return true
}

// PeekHostHeartbeat maps path read-only just long enough to read the host
// heartbeat counter. Used by the fleet synchroniser to test liveness without
// committing to a full open.
func PeekHostHeartbeat(path string) (uint64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", ErrSegmentNotFound, path)
		}

		return 0, fmt.Errorf("shmem: stat %s: %w", path, err)
	}

	if fi.Size() < HeaderBytes {
		return 0, fmt.Errorf("%w: %d bytes", ErrSegmentTooSmall, fi.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("shmem: open %s: %w", path, err)
	}
	defer f.Close()

	mem, err := mapFile(f, HeaderBytes, false)
	if err != nil {
		return 0, err
	}
	defer unmapFile(mem)

	return headerAt(mem).HostHeartbeat(), nil
}
