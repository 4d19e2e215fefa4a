package shmem

import (
	"sync/atomic"
	"unsafe"
)

// header is the in-memory view of the segment header. The field order and
// sizes are the wire layout; the struct is overlaid directly on the mapped
// region, so it must never be reordered or resized. All 64-bit fields sit on
// 8-byte boundaries (the mapping is page-aligned).
type header struct {
	protocolVersion    uint32
	headerSize         uint32
	sampleRate         uint32
	channels           uint32
	format             uint32
	bytesPerSample     uint32
	bytesPerFrame      uint32
	ringCapacityFrames uint32
	ringDurationMS     uint32
	driverCapabilities uint32
	hostCapabilities   uint32
	_                  uint32

	creationTimestamp   uint64
	formatChangeCounter uint64
	writeIndex          uint64
	readIndex           uint64
	totalFramesWritten  uint64
	totalFramesRead     uint64
	overrunCount        uint64
	underrunCount       uint64
	formatMismatchCount uint64

	driverConnected uint32
	hostConnected   uint32
	driverHeartbeat uint64
	hostHeartbeat   uint64

	_ [112]byte
}

// Layout guard: the header must occupy exactly HeaderBytes.
var (
	_ [HeaderBytes - unsafe.Sizeof(header{})]byte
	_ [unsafe.Sizeof(header{}) - HeaderBytes]byte
)

func headerAt(mem []byte) *header {
	return (*header)(unsafe.Pointer(&mem[0]))
}

func (h *header) WriteIndex() uint64  { return atomic.LoadUint64(&h.writeIndex) }
func (h *header) ReadIndex() uint64   { return atomic.LoadUint64(&h.readIndex) }
func (h *header) setWriteIndex(v uint64) { atomic.StoreUint64(&h.writeIndex, v) }
func (h *header) setReadIndex(v uint64)  { atomic.StoreUint64(&h.readIndex, v) }

func (h *header) TotalFramesWritten() uint64 { return atomic.LoadUint64(&h.totalFramesWritten) }
func (h *header) TotalFramesRead() uint64    { return atomic.LoadUint64(&h.totalFramesRead) }
func (h *header) OverrunCount() uint64       { return atomic.LoadUint64(&h.overrunCount) }
func (h *header) UnderrunCount() uint64      { return atomic.LoadUint64(&h.underrunCount) }
func (h *header) FormatMismatchCount() uint64 {
	return atomic.LoadUint64(&h.formatMismatchCount)
}
func (h *header) FormatChangeCounter() uint64 {
	return atomic.LoadUint64(&h.formatChangeCounter)
}

func (h *header) DriverConnected() bool { return atomic.LoadUint32(&h.driverConnected) == 1 }
func (h *header) HostConnected() bool   { return atomic.LoadUint32(&h.hostConnected) == 1 }

func (h *header) setDriverConnected(on bool) {
	atomic.StoreUint32(&h.driverConnected, boolWord(on))
}

func (h *header) setHostConnected(on bool) {
	atomic.StoreUint32(&h.hostConnected, boolWord(on))
}

func (h *header) DriverHeartbeat() uint64 { return atomic.LoadUint64(&h.driverHeartbeat) }
func (h *header) HostHeartbeat() uint64   { return atomic.LoadUint64(&h.hostHeartbeat) }

func boolWord(on bool) uint32 {
	if on {
		return 1
	}

	return 0
}
