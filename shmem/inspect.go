package shmem

import (
	"fmt"
	"os"
)

// Info is a read-only snapshot of a segment's header, taken without raising
// either connected flag.
type Info struct {
	ProtocolVersion    uint32
	HeaderSize         uint32
	SampleRate         uint32
	Channels           uint32
	Format             Format
	BytesPerFrame      uint32
	RingCapacityFrames uint32
	RingDurationMS     uint32
	DriverCapabilities uint32
	HostCapabilities   uint32
	CreationTimestamp  uint64

	WriteIndex          uint64
	ReadIndex           uint64
	TotalFramesWritten  uint64
	TotalFramesRead     uint64
	OverrunCount        uint64
	UnderrunCount       uint64
	FormatMismatchCount uint64
	FormatChangeCounter uint64

	DriverConnected bool
	HostConnected   bool
	DriverHeartbeat uint64
	HostHeartbeat   uint64
}

// Inspect maps path read-only and returns a header snapshot. Unlike Open it
// performs no validation beyond the minimum size and leaves every flag
// untouched, so it is safe to point at a live or even corrupted segment.
func Inspect(path string) (Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, fmt.Errorf("%w: %s", ErrSegmentNotFound, path)
		}

		return Info{}, fmt.Errorf("shmem: stat %s: %w", path, err)
	}

	if fi.Size() < HeaderBytes {
		return Info{}, fmt.Errorf("%w: %d bytes", ErrSegmentTooSmall, fi.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("shmem: open %s: %w", path, err)
	}
	defer f.Close()

	mem, err := mapFile(f, HeaderBytes, false)
	if err != nil {
		return Info{}, err
	}
	defer unmapFile(mem)

	hdr := headerAt(mem)

	return Info{
		ProtocolVersion:    hdr.protocolVersion,
		HeaderSize:         hdr.headerSize,
		SampleRate:         hdr.sampleRate,
		Channels:           hdr.channels,
		Format:             Format(hdr.format),
		BytesPerFrame:      hdr.bytesPerFrame,
		RingCapacityFrames: hdr.ringCapacityFrames,
		RingDurationMS:     hdr.ringDurationMS,
		DriverCapabilities: hdr.driverCapabilities,
		HostCapabilities:   hdr.hostCapabilities,
		CreationTimestamp:  hdr.creationTimestamp,

		WriteIndex:          hdr.WriteIndex(),
		ReadIndex:           hdr.ReadIndex(),
		TotalFramesWritten:  hdr.TotalFramesWritten(),
		TotalFramesRead:     hdr.TotalFramesRead(),
		OverrunCount:        hdr.OverrunCount(),
		UnderrunCount:       hdr.UnderrunCount(),
		FormatMismatchCount: hdr.FormatMismatchCount(),
		FormatChangeCounter: hdr.FormatChangeCounter(),

		DriverConnected: hdr.DriverConnected(),
		HostConnected:   hdr.HostConnected(),
		DriverHeartbeat: hdr.DriverHeartbeat(),
		HostHeartbeat:   hdr.HostHeartbeat(),
	}, nil
}
