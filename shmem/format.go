package shmem

// ProtocolVersion is the current wire protocol (major 2, minor 0).
// A driver must refuse to map a segment carrying any other version.
const ProtocolVersion = 0x00020000

// HeaderBytes is the fixed size of the segment header. The ring payload
// starts at this offset. The header reserves space up to this size so the
// layout can grow without a protocol bump.
const HeaderBytes = 256

// Format identifies the sample encoding stored in the ring payload.
type Format uint32

const (
	// FormatFloat32 is IEEE-754 single precision, the native transport format.
	FormatFloat32 Format = iota
	// FormatFloat64 is IEEE-754 double precision.
	FormatFloat64
	// FormatInt16 is signed 16-bit PCM.
	FormatInt16
	// FormatInt24 is signed 24-bit PCM, packed little-endian in 3 bytes.
	FormatInt24
	// FormatInt32 is signed 32-bit PCM.
	FormatInt32
)

// BytesPerSample returns the storage size of one sample in this format.
func (f Format) BytesPerSample() uint32 {
	switch f {
	case FormatFloat64:
		return 8
	case FormatInt16:
		return 2
	case FormatInt24:
		return 3
	case FormatFloat32, FormatInt32:
		return 4
	default:
		return 4
	}
}

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatFloat32:
		return "float32"
	case FormatFloat64:
		return "float64"
	case FormatInt16:
		return "int16"
	case FormatInt24:
		return "int24"
	case FormatInt32:
		return "int32"
	default:
		return "unknown"
	}
}

func (f Format) valid() bool {
	return f <= FormatInt32
}

// MaxChannels is the highest channel count a segment may carry (7.1 surround).
const MaxChannels = 8

// Ring duration bounds in milliseconds. The default gives a 40 ms ring.
const (
	RingDurationMSMin     = 20
	RingDurationMSMax     = 100
	RingDurationMSDefault = 40
)

// Capability flag bits. Unknown bits are reserved and must be zero.
const (
	CapMultiSampleRate   = 1 << 0
	CapMultiFormat       = 1 << 1
	CapMultiChannel      = 1 << 2
	CapSampleRateConvert = 1 << 3
	CapFormatConvert     = 1 << 4
	CapAutoReconnect     = 1 << 5
	CapHeartbeatMonitor  = 1 << 6
)

// driverCapabilities is the capability word advertised for the driver side
// when a segment is initialised.
const driverCapabilities = CapMultiSampleRate | CapMultiFormat | CapMultiChannel |
	CapFormatConvert | CapAutoReconnect | CapHeartbeatMonitor

var supportedSampleRates = [...]uint32{44100, 48000, 88200, 96000, 176400, 192000}

// SampleRateSupported reports whether rate is one of the supported set
// (44.1 kHz through 192 kHz).
func SampleRateSupported(rate uint32) bool {
	for _, r := range supportedSampleRates {
		if r == rate {
			return true
		}
	}

	return false
}

// FramesForDuration returns the ring capacity in frames for a duration in
// milliseconds at the given sample rate.
func FramesForDuration(sampleRate, durationMS uint32) uint32 {
	return sampleRate * durationMS / 1000
}

// SegmentSize returns the total byte size of a segment file holding
// capacityFrames frames of channels x bytesPerSample audio.
func SegmentSize(capacityFrames, channels, bytesPerSample uint32) int64 {
	return HeaderBytes + int64(capacityFrames)*int64(channels)*int64(bytesPerSample)
}
