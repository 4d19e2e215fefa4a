package driver

import (
	"encoding/binary"
	"math"
)

// SampleEncoding identifies the sample encoding of an incoming client stream.
type SampleEncoding uint32

const (
	// EncFloat32 is IEEE-754 single precision.
	EncFloat32 SampleEncoding = iota
	// EncInt16 is signed 16-bit PCM.
	EncInt16
	// EncInt24 is signed 24-bit PCM, packed little-endian in 3 bytes.
	EncInt24
	// EncInt32 is signed 32-bit PCM.
	EncInt32
)

func (e SampleEncoding) bytesPerSample() uint32 {
	switch e {
	case EncInt16:
		return 2
	case EncInt24:
		return 3
	case EncFloat32, EncInt32:
		return 4
	default:
		return 0
	}
}

// StreamFormat is the subset of the platform stream description the handler
// consumes: rate, channel count, encoding, and interleaving.
type StreamFormat struct {
	SampleRate  uint32
	Channels    uint32
	Encoding    SampleEncoding
	Interleaved bool
}

// BytesPerFrame returns the byte size of one frame, or 0 for an unknown
// encoding.
func (f StreamFormat) BytesPerFrame() uint32 {
	return f.Encoding.bytesPerSample() * f.Channels
}

// convertToFloat32Interleaved decodes frames of src into dst as interleaved
// float32. Non-interleaved input is supported for float32 only; the integer
// encodings arrive interleaved from the platform mixer. Returns false for a
// combination it cannot decode.
func convertToFloat32Interleaved(dst []float32, src []byte, frames int, f StreamFormat) bool {
	ch := int(f.Channels)
	total := frames * ch

	switch f.Encoding {
	case EncFloat32:
		if f.Interleaved {
			for i := 0; i < total; i++ {
				dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
			}

			return true
		}

		// planar: channel-major blocks of frames samples each
		for c := 0; c < ch; c++ {
			plane := src[c*frames*4:]
			for i := 0; i < frames; i++ {
				dst[i*ch+c] = math.Float32frombits(binary.LittleEndian.Uint32(plane[i*4:]))
			}
		}

		return true

	case EncInt16:
		if !f.Interleaved {
			return false
		}

		for i := 0; i < total; i++ {
			dst[i] = float32(int16(binary.LittleEndian.Uint16(src[i*2:]))) / 32768.0
		}

		return true

	case EncInt32:
		if !f.Interleaved {
			return false
		}

		for i := 0; i < total; i++ {
			dst[i] = float32(int32(binary.LittleEndian.Uint32(src[i*4:]))) / 2147483648.0
		}

		return true

	case EncInt24:
		if !f.Interleaved {
			return false
		}

		for i := 0; i < total; i++ {
			b := src[i*3:]

			val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
			if val&0x800000 != 0 {
				val |= ^int32(0xFFFFFF)
			}

			dst[i] = float32(val) / 8388608.0
		}

		return true

	default:
		return false
	}
}
