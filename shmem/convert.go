package shmem

import (
	"encoding/binary"
	"math"
)

// Write-side scale factors use the max positive value of each int format so a
// full-scale +1.0 write cannot clip; the read side divides by 2^(n-1), keeping
// well-formed magnitudes at or below 1.0.
const (
	int16WriteScale = 32767.0
	int24WriteScale = 8388607.0
	int32WriteScale = 2147483647.0

	int16ReadScale = 32768.0
	int24ReadScale = 8388608.0
	int32ReadScale = 2147483648.0
)

func clampUnit(v float32) float32 {
	if v > 1 {
		return 1
	}

	if v < -1 {
		return -1
	}

	return v
}

// putSample encodes one float32 sample into dst in the given format.
// Int formats clamp to [-1, 1] before scaling.
func putSample(dst []byte, f Format, v float32) {
	switch f {
	case FormatFloat32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
	case FormatFloat64:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(float64(v)))
	case FormatInt16:
		binary.LittleEndian.PutUint16(dst, uint16(int16(clampUnit(v)*int16WriteScale)))
	case FormatInt24:
		val := int32(clampUnit(v) * int24WriteScale)
		dst[0] = byte(val)
		dst[1] = byte(val >> 8)
		dst[2] = byte(val >> 16)
	case FormatInt32:
		binary.LittleEndian.PutUint32(dst, uint32(int32(clampUnit(v)*int32WriteScale)))
	}
}

// getSample decodes one sample from src, returning float32.
func getSample(src []byte, f Format) float32 {
	switch f {
	case FormatFloat32:
		return math.Float32frombits(binary.LittleEndian.Uint32(src))
	case FormatFloat64:
		return float32(math.Float64frombits(binary.LittleEndian.Uint64(src)))
	case FormatInt16:
		return float32(int16(binary.LittleEndian.Uint16(src))) / int16ReadScale
	case FormatInt24:
		val := int32(src[0]) | int32(src[1])<<8 | int32(src[2])<<16
		if val&0x800000 != 0 {
			val |= ^int32(0xFFFFFF) // sign extend 24 -> 32
		}

		return float32(val) / int24ReadScale
	case FormatInt32:
		return float32(int32(binary.LittleEndian.Uint32(src))) / int32ReadScale
	default:
		return 0
	}
}
