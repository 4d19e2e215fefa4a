package eq

import (
	"math"
	"sync/atomic"
)

// MeterFloorDB is the lowest level the peak meters report.
const MeterFloorDB = -120.0

// meterDecaySeconds is the exponential decay time constant, scaled by the
// sample rate so the fall-back speed is rate independent.
const meterDecaySeconds = 0.3

// peakMeter is a per-channel peak-hold meter with exponential decay,
// readable from any thread.
type peakMeter struct {
	bits atomic.Uint64 // float64 peak, linear
}

func (m *peakMeter) reset() {
	m.bits.Store(0)
}

func (m *peakMeter) peak() float64 {
	return math.Float64frombits(m.bits.Load())
}

// update folds a block peak into the meter: the stored peak decays over
// frames samples, then the block peak takes over if it is louder.
func (m *peakMeter) update(blockPeak float64, frames int, sampleRate float64) {
	decay := math.Exp(-float64(frames) / (meterDecaySeconds * sampleRate))
	decayed := m.peak() * decay

	if blockPeak > decayed {
		decayed = blockPeak
	}

	m.bits.Store(math.Float64bits(decayed))
}

// peakDB converts a linear peak to dBFS with the meter floor applied.
func peakDB(linear float64) float64 {
	if linear <= 0 {
		return MeterFloorDB
	}

	db := 20 * math.Log10(linear)
	if db < MeterFloorDB {
		return MeterFloorDB
	}

	return db
}
