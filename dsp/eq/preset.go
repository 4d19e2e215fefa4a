package eq

import (
	"fmt"
	"math"
)

// MaxBands is the number of bands a preset can hold.
const MaxBands = 10

// FilterType selects the response shape of one EQ band.
type FilterType uint32

const (
	// Peak is a parametric bell boost/cut around the centre frequency.
	Peak FilterType = iota
	// LowShelf boosts or cuts everything below the corner frequency.
	LowShelf
	// HighShelf boosts or cuts everything above the corner frequency.
	HighShelf
	// LowPass attenuates above the cutoff.
	LowPass
	// HighPass attenuates below the cutoff.
	HighPass
	// Notch rejects a narrow band around the centre frequency.
	Notch
	// BandPass passes a narrow band around the centre frequency.
	BandPass
)

// String returns the filter type name.
func (t FilterType) String() string {
	switch t {
	case Peak:
		return "peak"
	case LowShelf:
		return "lowshelf"
	case HighShelf:
		return "highshelf"
	case LowPass:
		return "lowpass"
	case HighPass:
		return "highpass"
	case Notch:
		return "notch"
	case BandPass:
		return "bandpass"
	default:
		return "unknown"
	}
}

// Band configures a single EQ band.
type Band struct {
	FreqHz  float64    // centre/corner frequency, 20..20000
	GainDB  float64    // boost/cut, -12..+12
	Q       float64    // quality factor, 0.1..10
	Type    FilterType // response shape
	Enabled bool       // disabled bands are skipped entirely
}

// Preset is the fixed-shape EQ configuration applied to an Engine.
type Preset struct {
	Bands              [MaxBands]Band
	NumBands           int     // 1..MaxBands
	PreampDB           float64 // -12..+12
	LimiterEnabled     bool
	LimiterThresholdDB float64 // -6..0
	Name               string
}

// defaultFrequencies is the standard 10-band graphic EQ layout.
var defaultFrequencies = [MaxBands]float64{
	32, 64, 125, 250, 500, 1000, 2000, 4000, 8000, 16000,
}

// FlatPreset returns the transparent default: ten disabled peak bands on the
// standard graphic-EQ frequencies, unity preamp, limiter off.
func FlatPreset() Preset {
	p := Preset{
		NumBands:           MaxBands,
		LimiterThresholdDB: -0.1,
		Name:               "Flat",
	}

	for i := range p.Bands {
		p.Bands[i] = Band{
			FreqHz: defaultFrequencies[i],
			Q:      1,
			Type:   Peak,
		}
	}

	return p
}

// Validate reports whether every preset field is inside its documented range
// and finite. Any NaN or Inf anywhere invalidates the preset.
func (p *Preset) Validate() error {
	if p == nil {
		return ErrNil
	}

	if p.NumBands < 1 || p.NumBands > MaxBands {
		return fmt.Errorf("%w: num bands %d", ErrInvalidParam, p.NumBands)
	}

	for i := 0; i < p.NumBands; i++ {
		b := &p.Bands[i]

		if !finite(b.FreqHz) || b.FreqHz < 20 || b.FreqHz > 20000 {
			return fmt.Errorf("%w: band %d frequency %v", ErrInvalidParam, i, b.FreqHz)
		}

		if !finite(b.GainDB) || b.GainDB < -12 || b.GainDB > 12 {
			return fmt.Errorf("%w: band %d gain %v", ErrInvalidParam, i, b.GainDB)
		}

		if !finite(b.Q) || b.Q < 0.1 || b.Q > 10 {
			return fmt.Errorf("%w: band %d Q %v", ErrInvalidParam, i, b.Q)
		}

		if b.Type > BandPass {
			return fmt.Errorf("%w: band %d type %d", ErrInvalidParam, i, b.Type)
		}
	}

	if !finite(p.PreampDB) || p.PreampDB < -12 || p.PreampDB > 12 {
		return fmt.Errorf("%w: preamp %v", ErrInvalidParam, p.PreampDB)
	}

	if !finite(p.LimiterThresholdDB) || p.LimiterThresholdDB < -6 || p.LimiterThresholdDB > 0 {
		return fmt.Errorf("%w: limiter threshold %v", ErrInvalidParam, p.LimiterThresholdDB)
	}

	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// dbToGain converts decibels to linear amplitude.
func dbToGain(db float64) float64 {
	return math.Pow(10, db/20)
}
