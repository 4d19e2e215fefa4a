package eq

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

// Sample-rate bounds for engine construction.
const (
	MinSampleRate = 8000
	MaxSampleRate = 384000
)

// cpuLoadAlpha is the EMA weight of each new block's load measurement.
const cpuLoadAlpha = 0.1

// Engine is a stereo parametric EQ processing float32 audio at a fixed
// sample rate. The signal path is preamp, enabled bands in order, DC
// blocker, optional limiter, peak meters. Process* calls must come from a
// single audio thread; SetBypass, the Update* ops, and GetStats are safe from
// any thread.
type Engine struct {
	sampleRate        uint32
	transitionSamples int

	bands     [MaxBands]biquad
	numActive int
	preset    Preset

	preamp  gainSmoother
	dc      dcBlocker
	limiter softLimiter

	limiterEnabled bool

	bypass          atomic.Bool
	framesProcessed atomic.Uint64
	cpuLoadBits     atomic.Uint64
	meters          [2]peakMeter
}

// Stats is a snapshot of the engine's diagnostic counters.
type Stats struct {
	FramesProcessed uint64
	CPULoadPercent  float64
	BypassActive    bool
	SampleRate      uint32
	PeakLeftDB      float64
	PeakRightDB     float64
}

// New creates an engine at the given sample rate with the flat preset
// applied. Denormal suppression is enabled on the calling thread; the audio
// thread should additionally call EnableDenormalSuppression once at its own
// startup.
func New(sampleRate uint32) (*Engine, error) {
	if sampleRate < MinSampleRate || sampleRate > MaxSampleRate {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidParam, sampleRate)
	}

	EnableDenormalSuppression()

	e := &Engine{sampleRate: sampleRate}
	e.initRate()

	for i := range e.bands {
		e.bands[i].init()
	}

	e.preamp.setValue(1)

	flat := FlatPreset()
	if err := e.ApplyPreset(&flat); err != nil {
		return nil, err
	}

	return e, nil
}

// initRate derives everything that depends on the sample rate.
func (e *Engine) initRate() {
	fs := float64(e.sampleRate)
	e.transitionSamples = int(0.01 * fs)
	e.preamp.init(fs, 10)
	e.dc.init(fs)
}

// Reset clears all filter state and statistics without touching the preset.
func (e *Engine) Reset() {
	if e == nil {
		return
	}

	for i := range e.bands {
		e.bands[i].resetState()
	}

	e.dc.reset()
	e.framesProcessed.Store(0)
	e.cpuLoadBits.Store(0)
	e.meters[0].reset()
	e.meters[1].reset()
}

// SetSampleRate re-initialises the rate-dependent pieces and reapplies the
// current preset. Not realtime-safe; call with audio stopped.
func (e *Engine) SetSampleRate(sampleRate uint32) error {
	if e == nil {
		return ErrNil
	}

	if sampleRate < MinSampleRate || sampleRate > MaxSampleRate {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidParam, sampleRate)
	}

	e.sampleRate = sampleRate
	e.initRate()
	e.preamp.setValue(dbToGain(e.preset.PreampDB))

	preset := e.preset

	return e.ApplyPreset(&preset)
}

// SampleRate returns the engine's sample rate.
func (e *Engine) SampleRate() uint32 {
	if e == nil {
		return 0
	}

	return e.sampleRate
}

// ApplyPreset validates and installs a preset. Coefficients are replaced
// instantly; this is the cold path with no audio-continuity assumption.
func (e *Engine) ApplyPreset(p *Preset) error {
	if e == nil || p == nil {
		return ErrNil
	}

	if err := p.Validate(); err != nil {
		return err
	}

	e.preset = *p
	e.numActive = p.NumBands

	fs := float64(e.sampleRate)

	for i := 0; i < p.NumBands; i++ {
		if p.Bands[i].Enabled {
			e.bands[i].setImmediate(designBand(p.Bands[i], fs))
		} else {
			e.bands[i].setImmediate(flatCoeffs)
		}
	}

	e.preamp.setTarget(dbToGain(p.PreampDB))

	e.limiterEnabled = p.LimiterEnabled
	if p.LimiterEnabled {
		e.limiter.setThresholdDB(p.LimiterThresholdDB)
	}

	return nil
}

// Preset returns a copy of the current preset.
func (e *Engine) Preset() Preset {
	if e == nil {
		return Preset{}
	}

	return e.preset
}

// SetBypass toggles the lock-free bypass. Takes effect at the next process
// call, with no ramp.
func (e *Engine) SetBypass(on bool) {
	if e == nil {
		return
	}

	e.bypass.Store(on)
}

// Bypass reports whether bypass is engaged. A nil engine reports true.
func (e *Engine) Bypass() bool {
	if e == nil {
		return true
	}

	return e.bypass.Load()
}

// processFrame runs one stereo frame through the full signal path.
func (e *Engine) processFrame(l, r float32) (float32, float32) {
	gain := e.preamp.next()
	lf := float64(l) * gain
	rf := float64(r) * gain

	for i := 0; i < e.numActive; i++ {
		if e.preset.Bands[i].Enabled {
			lf, rf = e.bands[i].processFrame(lf, rf)
		}
	}

	lf = e.dc.process(0, lf)
	rf = e.dc.process(1, rf)

	if e.limiterEnabled {
		lf = e.limiter.process(lf)
		rf = e.limiter.process(rf)
	}

	return float32(lf), float32(rf)
}

// ProcessInterleaved filters n stereo frames from in to out. in and out may
// alias for in-place processing. With bypass engaged the input is copied
// through bit-exactly.
func (e *Engine) ProcessInterleaved(in, out []float32, n int) {
	if e == nil || n <= 0 || len(in) < 2*n || len(out) < 2*n {
		return
	}

	if e.bypass.Load() {
		if &in[0] != &out[0] {
			copy(out[:2*n], in[:2*n])
		}

		return
	}

	start := time.Now()

	var peakL, peakR float64

	for i := 0; i < n; i++ {
		l, r := e.processFrame(in[2*i], in[2*i+1])
		out[2*i] = l
		out[2*i+1] = r

		if a := math.Abs(float64(l)); a > peakL {
			peakL = a
		}

		if a := math.Abs(float64(r)); a > peakR {
			peakR = a
		}
	}

	e.finishBlock(n, peakL, peakR, start)
}

// ProcessPlanar filters n frames of planar stereo. Input and output planes
// may alias. With bypass engaged the input is copied through bit-exactly.
func (e *Engine) ProcessPlanar(inL, inR, outL, outR []float32, n int) {
	if e == nil || n <= 0 || len(inL) < n || len(inR) < n || len(outL) < n || len(outR) < n {
		return
	}

	if e.bypass.Load() {
		if &inL[0] != &outL[0] {
			copy(outL[:n], inL[:n])
		}

		if &inR[0] != &outR[0] {
			copy(outR[:n], inR[:n])
		}

		return
	}

	start := time.Now()

	var peakL, peakR float64

	for i := 0; i < n; i++ {
		l, r := e.processFrame(inL[i], inR[i])
		outL[i] = l
		outR[i] = r

		if a := math.Abs(float64(l)); a > peakL {
			peakL = a
		}

		if a := math.Abs(float64(r)); a > peakR {
			peakR = a
		}
	}

	e.finishBlock(n, peakL, peakR, start)
}

// finishBlock updates meters, the CPU load EMA, and the frame counter after
// a processed block.
func (e *Engine) finishBlock(n int, peakL, peakR float64, start time.Time) {
	fs := float64(e.sampleRate)

	e.meters[0].update(peakL, n, fs)
	e.meters[1].update(peakR, n, fs)

	available := float64(n) / fs
	if available > 0 {
		instant := time.Since(start).Seconds() / available * 100
		prev := math.Float64frombits(e.cpuLoadBits.Load())
		load := cpuLoadAlpha*instant + (1-cpuLoadAlpha)*prev
		e.cpuLoadBits.Store(math.Float64bits(load))
	}

	e.framesProcessed.Add(uint64(n))
}

// UpdateBandGain retargets one band's gain with a smoothed coefficient
// transition. Lock-free; callable from any thread, single writer per band.
// The value is clamped to the documented range; an out-of-range index is
// ignored.
func (e *Engine) UpdateBandGain(idx int, gainDB float64) {
	if e == nil || idx < 0 || idx >= e.numActive || !finite(gainDB) {
		return
	}

	e.preset.Bands[idx].GainDB = clamp(gainDB, -12, 12)
	e.retargetBand(idx)
}

// UpdateBandFreq retargets one band's centre frequency.
func (e *Engine) UpdateBandFreq(idx int, freqHz float64) {
	if e == nil || idx < 0 || idx >= e.numActive || !finite(freqHz) {
		return
	}

	e.preset.Bands[idx].FreqHz = clamp(freqHz, 20, 20000)
	e.retargetBand(idx)
}

// UpdateBandQ retargets one band's quality factor.
func (e *Engine) UpdateBandQ(idx int, q float64) {
	if e == nil || idx < 0 || idx >= e.numActive || !finite(q) {
		return
	}

	e.preset.Bands[idx].Q = clamp(q, 0.1, 10)
	e.retargetBand(idx)
}

func (e *Engine) retargetBand(idx int) {
	if !e.preset.Bands[idx].Enabled {
		return
	}

	c := designBand(e.preset.Bands[idx], float64(e.sampleRate))
	e.bands[idx].setTarget(c, e.transitionSamples)
}

// UpdatePreamp retargets the smoothed preamp gain. Lock-free.
func (e *Engine) UpdatePreamp(gainDB float64) {
	if e == nil || !finite(gainDB) {
		return
	}

	gainDB = clamp(gainDB, -12, 12)
	e.preset.PreampDB = gainDB
	e.preamp.setTarget(dbToGain(gainDB))
}

// GetStats fills stats with a snapshot of the engine's counters.
func (e *Engine) GetStats(stats *Stats) {
	if e == nil || stats == nil {
		return
	}

	*stats = Stats{
		FramesProcessed: e.framesProcessed.Load(),
		CPULoadPercent:  math.Float64frombits(e.cpuLoadBits.Load()),
		BypassActive:    e.bypass.Load(),
		SampleRate:      e.sampleRate,
		PeakLeftDB:      peakDB(e.meters[0].peak()),
		PeakRightDB:     peakDB(e.meters[1].peak()),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
