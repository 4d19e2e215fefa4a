// Command wavproc runs an audio file through the parametric EQ offline.
// It decodes WAV, MP3, or OGG/Vorbis input, processes it with the same
// engine the host uses in realtime, and writes a 16-bit stereo WAV.
//
// Usage:
//
//	wavproc -in music.mp3 -out processed.wav -preamp -3 \
//	    -band 100:6:1:lowshelf -band 4000:-4:2:peak -limiter
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"

	"github.com/radioform/radioform/dsp/eq"
)

const blockFrames = 4096

func main() {
	log.SetFlags(0)
	log.SetPrefix("wavproc: ")

	var (
		inPath     = flag.String("in", "", "input file (.wav, .mp3, .ogg)")
		outPath    = flag.String("out", "", "output WAV file")
		preamp     = flag.Float64("preamp", 0, "preamp gain in dB (-12..12)")
		limiterOn  = flag.Bool("limiter", false, "enable the soft limiter")
		limiterDB  = flag.Float64("limiter-threshold", -0.1, "limiter threshold in dB (-6..0)")
		bypass     = flag.Bool("bypass", false, "bypass all processing")
		bandSpecs  []string
	)

	flag.Func("band", "band spec freq:gain:q[:type], repeatable", func(s string) error {
		bandSpecs = append(bandSpecs, s)
		return nil
	})
	flag.Parse()

	if *inPath == "" || *outPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	samples, sampleRate, err := decodeFile(*inPath)
	if err != nil {
		log.Fatalf("decode %s: %v", *inPath, err)
	}

	preset, err := buildPreset(bandSpecs, *preamp, *limiterOn, *limiterDB)
	if err != nil {
		log.Fatalf("preset: %v", err)
	}

	engine, err := eq.New(uint32(sampleRate))
	if err != nil {
		log.Fatalf("engine: %v", err)
	}

	if err := engine.ApplyPreset(&preset); err != nil {
		log.Fatalf("apply preset: %v", err)
	}

	engine.SetBypass(*bypass)

	frames := len(samples) / 2
	for off := 0; off < frames; off += blockFrames {
		n := blockFrames
		if off+n > frames {
			n = frames - off
		}

		block := samples[2*off : 2*(off+n)]
		engine.ProcessInterleaved(block, block, n)
	}

	if err := encodeWAV(*outPath, samples, sampleRate); err != nil {
		log.Fatalf("encode %s: %v", *outPath, err)
	}

	var stats eq.Stats
	engine.GetStats(&stats)
	log.Printf("%d frames at %d Hz, peak L %.1f dBFS / R %.1f dBFS",
		stats.FramesProcessed, sampleRate, stats.PeakLeftDB, stats.PeakRightDB)
}

// buildPreset translates the command line into an engine preset. Band specs
// are freq:gain:q with an optional fourth type field.
func buildPreset(specs []string, preamp float64, limiterOn bool, limiterDB float64) (eq.Preset, error) {
	p := eq.FlatPreset()
	p.PreampDB = preamp
	p.LimiterEnabled = limiterOn
	p.LimiterThresholdDB = limiterDB
	p.Name = "wavproc"

	if len(specs) > eq.MaxBands {
		return p, fmt.Errorf("too many bands: %d (max %d)", len(specs), eq.MaxBands)
	}

	for i, spec := range specs {
		band, err := parseBand(spec)
		if err != nil {
			return p, fmt.Errorf("band %q: %w", spec, err)
		}

		p.Bands[i] = band
	}

	if err := p.Validate(); err != nil {
		return p, err
	}

	return p, nil
}

func parseBand(spec string) (eq.Band, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 3 {
		return eq.Band{}, errors.New("want freq:gain:q[:type]")
	}

	freq, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return eq.Band{}, err
	}

	gain, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return eq.Band{}, err
	}

	q, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return eq.Band{}, err
	}

	band := eq.Band{FreqHz: freq, GainDB: gain, Q: q, Type: eq.Peak, Enabled: true}

	if len(parts) >= 4 {
		switch parts[3] {
		case "peak":
			band.Type = eq.Peak
		case "lowshelf":
			band.Type = eq.LowShelf
		case "highshelf":
			band.Type = eq.HighShelf
		case "lowpass":
			band.Type = eq.LowPass
		case "highpass":
			band.Type = eq.HighPass
		case "notch":
			band.Type = eq.Notch
		case "bandpass":
			band.Type = eq.BandPass
		default:
			return eq.Band{}, fmt.Errorf("unknown filter type %q", parts[3])
		}
	}

	return band, nil
}

// decodeFile reads a whole input file as interleaved stereo float32.
// Mono input is duplicated onto both channels.
func decodeFile(path string) ([]float32, int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(path)
	case ".mp3":
		return decodeMP3(path)
	case ".ogg":
		return decodeOGG(path)
	default:
		return nil, 0, fmt.Errorf("unsupported input extension %q", filepath.Ext(path))
	}
}

func decodeWAV(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("not a valid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}

	channels := buf.Format.NumChannels
	if channels < 1 || channels > 2 {
		return nil, 0, fmt.Errorf("unsupported channel count %d", channels)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}

	scale := float32(int(1) << (bitDepth - 1))
	frames := len(buf.Data) / channels
	out := make([]float32, 2*frames)

	for i := 0; i < frames; i++ {
		l := float32(buf.Data[i*channels]) / scale

		r := l
		if channels == 2 {
			r = float32(buf.Data[i*channels+1]) / scale
		}

		out[2*i] = l
		out[2*i+1] = r
	}

	return out, buf.Format.SampleRate, nil
}

func decodeMP3(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, 0, err
	}

	// go-mp3 always emits 16-bit little-endian stereo.
	raw := make([]byte, 0, 1<<20)
	chunk := make([]byte, 32768)

	for {
		n, err := dec.Read(chunk)
		raw = append(raw, chunk[:n]...)

		if err != nil {
			break
		}
	}

	samples := len(raw) / 2
	out := make([]float32, samples)

	for i := 0; i < samples; i++ {
		v := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		out[i] = float32(v) / 32768.0
	}

	return out, dec.SampleRate(), nil
}

func decodeOGG(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	data, format, err := oggvorbis.ReadAll(f)
	if err != nil {
		return nil, 0, err
	}

	switch format.Channels {
	case 1:
		out := make([]float32, 2*len(data))
		for i, v := range data {
			out[2*i] = v
			out[2*i+1] = v
		}

		return out, format.SampleRate, nil
	case 2:
		return data, format.SampleRate, nil
	default:
		return nil, 0, fmt.Errorf("unsupported channel count %d", format.Channels)
	}
}

// encodeWAV writes interleaved stereo float32 as 16-bit PCM.
func encodeWAV(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 2, 1)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}

	for i, v := range samples {
		if v > 1 {
			v = 1
		}

		if v < -1 {
			v = -1
		}

		buf.Data[i] = int(v * 32767)
	}

	if err := enc.Write(buf); err != nil {
		return err
	}

	return enc.Close()
}
