package host

import (
	"fmt"

	"github.com/radioform/radioform/dsp/eq"
	"github.com/radioform/radioform/shmem"
)

// RingConsumer owns one device's segment from the host side: it creates the
// backing file, reads frames from the ring on the audio thread, and runs
// stereo streams through an embedded EQ engine before handing them onward.
type RingConsumer struct {
	uid string
	seg *shmem.Segment
	eng *eq.Engine

	scratch []float32
}

// NewRingConsumer creates the segment for uid and an engine at its sample
// rate. The engine is applied only to stereo streams; other channel counts
// pass through the ring conversion untouched.
func NewRingConsumer(uid string, sampleRate, channels uint32, format shmem.Format, durationMS uint32) (*RingConsumer, error) {
	seg, err := shmem.Create(shmem.PathForUID(uid), sampleRate, channels, format, durationMS)
	if err != nil {
		return nil, err
	}

	var eng *eq.Engine

	if channels == 2 {
		eng, err = eq.New(sampleRate)
		if err != nil {
			_ = seg.Close()
			_ = seg.Unlink()

			return nil, fmt.Errorf("host: engine for %s: %w", uid, err)
		}
	}

	return &RingConsumer{
		uid:     uid,
		seg:     seg,
		eng:     eng,
		scratch: make([]float32, int(channels)*4096),
	}, nil
}

// UID returns the device UID this consumer serves.
func (c *RingConsumer) UID() string { return c.uid }

// Segment exposes the owned segment (for the beater and for diagnostics).
func (c *RingConsumer) Segment() *shmem.Segment { return c.seg }

// Engine returns the embedded EQ engine, or nil for non-stereo streams.
func (c *RingConsumer) Engine() *eq.Engine { return c.eng }

// Read fills dst with n processed frames. Underruns come out as silence
// (already counted by the ring). Realtime-safe for n within the scratch
// capacity established at creation.
func (c *RingConsumer) Read(dst []float32, n int) int {
	channels := int(c.seg.Channels())

	need := n * channels
	if cap(c.scratch) < need {
		c.scratch = make([]float32, need)
	}

	buf := c.scratch[:need]
	consumed := c.seg.ReadFrames(buf, n)

	if c.eng != nil {
		c.eng.ProcessInterleaved(buf, dst, n)
	} else {
		copy(dst[:need], buf)
	}

	return consumed
}

// Close drops the host-connected flag, unmaps, and unlinks the backing file.
func (c *RingConsumer) Close() error {
	err := c.seg.Close()

	if rmErr := c.seg.Unlink(); err == nil {
		err = rmErr
	}

	return err
}
