package shmem

import "sync/atomic"

// WriteFrames converts n interleaved float32 frames into the ring's format
// and appends them at the write cursor. Single producer only.
//
// If the ring lacks space, the producer reclaims it by advancing the read
// index past the oldest frames and counting one overrun; all n frames are
// still written so the producer timeline never shifts. Advancing the read
// index before the payload stores is safe: a consumer that observes the
// advanced index will not read past the (not yet published) write index.
func (s *Segment) WriteFrames(frames []float32, n int) {
	if s.mem == nil || n <= 0 {
		return
	}

	hdr := s.hdr
	capacity := uint64(hdr.ringCapacityFrames)
	channels := int(hdr.channels)
	format := Format(hdr.format)
	bps := int(hdr.bytesPerSample)
	bpf := int(hdr.bytesPerFrame)

	w := hdr.WriteIndex()
	r := hdr.ReadIndex()

	if used := w - r; used+uint64(n) > capacity {
		drop := used + uint64(n) - capacity
		hdr.setReadIndex(r + drop)
		atomic.AddUint64(&hdr.overrunCount, 1)
	}

	for frame := 0; frame < n; frame++ {
		pos := (w + uint64(frame)) % capacity
		dst := s.data[int(pos)*bpf:]

		for ch := 0; ch < channels; ch++ {
			putSample(dst[ch*bps:], format, frames[frame*channels+ch])
		}
	}

	// Publishes the payload: consumers load writeIndex before touching it.
	hdr.setWriteIndex(w + uint64(n))
	atomic.AddUint64(&hdr.totalFramesWritten, uint64(n))
}

// ReadFrames fills dst with n frames converted to float32, consuming up to n
// frames from the ring. Single consumer only. If fewer than n frames are
// available the tail is filled with silence and one underrun is counted.
// It returns the number of frames actually consumed.
func (s *Segment) ReadFrames(dst []float32, n int) int {
	if s.mem == nil || n <= 0 {
		return 0
	}

	hdr := s.hdr
	capacity := uint64(hdr.ringCapacityFrames)
	channels := int(hdr.channels)
	format := Format(hdr.format)
	bps := int(hdr.bytesPerSample)
	bpf := int(hdr.bytesPerFrame)

	w := hdr.WriteIndex()
	r := hdr.ReadIndex()

	available := int(w - r)
	toRead := n
	if available < toRead {
		toRead = available
	}

	for frame := 0; frame < toRead; frame++ {
		pos := (r + uint64(frame)) % capacity
		src := s.data[int(pos)*bpf:]

		for ch := 0; ch < channels; ch++ {
			dst[frame*channels+ch] = getSample(src[ch*bps:], format)
		}
	}

	if toRead < n {
		atomic.AddUint64(&hdr.underrunCount, 1)

		clear(dst[toRead*channels : n*channels])
	}

	if toRead > 0 {
		hdr.setReadIndex(r + uint64(toRead))
		atomic.AddUint64(&hdr.totalFramesRead, uint64(toRead))
	}

	return toRead
}
