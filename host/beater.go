package host

import (
	"sync/atomic"
	"time"

	"github.com/radioform/radioform/shmem"
)

// beatInterval is the nominal heartbeat period. The driver tolerates up to
// shmem.HeartbeatTimeout of silence, so one second leaves ample margin.
const beatInterval = time.Second

// HeartbeatBeater increments a segment's host heartbeat roughly once per
// second from a background goroutine, proving to the driver that this
// process is alive. Each beat also re-asserts the host-connected flag.
type HeartbeatBeater struct {
	seg *shmem.Segment

	started  atomic.Bool
	stopFlag atomic.Bool
	done     chan struct{}
}

// NewHeartbeatBeater wraps seg; call Start to begin beating.
func NewHeartbeatBeater(seg *shmem.Segment) *HeartbeatBeater {
	return &HeartbeatBeater{
		seg:  seg,
		done: make(chan struct{}),
	}
}

// Start launches the beater goroutine. Starting twice is a no-op.
func (b *HeartbeatBeater) Start() {
	if !b.started.CompareAndSwap(false, true) {
		return
	}

	go b.run()
}

func (b *HeartbeatBeater) run() {
	defer close(b.done)

	b.seg.UpdateHostHeartbeat()

	for !b.stopFlag.Load() {
		// Shutdown-aware sleep in slices, like the control-file watcher.
		for i := 0; i < 10 && !b.stopFlag.Load(); i++ {
			time.Sleep(beatInterval / 10)
		}

		if !b.stopFlag.Load() {
			b.seg.UpdateHostHeartbeat()
		}
	}
}

// Stop halts the beater and waits for the goroutine to exit.
func (b *HeartbeatBeater) Stop() {
	if b.stopFlag.CompareAndSwap(false, true) && b.started.Load() {
		<-b.done
	}
}
