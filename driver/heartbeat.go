package driver

import (
	"sync"
	"time"

	"github.com/radioform/radioform/shmem"
)

// HeartbeatTracker caches the last observed host heartbeat per UID so the
// fleet synchroniser can tell a live host from a stale segment file. A UID is
// fresh when its counter changed within the timeout window, or is still
// within the window of its first observation; a heartbeat that never starts
// goes stale once the window elapses.
type HeartbeatTracker struct {
	mu     sync.Mutex
	states map[string]*shmem.HeartbeatState
}

// NewHeartbeatTracker returns an empty tracker.
func NewHeartbeatTracker() *HeartbeatTracker {
	return &HeartbeatTracker{states: make(map[string]*shmem.HeartbeatState)}
}

// Fresh peeks at the host heartbeat in uid's segment and reports liveness at
// time now. A missing or unreadable segment is stale.
func (t *HeartbeatTracker) Fresh(uid string, now time.Time) bool {
	hb, err := shmem.PeekHostHeartbeat(SegmentPathForUID(uid))
	if err != nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[uid]
	if !ok {
		st = &shmem.HeartbeatState{}
		t.states[uid] = st
	}

	return st.Observe(hb, now)
}

// Forget drops the cached state for uid.
func (t *HeartbeatTracker) Forget(uid string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.states, uid)
}
