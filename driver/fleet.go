package driver

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// DeviceCooldown is how long a removed UID stays barred from re-creation.
// It absorbs add/remove thrash while a flapping host rewrites the control
// file.
const DeviceCooldown = 10 * time.Second

// controlPollSlice is one shutdown-aware sleep slice; the watcher sleeps ten
// of them between sync passes, so shutdown latency stays near one slice.
const controlPollSlice = 100 * time.Millisecond

// DeviceInstance is one proxy device: its identity plus the handler that
// owns its shared-memory segment.
type DeviceInstance struct {
	UID     string
	Name    string
	Handler *Handler
}

// ProxyFleet maintains the set of proxy devices described by the control
// file. A background watcher re-synchronises roughly once per second;
// entries without a fresh host heartbeat are skipped, and UIDs removed less
// than DeviceCooldown ago are not re-created.
type ProxyFleet struct {
	controlPath string
	logger      *log.Logger
	hb          *HeartbeatTracker

	mu        sync.Mutex
	devices   map[string]*DeviceInstance
	removedAt map[string]time.Time

	started  atomic.Bool
	stopFlag atomic.Bool
	done     chan struct{}

	now func() time.Time
}

// FleetOption configures a ProxyFleet.
type FleetOption func(*ProxyFleet)

// WithLogger routes fleet sync lines to l. Default is silent.
func WithLogger(l *log.Logger) FleetOption {
	return func(f *ProxyFleet) { f.logger = l }
}

// WithControlPath overrides the control file location.
func WithControlPath(path string) FleetOption {
	return func(f *ProxyFleet) { f.controlPath = path }
}

// NewProxyFleet creates an empty fleet. Call Sync for a one-shot pass or
// Start for the background watcher.
func NewProxyFleet(opts ...FleetOption) *ProxyFleet {
	f := &ProxyFleet{
		controlPath: ControlFilePath,
		hb:          NewHeartbeatTracker(),
		devices:     make(map[string]*DeviceInstance),
		removedAt:   make(map[string]time.Time),
		done:        make(chan struct{}),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Sync runs one control-file synchronisation pass.
func (f *ProxyFleet) Sync() {
	now := f.now()

	desired := readControlFile(f.controlPath)

	for uid := range desired {
		if !f.hb.Fresh(uid, now) {
			f.logf("sync: skipping stale entry uid=%s (no host heartbeat)", uid)
			delete(desired, uid)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.logf("sync: desired=%d current=%d", len(desired), len(f.devices))

	for uid, name := range desired {
		if _, ok := f.devices[uid]; ok {
			continue
		}

		if removed, ok := f.removedAt[uid]; ok && now.Sub(removed) < DeviceCooldown {
			f.logf("sync: uid=%s in cooldown, not re-adding", uid)
			continue
		}

		f.devices[uid] = &DeviceInstance{
			UID:     uid,
			Name:    name,
			Handler: NewHandler(uid, f.logger),
		}
		f.logf("sync: added proxy %q uid=%s", name, uid)
	}

	for uid, inst := range f.devices {
		if _, ok := desired[uid]; ok {
			continue
		}

		f.logf("sync: removing proxy uid=%s", uid)
		inst.Handler.Shutdown()
		delete(f.devices, uid)
		f.removedAt[uid] = now
	}

	for uid, removed := range f.removedAt {
		if now.Sub(removed) >= DeviceCooldown {
			delete(f.removedAt, uid)
		}
	}
}

// Start launches the background watcher. Starting twice is a no-op.
func (f *ProxyFleet) Start() {
	if f.started.CompareAndSwap(false, true) {
		go f.watch()
	}
}

func (f *ProxyFleet) watch() {
	defer close(f.done)

	for !f.stopFlag.Load() {
		f.Sync()

		for i := 0; i < 10 && !f.stopFlag.Load(); i++ {
			time.Sleep(controlPollSlice)
		}
	}
}

// Stop shuts the watcher down and disconnects every device.
func (f *ProxyFleet) Stop() {
	if f.stopFlag.CompareAndSwap(false, true) && f.started.Load() {
		<-f.done
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, inst := range f.devices {
		inst.Handler.Shutdown()
	}
}

// Lookup returns the device instance for uid, or nil.
func (f *ProxyFleet) Lookup(uid string) *DeviceInstance {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.devices[uid]
}

// Devices returns a snapshot of the current instances.
func (f *ProxyFleet) Devices() []*DeviceInstance {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*DeviceInstance, 0, len(f.devices))
	for _, inst := range f.devices {
		out = append(out, inst)
	}

	return out
}

func (f *ProxyFleet) logf(format string, args ...any) {
	if f.logger != nil {
		f.logger.Printf(format, args...)
	}
}
