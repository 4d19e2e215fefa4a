package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/radioform/radioform/shmem"
)

// fleetFixture wires a fleet to a control file in a temp dir and hosts
// segments for the UIDs it publishes. Segment paths are fixed by the wire
// protocol, so fixture UIDs carry the test name to stay collision-free.
type fleetFixture struct {
	t           *testing.T
	fleet       *ProxyFleet
	clock       *testClock
	controlPath string
	segments    map[string]*shmem.Segment
}

func newFleetFixture(t *testing.T) *fleetFixture {
	t.Helper()

	fx := &fleetFixture{
		t:           t,
		clock:       newTestClock(),
		controlPath: filepath.Join(t.TempDir(), "devices.txt"),
		segments:    make(map[string]*shmem.Segment),
	}

	fx.fleet = NewProxyFleet(WithControlPath(fx.controlPath))
	fx.fleet.now = fx.clock.Now

	// Fleet freshness peeks the real segment path for each UID.
	t.Cleanup(func() {
		for uid, seg := range fx.segments {
			seg.Close()
			os.Remove(SegmentPathForUID(uid))
		}
	})

	return fx
}

func (fx *fleetFixture) uid(tag string) string {
	return fmt.Sprintf("test-%s-%d-%s", strings.ReplaceAll(fx.t.Name(), "/", "_"), os.Getpid(), tag)
}

// hostDevice creates the segment for uid and beats its heartbeat once so the
// fleet sees it as fresh.
func (fx *fleetFixture) hostDevice(uid string) {
	fx.t.Helper()

	seg, err := shmem.Create(SegmentPathForUID(uid), 48000, 2, shmem.FormatFloat32, 40)
	if err != nil {
		fx.t.Fatalf("Create segment for %s: %v", uid, err)
	}

	seg.UpdateHostHeartbeat()
	fx.segments[uid] = seg
}

func (fx *fleetFixture) publish(entries map[string]string) {
	fx.t.Helper()

	var sb strings.Builder
	for uid, name := range entries {
		fmt.Fprintf(&sb, "%s|%s\n", name, uid)
	}

	if err := os.WriteFile(fx.controlPath, []byte(sb.String()), 0o644); err != nil {
		fx.t.Fatal(err)
	}
}

func TestSyncAddsAndRemovesDevices(t *testing.T) {
	fx := newFleetFixture(t)

	uidA := fx.uid("a")
	uidB := fx.uid("b")

	fx.hostDevice(uidA)
	fx.hostDevice(uidB)
	fx.publish(map[string]string{uidA: "Device A", uidB: "Device B"})

	fx.fleet.Sync()

	if got := len(fx.fleet.Devices()); got != 2 {
		t.Fatalf("devices = %d, want 2", got)
	}

	inst := fx.fleet.Lookup(uidA)
	if inst == nil || inst.Name != "Device A" {
		t.Fatalf("lookup A = %+v", inst)
	}

	// Drop B from the control file: its instance goes away.
	fx.publish(map[string]string{uidA: "Device A"})
	fx.fleet.Sync()

	if fx.fleet.Lookup(uidB) != nil {
		t.Error("removed device still present")
	}

	if fx.fleet.Lookup(uidA) == nil {
		t.Error("remaining device dropped")
	}
}

func TestSyncSkipsStaleHeartbeat(t *testing.T) {
	fx := newFleetFixture(t)

	uidStale := fx.uid("stale")

	// Segment exists but its host heartbeat never advances; by the second
	// sync the initial window has elapsed.
	fx.hostDevice(uidStale)
	fx.publish(map[string]string{uidStale: "Stale"})

	fx.fleet.Sync()
	fx.clock.Advance(shmem.HeartbeatTimeout + time.Second)
	fx.fleet.Sync()

	if fx.fleet.Lookup(uidStale) != nil {
		t.Error("stale device survived the heartbeat window")
	}
}

func TestSyncSkipsMissingSegment(t *testing.T) {
	fx := newFleetFixture(t)

	uidGhost := fx.uid("ghost")
	fx.publish(map[string]string{uidGhost: "Ghost"})

	fx.fleet.Sync()

	if fx.fleet.Lookup(uidGhost) != nil {
		t.Error("device without a segment was added")
	}
}

func TestRemovedUIDHonoursCooldown(t *testing.T) {
	fx := newFleetFixture(t)

	uid := fx.uid("flappy")
	fx.hostDevice(uid)
	fx.publish(map[string]string{uid: "Flappy"})

	fx.fleet.Sync()

	if fx.fleet.Lookup(uid) == nil {
		t.Fatal("device not added")
	}

	// Remove, then re-add within the cooldown: the device must stay gone.
	fx.publish(map[string]string{})
	fx.fleet.Sync()

	fx.segments[uid].UpdateHostHeartbeat()
	fx.publish(map[string]string{uid: "Flappy"})
	fx.clock.Advance(DeviceCooldown / 2)
	fx.fleet.Sync()

	if fx.fleet.Lookup(uid) != nil {
		t.Error("device re-added during cooldown")
	}

	// After the cooldown it comes back.
	fx.segments[uid].UpdateHostHeartbeat()
	fx.clock.Advance(DeviceCooldown)
	fx.fleet.Sync()

	if fx.fleet.Lookup(uid) == nil {
		t.Error("device not re-added after cooldown")
	}
}

func TestStopDisconnectsDevices(t *testing.T) {
	fx := newFleetFixture(t)

	uid := fx.uid("stop")
	fx.hostDevice(uid)
	fx.publish(map[string]string{uid: "Stop"})

	fx.fleet.Sync()

	inst := fx.fleet.Lookup(uid)
	if inst == nil {
		t.Fatal("device not added")
	}

	if err := inst.Handler.StartIO(); err != nil {
		t.Fatalf("StartIO: %v", err)
	}

	fx.fleet.Stop()

	if inst.Handler.State() != StateDisconnected {
		t.Errorf("state = %v, want Disconnected after fleet stop", inst.Handler.State())
	}
}
