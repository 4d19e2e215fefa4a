package driver

import "sync"

// PluginTypeID is the type identifier the platform passes when it asks this
// library for its driver entry point.
const PluginTypeID = "com.radioform.driver"

// Driver is the handle returned to the platform plug-in loader. It wraps the
// process-wide fleet, which lives for the remainder of the hosting process
// and is never torn down.
type Driver struct {
	fleet *ProxyFleet
}

// Fleet returns the fleet behind this driver handle.
func (d *Driver) Fleet() *ProxyFleet {
	return d.fleet
}

var (
	pluginOnce   sync.Once
	pluginDriver *Driver
)

// PluginFactory is the plug-in entry point. It returns the driver handle for
// the known type identifier and nil for anything else. The first matching
// call constructs the fleet, runs an initial sync, and starts the control
// file watcher.
func PluginFactory(typeID string) *Driver {
	if typeID != PluginTypeID {
		return nil
	}

	pluginOnce.Do(func() {
		fleet := NewProxyFleet()
		fleet.Sync()
		fleet.Start()
		pluginDriver = &Driver{fleet: fleet}
	})

	return pluginDriver
}
