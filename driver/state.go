package driver

// DeviceState tracks where a proxy device sits in its connection lifecycle.
type DeviceState int32

const (
	// StateUninitialized means no client has ever started I/O.
	StateUninitialized DeviceState = iota
	// StateConnecting means the segment open/validate sequence is running.
	StateConnecting
	// StateConnected means the segment is mapped and streaming.
	StateConnected
	// StateNegotiating means a format renegotiation is in progress.
	StateNegotiating
	// StateError means the last connect or recovery attempt failed.
	StateError
	// StateDisconnected means the last client stopped and the segment is
	// unmapped.
	StateDisconnected
)

// String returns the state name.
func (s DeviceState) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateNegotiating:
		return "Negotiating"
	case StateError:
		return "Error"
	case StateDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}
