// Package driver implements the virtual-device runtime that lives inside the
// platform audio daemon: a fleet of proxy devices synchronised from a control
// file, each owning one shared-memory segment, a per-device I/O state machine
// coordinating connect / validate / stream / recover / disconnect across
// multiple clients, a monotonic zero-timestamp clock, and the I/O-thread
// format conversion and linear resampling that feeds the ring.
//
// The platform plug-in ABI that loads this runtime and invokes its callbacks
// is a collaborator; PluginFactory is the single entry point it binds to.
package driver
