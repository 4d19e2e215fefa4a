// Package host implements the host-process side of the shared-audio
// transport: segment ownership, the ring consumer that pulls frames through
// the DSP engine, the heartbeat beater that proves liveness to the driver,
// and the control-file publisher that announces proxy devices.
package host
