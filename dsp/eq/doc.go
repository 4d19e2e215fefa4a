// Package eq implements the realtime parametric equaliser engine: a cascade
// of Direct-Form-II-Transposed biquads with RBJ coefficient synthesis,
// per-sample coefficient interpolation on parameter changes, a smoothed
// preamp, a DC blocker, a soft-knee limiter, and stereo peak metering.
//
// All processing entry points are realtime-safe once the engine exists: they
// allocate nothing, take no locks, and touch shared state only through
// atomics. Parameter updates may arrive from any thread; each band has a
// single writer.
package eq
