// Package shmem implements the shared-audio transport: a memory-mapped
// segment holding a versioned header and a single-producer single-consumer
// ring of interleaved audio frames.
//
// The host process creates and owns the backing file; the driver maps it
// read/write but never creates or unlinks it. Frame indices are monotonic
// 64-bit counters that never wrap; they are reduced modulo the ring capacity
// only when addressing the payload. Payload stores are published by the
// write-index store and observed after the write-index load, which Go's
// sequentially consistent atomics guarantee.
//
// All multi-byte header fields are little-endian. The transport does not
// negotiate endianness; it targets little-endian platforms only.
package shmem
