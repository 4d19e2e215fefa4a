package shmem

import "errors"

var (
	// ErrConfig indicates an unsupported sample rate, channel count, or ring
	// duration passed to Create.
	ErrConfig = errors.New("shmem: invalid configuration")
	// ErrProtocolMismatch indicates the segment carries a protocol version
	// other than ProtocolVersion.
	ErrProtocolMismatch = errors.New("shmem: protocol version mismatch")
	// ErrSegmentNotFound indicates the backing file does not exist.
	ErrSegmentNotFound = errors.New("shmem: segment not found")
	// ErrSegmentTooSmall indicates the backing file is smaller than its
	// header declares.
	ErrSegmentTooSmall = errors.New("shmem: segment too small")
	// ErrMapFailed indicates the mmap system call failed.
	ErrMapFailed = errors.New("shmem: map failed")
	// ErrUnsupportedFormat indicates the segment's format block failed
	// validation.
	ErrUnsupportedFormat = errors.New("shmem: unsupported format")
	// ErrClosed indicates the segment has been unmapped.
	ErrClosed = errors.New("shmem: segment closed")
)
