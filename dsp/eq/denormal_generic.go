//go:build !amd64 && !arm64

package eq

// enableFlushToZero is a no-op on architectures without a supported
// flush-to-zero control register.
func enableFlushToZero() {}
