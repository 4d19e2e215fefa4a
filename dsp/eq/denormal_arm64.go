//go:build arm64

package eq

// enableFlushToZero sets the FZ bit in FPCR.
//
//go:noescape
func enableFlushToZero()
