//go:build amd64

package eq

// enableFlushToZero sets the FTZ and DAZ bits in MXCSR.
//
//go:noescape
func enableFlushToZero()
