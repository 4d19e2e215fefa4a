package eq

// EnableDenormalSuppression puts the calling thread's FPU into
// flush-to-zero / denormals-are-zero mode where the hardware supports it
// (MXCSR on amd64, FPCR on arm64; no-op elsewhere). Denormal operands make
// feedback loops pathologically slow on several CPU families, so the audio
// thread should call this once at its own initialisation; New also calls it
// for the constructing thread. The mode is per-thread and idempotent.
func EnableDenormalSuppression() {
	enableFlushToZero()
}
