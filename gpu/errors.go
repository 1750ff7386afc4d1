package gpu

import (
	"errors"
	"time"
)

// defaultFrameTimeout bounds how long EndFrame waits on the GPU fence
// before treating the device as unresponsive (§10.3).
const defaultFrameTimeout = 5 * time.Second

// Sentinel errors returned (wrapped with fmt.Errorf's %w) by Backend
// methods, per SPEC_FULL.md §10.3.
var (
	// ErrDeviceLost is returned when a submitted frame's fence never
	// signals within defaultFrameTimeout.
	ErrDeviceLost = errors.New("psxcore/gpu: device lost")

	// ErrOutOfMemory names GPU memory exhaustion. No Backend method
	// currently returns it: a failed texture, buffer, or pipeline
	// allocation is returned wrapping the HAL's own error instead.
	ErrOutOfMemory = errors.New("psxcore/gpu: out of memory")
)
