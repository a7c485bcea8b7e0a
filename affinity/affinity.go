// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are
// located in separate files guarded by build tags.

package affinity

import (
	"fmt"
	"runtime"

	"github.com/momentics/hioload-netio/api"
)

// MaxCPU bounds the CPU index accepted by SetAffinity.
const MaxCPU = 1024

// SetAffinity pins the current OS thread to a logical CPU on supported
// platforms. The caller must already hold the thread (runtime.LockOSThread).
func SetAffinity(cpuID int) error {
	if cpuID < 0 || cpuID >= MaxCPU {
		return fmt.Errorf("affinity: cpu %d outside [0,%d): %w", cpuID, MaxCPU, api.ErrInvalidArgument)
	}
	return setAffinityPlatform(cpuID)
}

// Pin locks the calling goroutine to its OS thread and, when cpuID >= 0,
// pins that thread. The returned function undoes the lock.
func Pin(cpuID int) (func(), error) {
	runtime.LockOSThread()
	if cpuID >= 0 {
		if err := SetAffinity(cpuID); err != nil {
			runtime.UnlockOSThread()
			return func() {}, err
		}
	}
	return runtime.UnlockOSThread, nil
}
