// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Runtime debug probes. Components register a named snapshot function and
// DumpState collects all of them for /debug/state or the CLI.

package control

import (
	"runtime"
	"sort"
	"sync"
)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry with the platform probes installed.
func NewDebugProbes() *DebugProbes {
	dp := &DebugProbes{
		probes: make(map[string]func() any),
	}
	dp.RegisterProbe("platform.os", func() any { return runtime.GOOS + "/" + runtime.GOARCH })
	dp.RegisterProbe("platform.cpus", func() any { return runtime.NumCPU() })
	return dp
}

// RegisterProbe inserts or replaces a named debug hook.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// Names lists the registered probes in sorted order.
func (dp *DebugProbes) Names() []string {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make([]string, 0, len(dp.probes))
	for k := range dp.probes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DumpState returns output of all probes. Probes run outside the lock.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	fns := make(map[string]func() any, len(dp.probes))
	for k, fn := range dp.probes {
		fns[k] = fn
	}
	dp.mu.RUnlock()
	out := make(map[string]any, len(fns))
	for k, fn := range fns {
		out[k] = fn()
	}
	return out
}

var (
	probesOnce sync.Once
	probes     *DebugProbes
)

// Probes returns the process-wide probe registry.
func Probes() *DebugProbes {
	probesOnce.Do(func() {
		probes = NewDebugProbes()
	})
	return probes
}
