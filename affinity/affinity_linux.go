//go:build linux
// +build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific implementation for setting thread CPU affinity.

package affinity

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// setAffinityPlatform sets the calling thread's affinity (tid 0) to one CPU.
func setAffinityPlatform(cpuID int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity cpu %d: %w", cpuID, err)
	}
	return nil
}

// Current returns the CPUs the calling thread may run on.
func Current() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, err
	}
	var cpus []int
	for i := 0; i < len(set)*64; i++ {
		if set.IsSet(i) {
			cpus = append(cpus, i)
		}
	}
	return cpus, nil
}
