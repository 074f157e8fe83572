//go:build linux

// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package leafsys

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// hintOrchestratorAffinity removes one CPU from the calling OS thread's
// affinity set: the first one set among CPU numbers below the set's count
// (if none of those is set, the affinity is left as it is). The aim is to
// make the fork-join worker pool spawned for bounds recompute and tree
// re-insertion less likely to contend with the dispatching thread. Purely advisory:
// a failure here never affects correctness, only scheduling quality.
func hintOrchestratorAffinity() {
	runtime.LockOSThread()
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		runtime.UnlockOSThread()
		return
	}
	if set.Count() <= 1 {
		runtime.UnlockOSThread()
		return // nothing to exclude from; single core available.
	}
	for cpu := 0; cpu < set.Count(); cpu++ {
		if set.IsSet(cpu) {
			set.Clear(cpu)
			break
		}
	}
	_ = unix.SchedSetaffinity(0, &set)
	runtime.UnlockOSThread()
}
