//go:build windows

// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package leafsys

import (
	"runtime"

	"golang.org/x/sys/windows"
)

// hintOrchestratorAffinity gives the calling goroutine's OS thread a
// best-effort nudge away from one processor, mirroring the unix build's
// intent: reduce contention between the dispatching thread and the
// fork-join worker pool during bounds recompute and tree re-insertion.
func hintOrchestratorAffinity() {
	runtime.LockOSThread()
	var sysInfo windows.SystemInfo
	windows.GetSystemInfo(&sysInfo)
	if sysInfo.NumberOfProcessors <= 1 {
		runtime.UnlockOSThread()
		return
	}
	handle := windows.CurrentThread()
	// exclude processor 0 from the affinity mask; best effort only.
	mask := uintptr(1)<<uintptr(sysInfo.NumberOfProcessors) - 1
	mask &^= 1
	_, _ = windows.SetThreadAffinityMask(handle, mask)
	runtime.UnlockOSThread()
}
