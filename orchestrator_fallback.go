//go:build !linux && !windows

// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package leafsys

// hintOrchestratorAffinity is a no-op on platforms without a cheap affinity
// syscall (darwin and anything else). Matches the degrade-to-no-op shape
// the native render/audio backends use on unsupported platforms.
func hintOrchestratorAffinity() {}
