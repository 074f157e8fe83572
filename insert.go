// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package leafsys

// insert.go drives BSP leaf enumeration for a renderable's bloated AABB
// and keeps the leaf index's three bidirectional sets in sync. Leaf
// enumeration is read-only and safe to run off the main thread; the
// resulting leaf-index mutation is not, and always happens serially.

import "github.com/galvanized/leafsys/lin"

// collectLeaves enumerates every leaf intersecting [min, max] via the
// external BSP and returns the collected leaf ids. Safe to call from a
// worker goroutine: it touches no shared core state.
func (sys *System) collectLeaves(min, max lin.V3) []int {
	var leaves []int
	sys.bsp.EnumerateLeavesInBox(min, max, func(leaf int) bool {
		leaves = append(leaves, leaf)
		return true
	})
	return leaves
}

// insertIntoTree stores the bloated AABB on ri, enumerates its leaves, and
// attaches it to the leaf index. Called synchronously from the main
// thread; the parallel recompute path instead calls collectLeaves off-
// thread and commitInsert on it.
func (sys *System) insertIntoTree(h RenderHandle, ri *renderableInfo, min, max lin.V3) {
	ri.bloatedMin, ri.bloatedMax = min, max
	leaves := sys.collectLeaves(min, max)
	sys.commitInsert(h, ri, leaves)
}

// commitInsert performs the leaf-index mutation for a renderable whose
// leaf set has already been computed (possibly on a worker). Must run on
// the main thread.
func (sys *System) commitInsert(h RenderHandle, ri *renderableInfo, leaves []int) {
	sys.shadowEnumCounter++
	for _, leaf := range leaves {
		sys.addRenderableToLeaf(leaf, h, ri)
	}
	if len(leaves) == 0 {
		ri.area = -1
		return
	}
	ri.area = sys.engine.GetLeavesArea(leaves)
}

// addRenderableToLeaf inserts (leaf, h) into renderables-in-leaf. If ri's
// model kind can receive shadows, each shadow already in leaf is attached to
// it exactly once per insertion pass: the shadow is stamped with the enum
// counter, mirroring the renderable stamp addShadowToLeaf uses in the other
// direction.
func (sys *System) addRenderableToLeaf(leaf int, h RenderHandle, ri *renderableInfo) {
	sys.renderablesInLeaf.AddElementToBucket(leaf, h)
	if !sys.isShadowReceiver(ri) {
		return
	}
	sys.shadowsInLeaf.ForEachInBucket(leaf, func(s ShadowHandle) bool {
		si := sys.shadowAt(s)
		if si == nil {
			return true
		}
		if si.enumCount != sys.shadowEnumCounter {
			sys.addShadowToRenderable(h, ri, s, si)
			si.enumCount = sys.shadowEnumCounter
		}
		return true
	})
}

// removeFromTree removes h from every leaf it occupies, drops every shadow
// currently on it, and notifies the shadow manager if it was an eligible
// receiver. ri's bloated bounds are left untouched; the caller overwrites
// them with the new value after this returns.
func (sys *System) removeFromTree(h RenderHandle, ri *renderableInfo) {
	sys.renderablesInLeaf.RemoveElement(h)
	sys.removeShadowsFromRenderable(h, ri)
}
