// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package leafsys

// bounds.go computes per-renderable world bounds, quantises them onto the
// bloat grid, and drives the dirty-queue drain that decides when a moved
// renderable must be removed from and re-inserted into the tree.

import (
	"log"
	"sync"

	"github.com/galvanized/leafsys/lin"
)

// RenderableChanged signals that h may have moved. It is safe to call
// repeatedly; only the first call before the next recompute pass has any
// effect. Calling it re-entrantly from within RecomputeRenderableLeaves for
// the same handle is a programming error: it is logged once and otherwise
// ignored so invariants stay intact.
func (sys *System) RenderableChanged(h RenderHandle) {
	ri := sys.renderableAt(h)
	if ri == nil {
		return
	}
	sys.dirtyMu.Lock()
	defer sys.dirtyMu.Unlock()

	if sys.recomputeInProgress[h] {
		log.Printf("leafsys: RenderableChanged(%v) called re-entrantly during recompute", h)
		return
	}
	if ri.flags&FlagHasChanged != 0 {
		return
	}
	ri.flags &^= FlagBoundsValid
	ri.flags |= FlagHasChanged
	sys.dirtyQueue = append(sys.dirtyQueue, h)
}

// ComputeAllBounds recomputes tight world bounds for every renderable whose
// BoundsValid flag is clear, skipping anything flagged DisableRendering.
// The batch runs under a single model-cache lock acquisition and may fan
// out across a worker pool; no leaf-index mutation happens here.
func (sys *System) ComputeAllBounds() {
	var pending []RenderHandle
	for id, ri := range sys.renderables {
		if ri == nil || ri.obj == nil {
			continue
		}
		if ri.flags&FlagBoundsValid != 0 || ri.flags&FlagDisableRendering != 0 {
			continue
		}
		pending = append(pending, RenderHandle(id))
	}
	if len(pending) == 0 {
		return
	}

	sys.modelCacheMu.Lock()
	defer sys.modelCacheMu.Unlock()
	hintOrchestratorAffinity()

	var wg sync.WaitGroup
	for _, h := range pending {
		ri := sys.renderables[handleID(uint32(h))]
		wg.Add(1)
		go func(ri *renderableInfo) {
			defer wg.Done()
			min, max := ri.obj.GetRenderBoundsWorldspace()
			ri.absMin, ri.absMax = min, max
			ri.flags |= FlagBoundsValid
		}(ri)
	}
	wg.Wait()
}

// computeBoundsFor recomputes ri's tight world bounds synchronously,
// used by AddRenderable where there is no batch to fork-join over.
func (sys *System) computeBoundsFor(h RenderHandle, ri *renderableInfo) {
	if ri.obj == nil {
		return
	}
	min, max := ri.obj.GetRenderBoundsWorldspace()
	ri.absMin, ri.absMax = min, max
	ri.flags |= FlagBoundsValid
}

// bloatBounds quantises tight to the configured grid and applies the
// hysteresis union rule for renderables flagged FlagBloatBounds: a growing
// object pays the cost of a larger bloat to avoid repeated re-insertion; a
// materially shrinking one re-tightens.
func bloatBounds(cfg Config, ri *renderableInfo, tightMin, tightMax lin.V3, hasPrevious bool) (lin.V3, lin.V3) {
	var newMin, newMax lin.V3
	newMin.Floor(&tightMin, cfg.grid)
	newMax.Ceil(&tightMax, cfg.grid)

	if ri.flags&FlagBloatBounds == 0 || !hasPrevious {
		return newMin, newMax
	}

	var unionMin, unionMax lin.V3
	unionMin.Min(&ri.bloatedMin, &newMin)
	unionMax.Max(&ri.bloatedMax, &newMax)

	unionVol := lin.Volume(&unionMin, &unionMax)
	newVol := lin.Volume(&newMin, &newMax)
	if unionVol <= cfg.minShrinkVolume || 2*newVol >= unionVol {
		return unionMin, unionMax
	}
	return newMin, newMax
}

// RecomputeRenderableLeaves drains the dirty queue, removing and
// re-inserting each entry whose bloated bounds actually changed. Processing
// one pass may mark further handles dirty (an external callback reacting to
// a move), so the drain retries up to cfg.maxDirtyPasses times; anything
// left after that is deferred to the next frame.
func (sys *System) RecomputeRenderableLeaves() {
	for pass := 0; pass < sys.cfg.maxDirtyPasses; pass++ {
		sys.dirtyMu.Lock()
		n := len(sys.dirtyQueue)
		if n == 0 {
			sys.dirtyMu.Unlock()
			return
		}
		batch := append([]RenderHandle(nil), sys.dirtyQueue[:n]...)
		sys.dirtyQueue = sys.dirtyQueue[n:]
		sys.dirtyMu.Unlock()

		sys.recomputeBatch(batch)
	}

	sys.dirtyMu.Lock()
	remaining := len(sys.dirtyQueue)
	sys.dirtyMu.Unlock()
	if remaining > 0 {
		log.Printf("leafsys: dirty queue did not converge in %d passes, %d entries deferred", sys.cfg.maxDirtyPasses, remaining)
	}
}

// dirtyResult is one worker's findings for a single dirty handle: the
// recomputed bloated bounds and, if they changed, the leaves it now
// belongs in. Collected in parallel, applied to the leaf index serially.
type dirtyResult struct {
	h          RenderHandle
	ri         *renderableInfo
	changed    bool
	newMin     lin.V3
	newMax     lin.V3
	leaves     []int
}

// recomputeBatch processes one snapshot of the dirty queue in two phases:
// a parallel fan-out that recomputes bounds and enumerates candidate
// leaves (read-only against the leaf index), and a serial fan-in that
// performs the actual removal/re-insertion. If disableLeafReinsertion is
// set the batch is logged and dropped instead, a debug aid for isolating
// bounds churn from tree churn.
func (sys *System) recomputeBatch(batch []RenderHandle) {
	if sys.disableLeafReinsertion {
		for _, h := range batch {
			if ri := sys.renderableAt(h); ri != nil {
				ri.flags &^= FlagHasChanged
			}
			log.Printf("leafsys: leaf reinsertion disabled, dropping RenderableChanged(%v)", h)
		}
		return
	}

	sys.dirtyMu.Lock()
	for _, h := range batch {
		sys.recomputeInProgress[h] = true
	}
	sys.dirtyMu.Unlock()

	hintOrchestratorAffinity()

	sys.modelCacheMu.Lock()
	results := make([]dirtyResult, len(batch))
	var wg sync.WaitGroup
	for i, h := range batch {
		ri := sys.renderableAt(h)
		if ri == nil {
			continue
		}
		wg.Add(1)
		go func(i int, h RenderHandle, ri *renderableInfo) {
			defer wg.Done()
			results[i] = sys.computeDirtyResult(h, ri)
		}(i, h, ri)
	}
	wg.Wait()
	sys.modelCacheMu.Unlock()

	for _, r := range results {
		if r.ri == nil {
			continue
		}
		r.ri.flags &^= FlagHasChanged
		if r.changed {
			sys.removeFromTree(r.h, r.ri)
			r.ri.bloatedMin, r.ri.bloatedMax = r.newMin, r.newMax
			sys.commitInsert(r.h, r.ri, r.leaves)
		}
	}

	sys.dirtyMu.Lock()
	for _, h := range batch {
		delete(sys.recomputeInProgress, h)
	}
	sys.dirtyMu.Unlock()
}

// computeDirtyResult recomputes tight and bloated bounds for one handle
// and, if they moved, collects its new leaf set. Touches only ri and the
// read-only BSP query, so it is safe to run concurrently across handles.
func (sys *System) computeDirtyResult(h RenderHandle, ri *renderableInfo) dirtyResult {
	// a renderable already in the leaf index has registered bloated bounds
	// to compare against and to union with.
	inTree := ri.leavesHead != noLink
	sys.computeBoundsFor(h, ri)
	newMin, newMax := bloatBounds(sys.cfg, ri, ri.absMin, ri.absMax, inTree)
	if inTree && newMin.Eq(&ri.bloatedMin) && newMax.Eq(&ri.bloatedMax) {
		return dirtyResult{h: h, ri: ri, changed: false}
	}
	leaves := sys.collectLeaves(newMin, newMax)
	return dirtyResult{h: h, ri: ri, changed: true, newMin: newMin, newMax: newMax, leaves: leaves}
}
