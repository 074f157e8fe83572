// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package leafsys

import (
	"testing"

	"github.com/galvanized/leafsys/lin"
)

func TestRenderableChangedIsIdempotentBeforeRecompute(t *testing.T) {
	sys, _, _ := newTestSystem(4, 10)
	min, max := unitBox()
	p := &testProp{min: min, max: max}
	h := sys.CreateRenderableHandle(p)
	sys.AddRenderable(h)

	sys.RenderableChanged(h)
	sys.RenderableChanged(h)
	sys.dirtyMu.Lock()
	n := len(sys.dirtyQueue)
	sys.dirtyMu.Unlock()
	if n != 1 {
		t.Errorf("expected exactly one dirty-queue entry after two calls, got %d", n)
	}
}

func TestRenderableChangedWarnsOnReentrantCall(t *testing.T) {
	sys, _, _ := newTestSystem(4, 10)
	min, max := unitBox()
	p := &testProp{min: min, max: max}
	h := sys.CreateRenderableHandle(p)
	sys.AddRenderable(h)

	sys.recomputeInProgress[h] = true
	sys.RenderableChanged(h) // should log and no-op, not panic or queue twice.
	sys.dirtyMu.Lock()
	n := len(sys.dirtyQueue)
	sys.dirtyMu.Unlock()
	if n != 0 {
		t.Errorf("expected re-entrant call while in progress to be ignored, got queue len %d", n)
	}
}

func TestRecomputeMovesRenderableToNewLeaf(t *testing.T) {
	sys, _, _ := newTestSystem(4, 10)
	min, max := unitBox()
	p := &testProp{min: min, max: max}
	h := sys.CreateRenderableHandle(p)
	sys.AddRenderable(h)

	p.origin.X = 25
	sys.RenderableChanged(h)
	sys.RecomputeRenderableLeaves()

	leaves := sys.GetRenderableLeaves(h, nil)
	if len(leaves) != 1 || leaves[0] != 2 {
		t.Errorf("expected renderable to move to leaf 2, got %v", leaves)
	}
}

func TestRecomputeSkipsUnchangedBounds(t *testing.T) {
	sys, _, _ := newTestSystem(4, 10)
	min, max := unitBox()
	p := &testProp{min: min, max: max}
	h := sys.CreateRenderableHandle(p)
	sys.AddRenderable(h)
	before := sys.GetRenderableLeaves(h, nil)

	sys.RenderableChanged(h) // nothing actually moved.
	sys.RecomputeRenderableLeaves()

	after := sys.GetRenderableLeaves(h, nil)
	if len(before) != len(after) || before[0] != after[0] {
		t.Errorf("expected unchanged bounds to leave leaf membership alone, got %v -> %v", before, after)
	}
}

func TestDisableLeafReinsertionDropsDirty(t *testing.T) {
	sys, _, _ := newTestSystem(4, 10)
	min, max := unitBox()
	p := &testProp{min: min, max: max}
	h := sys.CreateRenderableHandle(p)
	sys.AddRenderable(h)

	sys.DisableLeafReinsertion(true)
	p.origin.X = 25
	sys.RenderableChanged(h)
	sys.RecomputeRenderableLeaves()

	leaves := sys.GetRenderableLeaves(h, nil)
	if len(leaves) != 1 || leaves[0] != 0 {
		t.Errorf("expected leaf reinsertion to stay disabled, renderable should remain in leaf 0, got %v", leaves)
	}
}

func TestBloatBoundsHysteresisKeepsUnionOnSmallShrink(t *testing.T) {
	cfg := configDefaults
	cfg.grid = 0.1
	cfg.minShrinkVolume = 0
	ri := newRenderableInfo(nil)
	ri.flags |= FlagBloatBounds

	tight0min, tight0max := lin.V3{X: -2, Y: -2, Z: -2}, lin.V3{X: 2, Y: 2, Z: 2}
	min0, max0 := bloatBounds(cfg, ri, tight0min, tight0max, false)
	ri.bloatedMin, ri.bloatedMax = min0, max0

	// a small shrink (4.0 cube down to 3.6 cube): still enough of the prior
	// volume covered that the union rule should keep the larger bounds.
	tight1min, tight1max := lin.V3{X: -1.75, Y: -1.75, Z: -1.75}, lin.V3{X: 1.75, Y: 1.75, Z: 1.75}
	min1, max1 := bloatBounds(cfg, ri, tight1min, tight1max, true)

	if !min1.Eq(&min0) || !max1.Eq(&max0) {
		t.Errorf("expected a small shrink to keep the prior union, got [%v %v]", min1, max1)
	}
}

func TestBloatBoundsRetightensOnMaterialShrink(t *testing.T) {
	cfg := configDefaults
	cfg.grid = 0.1
	cfg.minShrinkVolume = 0
	ri := newRenderableInfo(nil)
	ri.flags |= FlagBloatBounds

	tight0min, tight0max := lin.V3{X: -2, Y: -2, Z: -2}, lin.V3{X: 2, Y: 2, Z: 2}
	min0, max0 := bloatBounds(cfg, ri, tight0min, tight0max, false)
	ri.bloatedMin, ri.bloatedMax = min0, max0

	tight1min, tight1max := lin.V3{X: -0.1, Y: -0.1, Z: -0.1}, lin.V3{X: 0.1, Y: 0.1, Z: 0.1}
	min1, max1 := bloatBounds(cfg, ri, tight1min, tight1max, true)

	if !lin.Aeq(min1.X, -0.1) || !lin.Aeq(max1.X, 0.1) {
		t.Errorf("expected a drastic shrink to re-tighten, got [%v %v]", min1, max1)
	}
}

func TestBloatBoundsFirstInsertNeverUnions(t *testing.T) {
	cfg := configDefaults
	cfg.grid = 1
	ri := newRenderableInfo(nil)
	ri.flags |= FlagBloatBounds
	ri.bloatedMin, ri.bloatedMax = lin.V3{X: -100}, lin.V3{X: 100} // garbage zero-value bounds.

	tightMin, tightMax := lin.V3{X: -1}, lin.V3{X: 1}
	min, max := bloatBounds(cfg, ri, tightMin, tightMax, false)

	if min.X != -1 || max.X != 1 {
		t.Errorf("expected first insert to ignore stale bloated bounds, got [%v %v]", min, max)
	}
}

func TestBloatBoundsWithoutFlagAlwaysTightens(t *testing.T) {
	cfg := configDefaults
	cfg.grid = 1
	ri := newRenderableInfo(nil)
	ri.bloatedMin, ri.bloatedMax = lin.V3{X: -100}, lin.V3{X: 100}

	tightMin, tightMax := lin.V3{X: -1}, lin.V3{X: 1}
	min, max := bloatBounds(cfg, ri, tightMin, tightMax, true)

	if min.X != -1 || max.X != 1 {
		t.Errorf("expected FlagBloatBounds unset to always re-tighten, got [%v %v]", min, max)
	}
}

func TestComputeAllBoundsSkipsValidAndDisabled(t *testing.T) {
	sys, _, _ := newTestSystem(4, 10)
	min, max := unitBox()
	stale := &testProp{min: min, max: max}
	h := sys.CreateRenderableHandle(stale)
	ri := sys.renderableAt(h)
	ri.flags |= FlagBoundsValid
	ri.absMin, ri.absMax = lin.V3{X: 99}, lin.V3{X: 99}

	disabled := &testProp{min: min, max: max}
	hd := sys.CreateRenderableHandle(disabled)
	rd := sys.renderableAt(hd)
	rd.flags |= FlagDisableRendering
	rd.absMin, rd.absMax = lin.V3{X: 99}, lin.V3{X: 99}

	sys.ComputeAllBounds()

	if ri.absMin.X != 99 {
		t.Errorf("expected valid bounds to be left untouched, got %v", ri.absMin)
	}
	if rd.absMin.X != 99 || rd.flags&FlagBoundsValid != 0 {
		t.Errorf("expected disabled renderable to be skipped, got %v", rd.absMin)
	}
}
