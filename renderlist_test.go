// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package leafsys

import (
	"testing"

	"github.com/galvanized/leafsys/lin"
)

func bigBox() (lin.V3, lin.V3) {
	return lin.V3{X: -150, Y: -150, Z: -150}, lin.V3{X: 150, Y: 150, Z: 150}
}

func TestCollateOpaqueEntityBucketsBySize(t *testing.T) {
	sys, _, _ := newTestSystem(2, 100)
	min, max := bigBox()
	p := &testProp{min: min, max: max}
	h := sys.CreateRenderableHandle(p)
	sys.AddRenderable(h)

	rl := &RenderList{}
	sys.CollateRenderablesInLeaf(0, ViewInfo{RenderFrame: 1}, rl)

	found := false
	for _, e := range rl.Entries(GroupOpaqueEntityHuge) {
		if e.Handle == h {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a 300-unit entity to land in the huge bucket")
	}
}

func TestCollateStaticPropUsesStaticBuckets(t *testing.T) {
	sys, _, _ := newTestSystem(2, 100)
	min, max := bigBox()
	p := &testProp{min: min, max: max}
	h := sys.CreateRenderableHandle(p)
	ri := sys.renderableAt(h)
	ri.flags |= FlagStaticProp
	sys.AddRenderable(h)

	rl := &RenderList{}
	sys.CollateRenderablesInLeaf(0, ViewInfo{RenderFrame: 1}, rl)

	found := false
	for _, e := range rl.Entries(GroupOpaqueStaticHuge) {
		if e.Handle == h {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a static prop to land in the static huge bucket, not the entity one")
	}
}

func TestCollateSkipsDisabledRendering(t *testing.T) {
	sys, _, _ := newTestSystem(2, 100)
	min, max := unitBox()
	p := &testProp{min: min, max: max}
	h := sys.CreateRenderableHandle(p)
	ri := sys.renderableAt(h)
	ri.flags |= FlagDisableRendering
	sys.AddRenderable(h)

	rl := &RenderList{}
	sys.CollateRenderablesInLeaf(0, ViewInfo{RenderFrame: 1}, rl)

	for g := RenderGroup(0); g < nRenderGroups; g++ {
		for _, e := range rl.Entries(g) {
			if e.Handle == h {
				t.Errorf("expected disabled renderable to be excluded entirely")
			}
		}
	}
}

func TestCollateDedupsOpaqueAcrossMultipleLeaves(t *testing.T) {
	sys, _, _ := newTestSystem(4, 10)
	p := &testProp{min: lin.V3{}, max: lin.V3{X: 15, Y: 1, Z: 1}}
	h := sys.CreateRenderableHandle(p)
	sys.AddRenderable(h)

	rl := &RenderList{}
	view := ViewInfo{RenderFrame: 1}
	sys.CollateRenderablesInLeaf(0, view, rl)
	sys.CollateRenderablesInLeaf(1, view, rl)

	count := 0
	for g := RenderGroup(0); g < nRenderGroups; g++ {
		for _, e := range rl.Entries(g) {
			if e.Handle == h {
				count++
			}
		}
	}
	if count != 1 {
		t.Errorf("expected opaque entry to appear exactly once across leaves, got %d", count)
	}
}

func TestCollateTranslucentOnlyInAssignedLeaf(t *testing.T) {
	sys, _, _ := newTestSystem(4, 10)
	p := &testProp{min: lin.V3{}, max: lin.V3{X: 15, Y: 1, Z: 1}, transparent: true, alpha: 1}
	h := sys.CreateRenderableHandle(p)
	sys.AddRenderable(h)

	view := ViewInfo{RenderFrame: 1, DrawTranslucent: true}
	sys.ComputeTranslucentRenderLeaf([]int{0, 1}, view)

	rl := &RenderList{}
	sys.CollateRenderablesInLeaf(0, view, rl)
	sys.CollateRenderablesInLeaf(1, view, rl)

	count := 0
	for _, e := range rl.Entries(GroupTranslucentEntity) {
		if e.Handle == h {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected translucent entry to be emitted only in its first-seen leaf, got %d", count)
	}
}

func TestCollateTwoPassFullAlphaAlsoEmitsOpaque(t *testing.T) {
	sys, _, _ := newTestSystem(2, 100)
	min, max := bigBox()
	p := &testProp{min: min, max: max, transparent: true, twoPass: true, alpha: 1}
	h := sys.CreateRenderableHandle(p)
	sys.AddRenderable(h)

	view := ViewInfo{RenderFrame: 1, DrawTranslucent: true}
	sys.ComputeTranslucentRenderLeaf([]int{0}, view)

	rl := &RenderList{}
	sys.CollateRenderablesInLeaf(0, view, rl)

	inTranslucent, inOpaque := false, false
	for _, e := range rl.Entries(GroupTranslucentEntity) {
		if e.Handle == h {
			inTranslucent = true
		}
	}
	for _, e := range rl.Entries(GroupOpaqueEntityHuge) {
		if e.Handle == h {
			inOpaque = true
		}
	}
	if !inTranslucent || !inOpaque {
		t.Errorf("expected two-pass full-alpha entry in both translucent and opaque, got translucent=%v opaque=%v", inTranslucent, inOpaque)
	}
}

func TestCollateTranslucentZeroAlphaSkipped(t *testing.T) {
	sys, _, _ := newTestSystem(2, 100)
	min, max := bigBox()
	p := &testProp{min: min, max: max, transparent: true, alpha: 0}
	h := sys.CreateRenderableHandle(p)
	sys.AddRenderable(h)

	view := ViewInfo{RenderFrame: 1, DrawTranslucent: true}
	sys.ComputeTranslucentRenderLeaf([]int{0}, view)

	rl := &RenderList{}
	sys.CollateRenderablesInLeaf(0, view, rl)

	for _, e := range rl.Entries(GroupTranslucentEntity) {
		if e.Handle == h {
			t.Errorf("expected zero-alpha translucent entry to be skipped")
		}
	}
}

func TestDrawStaticPropsToggleSuppressesStaticProps(t *testing.T) {
	sys, _, _ := newTestSystem(2, 100)
	min, max := bigBox()
	p := &testProp{min: min, max: max}
	h := sys.CreateRenderableHandle(p)
	ri := sys.renderableAt(h)
	ri.flags |= FlagStaticProp
	sys.AddRenderable(h)

	sys.DrawStaticProps(false)
	rl := &RenderList{}
	sys.CollateRenderablesInLeaf(0, ViewInfo{RenderFrame: 1}, rl)

	for g := RenderGroup(0); g < nRenderGroups; g++ {
		for _, e := range rl.Entries(g) {
			if e.Handle == h {
				t.Errorf("expected DrawStaticProps(false) to suppress the static prop")
			}
		}
	}
}

func TestDrawSmallEntitiesToggleSuppressesSmall(t *testing.T) {
	sys, _, _ := newTestSystem(2, 100)
	min, max := unitBox() // tiny, well under the medium threshold.
	p := &testProp{min: min, max: max}
	h := sys.CreateRenderableHandle(p)
	sys.AddRenderable(h)

	sys.DrawSmallEntities(false)
	rl := &RenderList{}
	sys.CollateRenderablesInLeaf(0, ViewInfo{RenderFrame: 1}, rl)

	for g := RenderGroup(0); g < nRenderGroups; g++ {
		for _, e := range rl.Entries(g) {
			if e.Handle == h {
				t.Errorf("expected DrawSmallEntities(false) to suppress the small entity")
			}
		}
	}
}

func TestEngineCullExcludesRenderable(t *testing.T) {
	sys, engine, _ := newTestSystem(2, 100)
	min, max := unitBox()
	p := &testProp{min: min, max: max}
	h := sys.CreateRenderableHandle(p)
	sys.AddRenderable(h)

	engine.culled = true
	rl := &RenderList{}
	sys.CollateRenderablesInLeaf(0, ViewInfo{RenderFrame: 1}, rl)

	for g := RenderGroup(0); g < nRenderGroups; g++ {
		for _, e := range rl.Entries(g) {
			if e.Handle == h {
				t.Errorf("expected a culled box to be excluded")
			}
		}
	}
}

func TestSortTranslucentTailOrdersBackToFront(t *testing.T) {
	sys, _, _ := newTestSystem(2, 1000)
	view := ViewInfo{RenderFrame: 1, DrawTranslucent: true, Origin: lin.V3{X: 0}, Forward: lin.V3{X: 1}}

	var handles []RenderHandle
	for i, x := range []float64{5, 40, 10, 30, 20} {
		p := &testProp{min: lin.V3{X: x - 1}, max: lin.V3{X: x + 1}, origin: lin.V3{X: x}, transparent: true, alpha: 1}
		h := sys.CreateRenderableHandle(p)
		sys.AddRenderable(h)
		handles = append(handles, h)
		_ = i
	}
	sys.ComputeTranslucentRenderLeaf([]int{0}, view)

	rl := &RenderList{}
	sys.CollateRenderablesInLeaf(0, view, rl)

	entries := rl.Entries(GroupTranslucentEntity)
	if len(entries) != len(handles) {
		t.Fatalf("expected all 5 translucent entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		prevOrigin := entries[i-1].Renderable.GetRenderOrigin()
		curOrigin := entries[i].Renderable.GetRenderOrigin()
		if prevOrigin.X < curOrigin.X {
			t.Errorf("expected back-to-front order (largest X first), got %v before %v", prevOrigin.X, curOrigin.X)
		}
	}
}

func TestAddToViewModelListAndCollate(t *testing.T) {
	sys, _, _ := newTestSystem(2, 100)
	p := &testProp{alpha: 1}
	sys.CreateRenderableHandle(p) // pad so h isn't handle 0.
	h := sys.CreateRenderableHandle(p)
	sys.AddToViewModelList(h, GroupViewModelOpaque)

	rl := &RenderList{}
	sys.CollateViewModelRenderables(rl)

	found := false
	for _, e := range rl.Entries(GroupViewModelOpaque) {
		if e.Handle == h {
			found = true
		}
	}
	if !found {
		t.Errorf("expected view-model handle to be collated into its assigned group")
	}
}

func TestParallelComputeTranslucentRenderLeafMatchesSerial(t *testing.T) {
	sys, _, _ := newTestSystem(4, 10)
	p := &testProp{min: lin.V3{}, max: lin.V3{X: 15, Y: 1, Z: 1}, transparent: true, alpha: 1}
	h := sys.CreateRenderableHandle(p)
	sys.AddRenderable(h)

	view := ViewInfo{RenderFrame: 5, DrawTranslucent: true}
	sys.ParallelComputeTranslucentRenderLeaf([]int{0, 1}, view)

	ri := sys.renderableAt(h)
	if ri.renderLeaf != 0 {
		t.Errorf("expected front-to-back first-seen leaf to be 0, got %d", ri.renderLeaf)
	}
}
