// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package leafsys

import (
	"testing"

	"github.com/galvanized/leafsys/lin"
)

func TestCollectLeavesReturnsAllIntersecting(t *testing.T) {
	sys, _, _ := newTestSystem(5, 10)
	leaves := sys.collectLeaves(lin.V3{X: 5}, lin.V3{X: 25})
	if len(leaves) != 3 {
		t.Errorf("expected 3 leaves for a box spanning leaves 0-2, got %v", leaves)
	}
}

func TestInsertIntoTreeSetsArea(t *testing.T) {
	sys, _, _ := newTestSystem(4, 10)
	min, max := unitBox()
	p := &testProp{min: min, max: max}
	h := sys.CreateRenderableHandle(p)
	sys.AddRenderable(h)

	ri := sys.renderableAt(h)
	if ri.area != 0 {
		t.Errorf("expected single-leaf insert to resolve area 0, got %d", ri.area)
	}
}

func TestInsertIntoTreeMultiAreaReportsMinusOne(t *testing.T) {
	sys, _, _ := newTestSystem(4, 10)
	p := &testProp{min: lin.V3{}, max: lin.V3{X: 15, Y: 1, Z: 1}}
	h := sys.CreateRenderableHandle(p)
	sys.AddRenderable(h)

	ri := sys.renderableAt(h)
	if ri.area != -1 {
		t.Errorf("expected multi-leaf spanning different areas to report -1, got %d", ri.area)
	}
}

func TestAddRenderableToLeafAttachesExistingShadow(t *testing.T) {
	sys, _, shadowMgr := newTestSystem(4, 10)

	s := sys.AddShadow(1, ShadowFlagProjected)
	sys.ProjectShadow(s, []int{0})

	min, max := unitBox()
	brush := &testProp{min: min, max: max, model: ModelBrush}
	h := sys.CreateRenderableHandle(brush)
	sys.AddRenderable(h) // inserted into leaf 0 after the shadow is already there.

	attached := false
	for _, c := range shadowMgr.calls {
		if c.add && c.receiver == h && c.shadow == s {
			attached = true
		}
	}
	if !attached {
		t.Errorf("expected late-inserted receiver to pick up the shadow already in its leaf")
	}
}

func TestAddRenderableToLeavesBypassesBounds(t *testing.T) {
	sys, _, _ := newTestSystem(4, 10)
	p := &testProp{}
	h := sys.CreateRenderableHandle(p)
	sys.AddRenderableToLeaves(h, []int{0, 1})

	leaves := sys.GetRenderableLeaves(h, nil)
	if len(leaves) != 2 {
		t.Errorf("expected explicit leaf list to be honoured as-is, got %v", leaves)
	}
}

func TestRemoveFromTreeClearsShadowsToo(t *testing.T) {
	sys, _, shadowMgr := newTestSystem(4, 10)
	min, max := unitBox()
	brush := &testProp{min: min, max: max, model: ModelBrush}
	h := sys.CreateRenderableHandle(brush)
	sys.AddRenderable(h)

	s := sys.AddShadow(1, ShadowFlagProjected)
	sys.ProjectShadow(s, []int{0})

	ri := sys.renderableAt(h)
	shadowMgr.calls = nil
	sys.removeFromTree(h, ri)

	if leaves := sys.GetRenderableLeaves(h, nil); len(leaves) != 0 {
		t.Errorf("expected no leaf membership after removeFromTree, got %v", leaves)
	}
	removed := false
	for _, c := range shadowMgr.calls {
		if !c.add {
			removed = true
		}
	}
	if !removed {
		t.Errorf("expected removeFromTree to notify the shadow manager")
	}
}
