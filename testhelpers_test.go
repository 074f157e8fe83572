// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package leafsys

import "github.com/galvanized/leafsys/lin"

// testhelpers_test.go holds the fake external collaborators shared by the
// package's tests: a 1D grid BSP, a permissive engine, and a tiny
// Renderable that tests can mutate directly.

type testBSP struct {
	leafWidth float64
	count     int
}

func (b *testBSP) LeafCount() int { return b.count }

func (b *testBSP) EnumerateLeavesInBox(min, max lin.V3, visit func(leaf int) bool) {
	first := int(min.X / b.leafWidth)
	last := int(max.X / b.leafWidth)
	if first < 0 {
		first = 0
	}
	if last >= b.count {
		last = b.count - 1
	}
	for leaf := first; leaf <= last; leaf++ {
		if !visit(leaf) {
			return
		}
	}
}

type testEngine struct {
	culled   bool
	occluded bool
}

func (e *testEngine) CullBox(min, max lin.V3) bool                           { return e.culled }
func (e *testEngine) IsOccluded(min, max lin.V3) bool                        { return e.occluded }
func (e *testEngine) DoesBoxTouchAreaFrustum(min, max lin.V3, area int) bool { return true }
func (e *testEngine) AreAnyLeavesVisible(leaves []int) bool                  { return len(leaves) > 0 }
func (e *testEngine) GetLeavesArea(leaves []int) int {
	if len(leaves) == 0 {
		return -1
	}
	area := leaves[0]
	for _, l := range leaves[1:] {
		if l != area {
			return -1
		}
	}
	return area
}

type testModels struct{}

func (testModels) GetModelType(model any) ModelKind {
	if kind, ok := model.(ModelKind); ok {
		return kind
	}
	return ModelOther
}

type shadowCall struct {
	shadow   ShadowHandle
	receiver RenderHandle
	kind     ModelKind
	add      bool
}

type testShadowMgr struct {
	calls []shadowCall
}

func (m *testShadowMgr) AddShadowToReceiver(s ShadowHandle, r RenderHandle, kind ModelKind) {
	m.calls = append(m.calls, shadowCall{s, r, kind, true})
}
func (m *testShadowMgr) RemoveAllShadowsFromReceiver(r RenderHandle, kind ModelKind) {
	m.calls = append(m.calls, shadowCall{0, r, kind, false})
}

type testDetail struct {
	models map[int]Renderable
}

func (d *testDetail) GetDetailModel(index int) (Renderable, RenderHandle, bool) {
	if d.models == nil {
		return nil, 0, false
	}
	r, ok := d.models[index]
	return r, RenderHandle(index), ok
}

// testProp is the fake Renderable every test mutates directly.
type testProp struct {
	min, max    lin.V3
	origin      lin.V3
	transparent bool
	twoPass     bool
	alpha       float64
	model       ModelKind
	acceptMask  uint32
}

func (p *testProp) GetRenderBounds() (lin.V3, lin.V3) { return p.min, p.max }
func (p *testProp) GetRenderBoundsWorldspace() (lin.V3, lin.V3) {
	var min, max lin.V3
	min.Add(&p.min, &p.origin)
	max.Add(&p.max, &p.origin)
	return min, max
}
func (p *testProp) GetRenderOrigin() lin.V3 { return p.origin }
func (p *testProp) IsTransparent() bool     { return p.transparent }
func (p *testProp) IsTwoPass() bool         { return p.twoPass }
func (p *testProp) GetFxBlend() float64     { return p.alpha }
func (p *testProp) ComputeFxBlend() float64 { return p.alpha }
func (p *testProp) Model() any              { return p.model }
func (p *testProp) ShouldReceiveProjectedTextures(mask uint32) bool {
	if p.acceptMask == 0 {
		return true
	}
	return p.acceptMask&mask != 0
}

// newTestSystem builds a System over a small grid BSP with nLeaves leaves
// of the given width, already past LevelInitPreEntity. The bloat grid is
// set to 1 unit (opts may override it) so bloated bounds stay close to the
// tight bounds the tests place against these narrow leaves.
func newTestSystem(nLeaves int, leafWidth float64, opts ...Option) (*System, *testEngine, *testShadowMgr) {
	bsp := &testBSP{leafWidth: leafWidth, count: nLeaves}
	engine := &testEngine{}
	shadows := &testShadowMgr{}
	sys := New(bsp, engine, testModels{}, shadows, &testDetail{}, append([]Option{Grid(1)}, opts...)...)
	sys.Init()
	sys.LevelInitPreEntity()
	return sys, engine, shadows
}

func unitBox() (lin.V3, lin.V3) {
	return lin.V3{X: -1, Y: -1, Z: -1}, lin.V3{X: 1, Y: 1, Z: 1}
}
