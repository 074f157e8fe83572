// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Command leafdemo wires a small fake BSP grid and a scripted set of
// moving renderables and shadows through one frame of leafsys, then
// prints the resulting render groups. It exists to exercise the package
// surface end to end without a real renderer or BSP compiler behind it.
package main

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"golang.org/x/text/language"

	"github.com/galvanized/leafsys"
	"github.com/galvanized/leafsys/diag"
	"github.com/galvanized/leafsys/lin"
)

// gridBSP is a trivial BSP stand-in: leaves are a 1D row of equal-sized
// boxes along X, each spanning the full Y/Z range. Good enough to
// exercise leaf enumeration, portal areas, and shadow spread across
// several leaves without any real level geometry.
type gridBSP struct {
	leafWidth float64
	count     int
}

func (g *gridBSP) LeafCount() int { return g.count }

func (g *gridBSP) EnumerateLeavesInBox(min, max lin.V3, visit func(leaf int) bool) {
	first := int(min.X / g.leafWidth)
	last := int(max.X / g.leafWidth)
	if first < 0 {
		first = 0
	}
	if last >= g.count {
		last = g.count - 1
	}
	for leaf := first; leaf <= last; leaf++ {
		if !visit(leaf) {
			return
		}
	}
}

// demoEngine answers every render-list query affirmatively except
// occlusion, which it never reports: there is no real renderer behind
// this demo to occlusion-cull against.
type demoEngine struct{ bsp *gridBSP }

func (e *demoEngine) CullBox(min, max lin.V3) bool                           { return false }
func (e *demoEngine) IsOccluded(min, max lin.V3) bool                        { return false }
func (e *demoEngine) DoesBoxTouchAreaFrustum(min, max lin.V3, area int) bool { return true }
func (e *demoEngine) AreAnyLeavesVisible(leaves []int) bool                  { return len(leaves) > 0 }
func (e *demoEngine) GetLeavesArea(leaves []int) int {
	if len(leaves) == 0 {
		return -1
	}
	area := leaves[0] / 2 // two leaves share an area in this demo layout.
	for _, l := range leaves[1:] {
		if l/2 != area {
			return -1
		}
	}
	return area
}

// demoModels classifies props by a string tag instead of a real asset
// handle, since the demo has no model loader behind it.
type demoModels struct{}

func (demoModels) GetModelType(model any) leafsys.ModelKind {
	switch model {
	case "crate":
		return leafsys.ModelStaticProp
	case "npc":
		return leafsys.ModelStudio
	default:
		return leafsys.ModelOther
	}
}

// demoShadows logs every attach/detach instead of projecting real shadow
// geometry; the core never needs to know how that math works.
type demoShadows struct{}

func (demoShadows) AddShadowToReceiver(s leafsys.ShadowHandle, r leafsys.RenderHandle, kind leafsys.ModelKind) {
	fmt.Printf("  shadow %v -> receiver %v (kind %d)\n", s, r, kind)
}
func (demoShadows) RemoveAllShadowsFromReceiver(r leafsys.RenderHandle, kind leafsys.ModelKind) {
	fmt.Printf("  receiver %v cleared\n", r)
}

// demoDetail has nothing to fold in; the demo never populates a leaf's
// detail-prop range.
type demoDetail struct{}

func (demoDetail) GetDetailModel(index int) (leafsys.Renderable, leafsys.RenderHandle, bool) {
	return nil, 0, false
}

// prop is the demo's Renderable: a box that can move, fade, and
// optionally act as a shadow receiver.
type prop struct {
	name        string
	min, max    lin.V3 // local space, centered on origin.
	origin      lin.V3
	transparent bool
	twoPass     bool
	alpha       float64
	model       any
}

func (p *prop) GetRenderBounds() (lin.V3, lin.V3) { return p.min, p.max }
func (p *prop) GetRenderBoundsWorldspace() (lin.V3, lin.V3) {
	var min, max lin.V3
	min.Add(&p.min, &p.origin)
	max.Add(&p.max, &p.origin)
	return min, max
}
func (p *prop) GetRenderOrigin() lin.V3 { return p.origin }
func (p *prop) IsTransparent() bool     { return p.transparent }
func (p *prop) IsTwoPass() bool         { return p.twoPass }
func (p *prop) GetFxBlend() float64     { return p.alpha }
func (p *prop) ComputeFxBlend() float64 { return p.alpha }
func (p *prop) Model() any              { return p.model }
func (p *prop) ShouldReceiveProjectedTextures(mask uint32) bool {
	return mask&uint32(leafsys.ShadowFlagProjected) != 0
}

func main() {
	bsp := &gridBSP{leafWidth: 10, count: 8}
	sys := leafsys.New(bsp, &demoEngine{bsp: bsp}, demoModels{}, demoShadows{}, demoDetail{},
		leafsys.Grid(4), leafsys.DirtyPasses(6))
	sys.Init()
	sys.LevelInitPreEntity()

	crate := &prop{
		name:  "crate",
		min:   lin.V3{X: -1, Y: -1, Z: -1},
		max:   lin.V3{X: 1, Y: 1, Z: 1},
		model: "crate",
	}
	crateHandle := sys.CreateRenderableHandle(crate)
	sys.SetRenderGroup(crateHandle, leafsys.GroupOpaqueStatic)
	sys.AddRenderable(crateHandle)

	npc := &prop{
		name:   "npc",
		min:    lin.V3{X: -0.5, Y: -1, Z: -0.5},
		max:    lin.V3{X: 0.5, Y: 1, Z: 0.5},
		origin: lin.V3{X: 12},
		model:  "npc",
	}
	npcHandle := sys.CreateRenderableHandle(npc)
	sys.AddRenderable(npcHandle)

	ghost := &prop{
		name:        "ghost",
		min:         lin.V3{X: -1, Y: -1, Z: -1},
		max:         lin.V3{X: 1, Y: 1, Z: 1},
		origin:      lin.V3{X: 25},
		transparent: true,
		twoPass:     true,
		alpha:       0.6,
	}
	ghostHandle := sys.CreateRenderableHandle(ghost)
	sys.AddRenderable(ghostHandle)

	fmt.Println("frame 1: initial placement")
	printLeaves(sys, crateHandle, "crate")
	printLeaves(sys, npcHandle, "npc")
	printLeaves(sys, ghostHandle, "ghost")

	flashlight := sys.AddShadow(1, leafsys.ShadowFlagProjected)
	leaves := sys.GetRenderableLeaves(npcHandle, nil)
	sys.ProjectShadow(flashlight, leaves)

	fmt.Println("\nframe 2: npc walks toward the crate")
	npc.origin.X = 4
	sys.RenderableChanged(npcHandle)
	sys.RecomputeRenderableLeaves()
	printLeaves(sys, npcHandle, "npc")

	sys.ComputeAllBounds()
	view := leafsys.ViewInfo{
		ViewID:          0,
		Origin:          lin.V3{X: -20},
		Forward:         lin.V3{X: 1},
		RenderFrame:     2,
		DrawTranslucent: true,
	}
	visible := []int{0, 1, 2, 3}
	sys.ComputeTranslucentRenderLeaf(visible, view)

	rl := &leafsys.RenderList{}
	sys.BuildRenderablesList(visible, view, rl)

	fmt.Println("\nrender groups for frame 2:")
	for _, group := range []leafsys.RenderGroup{
		leafsys.GroupOpaqueStaticHuge, leafsys.GroupOpaqueStaticLarge,
		leafsys.GroupOpaqueStaticMedium, leafsys.GroupOpaqueStaticSmall,
		leafsys.GroupOpaqueEntityHuge, leafsys.GroupOpaqueEntityLarge,
		leafsys.GroupOpaqueEntityMedium, leafsys.GroupOpaqueEntitySmall,
		leafsys.GroupTranslucentEntity,
	} {
		for _, e := range rl.Entries(group) {
			if e.Renderable == nil {
				continue
			}
			fmt.Printf("  group %d: handle %v leaf %d twoPass %v\n", group, e.Handle, e.Leaf, e.TwoPass)
		}
	}

	namer := func(h leafsys.RenderHandle) string {
		switch h {
		case crateHandle:
			return "crate"
		case npcHandle:
			return "npc"
		case ghostHandle:
			return "ghost"
		default:
			return fmt.Sprintf("h%v", h)
		}
	}
	cells := []diag.LeafCell{
		{X: 0, Y: 0, Renderables: len(sys.GetRenderableLeaves(crateHandle, nil)), Entries: []leafsys.RenderHandle{crateHandle}},
		{X: 1, Y: 0, Renderables: len(sys.GetRenderableLeaves(npcHandle, nil)), Shadows: 1, Entries: []leafsys.RenderHandle{npcHandle}},
		{X: 2, Y: 0, Renderables: len(sys.GetRenderableLeaves(ghostHandle, nil)), Entries: []leafsys.RenderHandle{ghostHandle}},
	}
	var png bytes.Buffer
	if err := diag.WriteHeatmap(&png, cells, diag.HeatmapOptions{CellSize: 32, Namer: namer}); err != nil {
		log.Fatalf("leafdemo: heatmap: %v", err)
	}
	fmt.Printf("\nwrote %d byte heat-map PNG\n", png.Len())

	report := diag.ConvergenceReport{Frame: 2, PassesUsed: 1, MaxPasses: 6, Converged: true}
	if err := diag.WriteConvergenceReport(os.Stdout, language.English, report); err != nil {
		log.Fatalf("leafdemo: report: %v", err)
	}

	sys.LevelShutdownPostEntity()
}

func printLeaves(sys *leafsys.System, h leafsys.RenderHandle, name string) {
	leaves := sys.GetRenderableLeaves(h, nil)
	fmt.Printf("  %s in leaves %v\n", name, leaves)
}
