// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package leafsys

// renderable.go tracks the per-renderable bookkeeping the core needs:
// frame counters, flags, render group assignment, and a handle back to the
// application's own renderable object. The renderable's actual geometry,
// transform, and material never live here; they stay behind the Renderable
// capability interface so the core can remain a pure spatial index.

import "github.com/galvanized/leafsys/lin"

// Flags is a bitset of renderable state.
type Flags uint32

const (
	FlagTwoPass           Flags = 1 << iota // translucent model that also needs an opaque pass.
	FlagStaticProp                          // compiled into the level, never moves post-load.
	FlagBrushModel                          // brush geometry, eligible as a shadow receiver.
	FlagStudioModel                         // skinned model, eligible as a shadow receiver.
	FlagHasChanged                          // present in the dirty queue exactly once.
	FlagAlternateSorting                    // translucent leaf choice prefers the farthest leaf.
	FlagBloatBounds                         // growing object; apply hysteresis instead of re-tightening.
	FlagBoundsValid                         // AbsMins/AbsMaxs reflect current world bounds.
	FlagDisableRendering                    // excluded from the tree and from every render group.
)

// RenderGroup names the bucket a renderable is emitted into. The renderer
// draws groups in a fixed order; bucketed opaque variants let it skip fine
// detail at distance.
type RenderGroup int

const (
	GroupNone RenderGroup = iota
	GroupOpaqueStatic
	GroupOpaqueEntity
	GroupTranslucentEntity
	GroupViewModelOpaque
	GroupViewModelTranslucent

	// size-bucketed opaque variants, in descending size order. A renderable
	// lands in one of these instead of GroupOpaqueStatic/Entity whenever
	// the render-list builder can measure its world extent.
	GroupOpaqueStaticHuge
	GroupOpaqueStaticLarge
	GroupOpaqueStaticMedium
	GroupOpaqueStaticSmall
	GroupOpaqueEntityHuge
	GroupOpaqueEntityLarge
	GroupOpaqueEntityMedium
	GroupOpaqueEntitySmall

	nRenderGroups

	// nBuckets is the number of size-bucket variants (huge/large/medium/
	// small) each opaque base group is split into.
	nBuckets = 4
)

// ModelKind classifies a renderable's underlying model for shadow-receiver
// eligibility and fast-path selection. A tagged-variant keyed by Flags
// suffices; no inheritance hierarchy is needed in the core.
type ModelKind int

const (
	ModelOther ModelKind = iota
	ModelBrush
	ModelStudio
	ModelStaticProp
)

// Renderable is the capability set an external renderable object exposes to
// the core. Every method is read-only or a narrow compute call; the core
// never mutates the renderable's own geometry or transform.
type Renderable interface {
	GetRenderBounds() (min, max lin.V3)           // local space
	GetRenderBoundsWorldspace() (min, max lin.V3) // world space
	GetRenderOrigin() lin.V3
	IsTransparent() bool
	IsTwoPass() bool
	GetFxBlend() float64
	ComputeFxBlend() float64
	ShouldReceiveProjectedTextures(flagsMask uint32) bool

	// Model returns the opaque model reference ModelInfo.GetModelType
	// classifies. Only consulted when Flags does not already say brush,
	// studio, or static prop.
	Model() any
}

// renderableInfo is one record per tracked renderable.
type renderableInfo struct {
	obj Renderable // nil once RemoveRenderable has run; slot awaiting reuse.

	renderFrame  int64 // most recent frame this handle was emitted (translucent leaf freshness).
	renderFrame2 int64 // most recent frame this handle was emitted (within-list-build dedup).
	enumCount    int64 // scratch: "visited in this enumeration pass" (shadow enum counter).

	translucencyCalculated     int64 // frame alpha was last evaluated.
	translucencyCalculatedView int   // view id alpha was last evaluated for.
	cachedAlpha                float64

	flags Flags
	group RenderGroup
	area  int // BSP area index, or -1 if it spans multiple areas.

	leavesHead  int32 // element-chain head into the renderables-in-leaf set.
	shadowsHead int32 // bucket-chain head into the shadows-on-renderable set.

	absMin, absMax         lin.V3 // tight world AABB.
	bloatedMin, bloatedMax lin.V3 // quantised AABB actually registered in the leaf index.
	pendingMin, pendingMax lin.V3 // unused: the recompute pass carries candidate bounds in dirtyResult.

	renderLeaf int // leaf chosen for translucent sorting this frame, or -1.
}

func newRenderableInfo(obj Renderable) *renderableInfo {
	return &renderableInfo{obj: obj, area: -1, renderLeaf: -1, leavesHead: noLink, shadowsHead: noLink}
}

func (ri *renderableInfo) isTranslucent() bool {
	return ri.flags&FlagDisableRendering == 0 && ri.obj != nil && ri.obj.IsTransparent()
}

func (ri *renderableInfo) modelKind() ModelKind {
	if ri.flags&FlagStaticProp != 0 {
		return ModelStaticProp
	}
	if ri.flags&FlagBrushModel != 0 {
		return ModelBrush
	}
	if ri.flags&FlagStudioModel != 0 {
		return ModelStudio
	}
	return ModelOther
}
