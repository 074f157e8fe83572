// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package leafsys

import "github.com/galvanized/leafsys/lin"

// interfaces.go names every external collaborator the core depends on.
// Nothing beyond these methods is assumed; BSP construction, visibility
// computation, model loading, shadow-projection math, and detail-object
// storage all live on the other side of these boundaries.

// BSPQuery is the external BSP world: leaf enumeration over a box, and the
// total leaf count for a level.
type BSPQuery interface {
	// EnumerateLeavesInBox invokes visit once per leaf whose volume
	// intersects [min, max]. visit returning false stops enumeration early.
	EnumerateLeavesInBox(min, max lin.V3, visit func(leaf int) bool)

	// LeafCount returns the number of leaves in the current level.
	LeafCount() int
}

// EngineQueries groups the renderer-side tests the render-list builder
// needs per candidate renderable.
type EngineQueries interface {
	CullBox(min, max lin.V3) bool
	IsOccluded(min, max lin.V3) bool
	DoesBoxTouchAreaFrustum(min, max lin.V3, area int) bool

	// GetLeavesArea returns the common BSP area of every leaf in leaves, or
	// -1 if the leaves span more than one area.
	GetLeavesArea(leaves []int) int

	AreAnyLeavesVisible(leaves []int) bool
}

// ModelInfo classifies an opaque model reference, for renderables whose
// model kind cannot be determined purely from Flags.
type ModelInfo interface {
	GetModelType(model any) ModelKind
}

// ShadowManager is notified as shadows attach to and detach from receivers;
// it owns the actual shadow-projection math, which the core never touches.
type ShadowManager interface {
	AddShadowToReceiver(s ShadowHandle, r RenderHandle, kind ModelKind)
	RemoveAllShadowsFromReceiver(r RenderHandle, kind ModelKind)
}

// DetailObjectSystem owns detail-prop storage; the core only folds already
// populated per-leaf detail slices into the render list.
type DetailObjectSystem interface {
	GetDetailModel(index int) (r Renderable, handle RenderHandle, ok bool)
}
