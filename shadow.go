// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package leafsys

// shadow.go propagates projected shadows across the leaves a receiver
// occupies, guaranteeing "once per (shadow, receiver)" using a single
// monotonically increasing counter stamped on both sides of the relation
// rather than a per-pair seen-set.

import "log"

// ShadowFlags is the projection-type mask a shadow carries; receivers
// decide via ShouldReceiveProjectedTextures whether they accept it.
type ShadowFlags uint32

const (
	ShadowFlagProjected  ShadowFlags = 1 << iota // ordinary projected shadow.
	ShadowFlagFlashlight                         // flashlight-style projected texture.
)

// shadowInfo is one record per live shadow.
type shadowInfo struct {
	externalID int64 // caller-supplied identity, opaque to the core.
	flags      ShadowFlags

	leavesHead    int32 // element-chain head into shadows-in-leaf.
	receiversHead int32 // bucket-chain head into shadows-on-renderable.

	enumCount int64 // scratch: stamped against the shared shadow enum counter.
}

func newShadowInfo(externalID int64, flags ShadowFlags) *shadowInfo {
	return &shadowInfo{externalID: externalID, flags: flags, leavesHead: noLink, receiversHead: noLink}
}

// AddShadow allocates a shadow handle with empty adjacency; use
// ProjectShadow or ProjectFlashlight to attach it to leaves.
func (sys *System) AddShadow(externalID int64, flags ShadowFlags) ShadowHandle {
	raw := sys.shadowHandles.create()
	if raw == 0 {
		// zero is reserved as the "no shadow" sentinel.
		raw = sys.shadowHandles.create()
	}
	s := ShadowHandle(raw)
	id := handleID(raw)
	for int(id) >= len(sys.shadows) {
		sys.shadows = append(sys.shadows, nil)
	}
	sys.shadows[id] = newShadowInfo(externalID, flags)
	return s
}

// RemoveShadow detaches s from every leaf and receiver and frees its
// handle. The caller must not use s afterwards.
func (sys *System) RemoveShadow(s ShadowHandle) {
	si := sys.shadowAt(s)
	if si == nil {
		return
	}
	sys.shadowsInLeaf.RemoveElement(s)
	sys.shadowsOnRenderable.RemoveBucket(s)
	id := handleID(uint32(s))
	sys.shadows[id] = nil
	sys.shadowHandles.dispose(uint32(s))
}

// ProjectShadow (re)projects an ordinary shadow onto leafList, replacing
// whatever leaves and receivers it previously had.
func (sys *System) ProjectShadow(s ShadowHandle, leafList []int) {
	sys.project(s, leafList)
}

// ProjectFlashlight (re)projects a flashlight-style shadow onto leafList.
// The propagation algorithm is identical to ProjectShadow; only the flags
// a receiver tests against differ, and those live on the shadow record
// already.
func (sys *System) ProjectFlashlight(s ShadowHandle, leafList []int) {
	sys.project(s, leafList)
}

func (sys *System) project(s ShadowHandle, leafList []int) {
	si := sys.shadowAt(s)
	if si == nil {
		return
	}
	sys.shadowsInLeaf.RemoveElement(s)
	sys.shadowsOnRenderable.RemoveBucket(s)
	sys.shadowEnumCounter++
	for _, leaf := range leafList {
		sys.addShadowToLeaf(leaf, s, si)
	}
}

// addShadowToLeaf inserts s into leaf's shadow set and attaches it to every
// renderable already in that leaf, skipping any renderable already visited
// in this projection pass (tracked via the shared enum counter, not a
// per-pair seen-set).
func (sys *System) addShadowToLeaf(leaf int, s ShadowHandle, si *shadowInfo) {
	sys.shadowsInLeaf.AddElementToBucket(leaf, s)
	sys.renderablesInLeaf.ForEachInBucket(leaf, func(r RenderHandle) bool {
		ri := sys.renderableAt(r)
		if ri == nil {
			return true
		}
		if ri.enumCount != sys.shadowEnumCounter {
			sys.addShadowToRenderable(r, ri, s, si)
			ri.enumCount = sys.shadowEnumCounter
		}
		return true
	})
}

// addShadowToRenderable attaches s to r if r's model kind can receive
// shadows at all and r accepts this shadow's projection-type flags.
func (sys *System) addShadowToRenderable(r RenderHandle, ri *renderableInfo, s ShadowHandle, si *shadowInfo) {
	if !sys.isShadowReceiver(ri) {
		return
	}
	if ri.obj == nil || !ri.obj.ShouldReceiveProjectedTextures(uint32(si.flags)) {
		return
	}
	sys.shadowsOnRenderable.AddElementToBucket(s, r)
	if sys.shadowMgr != nil {
		sys.shadowMgr.AddShadowToReceiver(s, r, sys.resolveModelKind(ri))
	}
}

// removeShadowsFromRenderable drops every shadow currently projected onto
// r, notifying the shadow manager once for the whole receiver. Called from
// removeFromTree (see insert.go) when r leaves the tree.
func (sys *System) removeShadowsFromRenderable(r RenderHandle, ri *renderableInfo) {
	sys.shadowsOnRenderable.RemoveElement(r)
	if sys.isShadowReceiver(ri) && sys.shadowMgr != nil {
		sys.shadowMgr.RemoveAllShadowsFromReceiver(r, sys.resolveModelKind(ri))
	}
}

// EnumerateShadowsInLeaves invokes visit once per distinct shadow across
// leafList, in leaf order, skipping a shadow already visited earlier in
// this same call.
func (sys *System) EnumerateShadowsInLeaves(leafList []int, visit func(ShadowHandle)) {
	sys.shadowEnumCounter++
	pass := sys.shadowEnumCounter
	for _, leaf := range leafList {
		sys.shadowsInLeaf.ForEachInBucket(leaf, func(s ShadowHandle) bool {
			si := sys.shadowAt(s)
			if si == nil {
				return true
			}
			if si.enumCount != pass {
				si.enumCount = pass
				visit(s)
			}
			return true
		})
	}
}

// warnOverflow logs an overflow of the per-group emission cap; render-list
// emission calls it and drops the entry rather than treating the overflow
// as fatal.
func warnOverflow(what string, id int64) {
	log.Printf("leafsys: %s overflow, dropping %d", what, id)
}
