// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package leafsys

// renderlist.go assembles the per-view render list: translucent leaf
// assignment, culling, occlusion, size-bucketed opaque grouping, two-pass
// handling, detail-prop folding, and back-to-front sort.

import (
	"log"
	"math"
	"sync"

	"github.com/galvanized/leafsys/lin"
)

// CEntry is one emitted render-list entry. A nil Renderable marks a leaf
// boundary marker (see CollateRenderablesInLeaf).
type CEntry struct {
	Handle     RenderHandle
	Renderable Renderable
	Leaf       int
	TwoPass    bool
}

// RenderList is the per-view output, one slice per render group.
type RenderList struct {
	groups [nRenderGroups][]CEntry
}

// Entries returns the emitted entries for group.
func (rl *RenderList) Entries(group RenderGroup) []CEntry { return rl.groups[group] }

func (rl *RenderList) emit(cfg Config, group RenderGroup, e CEntry) {
	if len(rl.groups[group]) >= cfg.maxGroupEntries {
		warnOverflow("render group", int64(group))
		return
	}
	rl.groups[group] = append(rl.groups[group], e)
}

// staticBuckets/entityBuckets map bucket index (0=huge .. nBuckets-1=small)
// to the concrete size-bucketed RenderGroup for static props and entities.
var staticBuckets = [nBuckets]RenderGroup{GroupOpaqueStaticHuge, GroupOpaqueStaticLarge, GroupOpaqueStaticMedium, GroupOpaqueStaticSmall}
var entityBuckets = [nBuckets]RenderGroup{GroupOpaqueEntityHuge, GroupOpaqueEntityLarge, GroupOpaqueEntityMedium, GroupOpaqueEntitySmall}

// bucketedGroup returns the size-bucketed variant of base (OpaqueStatic or
// OpaqueEntity) for a world AABB of maximum extent d, per the
// [huge, large, medium] thresholds: bucket 0 is the largest (huge), bucket
// nBuckets-1 the smallest (everything under medium).
func bucketedGroup(cfg Config, base RenderGroup, d float64) RenderGroup {
	index := nBuckets - 1
	switch {
	case d >= float64(cfg.bucketHuge):
		index = 0
	case d >= float64(cfg.bucketLarge):
		index = 1
	case d >= float64(cfg.bucketMedium):
		index = 2
	}
	if base == GroupOpaqueStatic {
		return staticBuckets[index]
	}
	return entityBuckets[index]
}

// ViewInfo describes the view a render list is being built for.
type ViewInfo struct {
	ViewID         int
	Origin         lin.V3
	Forward        lin.V3
	RenderFrame    int64
	DetailBuildFrame int64
	DrawTranslucent  bool
	DrawDetail       bool
}

// ComputeTranslucentRenderLeaf is pass 1 of render-list assembly: for each
// visible leaf in front-to-back order, memoise the leaf each translucent
// renderable is first seen in (or last seen in, under AlternateSorting),
// and evaluate alpha once per (renderable, view, frame). visibleLeaves must
// already be ordered front-to-back.
func (sys *System) ComputeTranslucentRenderLeaf(visibleLeaves []int, view ViewInfo) {
	sys.modelCacheMu.Lock()
	defer sys.modelCacheMu.Unlock()

	for _, leaf := range visibleLeaves {
		sys.renderablesInLeaf.ForEachInBucket(leaf, func(h RenderHandle) bool {
			ri := sys.renderableAt(h)
			if ri == nil || ri.obj == nil || ri.flags&FlagDisableRendering != 0 {
				return true
			}
			if !ri.isTranslucent() {
				return true
			}
			first := ri.renderFrame != view.RenderFrame
			if first {
				ri.renderFrame = view.RenderFrame
				ri.renderLeaf = leaf
			} else if ri.flags&FlagAlternateSorting != 0 {
				ri.renderLeaf = leaf
			}
			sys.refreshAlpha(ri, view)
			return true
		})
	}
}

// refreshAlpha evaluates ComputeFxBlend at most once per (renderable, view,
// frame), caching the result on ri.
func (sys *System) refreshAlpha(ri *renderableInfo, view ViewInfo) {
	if ri.translucencyCalculated == view.RenderFrame && ri.translucencyCalculatedView == view.ViewID {
		return
	}
	ri.cachedAlpha = ri.obj.ComputeFxBlend()
	ri.translucencyCalculated = view.RenderFrame
	ri.translucencyCalculatedView = view.ViewID
}

// ParallelComputeTranslucentRenderLeaf splits visibleLeaves across a
// worker pool that only collects each leaf's translucent renderables.
// RenderLeaf assignment must still resolve in front-to-back order, so the
// RenderLeaf commit and alpha evaluation both run serially afterwards,
// under the model-cache lock.
func (sys *System) ParallelComputeTranslucentRenderLeaf(visibleLeaves []int, view ViewInfo) {
	type hit struct {
		h    RenderHandle
		leaf int
	}
	hitsByLeaf := make([][]hit, len(visibleLeaves))

	hintOrchestratorAffinity()
	var wg sync.WaitGroup
	for i, leaf := range visibleLeaves {
		wg.Add(1)
		go func(i, leaf int) {
			defer wg.Done()
			var hits []hit
			sys.renderablesInLeaf.ForEachInBucket(leaf, func(h RenderHandle) bool {
				if ri := sys.renderableAt(h); ri != nil && ri.isTranslucent() && ri.flags&FlagDisableRendering == 0 {
					hits = append(hits, hit{h, leaf})
				}
				return true
			})
			hitsByLeaf[i] = hits
		}(i, leaf)
	}
	wg.Wait()

	sys.modelCacheMu.Lock()
	defer sys.modelCacheMu.Unlock()
	for _, hits := range hitsByLeaf {
		for _, ht := range hits {
			ri := sys.renderableAt(ht.h)
			if ri == nil {
				continue
			}
			first := ri.renderFrame != view.RenderFrame
			if first {
				ri.renderFrame = view.RenderFrame
				ri.renderLeaf = ht.leaf
			} else if ri.flags&FlagAlternateSorting != 0 {
				ri.renderLeaf = ht.leaf
			}
			sys.refreshAlpha(ri, view)
		}
	}
}

// BuildRenderablesList runs pass 2 for every visible leaf in order,
// appending emitted entries to rl and sorting each leaf's new translucent
// entries back-to-front as it finishes.
func (sys *System) BuildRenderablesList(visibleLeaves []int, view ViewInfo, rl *RenderList) {
	for _, leaf := range visibleLeaves {
		sys.CollateRenderablesInLeaf(leaf, view, rl)
	}
}

// CollateRenderablesInLeaf emits one leaf's renderables into rl: dedup for
// opaque kinds, leaf-assignment check for translucent, frustum/occlusion
// culling, size bucketing, two-pass duplication into an opaque group, and
// detail-prop folding. New translucent entries for this leaf are sorted
// back-to-front before returning.
func (sys *System) CollateRenderablesInLeaf(leaf int, view ViewInfo, rl *RenderList) {
	if sys.restrictToLeaf >= 0 && leaf != sys.restrictToLeaf {
		return
	}

	rl.emit(sys.cfg, GroupOpaqueStatic, CEntry{Leaf: leaf})
	rl.emit(sys.cfg, GroupOpaqueEntity, CEntry{Leaf: leaf})

	translucentStart := len(rl.groups[GroupTranslucentEntity])

	sys.renderablesInLeaf.ForEachInBucket(leaf, func(h RenderHandle) bool {
		sys.collateOne(leaf, h, view, rl)
		return true
	})

	if view.DrawDetail {
		sys.foldDetailProps(leaf, view, rl)
	}

	sys.sortTranslucentTail(rl, translucentStart, view)
}

func (sys *System) collateOne(leaf int, h RenderHandle, view ViewInfo, rl *RenderList) {
	ri := sys.renderableAt(h)
	if ri == nil || ri.obj == nil || ri.flags&FlagDisableRendering != 0 {
		return
	}
	if ri.flags&FlagStaticProp != 0 && !sys.drawStaticProps {
		return
	}

	translucent := ri.isTranslucent()

	if !translucent {
		if ri.renderFrame2 == view.RenderFrame {
			return
		}
		ri.renderFrame2 = view.RenderFrame
	} else if ri.renderLeaf != leaf {
		return
	}

	alpha := 1.0
	if translucent {
		alpha = ri.cachedAlpha
		if view.DrawTranslucent && alpha == 0 {
			return
		}
	}

	min, max := ri.absMin, ri.absMax
	if ri.area >= 0 && sys.portalTestEnts && !sys.portalsOpenAll {
		if !sys.engine.DoesBoxTouchAreaFrustum(min, max, ri.area) {
			return
		}
	} else {
		if sys.engine.CullBox(min, max) {
			return
		}
	}
	if sys.engine.IsOccluded(min, max) {
		return
	}

	twoPass := ri.obj.IsTwoPass() && translucent

	if translucent && view.DrawTranslucent {
		rl.emit(sys.cfg, GroupTranslucentEntity, CEntry{Handle: h, Renderable: ri.obj, Leaf: leaf, TwoPass: twoPass})
	}

	if !translucent || (twoPass && alpha >= 1) {
		base := GroupOpaqueEntity
		if ri.flags&FlagStaticProp != 0 {
			base = GroupOpaqueStatic
		}
		d := maxExtent(min, max)
		if d < float64(sys.cfg.bucketMedium) && !sys.drawSmallEntities {
			return
		}
		group := bucketedGroup(sys.cfg, base, d)
		rl.emit(sys.cfg, group, CEntry{Handle: h, Renderable: ri.obj, Leaf: leaf, TwoPass: twoPass})
	}
}

func maxExtent(min, max lin.V3) float64 {
	dx := max.X - min.X
	dy := max.Y - min.Y
	dz := max.Z - min.Z
	return math.Max(dx, math.Max(dy, dz))
}

// DrawDetailObjectsInLeaf folds leaf's detail-prop slice into rl directly,
// for callers that build detail props into a view's list outside the
// normal CollateRenderablesInLeaf pass (e.g. a standalone detail-only
// overlay pass).
func (sys *System) DrawDetailObjectsInLeaf(leaf int, view ViewInfo, rl *RenderList) {
	sys.foldDetailProps(leaf, view, rl)
}

// foldDetailProps emits the leaf's detail-prop slice into the appropriate
// groups if the detail subsystem populated it for this exact build frame.
func (sys *System) foldDetailProps(leaf int, view ViewInfo, rl *RenderList) {
	l := sys.leafAt(leaf)
	if l == nil || l.detailLastBuildFrame != view.DetailBuildFrame {
		return
	}
	for i := 0; i < l.detailCount; i++ {
		obj, h, ok := sys.detail.GetDetailModel(l.detailFirst + i)
		if !ok || obj == nil {
			continue
		}
		if obj.IsTransparent() {
			if !view.DrawTranslucent {
				continue
			}
			if alpha := obj.GetFxBlend(); alpha <= 0 {
				continue
			}
			rl.emit(sys.cfg, GroupTranslucentEntity, CEntry{Handle: h, Renderable: obj, Leaf: leaf})
		} else {
			rl.emit(sys.cfg, GroupOpaqueEntity, CEntry{Handle: h, Renderable: obj, Leaf: leaf})
		}
	}
}

// sortTranslucentTail sorts rl.groups[GroupTranslucentEntity][from:] back-
// to-front by projecting each entry's render origin onto view.Forward, with
// a comb sort (step sequence 4,2,1) per the teacher's fixed small-slice
// sort idiom; NaN distances are coerced to 0.
func (sys *System) sortTranslucentTail(rl *RenderList, from int, view ViewInfo) {
	entries := rl.groups[GroupTranslucentEntity][from:]
	n := len(entries)
	if n < 2 {
		return
	}
	dist := make([]float64, n)
	for i, e := range entries {
		if e.Renderable == nil {
			continue
		}
		var delta lin.V3
		origin := e.Renderable.GetRenderOrigin()
		delta.Sub(&origin, &view.Origin)
		d := delta.Dot(&view.Forward)
		if math.IsNaN(d) {
			d = 0
		}
		dist[i] = d
	}

	for _, step := range []int{4, 2, 1} {
		for gap := step; gap < n; gap++ {
			for j := gap; j >= step && dist[j-step] < dist[j]; j -= step {
				dist[j-step], dist[j] = dist[j], dist[j-step]
				entries[j-step], entries[j] = entries[j], entries[j-step]
			}
		}
	}
}

// CollateViewModelRenderables walks the view-model list in reverse
// insertion order (most recent wins ties), re-evaluating fx blend and
// partitioning into opaque vs translucent groups by current RenderGroup.
func (sys *System) CollateViewModelRenderables(rl *RenderList) {
	for i := len(sys.viewModelList) - 1; i >= 0; i-- {
		h := sys.viewModelList[i]
		ri := sys.renderableAt(h)
		if ri == nil || ri.obj == nil {
			continue
		}
		ri.obj.ComputeFxBlend()
		switch ri.group {
		case GroupViewModelOpaque:
			rl.emit(sys.cfg, GroupViewModelOpaque, CEntry{Handle: h, Renderable: ri.obj})
		case GroupViewModelTranslucent:
			rl.emit(sys.cfg, GroupViewModelTranslucent, CEntry{Handle: h, Renderable: ri.obj})
		default:
			log.Printf("leafsys: view-model handle %v has non-view-model group %v", h, ri.group)
		}
	}
}

// AddToViewModelList registers h in the view-model list under the given
// group, which must be GroupViewModelOpaque or GroupViewModelTranslucent.
func (sys *System) AddToViewModelList(h RenderHandle, group RenderGroup) {
	ri := sys.renderableAt(h)
	if ri == nil {
		return
	}
	ri.group = group
	sys.viewModelList = append(sys.viewModelList, h)
}
