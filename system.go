// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package leafsys

// system.go is the per-frame orchestrator and the package's public surface:
// lifecycle, handle creation, leaf binding, render groups, shadows, and the
// per-leaf extension points. The heavy per-frame passes it sequences live
// in bounds.go (bounds recompute + dirty flush), insert.go (tree
// insertion), shadow.go (shadow propagation), and renderlist.go
// (render-list assembly).

import (
	"log"
	"sync"

	"github.com/galvanized/leafsys/lin"
)

// System ties the handle tables, leaf index, bounds tracker, and render-list
// builder together behind the single surface callers use every frame.
type System struct {
	cfg Config

	bsp       BSPQuery
	engine    EngineQueries
	models    ModelInfo
	shadowMgr ShadowManager
	detail    DetailObjectSystem

	renderableHandles handleTable
	renderables       []*renderableInfo // index by handleID(RenderHandle)

	shadowHandles handleTable
	shadows       []*shadowInfo // index by handleID(ShadowHandle)

	leaves []*leafInfo // index by leaf id, sized at LevelInitPreEntity

	renderablesInLeaf  *BidirectionalSet[int, RenderHandle]
	shadowsInLeaf      *BidirectionalSet[int, ShadowHandle]
	shadowsOnRenderable *BidirectionalSet[ShadowHandle, RenderHandle]

	shadowEnumCounter int64

	dirtyMu             sync.Mutex
	dirtyQueue          []RenderHandle
	recomputeInProgress map[RenderHandle]bool // re-entrancy guard for RenderableChanged

	viewModelList []RenderHandle

	modelCacheMu sync.Mutex

	// toggles, see SPEC_FULL.md §5.
	disableLeafReinsertion bool
	restrictToLeaf         int // -1 disables the filter.
	portalTestEnts         bool
	portalsOpenAll         bool
	drawStaticProps        bool
	drawSmallEntities      bool
}

// New creates a System using the given external collaborators and options.
// The returned System has no leaves until LevelInitPreEntity is called.
func New(bsp BSPQuery, engine EngineQueries, models ModelInfo, shadowMgr ShadowManager, detail DetailObjectSystem, opts ...Option) *System {
	cfg := configDefaults
	for _, opt := range opts {
		opt(&cfg)
	}
	sys := &System{
		cfg:                cfg,
		bsp:                bsp,
		engine:             engine,
		models:             models,
		shadowMgr:          shadowMgr,
		detail:             detail,
		recomputeInProgress: map[RenderHandle]bool{},
		restrictToLeaf:     -1,
		drawStaticProps:    true,
		drawSmallEntities:  true,
	}
	sys.renderablesInLeaf = NewBidirectionalSet[int, RenderHandle](
		sys.leafRenderableHead, sys.setLeafRenderableHead,
		sys.renderableLeafHead, sys.setRenderableLeafHead,
	)
	sys.shadowsInLeaf = NewBidirectionalSet[int, ShadowHandle](
		sys.leafShadowHead, sys.setLeafShadowHead,
		sys.shadowLeafHead, sys.setShadowLeafHead,
	)
	sys.shadowsOnRenderable = NewBidirectionalSet[ShadowHandle, RenderHandle](
		sys.shadowReceiverHead, sys.setShadowReceiverHead,
		sys.renderableShadowHead, sys.setRenderableShadowHead,
	)
	return sys
}

// Init performs process-wide setup once, before any level is loaded.
func (sys *System) Init() {
	sys.dirtyQueue = sys.dirtyQueue[:0]
	sys.viewModelList = sys.viewModelList[:0]
	sys.shadowEnumCounter = 0
}

// LevelInitPreEntity allocates the leaf table for a freshly loaded level,
// before any entities (and therefore any renderables) are created.
func (sys *System) LevelInitPreEntity() {
	n := sys.bsp.LeafCount()
	sys.leaves = make([]*leafInfo, n)
	for i := range sys.leaves {
		sys.leaves[i] = newLeafInfo()
	}
}

// LevelShutdownPostEntity discards every piece of per-level state: the
// handle tables, the leaf index, and the process-wide dirty queue,
// view-model list and shadow enum counter (which Init also resets). There
// is no standing deferred-insert queue to reset; the recompute pass
// collects its inserts per batch.
func (sys *System) LevelShutdownPostEntity() {
	sys.renderableHandles.reset()
	sys.renderables = nil
	sys.shadowHandles.reset()
	sys.shadows = nil
	sys.leaves = nil
	sys.renderablesInLeaf = NewBidirectionalSet[int, RenderHandle](
		sys.leafRenderableHead, sys.setLeafRenderableHead,
		sys.renderableLeafHead, sys.setRenderableLeafHead,
	)
	sys.shadowsInLeaf = NewBidirectionalSet[int, ShadowHandle](
		sys.leafShadowHead, sys.setLeafShadowHead,
		sys.shadowLeafHead, sys.setShadowLeafHead,
	)
	sys.shadowsOnRenderable = NewBidirectionalSet[ShadowHandle, RenderHandle](
		sys.shadowReceiverHead, sys.setShadowReceiverHead,
		sys.renderableShadowHead, sys.setRenderableShadowHead,
	)
	sys.dirtyQueue = nil
	sys.viewModelList = nil
	sys.shadowEnumCounter = 0
	sys.recomputeInProgress = map[RenderHandle]bool{}
}

// handle-table accessor functions
// =============================================================================
// these bridge the index-typed handle tables and the int32-typed heads
// BidirectionalSet expects.

func (sys *System) leafAt(leaf int) *leafInfo {
	if leaf < 0 || leaf >= len(sys.leaves) {
		return nil
	}
	return sys.leaves[leaf]
}

func (sys *System) renderableAt(h RenderHandle) *renderableInfo {
	id := handleID(uint32(h))
	if int(id) >= len(sys.renderables) {
		return nil
	}
	return sys.renderables[id]
}

func (sys *System) shadowAt(h ShadowHandle) *shadowInfo {
	id := handleID(uint32(h))
	if int(id) >= len(sys.shadows) {
		return nil
	}
	return sys.shadows[id]
}

func (sys *System) leafRenderableHead(leaf int) int32 {
	if l := sys.leafAt(leaf); l != nil {
		return l.firstRenderable
	}
	return noLink
}
func (sys *System) setLeafRenderableHead(leaf int, head int32) {
	if l := sys.leafAt(leaf); l != nil {
		l.firstRenderable = head
	}
}
func (sys *System) leafShadowHead(leaf int) int32 {
	if l := sys.leafAt(leaf); l != nil {
		return l.firstShadow
	}
	return noLink
}
func (sys *System) setLeafShadowHead(leaf int, head int32) {
	if l := sys.leafAt(leaf); l != nil {
		l.firstShadow = head
	}
}

// renderableLeafHead/setRenderableLeafHead reuse renderableInfo.renderLeaf's
// sibling field: the element-chain head listing which leaves a renderable
// is in is distinct from RenderLeaf (the translucent-sort leaf memo), so it
// gets its own field on renderableInfo, leavesHead.
func (sys *System) renderableLeafHead(h RenderHandle) int32 {
	if ri := sys.renderableAt(h); ri != nil {
		return ri.leavesHead
	}
	return noLink
}
func (sys *System) setRenderableLeafHead(h RenderHandle, head int32) {
	if ri := sys.renderableAt(h); ri != nil {
		ri.leavesHead = head
	}
}

func (sys *System) shadowLeafHead(s ShadowHandle) int32 {
	if si := sys.shadowAt(s); si != nil {
		return si.leavesHead
	}
	return noLink
}
func (sys *System) setShadowLeafHead(s ShadowHandle, head int32) {
	if si := sys.shadowAt(s); si != nil {
		si.leavesHead = head
	}
}

func (sys *System) shadowReceiverHead(s ShadowHandle) int32 {
	if si := sys.shadowAt(s); si != nil {
		return si.receiversHead
	}
	return noLink
}
func (sys *System) setShadowReceiverHead(s ShadowHandle, head int32) {
	if si := sys.shadowAt(s); si != nil {
		si.receiversHead = head
	}
}

func (sys *System) renderableShadowHead(h RenderHandle) int32 {
	if ri := sys.renderableAt(h); ri != nil {
		return ri.shadowsHead
	}
	return noLink
}
func (sys *System) setRenderableShadowHead(h RenderHandle, head int32) {
	if ri := sys.renderableAt(h); ri != nil {
		ri.shadowsHead = head
	}
}

// handles, lifecycle
// =============================================================================

// CreateRenderableHandle allocates a stable handle for obj without yet
// inserting it into the leaf index; call AddRenderable to do that.
func (sys *System) CreateRenderableHandle(obj Renderable) RenderHandle {
	raw := sys.renderableHandles.create()
	if raw == 0 {
		// zero is reserved as the "no renderable" sentinel.
		raw = sys.renderableHandles.create()
	}
	h := RenderHandle(raw)
	id := handleID(raw)
	for int(id) >= len(sys.renderables) {
		sys.renderables = append(sys.renderables, nil)
	}
	sys.renderables[id] = newRenderableInfo(obj)
	return h
}

// AddRenderable computes the renderable's initial bounds and inserts it
// into the tree immediately. It does not go through the dirty queue, and
// it does not first remove h from any leaves it already occupies.
func (sys *System) AddRenderable(h RenderHandle) {
	ri := sys.renderableAt(h)
	if ri == nil {
		return
	}
	ri.flags &^= FlagBoundsValid
	sys.computeBoundsFor(h, ri)
	min, max := sys.bloatFor(ri, ri.absMin, ri.absMax, false)
	sys.insertIntoTree(h, ri, min, max)
}

// RemoveRenderable removes h from the tree, drops its shadow adjacency, and
// frees its handle. The caller must not use h afterwards.
func (sys *System) RemoveRenderable(h RenderHandle) {
	ri := sys.renderableAt(h)
	if ri == nil {
		return
	}
	sys.removeFromTree(h, ri)
	id := handleID(uint32(h))
	sys.renderables[id] = nil
	sys.renderableHandles.dispose(uint32(h))
}

// groups & toggles
// =============================================================================

// SetRenderGroup assigns h's render group. CollateViewModelRenderables
// reads it; CollateRenderablesInLeaf does not, and picks its opaque base
// group from FlagStaticProp instead.
func (sys *System) SetRenderGroup(h RenderHandle, group RenderGroup) {
	if ri := sys.renderableAt(h); ri != nil {
		ri.group = group
	}
}

// EnableAlternateSorting toggles FlagAlternateSorting: when set, the
// translucent leaf assignment keeps overwriting RenderLeaf on every visit
// so the farthest leaf wins, instead of only the first.
func (sys *System) EnableAlternateSorting(h RenderHandle, enable bool) {
	sys.setFlag(h, FlagAlternateSorting, enable)
}

// EnableBloatedBounds toggles FlagBloatBounds: when set, a growing
// renderable's bounds follow the hysteresis union rule instead of
// re-tightening every recompute.
func (sys *System) EnableBloatedBounds(h RenderHandle, enable bool) {
	sys.setFlag(h, FlagBloatBounds, enable)
}

func (sys *System) setFlag(h RenderHandle, flag Flags, enable bool) {
	ri := sys.renderableAt(h)
	if ri == nil {
		return
	}
	if enable {
		ri.flags |= flag
	} else {
		ri.flags &^= flag
	}
}

// DrawStaticProps toggles whether CollateRenderablesInLeaf emits static
// props at all, a debug aid for isolating dynamic renderables.
func (sys *System) DrawStaticProps(draw bool) { sys.drawStaticProps = draw }

// DrawSmallEntities toggles whether size-bucketed Small-group opaque
// renderables are emitted. See spec.md §9: the original's cached-extent
// early-out is not resurrected; this is a plain enable/disable toggle.
func (sys *System) DrawSmallEntities(draw bool) { sys.drawSmallEntities = draw }

// DisableLeafReinsertion stops RecomputeRenderableLeaves from reinserting
// dirty renderables, logging every RenderableChanged that arrives while
// disabled instead of silently dropping it. A developer debug toggle.
func (sys *System) DisableLeafReinsertion(disable bool) {
	sys.disableLeafReinsertion = disable
}

// RestrictToLeaf filters CollateRenderablesInLeaf to a single leaf, for
// isolating one leaf's contents while tuning. -1 disables the filter.
func (sys *System) RestrictToLeaf(leaf int) { sys.restrictToLeaf = leaf }

// PortalTestEnts toggles per-area frustum testing in the render-list
// builder; when false, every renderable uses the main frustum test.
func (sys *System) PortalTestEnts(enable bool) { sys.portalTestEnts = enable }

// PortalsOpenAll forces every portal open, skipping area-based filtering
// entirely regardless of PortalTestEnts.
func (sys *System) PortalsOpenAll(enable bool) { sys.portalsOpenAll = enable }

// leaf binding
// =============================================================================

// AddRenderableToLeaves attaches h directly to the given leaves, bypassing
// bounds computation. Used by callers (and tests) that already know the
// leaf set, e.g. static props placed at compile time.
func (sys *System) AddRenderableToLeaves(h RenderHandle, leaves []int) {
	ri := sys.renderableAt(h)
	if ri == nil {
		return
	}
	sys.shadowEnumCounter++
	for _, leaf := range leaves {
		sys.addRenderableToLeaf(leaf, h, ri)
	}
	ri.area = sys.engine.GetLeavesArea(leaves)
}

// GetRenderableLeaves appends every leaf h currently occupies to out and
// returns the extended slice.
func (sys *System) GetRenderableLeaves(h RenderHandle, out []int) []int {
	sys.renderablesInLeaf.ForEachBucketOf(h, func(leaf int) bool {
		out = append(out, leaf)
		return true
	})
	return out
}

// GetRenderableLeaf returns the iter-th leaf (0-based) h occupies, or
// (-1, false) if iter is out of range.
func (sys *System) GetRenderableLeaf(h RenderHandle, iter int) (leaf int, ok bool) {
	count := 0
	found := -1
	sys.renderablesInLeaf.ForEachBucketOf(h, func(l int) bool {
		if count == iter {
			found = l
			return false
		}
		count++
		return true
	})
	if found < 0 {
		return -1, false
	}
	return found, true
}

// IsRenderableInPVS reports whether any leaf h occupies is currently
// visible, per the engine's potentially-visible-set query.
func (sys *System) IsRenderableInPVS(h RenderHandle) bool {
	leaves := sys.GetRenderableLeaves(h, nil)
	if len(leaves) == 0 {
		return false
	}
	return sys.engine.AreAnyLeavesVisible(leaves)
}

// per-leaf extension points
// =============================================================================

// SetSubSystemDataInLeaf stores opaque per-subsystem data on a leaf. slot
// must be in [0, nSubSystems).
func (sys *System) SetSubSystemDataInLeaf(leaf, slot int, data any) {
	l := sys.leafAt(leaf)
	if l == nil {
		log.Printf("leafsys: SetSubSystemDataInLeaf: leaf %d out of range", leaf)
		return
	}
	if slot < 0 || slot >= nSubSystems {
		log.Printf("leafsys: SetSubSystemDataInLeaf: slot %d out of range", slot)
		return
	}
	l.subSystemData[slot] = data
}

// GetSubSystemDataInLeaf retrieves data previously stored by
// SetSubSystemDataInLeaf, or (nil, false) if out of range or unset.
func (sys *System) GetSubSystemDataInLeaf(leaf, slot int) (data any, ok bool) {
	l := sys.leafAt(leaf)
	if l == nil || slot < 0 || slot >= nSubSystems {
		return nil, false
	}
	return l.subSystemData[slot], l.subSystemData[slot] != nil
}

// SetDetailObjectsInLeaf records the detail-prop slice populated by the
// detail-object subsystem for this build frame.
func (sys *System) SetDetailObjectsInLeaf(leaf, first, count int, buildFrame int64) {
	l := sys.leafAt(leaf)
	if l == nil {
		return
	}
	l.detailFirst, l.detailCount, l.detailLastBuildFrame = first, count, buildFrame
}

// GetDetailObjectsInLeaf returns the detail-prop slice range last recorded
// for leaf, and whether it was populated for buildFrame.
func (sys *System) GetDetailObjectsInLeaf(leaf int, buildFrame int64) (first, count int, current bool) {
	l := sys.leafAt(leaf)
	if l == nil {
		return 0, 0, false
	}
	return l.detailFirst, l.detailCount, l.detailLastBuildFrame == buildFrame
}

// resolveModelKind classifies ri by Flags first; if that yields ModelOther
// it falls back to asking the external ModelInfo collaborator about the
// renderable's own model, for receivers whose kind isn't tagged in Flags.
func (sys *System) resolveModelKind(ri *renderableInfo) ModelKind {
	if k := ri.modelKind(); k != ModelOther {
		return k
	}
	if sys.models == nil || ri.obj == nil {
		return ModelOther
	}
	return sys.models.GetModelType(ri.obj.Model())
}

// isShadowReceiver reports whether ri's resolved model kind is eligible to
// receive a projected shadow at all (brush, studio, or static).
func (sys *System) isShadowReceiver(ri *renderableInfo) bool {
	switch sys.resolveModelKind(ri) {
	case ModelBrush, ModelStudio, ModelStaticProp:
		return true
	default:
		return false
	}
}

// bloatFor computes the quantised bloated bounds for ri given a freshly
// computed tight AABB, applying the hysteresis union rule from §4.2 when
// FlagBloatBounds is set. See bounds.go.
func (sys *System) bloatFor(ri *renderableInfo, min, max lin.V3, hasPrevious bool) (lin.V3, lin.V3) {
	return bloatBounds(sys.cfg, ri, min, max, hasPrevious)
}
