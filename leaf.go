// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package leafsys

// leaf.go holds the per-leaf bookkeeping: the head of each bidirectional
// relation touching this leaf, its detail-prop slice, and a small
// extension-point map other subsystems can stash opaque data in.

// nSubSystems bounds the per-leaf opaque data slots. The original keeps a
// fixed small array here rather than a map since the set of subsystems
// wanting leaf-scoped storage is small and known at init time.
const nSubSystems = 4

// leafInfo is one record per BSP leaf the core has been told about.
type leafInfo struct {
	firstRenderable int32 // head into the renderables-in-leaf bidirectional set.
	firstShadow     int32 // head into the shadows-in-leaf bidirectional set.

	detailFirst        int   // index of the first detail prop for this leaf.
	detailCount        int   // number of detail props for this leaf.
	detailLastBuildFrame int64 // build frame the detail subsystem last populated this leaf in.

	subSystemData [nSubSystems]any // per-subsystem opaque data, owned by the leaf.
}

func newLeafInfo() *leafInfo {
	return &leafInfo{firstRenderable: noLink, firstShadow: noLink}
}

// leafRenderableHead/setLeafRenderableHead and leafShadowHead/
// setLeafShadowHead are the four accessor functions BidirectionalSet needs
// for the leaf side of its two leaf-keyed relations; see system.go for
// where these are wired to the leaf table.
