// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package leafsys

// handle.go defines the stable handles renderables and shadows are
// referenced by everywhere else in the package.

import (
	"log"
)

// idBits/edBits split mirrors the entity-id scheme: an index half used
// directly as an array index, and an edition half that turns stale reuse
// of a disposed handle into a cheap comparison instead of a crash.
const idBits = 20                 // handle array index : 1048575
const edBits = 12                 // handle edition      :    4096
const maxHandleID = (1 << idBits) - 1
const maxEdition = (1 << edBits) - 1

// handleID returns the value to be used for array lookups.
func handleID(h uint32) uint32 { return h & maxHandleID }

// handleEdition returns the value that tracks if the handle is still live.
func handleEdition(h uint32) uint16 { return uint16((h >> idBits) & maxEdition) }

// RenderHandle identifies a renderable added to the system. The zero value
// is never issued by CreateRenderableHandle and can be used as a "no
// renderable" sentinel.
type RenderHandle uint32

// ShadowHandle identifies a shadow added to the system. The zero value is
// never issued by AddShadow and can be used as a "no shadow" sentinel.
type ShadowHandle uint32

// maxFree starts recycling handles once the amount of disposed handles
// reaches the given size. See:
// http://bitsquid.blogspot.ca/2014/08/building-data-oriented-entity-system.html
const maxFree = (1 << (edBits - 1)) // recycling when free exceeds 2048.

// handleTable allocates, validates and recycles handles of a single kind.
// It is shared by RenderHandle and ShadowHandle allocation: both need the
// same index+edition recycling policy, just over different backing slices
// of renderable/shadow records kept by the caller.
type handleTable struct {
	editions []uint16 // track currently used handle indices.
	free     []uint32 // tracks handle indices ready for reuse.
}

// create returns a new handle packed as id | edition<<idBits. Zero is
// returned for the first handle and when all handle indices are exhausted
// with nothing in the free list to reclaim; both are design errors if seen
// beyond the very first allocation.
func (t *handleTable) create() uint32 {
	id := uint32(0)
	if len(t.free) > maxFree {
		id = t.free[0]
		t.free = append(t.free[:0], t.free[1:]...)
	} else {
		t.editions = append(t.editions, 0)
		if id = uint32(len(t.editions) - 1); id > maxHandleID {
			if len(t.free) == 0 {
				log.Printf("leafsys: all %d handles in use", maxHandleID+1)
				return 0 // design error to be caught during development.
			}
			id = t.free[0]
			t.free = append(t.free[:0], t.free[1:]...)
		}
	}
	return id | uint32(t.editions[id])<<idBits
}

// valid handles are those that have been created and not yet disposed.
func (t *handleTable) valid(h uint32) bool {
	id := handleID(h)
	if id >= uint32(len(t.editions)) {
		return false
	}
	return t.editions[id] == handleEdition(h)
}

// dispose marks a handle as no longer valid and queues its index for
// reallocation. The index can be reallocated maxEdition times before it
// risks duplicating a previously issued handle.
func (t *handleTable) dispose(h uint32) {
	id := handleID(h)
	t.editions[id]++
	t.free = append(t.free, id)
}

// reset discards all handle bookkeeping, returning the table to its
// just-created state.
func (t *handleTable) reset() {
	t.editions = nil
	t.free = nil
}
