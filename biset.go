// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package leafsys

// biset.go implements the many-to-many index shared by the three core
// relations: renderables-in-leaf, shadows-in-leaf, shadows-on-renderable.
// Writing the bidirectional link-cell machinery once, generically, avoids
// three near-identical bugs at the three update sites.

// noLink marks an empty head or chain terminator.
const noLink int32 = -1

// link is one (a, b) pair. It carries two independent doubly-linked chains:
// the bucket chain threads every cell sharing the same a, the element chain
// threads every cell sharing the same b. Both are doubly linked so a cell
// can be unlinked from either chain in O(1) without scanning.
type link[A, B comparable] struct {
	a                      A
	b                      B
	prevBucket, nextBucket int32
	prevElem, nextElem     int32
}

// BidirectionalSet is a generic many-to-many index between domain A and
// domain B. Heads are not stored inside the set itself: they live in the
// caller's own per-A and per-B records (a leaf's FirstRenderable field, a
// renderable's FirstShadow field, and so on), injected here as four small
// accessor functions, matching how the three per-frame relations are
// actually stored alongside the leaf/renderable/shadow records.
type BidirectionalSet[A, B comparable] struct {
	cells []link[A, B]
	free  []int32

	headA func(A) int32
	setA  func(A, int32)
	headB func(B) int32
	setB  func(B, int32)
}

// NewBidirectionalSet creates a set over domains A and B. getHeadA/setHeadA
// read and write the bucket-chain head stored on an A record; getHeadB/
// setHeadB do the same for the element-chain head stored on a B record.
func NewBidirectionalSet[A, B comparable](
	getHeadA func(A) int32, setHeadA func(A, int32),
	getHeadB func(B) int32, setHeadB func(B, int32),
) *BidirectionalSet[A, B] {
	return &BidirectionalSet[A, B]{
		headA: getHeadA, setA: setHeadA,
		headB: getHeadB, setB: setHeadB,
	}
}

// alloc returns an unused cell index, reusing a freed one if available.
func (s *BidirectionalSet[A, B]) alloc() int32 {
	if n := len(s.free); n > 0 {
		id := s.free[n-1]
		s.free = s.free[:n-1]
		return id
	}
	s.cells = append(s.cells, link[A, B]{})
	return int32(len(s.cells) - 1)
}

// AddElementToBucket inserts the pair (a, b). Idempotency (not inserting a
// duplicate pair) is the caller's responsibility, per contract.
func (s *BidirectionalSet[A, B]) AddElementToBucket(a A, b B) {
	id := s.alloc()
	c := &s.cells[id]
	c.a, c.b = a, b

	headA := s.headA(a)
	c.prevBucket, c.nextBucket = noLink, headA
	if headA != noLink {
		s.cells[headA].prevBucket = id
	}
	s.setA(a, id)

	headB := s.headB(b)
	c.prevElem, c.nextElem = noLink, headB
	if headB != noLink {
		s.cells[headB].prevElem = id
	}
	s.setB(b, id)
}

// RemoveElement removes b from every bucket it is in.
func (s *BidirectionalSet[A, B]) RemoveElement(b B) {
	id := s.headB(b)
	for id != noLink {
		c := &s.cells[id]
		next := c.nextElem
		s.unlinkBucket(id)
		s.free = append(s.free, id)
		id = next
	}
	s.setB(b, noLink)
}

// RemoveBucket removes every element from bucket a.
func (s *BidirectionalSet[A, B]) RemoveBucket(a A) {
	id := s.headA(a)
	for id != noLink {
		c := &s.cells[id]
		next := c.nextBucket
		s.unlinkElem(id)
		s.free = append(s.free, id)
		id = next
	}
	s.setA(a, noLink)
}

// unlinkBucket removes cell id from its bucket chain without touching its
// element chain; used when the element chain is already being consumed by
// the caller (RemoveElement walks it directly).
func (s *BidirectionalSet[A, B]) unlinkBucket(id int32) {
	c := &s.cells[id]
	if c.prevBucket != noLink {
		s.cells[c.prevBucket].nextBucket = c.nextBucket
	} else {
		s.setA(c.a, c.nextBucket)
	}
	if c.nextBucket != noLink {
		s.cells[c.nextBucket].prevBucket = c.prevBucket
	}
}

// unlinkElem removes cell id from its element chain without touching its
// bucket chain; used when the bucket chain is already being consumed by
// the caller (RemoveBucket walks it directly).
func (s *BidirectionalSet[A, B]) unlinkElem(id int32) {
	c := &s.cells[id]
	if c.prevElem != noLink {
		s.cells[c.prevElem].nextElem = c.nextElem
	} else {
		s.setB(c.b, c.nextElem)
	}
	if c.nextElem != noLink {
		s.cells[c.nextElem].prevElem = c.prevElem
	}
}

// ForEachInBucket yields every b currently stored under bucket a.
// Iteration stops early if visit returns false.
func (s *BidirectionalSet[A, B]) ForEachInBucket(a A, visit func(B) bool) {
	id := s.headA(a)
	for id != noLink {
		c := &s.cells[id]
		if !visit(c.b) {
			return
		}
		id = c.nextBucket
	}
}

// ForEachBucketOf yields every a that currently contains element b.
// Iteration stops early if visit returns false.
func (s *BidirectionalSet[A, B]) ForEachBucketOf(b B, visit func(A) bool) {
	id := s.headB(b)
	for id != noLink {
		c := &s.cells[id]
		if !visit(c.a) {
			return
		}
		id = c.nextElem
	}
}

// Contains reports whether the pair (a, b) is currently in the set. O(size
// of bucket a); used only by tests and invariant checks, never by the hot
// per-frame paths.
func (s *BidirectionalSet[A, B]) Contains(a A, b B) bool {
	found := false
	s.ForEachInBucket(a, func(candidate B) bool {
		if candidate == b {
			found = true
			return false
		}
		return true
	})
	return found
}
