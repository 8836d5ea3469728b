// Package interval implements a store of disjoint [lo..hi] -> tag ranges on
// top of a height-balanced tree, and a bisection search over the flat sorted
// sequence such a store serializes to.
//
// Stored ranges never overlap: Upsert merges a new range with every range it
// overlaps, and with adjacent ranges carrying the same tag, before inserting
// the union. The in-order sequence is therefore ascending and disjoint.
package interval

import (
	"github.com/aglyzov/go-ipdb/avl"
	"github.com/aglyzov/go-ipdb/tag"
)

type Range[K Key[K]] struct {
	Lo, Hi K
	Tag    tag.Code
}

// Contains reports whether lo <= point <= hi.
func (r Range[K]) Contains(point K) bool {
	return r.Lo.Cmp(point) <= 0 && point.Cmp(r.Hi) <= 0
}

// mergeable reports whether [lo..hi] overlaps the range or, carrying the same
// tag, touches it at either end.
func (r Range[K]) mergeable(lo, hi K, code tag.Code) bool {
	adj := code == r.Tag

	switch {
	case r.Lo.Cmp(lo) <= 0 && (lo.Cmp(r.Hi) <= 0 || adj && r.Hi.Inc() == lo):
		// lo falls inside or right after the range
		return true
	case hi.Cmp(r.Hi) <= 0 && (r.Lo.Cmp(hi) <= 0 || adj && hi.Inc() == r.Lo):
		// hi falls inside or right before the range
		return true
	case lo.Cmp(r.Lo) <= 0 && r.Hi.Cmp(hi) <= 0:
		// the range is covered
		return true
	}

	return false
}

type Tree[K Key[K]] struct {
	avl *avl.Tree[Range[K]]
}

// Result reports what Upsert did to the store.
type Result struct {
	Inserted bool
	Merged   int // number of stored ranges absorbed into the new one
}

// Delta returns the net change of the number of stored ranges.
func (r Result) Delta() int {
	if r.Inserted {
		return 1 - r.Merged
	}
	return -r.Merged
}

func byLo[K Key[K]](a, b Range[K]) int {
	return a.Lo.Cmp(b.Lo)
}

// New creates an empty store. The pool bounds the number of stored ranges
// and may be nil.
func New[K Key[K]](pool *avl.Pool[Range[K]]) *Tree[K] {
	return &Tree[K]{avl: avl.New(byLo[K], pool)}
}

// FromSorted builds a store of minimal height from an ascending, disjoint
// sequence such as the one returned by Serialize. It returns nil if the pool
// runs out of nodes.
func FromSorted[K Key[K]](records []Range[K], pool *avl.Pool[Range[K]]) *Tree[K] {
	t := New(pool)
	if !t.avl.Build(records) {
		return nil
	}
	return t
}

// Len returns the number of stored ranges.
func (t *Tree[K]) Len() int {
	return t.avl.Len()
}

// Height returns the number of tree levels.
func (t *Tree[K]) Height() int {
	return t.avl.Height()
}

// Root exposes the underlying tree root for inspection.
func (t *Tree[K]) Root() *avl.Node[Range[K]] {
	return t.avl.Root()
}

// Find returns the range containing point.
func (t *Tree[K]) Find(point K) (Range[K], bool) {
	n := t.avl.Descend(func(r Range[K]) int {
		switch {
		case point.Cmp(r.Lo) < 0:
			return -1
		case r.Hi.Cmp(point) < 0:
			return 1
		}
		return 0
	})
	if n == nil {
		return Range[K]{}, false
	}
	return n.Item, true
}

// FindOverlapping returns a stored range that [lo..hi] overlaps, or touches
// while carrying the same tag.
func (t *Tree[K]) FindOverlapping(lo, hi K, code tag.Code) (Range[K], bool) {
	n := t.avl.Descend(func(r Range[K]) int {
		switch {
		case r.mergeable(lo, hi, code):
			return 0
		case lo.Cmp(r.Lo) < 0:
			return -1
		}
		return 1
	})
	if n == nil {
		return Range[K]{}, false
	}
	return n.Item, true
}

// Upsert stores [lo..hi] -> code, first absorbing every range it overlaps or
// touches with the same tag. The union takes the new tag.
//
// Inserted is false only if the pool refused a node. Absorbed ranges hand
// their nodes back to the pool first, so that happens only when nothing was
// merged and the store is left as it was.
func (t *Tree[K]) Upsert(lo, hi K, code tag.Code) Result {
	var res Result

	for {
		r, ok := t.FindOverlapping(lo, hi, code)
		if !ok {
			break
		}

		if r.Lo.Cmp(lo) < 0 {
			lo = r.Lo
		}
		if r.Hi.Cmp(hi) > 0 {
			hi = r.Hi
		}

		t.avl.Remove(r)
		res.Merged++
	}

	res.Inserted = t.Insert(lo, hi, code)

	return res
}

// Insert adds [lo..hi] -> code as is. The caller guarantees it does not
// overlap a stored range. It returns false, changing nothing, if a range
// starting at lo is already stored or the pool refused a node.
func (t *Tree[K]) Insert(lo, hi K, code tag.Code) bool {
	return t.avl.Insert(Range[K]{Lo: lo, Hi: hi, Tag: code})
}

// Remove deletes the range starting at lo.
func (t *Tree[K]) Remove(lo K) bool {
	return t.avl.Remove(Range[K]{Lo: lo})
}

// Iter calls a handler for every range in ascending order.
// The handler can continue the process by returning true or abort with false.
func (t *Tree[K]) Iter(handler func(Range[K]) bool) bool {
	return t.avl.Iter(handler)
}

// Serialize returns the stored ranges in ascending order.
func (t *Tree[K]) Serialize() []Range[K] {
	return t.avl.Items()
}

// Clear drops all ranges.
func (t *Tree[K]) Clear() {
	t.avl.Clear()
}
