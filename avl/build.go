package avl

// Build replaces the content of the tree with items, which must be sorted in
// ascending order without duplicates. The median of every sub-slice becomes
// the subtree root, so the result has minimal height and needs no rotation.
//
// Build returns false and leaves the tree empty if the pool runs out of nodes.
func (t *Tree[T]) Build(items []T) bool {
	t.Clear()

	root, _, ok := t.build(items, 0, len(items)-1)
	if !ok {
		return false
	}

	t.root = root
	t.size = len(items)

	return true
}

// build links items[start..end] (inclusive) into a subtree and returns it with
// its height.
func (t *Tree[T]) build(items []T, start, end int) (*Node[T], int, bool) {
	if start > end {
		return nil, 0, true
	}

	mid := (start + end) / 2

	n := t.pool.Get()
	if n == nil {
		return nil, 0, false
	}

	left, lh, ok := t.build(items, start, mid-1)
	if !ok {
		t.pool.Put(n)
		return nil, 0, false
	}

	right, rh, ok := t.build(items, mid+1, end)
	if !ok {
		t.release(left)
		t.pool.Put(n)
		return nil, 0, false
	}

	n.Item = items[mid]
	n.left = left
	n.right = right
	n.b = int8(rh - lh)

	return n, 1 + max(lh, rh), true
}
