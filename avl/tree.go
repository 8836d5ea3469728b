// Package avl implements a height-balanced binary search tree shared by the
// range and tag stores.
//
// Every node carries a balance factor B = height(right) - height(left) in
// [-1..+1]; it transiently reaches ±2 right before a rotation. Mutations walk
// a pointer to the parent's child slot (**Node) so rotations rewrite the slot
// in place, and each recursive step reports whether its subtree grew (insert)
// or shrank (remove) so ancestors can adjust their factors on the way up.
//
// The tree is not safe for concurrent mutation. A tree that is only read may
// be shared freely.
package avl

// Node is a tree node. Item is exported so callers may widen an item in place
// as long as its ordering key stays put.
type Node[T any] struct {
	Item T

	b           int8
	left, right *Node[T]
}

func (n *Node[T]) Left() *Node[T]  { return n.left }
func (n *Node[T]) Right() *Node[T] { return n.right }

// Balance returns the balance factor of the node.
func (n *Node[T]) Balance() int { return int(n.b) }

type Tree[T any] struct {
	root *Node[T]
	size int
	cmp  func(a, b T) int
	pool *Pool[T]
}

// New creates an empty tree ordered by cmp. The pool may be nil.
func New[T any](cmp func(a, b T) int, pool *Pool[T]) *Tree[T] {
	return &Tree[T]{cmp: cmp, pool: pool}
}

// Len returns the number of items in the tree.
func (t *Tree[T]) Len() int {
	return t.size
}

func (t *Tree[T]) Empty() bool {
	return t.root == nil
}

func (t *Tree[T]) Root() *Node[T] {
	return t.root
}

// Get returns the node holding an item equal to key.
func (t *Tree[T]) Get(key T) *Node[T] {
	return t.Descend(func(item T) int {
		return t.cmp(key, item)
	})
}

// Descend walks from the root following a probe: the probe returns 0 when the
// item matches, a negative value to continue to the left and a positive one
// to continue to the right.
func (t *Tree[T]) Descend(probe func(item T) int) *Node[T] {
	for n := t.root; n != nil; {
		switch dir := probe(n.Item); {
		case dir < 0:
			n = n.left
		case dir > 0:
			n = n.right
		default:
			return n
		}
	}
	return nil
}

// Insert adds an item. It returns false, leaving the tree untouched, when an
// equal item is already present or when the pool refuses a new node.
func (t *Tree[T]) Insert(item T) bool {
	_, ok := t.insert(&t.root, item)
	if ok {
		t.size++
	}
	return ok
}

// Remove deletes the item equal to key and reports whether it was found.
func (t *Tree[T]) Remove(key T) bool {
	_, ok := t.remove(&t.root, key)
	if ok {
		t.size--
	}
	return ok
}

// Clear releases all nodes back to the pool.
func (t *Tree[T]) Clear() {
	t.release(t.root)
	t.root = nil
	t.size = 0
}

func (t *Tree[T]) release(n *Node[T]) {
	if n == nil {
		return
	}
	t.release(n.left)
	t.release(n.right)
	t.pool.Put(n)
}

// Iter calls a handler for every item in ascending order.
// The handler can continue the process by returning true or abort with false.
func (t *Tree[T]) Iter(handler func(T) bool) bool {
	return iterate(t.root, handler)
}

// iterate visits the left subtree, the node itself and the right subtree
// unless aborted.
func iterate[T any](n *Node[T], h func(T) bool) bool {
	if n == nil {
		return true
	}
	return iterate(n.left, h) && h(n.Item) && iterate(n.right, h)
}

// Items returns all items in ascending order.
func (t *Tree[T]) Items() []T {
	items := make([]T, 0, t.size)

	t.Iter(func(item T) bool {
		items = append(items, item)
		return true
	})

	return items
}

// Height returns the number of levels of the tree.
func (t *Tree[T]) Height() int {
	return height(t.root)
}

func height[T any](n *Node[T]) int {
	if n == nil {
		return 0
	}
	return 1 + max(height(n.left), height(n.right))
}

func (t *Tree[T]) insert(slot **Node[T], item T) (grown, ok bool) {
	o := *slot

	if o == nil {
		// not in the tree - add a new leaf
		n := t.pool.Get()
		if n == nil {
			return false, false // out of budget, nothing changed
		}

		n.Item = item
		*slot = n

		return true, true
	}

	var change int8

	switch c := t.cmp(item, o.Item); {
	case c < 0:
		if grown, ok = t.insert(&o.left, item); grown {
			change = -1
		}
	case c > 0:
		if grown, ok = t.insert(&o.right, item); grown {
			change = +1
		}
	default:
		return false, false // already present
	}

	if change == 0 {
		return false, ok
	}

	if o.b += change; o.b < -1 || o.b > 1 {
		// a rotation after an insert always absorbs the growth
		return !rebalance(slot), true
	}

	return o.b != 0, true
}

func (t *Tree[T]) remove(slot **Node[T], key T) (shrunk, ok bool) {
	o := *slot

	if o == nil {
		return false, false // not found
	}

	var change int8

	switch c := t.cmp(key, o.Item); {
	case c < 0:
		if shrunk, ok = t.remove(&o.left, key); shrunk {
			change = +1
		}
	case c > 0:
		if shrunk, ok = t.remove(&o.right, key); shrunk {
			change = -1
		}
	default:
		var (
			b    = o.b
			p, q = o.left, o.right
		)

		if p == nil || q == nil {
			// splice the only child (if any) into the slot
			if p != nil {
				*slot = p
			} else {
				*slot = q
			}
			t.pool.Put(o)

			return true, true
		}

		var r *Node[T] // the node taking o's place

		if b == -1 {
			// left-heavy: replace with the in-order predecessor
			if p.right == nil {
				change = +1
				r = p
				r.right = q
			} else {
				r = o
				if pickPrev(&p, &r) {
					change = +1
				}
				r.left = p
				r.right = q
			}
		} else {
			// replace with the in-order successor
			if q.left == nil {
				change = -1
				r = q
				r.left = p
			} else {
				r = o
				if pickNext(&q, &r) {
					change = -1
				}
				r.left = p
				r.right = q
			}
		}

		r.b = b
		*slot = r
		t.pool.Put(o)
		o = r
		ok = true
	}

	if change == 0 {
		return false, ok
	}

	if o.b += change; o.b < -1 || o.b > 1 {
		return rebalance(slot), true
	}

	return o.b == 0, true
}

// pickPrev detaches the rightmost node of the subtree in slot. On entry
// *exch is the subtree's parent, on exit it is the detached node. Reports
// whether the subtree shrank.
func pickPrev[T any](slot **Node[T], exch **Node[T]) bool {
	o := *slot

	switch {
	case o.right != nil:
		*exch = o

		if !pickPrev(&o.right, exch) {
			return false
		}

		if o.b--; o.b < -1 {
			return rebalance(slot)
		}

		return o.b == 0

	case o.left != nil:
		p := o.left
		o.left = nil
		(*exch).right = p
		*exch = o

		return p.b == 0

	default:
		(*exch).right = nil
		*exch = o

		return true
	}
}

// pickNext detaches the leftmost node of the subtree in slot. See pickPrev.
func pickNext[T any](slot **Node[T], exch **Node[T]) bool {
	o := *slot

	switch {
	case o.left != nil:
		*exch = o

		if !pickNext(&o.left, exch) {
			return false
		}

		if o.b++; o.b > 1 {
			return rebalance(slot)
		}

		return o.b == 0

	case o.right != nil:
		q := o.right
		o.right = nil
		(*exch).left = q
		*exch = o

		return q.b == 0

	default:
		(*exch).left = nil
		*exch = o

		return true
	}
}

// rebalance rotates the node in slot whose factor has reached ±2 and reports
// whether the height of the subtree decreased compared to its height before
// the rotation.
func rebalance[T any](slot **Node[T]) bool {
	var (
		o      = *slot
		change int8
	)

	switch o.b {
	case -2:
		p := o.left

		if p.b == +1 {
			// double left-right rotation
			change = 1

			q := p.right
			p.right = q.left
			q.left = p
			o.left = q.right
			q.right = o

			o.b = b2i(q.b < 0)
			p.b = -b2i(q.b > 0)
			q.b = 0

			*slot = q
		} else {
			// single right rotation
			change = p.b

			o.left = p.right
			p.right = o

			p.b++
			o.b = -p.b

			*slot = p
		}

	case +2:
		q := o.right

		if q.b == -1 {
			// double right-left rotation
			change = 1

			p := q.left
			q.left = p.right
			p.right = q
			o.right = p.left
			p.left = o

			o.b = -b2i(p.b > 0)
			q.b = b2i(p.b < 0)
			p.b = 0

			*slot = p
		} else {
			// single left rotation
			change = q.b

			o.right = q.left
			q.left = o

			q.b--
			o.b = -q.b

			*slot = q
		}
	}

	return change != 0
}

func b2i(b bool) int8 {
	if b {
		return 1
	}
	return 0
}
