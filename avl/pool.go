package avl

// Pool hands out tree nodes and recycles removed ones.
//
// A pool with a positive Limit refuses to hold more than Limit live nodes:
// Get returns nil once the budget is spent, which the tree reports as a
// failed insert. A nil *Pool allocates from the heap without a limit.
type Pool[T any] struct {
	Limit int

	live  int
	free  []*Node[T]
	total int // nodes ever allocated from the heap
}

func NewPool[T any](limit int) *Pool[T] {
	return &Pool[T]{
		Limit: limit,
		free:  make([]*Node[T], 0, 21),
	}
}

// Live returns the number of nodes currently in use.
func (p *Pool[T]) Live() int {
	if p == nil {
		return 0
	}
	return p.live
}

// Allocated returns the number of nodes ever taken from the heap.
func (p *Pool[T]) Allocated() int {
	if p == nil {
		return 0
	}
	return p.total
}

// Get returns a zeroed node or nil when the budget is exhausted.
func (p *Pool[T]) Get() *Node[T] {
	if p == nil {
		return &Node[T]{}
	}

	if p.Limit > 0 && p.live >= p.Limit {
		return nil // out of budget
	}

	p.live++

	if l := len(p.free); l > 0 {
		n := p.free[l-1]
		p.free = p.free[:l-1]
		return n
	}

	p.total++

	return &Node[T]{}
}

// Put returns a node to the pool.
func (p *Pool[T]) Put(n *Node[T]) {
	if p == nil || n == nil {
		return
	}

	*n = Node[T]{} // drop references held by the item
	p.live--
	p.free = append(p.free, n)
}
