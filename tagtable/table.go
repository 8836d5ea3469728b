// Package tagtable counts tags in a fixed array of buckets, each bucket a
// small balanced tree ordered by code.
//
// The bucket of a code is derived from its first two characters, which
// spreads two-letter country codes over the table with few collisions.
// A bitmap of occupied buckets makes the bucket count and the walk over
// non-empty buckets cheap.
package tagtable

import (
	"cmp"
	"math/bits"

	"github.com/hideo55/go-popcount"

	"github.com/aglyzov/go-ipdb/avl"
	"github.com/aglyzov/go-ipdb/tag"
)

const (
	Size = 4096 // number of buckets

	offset0 = 16
	offset1 = -64
)

type Entry struct {
	Code  tag.Code
	Count uint32
}

type Table struct {
	buckets [Size]*avl.Tree[Entry]
	bitmap  [Size / 64]uint64 // occupied buckets
	size    int
	pool    *avl.Pool[Entry]
}

func byCode(a, b Entry) int {
	return cmp.Compare(a.Code, b.Code)
}

func New() *Table {
	return &Table{pool: avl.NewPool[Entry](0)}
}

// Index returns the bucket of a code.
func Index(code tag.Code) int {
	var (
		b0 = uint32(byte(code)) + offset0
		b1 = uint32(int32(byte(code>>8)) + offset1)
	)
	return int(b0 * b1 % Size)
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.size
}

// Buckets returns the number of non-empty buckets.
func (t *Table) Buckets() int {
	if t == nil {
		return 0
	}

	var cnt uint64
	for _, bmp := range t.bitmap {
		cnt += popcount.Count(bmp)
	}

	return int(cnt)
}

// Rank returns the number of non-empty buckets preceding the bucket of code.
func (t *Table) Rank(code tag.Code) int {
	if t == nil {
		return 0
	}

	var (
		idx = Index(code)
		ofs = idx >> 6
		cnt = popcount.Count(t.bitmap[ofs] & (1<<(idx&0x3F) - 1))
	)

	for j := 0; j < ofs; j++ {
		cnt += popcount.Count(t.bitmap[j])
	}

	return int(cnt)
}

func (t *Table) Find(code tag.Code) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}

	if n := t.node(code); n != nil {
		return n.Item, true
	}

	return Entry{}, false
}

// Has reports whether the code is stored.
func (t *Table) Has(code tag.Code) bool {
	_, ok := t.Find(code)
	return ok
}

// Store sets the count of a code, adding the code if needed.
// It reports whether the code was added.
func (t *Table) Store(code tag.Code, count uint32) bool {
	if n := t.node(code); n != nil {
		n.Item.Count = count
		return false
	}

	t.insert(Entry{Code: code, Count: count})

	return true
}

// Inc adds one to the count of a code, adding the code if needed, and
// returns the new count.
func (t *Table) Inc(code tag.Code) uint32 {
	if n := t.node(code); n != nil {
		n.Item.Count++
		return n.Item.Count
	}

	t.insert(Entry{Code: code, Count: 1})

	return 1
}

func (t *Table) Remove(code tag.Code) bool {
	var (
		idx = Index(code)
		b   = t.buckets[idx]
	)

	if b == nil || !b.Remove(Entry{Code: code}) {
		return false
	}

	t.size--

	if b.Empty() {
		t.buckets[idx] = nil
		t.bitmap[idx>>6] &^= 1 << (idx & 0x3F)
	}

	return true
}

// Iter calls a handler for every entry, bucket by bucket.
// The handler can continue the process by returning true or abort with false.
func (t *Table) Iter(handler func(Entry) bool) bool {
	if t == nil {
		return true
	}

	for ofs, bmp := range t.bitmap {
		for ; bmp != 0; bmp &= bmp - 1 {
			idx := ofs<<6 + bits.TrailingZeros64(bmp)
			if !t.buckets[idx].Iter(handler) {
				return false
			}
		}
	}

	return true
}

// Entries returns all entries, bucket by bucket.
func (t *Table) Entries() []Entry {
	entries := make([]Entry, 0, t.Len())

	t.Iter(func(e Entry) bool {
		entries = append(entries, e)
		return true
	})

	return entries
}

func (t *Table) Clear() {
	for idx, b := range t.buckets {
		if b != nil {
			b.Clear()
			t.buckets[idx] = nil
		}
	}

	t.bitmap = [Size / 64]uint64{}
	t.size = 0
}

func (t *Table) node(code tag.Code) *avl.Node[Entry] {
	if b := t.buckets[Index(code)]; b != nil {
		return b.Get(Entry{Code: code})
	}
	return nil
}

func (t *Table) insert(e Entry) {
	idx := Index(e.Code)

	b := t.buckets[idx]
	if b == nil {
		b = avl.New(byCode, t.pool)
		t.buckets[idx] = b
		t.bitmap[idx>>6] |= 1 << (idx & 0x3F)
	}

	b.Insert(e)
	t.size++
}
