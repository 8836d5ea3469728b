package ipdb

import (
	"cmp"
	"slices"

	"github.com/aglyzov/go-ipdb/interval"
	"github.com/aglyzov/go-ipdb/tag"
	"github.com/aglyzov/go-ipdb/tagtable"
	"github.com/aglyzov/go-ipdb/uint128"
)

type TagCount struct {
	Tag    tag.Code
	Ranges uint32
}

type Summary struct {
	Ranges4    int
	Ranges6    int
	Addresses4 uint64          // IPv4 addresses covered
	Addresses6 uint128.Uint128 // IPv6 addresses covered, saturating
	Tags       []TagCount      // most ranges first
	Buckets    int             // occupied tag table buckets
}

// Summary counts the stored ranges per family and per tag.
func (b *Builder) Summary() Summary {
	var (
		table = tagtable.New()
		sum   = Summary{Ranges4: b.v4.Len(), Ranges6: b.v6.Len()}
	)

	b.v4.Iter(func(r interval.Range[interval.V4]) bool {
		table.Inc(r.Tag)
		sum.Addresses4 += uint64(r.Hi-r.Lo) + 1
		return true
	})

	b.v6.Iter(func(r interval.Range[interval.V6]) bool {
		table.Inc(r.Tag)

		total := sum.Addresses6.Add(span6(r.Lo, r.Hi))
		if total.Lt(sum.Addresses6) {
			total = uint128.Max
		}
		sum.Addresses6 = total

		return true
	})

	sum.Buckets = table.Buckets()
	sum.Tags = make([]TagCount, 0, table.Len())

	table.Iter(func(e tagtable.Entry) bool {
		sum.Tags = append(sum.Tags, TagCount{Tag: e.Code, Ranges: e.Count})
		return true
	})

	slices.SortFunc(sum.Tags, func(a, b TagCount) int {
		if c := cmp.Compare(b.Ranges, a.Ranges); c != 0 {
			return c
		}
		return cmp.Compare(a.Tag.String(), b.Tag.String())
	})

	return sum
}

// Total returns the number of ranges in both stores.
func (s Summary) Total() int {
	return s.Ranges4 + s.Ranges6
}

// span6 returns the number of addresses in [lo..hi], saturating at 2^128-1.
func span6(lo, hi uint128.Uint128) uint128.Uint128 {
	n := hi.Sub(lo)
	if n == uint128.Max {
		return n
	}
	return n.Inc()
}
