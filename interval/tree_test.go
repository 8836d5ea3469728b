package interval

import (
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aglyzov/go-ipdb/avl"
	"github.com/aglyzov/go-ipdb/tag"
	"github.com/aglyzov/go-ipdb/uint128"
)

const seed = 1234567890

var (
	tagUS = tag.MustParse("US")
	tagCA = tag.MustParse("CA")
	tagX  = tag.MustParse("X")
	tagY  = tag.MustParse("Y")
)

// checkStore verifies tree balance, ascending disjoint order and that no two
// touching neighbours share a tag.
func checkStore[K Key[K]](t *testing.T, s *Tree[K]) []Range[K] {
	t.Helper()

	checkBalance(t, s.Root())

	records := s.Serialize()
	require.Len(t, records, s.Len())

	for i, r := range records {
		require.LessOrEqual(t, r.Lo.Cmp(r.Hi), 0, "inverted range %v", r)

		if i == 0 {
			continue
		}

		prev := records[i-1]
		require.Less(t, prev.Hi.Cmp(r.Lo), 0, "overlap %v %v", prev, r)

		if prev.Tag == r.Tag {
			require.NotEqual(t, prev.Hi.Inc(), r.Lo, "unmerged neighbours %v %v", prev, r)
		}
	}

	return records
}

func checkBalance[T any](t *testing.T, n *avl.Node[T]) int {
	t.Helper()

	if n == nil {
		return 0
	}

	lh := checkBalance(t, n.Left())
	rh := checkBalance(t, n.Right())

	require.Equal(t, rh-lh, n.Balance())
	require.LessOrEqual(t, rh-lh, 1)
	require.GreaterOrEqual(t, rh-lh, -1)

	return 1 + max(lh, rh)
}

func r4(lo, hi uint32, code tag.Code) Range[V4] {
	return Range[V4]{Lo: V4(lo), Hi: V4(hi), Tag: code}
}

func TestUpsert(t *testing.T) {
	t.Parallel()

	for _, tc := range []*struct {
		name   string
		input  []Range[V4]
		expect []Range[V4]
		delta  []int
	}{
		{
			"disjoint",
			[]Range[V4]{r4(100, 200, tagUS), r4(500, 600, tagUS), r4(300, 400, tagCA)},
			[]Range[V4]{r4(100, 200, tagUS), r4(300, 400, tagCA), r4(500, 600, tagUS)},
			[]int{1, 1, 1},
		},
		{
			"overlap same tag",
			[]Range[V4]{r4(10, 20, tagX), r4(15, 25, tagX)},
			[]Range[V4]{r4(10, 25, tagX)},
			[]int{1, 0},
		},
		{
			"adjacent other tag",
			[]Range[V4]{r4(10, 20, tagX), r4(21, 30, tagY)},
			[]Range[V4]{r4(10, 20, tagX), r4(21, 30, tagY)},
			[]int{1, 1},
		},
		{
			"adjacent same tag",
			[]Range[V4]{r4(10, 20, tagX), r4(21, 30, tagX)},
			[]Range[V4]{r4(10, 30, tagX)},
			[]int{1, 0},
		},
		{
			"adjacent both sides",
			[]Range[V4]{r4(10, 20, tagX), r4(31, 40, tagX), r4(21, 30, tagX)},
			[]Range[V4]{r4(10, 40, tagX)},
			[]int{1, 1, -1},
		},
		{
			"overlap other tag is absorbed",
			[]Range[V4]{r4(10, 20, tagX), r4(15, 25, tagY)},
			[]Range[V4]{r4(10, 25, tagY)},
			[]int{1, 0},
		},
		{
			"covering several",
			[]Range[V4]{r4(10, 20, tagX), r4(30, 40, tagY), r4(50, 60, tagX), r4(0, 100, tagUS)},
			[]Range[V4]{r4(0, 100, tagUS)},
			[]int{1, 1, 1, -2},
		},
		{
			"covered",
			[]Range[V4]{r4(0, 100, tagX), r4(40, 50, tagX)},
			[]Range[V4]{r4(0, 100, tagX)},
			[]int{1, 0},
		},
		{
			"absorbed union touches same tag",
			[]Range[V4]{r4(0, 9, tagY), r4(10, 20, tagX), r4(15, 16, tagY)},
			[]Range[V4]{r4(0, 20, tagY)},
			[]int{1, 1, -1},
		},
		{
			"full domain",
			[]Range[V4]{r4(0, 1<<32-1, tagX), r4(7, 7, tagX)},
			[]Range[V4]{r4(0, 1<<32-1, tagX)},
			[]int{1, 0},
		},
	} {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := New[V4](nil)

			for i, r := range tc.input {
				res := s.Upsert(r.Lo, r.Hi, r.Tag)
				require.True(t, res.Inserted)
				assert.Equal(t, tc.delta[i], res.Delta(), "input #%d", i)
			}

			assert.Equal(t, tc.expect, checkStore(t, s))
		})
	}
}

func TestFind(t *testing.T) {
	t.Parallel()

	s := New[V4](nil)
	s.Upsert(100, 200, tagUS)
	s.Upsert(201, 300, tagCA)
	s.Upsert(500, 600, tagUS)

	require.Equal(t, 3, s.Len())

	for _, tc := range []*struct {
		point  V4
		expect Range[V4]
		found  bool
	}{
		{150, r4(100, 200, tagUS), true},
		{100, r4(100, 200, tagUS), true},
		{201, r4(201, 300, tagCA), true},
		{600, r4(500, 600, tagUS), true},
		{400, Range[V4]{}, false},
		{99, Range[V4]{}, false},
		{601, Range[V4]{}, false},
		{0, Range[V4]{}, false},
	} {
		tc := tc

		t.Run(fmt.Sprintf("%d", tc.point), func(t *testing.T) {
			t.Parallel()

			r, ok := s.Find(tc.point)
			assert.Equal(t, tc.found, ok)
			assert.Equal(t, tc.expect, r)

			records := s.Serialize()
			i := Search(tc.point, records)
			if tc.found {
				require.GreaterOrEqual(t, i, 0)
				assert.Equal(t, tc.expect, records[i])
			} else {
				assert.Equal(t, -1, i)
			}
		})
	}
}

func TestFindOverlapping(t *testing.T) {
	t.Parallel()

	s := New[V4](nil)
	s.Upsert(10, 20, tagX)
	s.Upsert(40, 50, tagY)

	for _, tc := range []*struct {
		lo, hi V4
		code   tag.Code
		expect Range[V4]
		found  bool
	}{
		{0, 9, tagY, Range[V4]{}, false},
		{0, 9, tagX, r4(10, 20, tagX), true},
		{21, 39, tagY, r4(40, 50, tagY), true},
		{21, 38, tagY, Range[V4]{}, false},
		{22, 38, tagX, Range[V4]{}, false},
		{15, 15, tagY, r4(10, 20, tagX), true},
		{51, 60, tagY, r4(40, 50, tagY), true},
		{51, 60, tagX, Range[V4]{}, false},
		{0, 100, tagUS, Range[V4]{}, true},
	} {
		tc := tc

		t.Run(fmt.Sprintf("%#v", tc), func(t *testing.T) {
			t.Parallel()

			r, ok := s.FindOverlapping(tc.lo, tc.hi, tc.code)
			require.Equal(t, tc.found, ok)

			if tc.expect != (Range[V4]{}) {
				assert.Equal(t, tc.expect, r)
			}
		})
	}
}

func TestUpsert_FakeData(t *testing.T) {
	t.Parallel()

	var (
		faker = gofakeit.New(seed)
		tags  = []tag.Code{tagUS, tagCA, tagX, tagY}
		s     = New[V4](nil)
		count = 0
	)

	for i := 0; i < 5000; i++ {
		var (
			lo   = V4(faker.Uint32() % 100000)
			hi   = lo + V4(faker.Uint32()%50)
			code = tags[faker.Number(0, len(tags)-1)]
		)

		res := s.Upsert(lo, hi, code)
		require.True(t, res.Inserted)

		count += res.Delta()
		require.Equal(t, count, s.Len())

		for _, p := range []V4{lo, hi, lo + (hi-lo)/2} {
			r, ok := s.Find(p)
			require.True(t, ok, "point %d of [%d..%d]", p, lo, hi)
			require.Equal(t, code, r.Tag)
		}

		if i%500 == 0 {
			checkStore(t, s)
		}
	}

	records := checkStore(t, s)

	// remove every other range and verify the rest still resolve
	for i := 0; i < len(records); i += 2 {
		require.True(t, s.Remove(records[i].Lo))
	}

	checkBalance(t, s.Root())

	for i, r := range records {
		found, ok := s.Find(r.Lo)
		if i%2 == 0 {
			assert.False(t, ok)
		} else {
			assert.True(t, ok)
			assert.Equal(t, r, found)
		}
	}
}

func TestUpsert_V6(t *testing.T) {
	t.Parallel()

	var (
		base = uint128.Uint128{Hi: 0x2001_0db8_0000_0000}
		span = uint128.One.Shl(96).Dec()
		s    = New[V6](nil)
	)

	s.Upsert(base, base.Add(span), tagUS)
	s.Upsert(base.Add(span).Inc(), base.Add(span).Add(span).Inc(), tagUS)

	records := checkStore(t, s)
	require.Len(t, records, 1)
	assert.Equal(t, base, records[0].Lo)
	assert.Equal(t, base.Add(span).Add(span).Inc(), records[0].Hi)

	r, ok := s.Find(base.Add(uint128.From64(12345)))
	require.True(t, ok)
	assert.Equal(t, tagUS, r.Tag)

	_, ok = s.Find(base.Dec())
	assert.False(t, ok)
}

func TestUpsert_PoolLimit(t *testing.T) {
	t.Parallel()

	var (
		pool = avl.NewPool[Range[V4]](2)
		s    = New(pool)
	)

	require.True(t, s.Upsert(10, 20, tagX).Inserted)
	require.True(t, s.Upsert(30, 40, tagX).Inserted)

	res := s.Upsert(50, 60, tagX)
	assert.False(t, res.Inserted)
	assert.Equal(t, 0, res.Delta())
	assert.Equal(t, []Range[V4]{r4(10, 20, tagX), r4(30, 40, tagX)}, checkStore(t, s))

	// merging frees nodes for the union
	res = s.Upsert(15, 35, tagY)
	assert.True(t, res.Inserted)
	assert.Equal(t, -1, res.Delta())
	assert.Equal(t, []Range[V4]{r4(10, 40, tagY)}, checkStore(t, s))
}

func TestFromSorted(t *testing.T) {
	t.Parallel()

	var (
		faker = gofakeit.New(seed)
		s     = New[V4](nil)
	)

	for i := 0; i < 2000; i++ {
		lo := V4(faker.Uint32() >> 1)
		s.Upsert(lo, lo+V4(faker.Uint32()%1000), tag.Code(faker.Number(1, 5)))
	}

	records := checkStore(t, s)

	rebuilt := FromSorted(records, nil)
	require.NotNil(t, rebuilt)
	assert.Equal(t, records, checkStore(t, rebuilt))
	assert.LessOrEqual(t, rebuilt.Height(), s.Height())

	for _, r := range records {
		found, ok := rebuilt.Find(r.Hi)
		require.True(t, ok)
		require.Equal(t, r, found)
	}

	assert.Nil(t, FromSorted(records, avl.NewPool[Range[V4]](len(records)-1)))

	empty := FromSorted[V4](nil, nil)
	require.NotNil(t, empty)
	assert.Equal(t, 0, empty.Len())
}

func TestClear(t *testing.T) {
	t.Parallel()

	pool := avl.NewPool[Range[V4]](0)
	s := New(pool)

	s.Upsert(1, 2, tagX)
	s.Upsert(5, 6, tagY)
	s.Clear()

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, pool.Live())
	assert.Empty(t, s.Serialize())
}
