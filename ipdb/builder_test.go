package ipdb

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aglyzov/go-ipdb/flatrec"
	"github.com/aglyzov/go-ipdb/interval"
	"github.com/aglyzov/go-ipdb/rir"
	"github.com/aglyzov/go-ipdb/tag"
	"github.com/aglyzov/go-ipdb/uint128"
)

const seed = 1234567890

var (
	tagUS = tag.MustParse("US")
	tagCA = tag.MustParse("CA")
	tagEU = tag.MustParse("EU")
	tagDE = tag.MustParse("DE")
)

const arin = `2|arin|1700000000|6|19830101|20240101|-0500
arin|*|ipv4|*|4|summary
arin|US|ipv4|100.0.0.0|256|20100910|allocated
arin|US|ipv4|100.0.1.0|256|20100910|allocated
arin|CA|ipv4|100.0.2.0|512|20100910|allocated
arin|US|ipv4|100.0.8.0|1024|20100910|allocated
arin|US|ipv6|2001:400::|32|19990803|allocated
arin|CA|ipv6|2001:401::|32|19990803|allocated
`

const ripe = `2.3|ripencc|1700000000|3|19830101|20240101|+0100
ripencc|DE|ipv4|5.0.0.0|65536|20100910|allocated
ripencc|EU|ipv4|6.0.0.0|256|20100910|allocated
ripencc|EU|ipv6|2a00::|12|20100910|allocated
`

func TestBuilder_Add(t *testing.T) {
	t.Parallel()

	b := NewBuilder(Options{})

	for _, tc := range []struct {
		lo, hi uint32
		code   tag.Code
		delta  int
	}{
		{100, 200, tagUS, 1},
		{201, 300, tagCA, 1},
		{500, 600, tagUS, 1},
		{301, 499, tagUS, 0}, // CA keeps its range, the new one joins 500-600
		{150, 250, tagDE, -1},
	} {
		d, err := b.Add4(interval.V4(tc.lo), interval.V4(tc.hi), tc.code)
		require.NoError(t, err)
		assert.Equal(t, tc.delta, d, "%#v", tc)
	}

	assert.Equal(t, b.V4().Len(), b.Count())
	assert.Equal(t, []interval.Range[interval.V4]{
		{Lo: 100, Hi: 300, Tag: tagDE},
		{Lo: 301, Hi: 600, Tag: tagUS},
	}, b.V4().Serialize())
}

func TestBuilder_Skip(t *testing.T) {
	t.Parallel()

	b := NewBuilder(Options{Skip: []tag.Code{tagEU}})

	n, err := b.Ingest(strings.NewReader(ripe))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, b.Count())
	assert.Equal(t, 0, b.V6().Len())

	_, ok := b.V4().Find(interval.V4(6 << 24))
	assert.False(t, ok)
}

func TestBuilder_Capacity(t *testing.T) {
	t.Parallel()

	b := NewBuilder(Options{MaxNodes: 2})

	_, err := b.Add4(10, 20, tagUS)
	require.NoError(t, err)
	_, err = b.Add4(30, 40, tagUS)
	require.NoError(t, err)

	d, err := b.Add4(50, 60, tagCA)
	assert.ErrorIs(t, err, ErrCapacity)
	assert.Equal(t, 0, d)
	assert.Equal(t, 2, b.Count())

	// merging frees the nodes it needs
	d, err = b.Add4(20, 30, tagUS)
	require.NoError(t, err)
	assert.Equal(t, -1, d)

	// US ranges fit into the freed node, CA does not
	_, err = b.Ingest(strings.NewReader(arin))
	assert.ErrorIs(t, err, ErrCapacity)
	assert.Contains(t, err.Error(), "line 5")
	assert.Equal(t, 2, b.V4().Len())

	_, err = b.Add6(uint128.One, uint128.From64(5), tagCA)
	require.NoError(t, err)

	_, err = b.Add6(uint128.From64(10), uint128.From64(15), tagCA)
	require.NoError(t, err)

	_, err = b.Add6(uint128.From64(20), uint128.From64(25), tagCA)
	assert.ErrorIs(t, err, ErrCapacity)
}

func TestBuilder_Ingest(t *testing.T) {
	t.Parallel()

	var (
		logs bytes.Buffer
		b    = NewBuilder(Options{
			Logger: slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
			Skip:   []tag.Code{tagEU},
		})
	)

	n1, err := b.Ingest(strings.NewReader(arin))
	require.NoError(t, err)
	n2, err := b.Ingest(strings.NewReader(ripe))
	require.NoError(t, err)

	// the first two US ranges touch and merge
	assert.Equal(t, 5, n1)
	assert.Equal(t, 1, n2)
	assert.Equal(t, 6, b.Count())
	assert.Equal(t, 4, b.V4().Len())
	assert.Equal(t, 2, b.V6().Len())

	r, ok := b.V4().Find(KeyV4(must(ParseAddr("100.0.1.77"))))
	require.True(t, ok)
	assert.Equal(t, "100.0.0.0", FormatV4(r.Lo))
	assert.Equal(t, "100.0.1.255", FormatV4(r.Hi))
	assert.Equal(t, tagUS, r.Tag)

	assert.Contains(t, logs.String(), "registry=arin")
	assert.Contains(t, logs.String(), "registry=ripencc")

	_, err = b.Ingest(strings.NewReader("1|old\n"))
	assert.ErrorIs(t, err, rir.ErrVersion)

	_, err = b.Ingest(strings.NewReader("2|x\nx|US|ipv4|1.2.3.4|0|x|allocated\n"))
	assert.ErrorIs(t, err, rir.ErrFormat)
}

func TestBuilder_Summary(t *testing.T) {
	t.Parallel()

	b := NewBuilder(Options{})

	_, err := b.Ingest(strings.NewReader(arin))
	require.NoError(t, err)
	_, err = b.Ingest(strings.NewReader(ripe))
	require.NoError(t, err)

	sum := b.Summary()

	assert.Equal(t, 5, sum.Ranges4)
	assert.Equal(t, 3, sum.Ranges6)
	assert.Equal(t, b.Count(), sum.Total())
	assert.Equal(t, uint64(512+512+1024+65536+256), sum.Addresses4)
	assert.Equal(t, uint128.One.Shl(116).Add(uint128.One.Shl(97)), sum.Addresses6)
	assert.Equal(t, 4, sum.Buckets)

	assert.Equal(t, []TagCount{
		{Tag: tagUS, Ranges: 3},
		{Tag: tagCA, Ranges: 2},
		{Tag: tagEU, Ranges: 2},
		{Tag: tagDE, Ranges: 1},
	}, sum.Tags)
}

func TestBuilder_SaveOpen(t *testing.T) {
	t.Parallel()

	for _, tc := range []*struct {
		mode  Mode
		order flatrec.Order
	}{
		{Bisect, flatrec.LittleEndian},
		{Tree, flatrec.LittleEndian},
		{Bisect, flatrec.BigEndian},
		{Tree, flatrec.BigEndian},
	} {
		tc := tc

		t.Run(fmt.Sprintf("%#v", tc), func(t *testing.T) {
			t.Parallel()

			var (
				base = filepath.Join(t.TempDir(), "ipcc")
				b    = NewBuilder(Options{Order: tc.order, Skip: []tag.Code{tagEU}})
			)

			_, err := b.Ingest(strings.NewReader(arin))
			require.NoError(t, err)
			_, err = b.Ingest(strings.NewReader(ripe))
			require.NoError(t, err)
			require.NoError(t, b.Save(base))

			st, err := os.Stat(base + SuffixV4)
			require.NoError(t, err)
			assert.EqualValues(t, 4*flatrec.RecordSizeV4, st.Size())

			st, err = os.Stat(base + SuffixV6)
			require.NoError(t, err)
			assert.EqualValues(t, 2*flatrec.RecordSizeV6, st.Size())

			db, err := Open(base, tc.mode, tc.order)
			require.NoError(t, err)
			assert.Equal(t, 4, db.Len4())
			assert.Equal(t, 2, db.Len6())

			for _, q := range []*struct {
				addr   string
				expect string
			}{
				{"100.0.0.1", "100.0.0.1 in 100.0.0.0-100.0.1.255 in US"},
				{"100.0.2.0", "100.0.2.0 in 100.0.2.0-100.0.3.255 in CA"},
				{"100.0.11.255", "100.0.11.255 in 100.0.8.0-100.0.11.255 in US"},
				{"5.0.255.255", "5.0.255.255 in 5.0.0.0-5.0.255.255 in DE"},
				{"2001:400::1", "2001:400::1 in 2001:400::-2001:400:ffff:ffff:ffff:ffff:ffff:ffff in US"},
				{"2001:401:ffff::", "2001:401:ffff:: in 2001:401::-2001:401:ffff:ffff:ffff:ffff:ffff:ffff in CA"},
				{"100.0.4.0", ""},
				{"6.0.0.1", ""},
				{"2a00::1", ""},
				{"::1", ""},
			} {
				res, ok, err := db.Lookup(q.addr)
				require.NoError(t, err)

				if q.expect == "" {
					assert.False(t, ok, q.addr)
					continue
				}
				require.True(t, ok, q.addr)
				assert.Equal(t, q.expect, res.String())
			}

			_, _, err = db.Lookup("nonsense")
			assert.ErrorIs(t, err, ErrAddress)
		})
	}
}

func TestOpen_Missing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "none"), Bisect, flatrec.LittleEndian)
	assert.ErrorIs(t, err, os.ErrNotExist)

	// a lone IPv4 file is enough
	base := filepath.Join(dir, "v4only")
	require.NoError(t, os.WriteFile(base+SuffixV4, make([]byte, flatrec.RecordSizeV4), 0o644))

	db, err := Open(base, Bisect, flatrec.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, 1, db.Len4())
	assert.Equal(t, 0, db.Len6())

	// a truncated file is not
	require.NoError(t, os.WriteFile(base+SuffixV6, make([]byte, 7), 0o644))

	_, err = Open(base, Tree, flatrec.LittleEndian)
	assert.ErrorIs(t, err, flatrec.ErrShortRecord)
}

func TestDB_FakeData(t *testing.T) {
	t.Parallel()

	var (
		faker = gofakeit.New(seed)
		b     = NewBuilder(Options{})
		base  = filepath.Join(t.TempDir(), "fake")
	)

	for i := 0; i < 3000; i++ {
		lo := interval.V4(faker.Uint32() >> 1)
		_, err := b.Add4(lo, lo+interval.V4(faker.Number(0, 4095)), tag.MustParse(faker.CountryAbr()))
		require.NoError(t, err)
	}

	require.NoError(t, b.Save(base))

	bisect, err := Open(base, Bisect, flatrec.LittleEndian)
	require.NoError(t, err)
	tree, err := Open(base, Tree, flatrec.LittleEndian)
	require.NoError(t, err)

	for i := 0; i < 3000; i++ {
		addr := AddrV4(interval.V4(faker.Uint32() >> 1))

		want, wantOK := b.V4().Find(KeyV4(addr))

		for _, db := range []*DB{bisect, tree} {
			res, ok := db.LookupAddr(addr)
			require.Equal(t, wantOK, ok, addr.String())

			if ok {
				require.Equal(t, AddrV4(want.Lo), res.Lo)
				require.Equal(t, AddrV4(want.Hi), res.Hi)
				require.Equal(t, want.Tag, res.Tag)
			}
		}
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
