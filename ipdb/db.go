package ipdb

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"

	"github.com/aglyzov/go-ipdb/flatrec"
	"github.com/aglyzov/go-ipdb/interval"
	"github.com/aglyzov/go-ipdb/tag"
)

// DefaultBasename is where the build tool installs the database.
const DefaultBasename = "/usr/local/etc/ipdb/IPRanges/ipcc"

type Mode byte

const (
	// Bisect searches the loaded records in place.
	Bisect Mode = iota
	// Tree rebuilds balanced stores from the records, for long-lived
	// processes answering many queries.
	Tree
)

// DB answers lookups from loaded record files.
type DB struct {
	mode  Mode
	order flatrec.Order

	v4 []interval.Range[interval.V4]
	v6 []interval.Range[interval.V6]
	t4 *interval.Tree[interval.V4]
	t6 *interval.Tree[interval.V6]
}

type Result struct {
	Addr   netip.Addr
	Lo, Hi netip.Addr
	Tag    tag.Code
}

// String renders a hit as "<addr> in <lo>-<hi> in <TAG>".
func (r Result) String() string {
	return fmt.Sprintf("%s in %s-%s in %s", r.Addr, r.Lo, r.Hi, r.Tag)
}

func New(mode Mode, order flatrec.Order) *DB {
	return &DB{mode: mode, order: order}
}

// Open loads <basename>.v4 and <basename>.v6. Either file may be missing,
// but not both.
func Open(basename string, mode Mode, order flatrec.Order) (*DB, error) {
	db := New(mode, order)

	err4 := db.Load4(basename + SuffixV4)
	if err4 != nil && !errors.Is(err4, fs.ErrNotExist) {
		return nil, err4
	}

	err6 := db.Load6(basename + SuffixV6)
	if err6 != nil && !errors.Is(err6, fs.ErrNotExist) {
		return nil, err6
	}

	if err4 != nil && err6 != nil {
		return nil, fmt.Errorf("no database at %s: %w", basename, err4)
	}

	return db, nil
}

// Load4 replaces the IPv4 records with the content of a file.
func (db *DB) Load4(path string) error {
	records, err := flatrec.V4(db.order).Load(path)
	if err != nil {
		return err
	}

	var t *interval.Tree[interval.V4]
	if db.mode == Tree {
		if t = interval.FromSorted(records, nil); t == nil {
			return fmt.Errorf("%s: %w", path, ErrCapacity)
		}
	}

	db.v4, db.t4 = records, t

	return nil
}

// Load6 replaces the IPv6 records with the content of a file.
func (db *DB) Load6(path string) error {
	records, err := flatrec.V6(db.order).Load(path)
	if err != nil {
		return err
	}

	var t *interval.Tree[interval.V6]
	if db.mode == Tree {
		if t = interval.FromSorted(records, nil); t == nil {
			return fmt.Errorf("%s: %w", path, ErrCapacity)
		}
	}

	db.v6, db.t6 = records, t

	return nil
}

func (db *DB) Len4() int { return len(db.v4) }
func (db *DB) Len6() int { return len(db.v6) }

// Lookup finds the range containing a textual address. It fails only if the
// text is not an address.
func (db *DB) Lookup(s string) (Result, bool, error) {
	addr, err := ParseAddr(s)
	if err != nil {
		return Result{}, false, err
	}

	res, ok := db.LookupAddr(addr)

	return res, ok, nil
}

func (db *DB) LookupAddr(addr netip.Addr) (Result, bool) {
	res := Result{Addr: addr}

	if addr.Is4() {
		r, ok := db.find4(KeyV4(addr))
		if !ok {
			return res, false
		}
		res.Lo, res.Hi, res.Tag = AddrV4(r.Lo), AddrV4(r.Hi), r.Tag
		return res, true
	}

	r, ok := db.find6(KeyV6(addr))
	if !ok {
		return res, false
	}
	res.Lo, res.Hi, res.Tag = AddrV6(r.Lo), AddrV6(r.Hi), r.Tag

	return res, true
}

func (db *DB) find4(k interval.V4) (interval.Range[interval.V4], bool) {
	if db.t4 != nil {
		return db.t4.Find(k)
	}
	if i := interval.Search(k, db.v4); i >= 0 {
		return db.v4[i], true
	}
	return interval.Range[interval.V4]{}, false
}

func (db *DB) find6(k interval.V6) (interval.Range[interval.V6], bool) {
	if db.t6 != nil {
		return db.t6.Find(k)
	}
	if i := interval.Search(k, db.v6); i >= 0 {
		return db.v6[i], true
	}
	return interval.Range[interval.V6]{}, false
}
