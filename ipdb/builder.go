// Package ipdb builds and queries the consolidated country database: two
// range stores, one per address family, filled from RIR statistics files and
// written as flat record files <basename>.v4 and <basename>.v6.
package ipdb

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aglyzov/go-ipdb/avl"
	"github.com/aglyzov/go-ipdb/flatrec"
	"github.com/aglyzov/go-ipdb/interval"
	"github.com/aglyzov/go-ipdb/rir"
	"github.com/aglyzov/go-ipdb/tag"
	"github.com/aglyzov/go-ipdb/tagtable"
)

const (
	SuffixV4 = ".v4"
	SuffixV6 = ".v6"
)

var ErrCapacity = errors.New("ipdb: store capacity exhausted")

type Options struct {
	Logger   *slog.Logger
	Skip     []tag.Code    // tags never stored
	MaxNodes int           // node budget per store, 0 means unlimited
	Order    flatrec.Order // byte order of the written files
}

// Builder merges address ranges into the two stores. It is not safe for
// concurrent use.
type Builder struct {
	v4    *interval.Tree[interval.V4]
	v6    *interval.Tree[interval.V6]
	skip  *tagtable.Table
	count int
	order flatrec.Order
	log   *slog.Logger
}

func NewBuilder(opts Options) *Builder {
	b := &Builder{
		v4:    interval.New(avl.NewPool[interval.Range[interval.V4]](opts.MaxNodes)),
		v6:    interval.New(avl.NewPool[interval.Range[interval.V6]](opts.MaxNodes)),
		skip:  tagtable.New(),
		order: opts.Order,
		log:   opts.Logger,
	}

	if b.log == nil {
		b.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	for _, code := range opts.Skip {
		b.skip.Store(code, 0)
	}

	return b
}

// Count returns the running total of range-count deltas, which equals the
// number of stored ranges.
func (b *Builder) Count() int {
	return b.count
}

func (b *Builder) V4() *interval.Tree[interval.V4] {
	return b.v4
}

func (b *Builder) V6() *interval.Tree[interval.V6] {
	return b.v6
}

// Add4 merges an IPv4 range into the store and returns the change of the
// number of stored ranges. A skipped tag changes nothing.
func (b *Builder) Add4(lo, hi interval.V4, code tag.Code) (int, error) {
	if b.skip.Has(code) {
		return 0, nil
	}

	res := b.v4.Upsert(lo, hi, code)
	b.count += res.Delta()

	if !res.Inserted {
		return res.Delta(), fmt.Errorf("%w: %s-%s", ErrCapacity, FormatV4(lo), FormatV4(hi))
	}

	return res.Delta(), nil
}

// Add6 is Add4 for IPv6 ranges.
func (b *Builder) Add6(lo, hi interval.V6, code tag.Code) (int, error) {
	if b.skip.Has(code) {
		return 0, nil
	}

	res := b.v6.Upsert(lo, hi, code)
	b.count += res.Delta()

	if !res.Inserted {
		return res.Delta(), fmt.Errorf("%w: %s-%s", ErrCapacity, FormatV6(lo), FormatV6(hi))
	}

	return res.Delta(), nil
}

// Add dispatches a parsed record to its store.
func (b *Builder) Add(rec rir.Record) (int, error) {
	if rec.Family == rir.IPv4 {
		lo, hi := rec.V4()
		return b.Add4(interval.V4(lo), interval.V4(hi), rec.Tag)
	}
	return b.Add6(rec.Lo, rec.Hi, rec.Tag)
}

// Ingest feeds every record of an RIR statistics stream and returns the
// accumulated delta.
func (b *Builder) Ingest(r io.Reader) (int, error) {
	var (
		s     = rir.NewScanner(r)
		delta = 0
	)

	for s.Scan() {
		d, err := b.Add(s.Record())
		delta += d
		if err != nil {
			return delta, fmt.Errorf("line %d: %w", s.Line(), err)
		}
	}

	if err := s.Err(); err != nil {
		return delta, err
	}

	b.log.Debug("ingested", "registry", s.Registry(), "version", s.Version(), "lines", s.Line(), "delta", delta)

	return delta, nil
}

// IngestFile is Ingest for a named file.
func (b *Builder) IngestFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	b.log.Debug("reading", "file", filepath.Base(path))

	delta, err := b.Ingest(f)
	if err != nil {
		return delta, fmt.Errorf("%s: %w", path, err)
	}

	return delta, nil
}

// Save writes <basename>.v4 and <basename>.v6.
func (b *Builder) Save(basename string) error {
	if err := flatrec.V4(b.order).Save(basename+SuffixV4, b.v4); err != nil {
		return err
	}

	if err := flatrec.V6(b.order).Save(basename+SuffixV6, b.v6); err != nil {
		return err
	}

	sum := b.Summary()

	b.log.Info("saved",
		"basename", basename,
		"order", b.order,
		"ranges4", sum.Ranges4,
		"ranges6", sum.Ranges6,
		"tags", len(sum.Tags),
	)

	return nil
}

// Reset drops all stored ranges and the running total.
func (b *Builder) Reset() {
	b.v4.Clear()
	b.v6.Clear()
	b.count = 0
}
