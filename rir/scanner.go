// Package rir reads the delegation statistics files published by the
// Regional Internet Registries (format version 2).
//
// A file is a sequence of '|' separated lines:
//
//	2|arin|20240101|...                            version header
//	arin|*|ipv4|*|61542|summary                    summary
//	arin|US|ipv4|23.0.0.0|1048576|20100910|allocated
//	arin|US|ipv6|2001:400::|32|19990803|allocated
//
// Comments (#) and blank lines may appear anywhere. Only ipv4 and ipv6
// records with a country code are reported.
package rir

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"strconv"
	"strings"

	"github.com/aglyzov/go-ipdb/tag"
	"github.com/aglyzov/go-ipdb/uint128"
)

var (
	ErrVersion = errors.New("rir: unsupported format version")
	ErrFormat  = errors.New("rir: malformed record")
)

type Family byte

const (
	IPv4 Family = 4
	IPv6 Family = 6
)

func (f Family) String() string {
	switch f {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	}
	return "unknown"
}

// Record is one address range assigned to a country. IPv4 bounds occupy the
// low 32 bits of Lo and Hi.
type Record struct {
	Registry string
	Tag      tag.Code
	Family   Family
	Lo, Hi   uint128.Uint128
}

// V4 returns the bounds of an IPv4 record.
func (r Record) V4() (lo, hi uint32) {
	return uint32(r.Lo.Lo), uint32(r.Hi.Lo)
}

// Scanner reads records one by one in the manner of bufio.Scanner.
type Scanner struct {
	sc       *bufio.Scanner
	line     int
	version  string
	registry string
	rec      Record
	err      error
}

func NewScanner(r io.Reader) *Scanner {
	return &Scanner{sc: bufio.NewScanner(r)}
}

// Scan advances to the next record. It returns false at the end of the input
// or on the first error, which Err reports afterwards.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}

	for s.sc.Scan() {
		s.line++

		line := strings.TrimSpace(s.sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		fields := strings.Split(line, "|")

		if s.version == "" {
			if line[0] != '2' {
				s.err = fmt.Errorf("%w: %q", ErrVersion, fields[0])
				return false
			}
			s.version = fields[0]
			if len(fields) > 1 {
				s.registry = fields[1]
			}
			continue
		}

		ok, err := s.parse(fields)
		if err != nil {
			s.err = fmt.Errorf("line %d: %w", s.line, err)
			return false
		}
		if ok {
			return true
		}
	}

	s.err = s.sc.Err()

	return false
}

// parse fills s.rec and reports whether the fields form a wanted record.
func (s *Scanner) parse(fields []string) (bool, error) {
	if len(fields) < 5 {
		return false, fmt.Errorf("%w: %d fields", ErrFormat, len(fields))
	}

	var (
		cc    = fields[1]
		typ   = fields[2]
		start = fields[3]
		value = fields[4]
	)

	if cc == "" || cc == "*" {
		return false, nil // summary or unassigned
	}

	var fam Family

	switch typ {
	case "ipv4":
		fam = IPv4
	case "ipv6":
		fam = IPv6
	default:
		return false, nil
	}

	code, err := tag.Parse(cc)
	if err != nil {
		return false, fmt.Errorf("%w: country %q", ErrFormat, cc)
	}

	addr, err := netip.ParseAddr(start)
	if err != nil || (fam == IPv4) != addr.Is4() {
		return false, fmt.Errorf("%w: %s address %q", ErrFormat, typ, start)
	}

	var lo, hi uint128.Uint128

	if fam == IPv4 {
		a4 := addr.As4()
		lo = uint128.From64(uint64(binary.BigEndian.Uint32(a4[:])))

		count, err := strconv.ParseUint(value, 10, 32)
		if err != nil || count == 0 {
			return false, fmt.Errorf("%w: address count %q", ErrFormat, value)
		}

		hi = lo.Add(uint128.From64(count - 1))
		if hi.Hi != 0 || hi.Lo > 0xFFFF_FFFF {
			return false, fmt.Errorf("%w: %s+%d exceeds the address space", ErrFormat, start, count)
		}
	} else {
		lo = uint128.FromBytes(addr.As16())

		prefix, err := strconv.ParseUint(value, 10, 8)
		if err != nil || prefix > 128 {
			return false, fmt.Errorf("%w: prefix length %q", ErrFormat, value)
		}

		hi = lo.Add(uint128.One.Shl(uint(128 - prefix)).Dec())
		if hi.Lt(lo) {
			return false, fmt.Errorf("%w: %s/%d exceeds the address space", ErrFormat, start, prefix)
		}
	}

	if lo.IsZero() {
		return false, nil
	}

	s.rec = Record{
		Registry: fields[0],
		Tag:      code,
		Family:   fam,
		Lo:       lo,
		Hi:       hi,
	}

	return true, nil
}

// Record returns the record found by the last successful Scan.
func (s *Scanner) Record() Record {
	return s.rec
}

func (s *Scanner) Err() error {
	return s.err
}

// Version returns the format version from the header, empty until read.
func (s *Scanner) Version() string {
	return s.version
}

// Registry returns the registry named in the header.
func (s *Scanner) Registry() string {
	return s.registry
}

// Line returns the number of lines consumed.
func (s *Scanner) Line() int {
	return s.line
}
