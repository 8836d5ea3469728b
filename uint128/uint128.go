// Package uint128 implements a portable fixed-width 128-bit unsigned integer.
//
// A Uint128 is a pair of 64-bit words. Every operation wraps modulo 2^128 the
// way native fixed-width arithmetic does; division by zero saturates instead
// of trapping (see DivRem).
package uint128

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"strconv"
)

const (
	wordWidth = 64
	fullWidth = 2 * wordWidth
	mask32    = 1<<32 - 1
)

type Uint128 struct {
	Hi, Lo uint64
}

var (
	Zero = Uint128{}
	One  = Uint128{Lo: 1}
	Max  = Uint128{Hi: ^uint64(0), Lo: ^uint64(0)}
)

// From64 widens a 64-bit word.
func From64(v uint64) Uint128 {
	return Uint128{Lo: v}
}

// FromBytes reads a big-endian 16-byte value such as an IPv6 address.
func FromBytes(b [16]byte) Uint128 {
	return Uint128{
		Hi: binary.BigEndian.Uint64(b[:8]),
		Lo: binary.BigEndian.Uint64(b[8:]),
	}
}

// Bytes returns the big-endian 16-byte form of a.
func (a Uint128) Bytes() (b [16]byte) {
	binary.BigEndian.PutUint64(b[:8], a.Hi)
	binary.BigEndian.PutUint64(b[8:], a.Lo)
	return
}

func (a Uint128) IsZero() bool {
	return a.Hi == 0 && a.Lo == 0
}

// Cmp returns -1, 0 or +1 depending on whether a is less than, equal to or
// greater than b.
func (a Uint128) Cmp(b Uint128) int {
	switch {
	case a.Hi < b.Hi:
		return -1
	case a.Hi > b.Hi:
		return 1
	case a.Lo < b.Lo:
		return -1
	case a.Lo > b.Lo:
		return 1
	}
	return 0
}

func (a Uint128) Lt(b Uint128) bool { return a.Cmp(b) < 0 }
func (a Uint128) Le(b Uint128) bool { return a.Cmp(b) <= 0 }
func (a Uint128) Gt(b Uint128) bool { return a.Cmp(b) > 0 }
func (a Uint128) Ge(b Uint128) bool { return a.Cmp(b) >= 0 }

// Shl shifts a to the left by n bits. Shifting by 128 or more gives zero.
func (a Uint128) Shl(n uint) Uint128 {
	switch {
	case n == 0:
		return a
	case n >= fullWidth:
		return Zero
	case n > wordWidth:
		return Uint128{Hi: a.Lo << (n - wordWidth)}
	case n == wordWidth:
		return Uint128{Hi: a.Lo}
	}
	return Uint128{
		Hi: a.Hi<<n | a.Lo>>(wordWidth-n),
		Lo: a.Lo << n,
	}
}

// Shr shifts a to the right by n bits. Shifting by 128 or more gives zero.
func (a Uint128) Shr(n uint) Uint128 {
	switch {
	case n == 0:
		return a
	case n >= fullWidth:
		return Zero
	case n > wordWidth:
		return Uint128{Lo: a.Hi >> (n - wordWidth)}
	case n == wordWidth:
		return Uint128{Lo: a.Hi}
	}
	return Uint128{
		Hi: a.Hi >> n,
		Lo: a.Lo>>n | a.Hi<<(wordWidth-n),
	}
}

// Inc returns a+1 (Max wraps to Zero).
func (a Uint128) Inc() Uint128 {
	a.Lo++
	if a.Lo == 0 {
		a.Hi++ // carry
	}
	return a
}

// Dec returns a-1 (Zero wraps to Max).
func (a Uint128) Dec() Uint128 {
	if a.Lo == 0 {
		a.Hi-- // borrow
	}
	a.Lo--
	return a
}

func (a Uint128) Add(b Uint128) Uint128 {
	lo := a.Lo + b.Lo
	hi := a.Hi + b.Hi
	if lo < a.Lo {
		hi++ // carry
	}
	return Uint128{Hi: hi, Lo: lo}
}

func (a Uint128) Sub(b Uint128) Uint128 {
	lo := a.Lo - b.Lo
	hi := a.Hi - b.Hi
	if lo > a.Lo {
		hi-- // borrow
	}
	return Uint128{Hi: hi, Lo: lo}
}

// Mul returns the low 128 bits of the full 256-bit product a*b.
func (a Uint128) Mul(b Uint128) Uint128 {
	if a.IsZero() || b.IsZero() {
		return Zero
	}

	hi, lo := mul64(a.Lo, b.Lo)

	// cross terms: only their low words land below bit 128
	hi += a.Lo*b.Hi + a.Hi*b.Lo

	return Uint128{Hi: hi, Lo: lo}
}

// mul64 computes the 128-bit product of two words from four 32-bit partial
// products (schoolbook multiplication).
func mul64(u, v uint64) (hi, lo uint64) {
	var (
		u0, u1 = u >> 32, u & mask32
		v0, v1 = v >> 32, v & mask32
	)

	t := u1 * v1
	w3 := t & mask32
	k := t >> 32

	t = u0*v1 + k
	w2 := t & mask32
	w1 := t >> 32

	t = u1*v0 + w2
	k = t >> 32

	hi = u0*v0 + w1 + k
	lo = t<<32 + w3

	return hi, lo
}

// Div returns the quotient a/b. See DivRem for the zero divisor policy.
func (a Uint128) Div(b Uint128) Uint128 {
	q, _ := a.DivRem(b)
	return q
}

// Rem returns the remainder a%b. See DivRem for the zero divisor policy.
func (a Uint128) Rem(b Uint128) Uint128 {
	_, r := a.DivRem(b)
	return r
}

// LeadingZeros returns the number of leading zero bits in a; 128 for Zero.
func (a Uint128) LeadingZeros() int {
	if a.Hi != 0 {
		return bits.LeadingZeros64(a.Hi)
	}
	return wordWidth + bits.LeadingZeros64(a.Lo)
}

// String formats a in base 10.
func (a Uint128) String() string {
	if a.Hi == 0 {
		return strconv.FormatUint(a.Lo, 10)
	}

	const e19 = 10_000_000_000_000_000_000

	q, r := a.DivRem(From64(e19))

	return q.String() + fmt.Sprintf("%019d", r.Lo)
}
