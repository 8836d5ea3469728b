package uint128

import "math/bits"

// DivRem returns the quotient and the remainder of a/b.
//
// A zero divisor saturates both results to Max; no panic is raised.
func (a Uint128) DivRem(b Uint128) (q, r Uint128) {
	if b.Hi == 0 {
		if b.Lo == 0 {
			return Max, Max
		}

		if a.Hi < b.Lo {
			// the quotient fits in a single word
			q.Lo, r.Lo = divWord(a.Hi, a.Lo, b.Lo)
			return q, r
		}

		// divide the high word first so the rest cannot overflow
		q.Hi = a.Hi / b.Lo
		q.Lo, r.Lo = divWord(a.Hi%b.Lo, a.Lo, b.Lo)

		return q, r
	}

	// the divisor has two words: estimate the quotient on a normalized
	// divisor and a halved dividend, then correct it by at most one
	var (
		n  = uint(bits.LeadingZeros64(b.Hi))
		v1 = b.Shl(n)
		u1 = a.Shr(1)
	)

	q1, _ := divWord(u1.Hi, u1.Lo, v1.Hi)

	q = From64(q1).Shr(wordWidth - 1 - n)

	if !q.IsZero() {
		q = q.Dec()
	}

	r = a.Sub(q.Mul(b))

	if r.Ge(b) {
		q = q.Inc()
		r = r.Sub(b)
	}

	return q, r
}

// divWord divides the two-word dividend uh:ul by v (Knuth, Algorithm D, with
// 32-bit digits). A zero divisor or a quotient that does not fit a word
// saturates both results.
func divWord(uh, ul, v uint64) (q, r uint64) {
	const (
		maxWord = ^uint64(0)
		base    = 1 << 32
	)

	if v == 0 || uh >= v {
		return maxWord, maxWord
	}

	// normalize the divisor so its top bit is set
	s := uint(bits.LeadingZeros64(v))
	v <<= s

	var (
		vn1 = v >> 32
		vn0 = v & mask32

		un32 = uh << s
		un10 = ul << s
	)

	if s > 0 {
		un32 |= ul >> (wordWidth - s)
	}

	var (
		un1 = un10 >> 32
		un0 = un10 & mask32

		q1   = un32 / vn1
		rhat = un32 - q1*vn1
	)

	// the estimate overshoots by at most two
	for q1 >= base || q1*vn0 > base*rhat+un1 {
		q1--
		rhat += vn1
		if rhat >= base {
			break
		}
	}

	un21 := un32*base + un1 - q1*v

	q0 := un21 / vn1
	rhat = un21 - q0*vn1

	for q0 >= base || q0*vn0 > base*rhat+un0 {
		q0--
		rhat += vn1
		if rhat >= base {
			break
		}
	}

	return q1*base + q0, (un21*base + un0 - q0*v) >> s
}
