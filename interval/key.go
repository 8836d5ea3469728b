package interval

import "github.com/aglyzov/go-ipdb/uint128"

// Key is a fixed-width unsigned range bound.
type Key[K any] interface {
	comparable

	// Cmp returns -1, 0 or +1 comparing the receiver to the argument.
	Cmp(K) int
	// Inc returns the successor, wrapping at the maximum value.
	Inc() K
}

// V4 is a 32-bit key (an IPv4 address).
type V4 uint32

func (a V4) Cmp(b V4) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (a V4) Inc() V4 { return a + 1 }

// V6 is a 128-bit key (an IPv6 address).
type V6 = uint128.Uint128
