package ipdb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/aglyzov/go-ipdb/interval"
	"github.com/aglyzov/go-ipdb/uint128"
)

var ErrAddress = errors.New("ipdb: invalid address")

// ParseAddr parses dotted IPv4 or colon IPv6 text. IPv4-mapped IPv6
// addresses are returned as IPv4.
func ParseAddr(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %q", ErrAddress, s)
	}
	return addr.Unmap().WithZone(""), nil
}

func KeyV4(addr netip.Addr) interval.V4 {
	a := addr.As4()
	return interval.V4(binary.BigEndian.Uint32(a[:]))
}

func KeyV6(addr netip.Addr) interval.V6 {
	return uint128.FromBytes(addr.As16())
}

func AddrV4(k interval.V4) netip.Addr {
	var a [4]byte
	binary.BigEndian.PutUint32(a[:], uint32(k))
	return netip.AddrFrom4(a)
}

func AddrV6(k interval.V6) netip.Addr {
	return netip.AddrFrom16(k.Bytes())
}

// FormatV4 renders a 32-bit key in dotted form.
func FormatV4(k interval.V4) string {
	return AddrV4(k).String()
}

// FormatV6 renders a 128-bit key in canonical colon form.
func FormatV6(k interval.V6) string {
	return AddrV6(k).String()
}
