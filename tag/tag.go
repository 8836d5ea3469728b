// Package tag packs short registry codes (two-letter country codes, segment
// names up to four characters) into an opaque 32-bit word.
//
// The characters are stored in ascending byte order starting from the least
// significant byte, so a code written as a little-endian uint32 reads back
// as its own text ("US" -> 'U','S',0,0).
package tag

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const MaxLen = 4

var ErrInvalid = errors.New("tag: invalid code")

type Code uint32

var upper = cases.Upper(language.Und)

// Parse upper-cases and packs a code of 1..4 ASCII letters or digits.
func Parse(s string) (Code, error) {
	s = upper.String(strings.TrimSpace(s))

	if s == "" || len(s) > MaxLen {
		return 0, ErrInvalid
	}

	var c Code

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !('A' <= ch && ch <= 'Z' || '0' <= ch && ch <= '9') {
			return 0, ErrInvalid
		}
		c |= Code(ch) << (8 * i)
	}

	return c, nil
}

// MustParse is like Parse but panics on an invalid code.
func MustParse(s string) Code {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Code) String() string {
	var (
		buf [MaxLen]byte
		n   int
	)

	for ; n < MaxLen; n++ {
		ch := byte(c >> (8 * n))
		if ch == 0 {
			break
		}
		buf[n] = ch
	}

	return string(buf[:n])
}
