// Package flatrec encodes range stores as flat sequences of fixed-size
// records.
//
// A record is {lo, hi, tag}: two keys of the store's width followed by a
// 32-bit tag. There is no header, no count and no padding; the number of
// records is the byte length divided by the record size. Records appear in
// ascending order of lo because they are written by an in-order traversal,
// and they are never re-sorted on the way back.
//
// IPv4 and IPv6 stores use separate encodings and separate files:
//
//	V4: [ 4:lo ] [ 4:hi ] [ 4:tag ]                                 12 bytes
//	V6: [ 8:lo.hi|lo.lo ] [ 8 ] [ 8:hi.hi|hi.lo ] [ 8 ] [ 4:tag ]   36 bytes
//
// A 128-bit key is written as two 64-bit halves in the chosen byte order:
// low half first for LittleEndian (the in-memory layout of a native 128-bit
// integer on little-endian machines), high half first for BigEndian.
package flatrec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/aglyzov/go-ipdb/interval"
	"github.com/aglyzov/go-ipdb/tag"
)

const (
	TagSize      = 4
	KeySizeV4    = 4
	KeySizeV6    = 16
	RecordSizeV4 = 2*KeySizeV4 + TagSize
	RecordSizeV6 = 2*KeySizeV6 + TagSize
)

var (
	ErrShortRecord = errors.New("flatrec: data length is not a multiple of the record size")
	ErrOrder       = errors.New("flatrec: unknown byte order")
)

type Order byte

const (
	LittleEndian Order = iota
	BigEndian
)

// ParseOrder accepts "little" (also "le", "") and "big" ("be").
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "little", "le":
		return LittleEndian, nil
	case "big", "be":
		return BigEndian, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrOrder, s)
}

func (o Order) String() string {
	if o == BigEndian {
		return "big"
	}
	return "little"
}

func (o Order) binary() binary.ByteOrder {
	if o == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Codec converts ranges with keys of type K to and from records.
type Codec[K interval.Key[K]] struct {
	order   binary.ByteOrder
	keySize int
	putKey  func(binary.ByteOrder, []byte, K)
	getKey  func(binary.ByteOrder, []byte) K
}

// V4 returns the codec of 32-bit stores.
func V4(order Order) *Codec[interval.V4] {
	return &Codec[interval.V4]{
		order:   order.binary(),
		keySize: KeySizeV4,
		putKey: func(bo binary.ByteOrder, b []byte, k interval.V4) {
			bo.PutUint32(b, uint32(k))
		},
		getKey: func(bo binary.ByteOrder, b []byte) interval.V4 {
			return interval.V4(bo.Uint32(b))
		},
	}
}

// V6 returns the codec of 128-bit stores.
func V6(order Order) *Codec[interval.V6] {
	// index of the high and the low half within a key
	hi, lo := 0, 8
	if order == LittleEndian {
		hi, lo = 8, 0
	}

	return &Codec[interval.V6]{
		order:   order.binary(),
		keySize: KeySizeV6,
		putKey: func(bo binary.ByteOrder, b []byte, k interval.V6) {
			bo.PutUint64(b[hi:], k.Hi)
			bo.PutUint64(b[lo:], k.Lo)
		},
		getKey: func(bo binary.ByteOrder, b []byte) interval.V6 {
			return interval.V6{
				Hi: bo.Uint64(b[hi:]),
				Lo: bo.Uint64(b[lo:]),
			}
		},
	}
}

// RecordSize returns the number of bytes per record.
func (c *Codec[K]) RecordSize() int {
	return 2*c.keySize + TagSize
}

// Count returns the number of whole records in size bytes.
func (c *Codec[K]) Count(size int64) int {
	return int(size / int64(c.RecordSize()))
}

// PutRecord writes one record into b, which must hold RecordSize bytes.
func (c *Codec[K]) PutRecord(b []byte, r interval.Range[K]) {
	c.putKey(c.order, b, r.Lo)
	c.putKey(c.order, b[c.keySize:], r.Hi)
	c.order.PutUint32(b[2*c.keySize:], uint32(r.Tag))
}

// Record reads one record from b, which must hold RecordSize bytes.
func (c *Codec[K]) Record(b []byte) interval.Range[K] {
	return interval.Range[K]{
		Lo:  c.getKey(c.order, b),
		Hi:  c.getKey(c.order, b[c.keySize:]),
		Tag: tag.Code(c.order.Uint32(b[2*c.keySize:])),
	}
}

// Append appends the records to dst and returns the extended slice.
func (c *Codec[K]) Append(dst []byte, records ...interval.Range[K]) []byte {
	size := c.RecordSize()

	for _, r := range records {
		off := len(dst)
		dst = append(dst, make([]byte, size)...)
		c.PutRecord(dst[off:], r)
	}

	return dst
}

// Encode serializes the records in the given order.
func (c *Codec[K]) Encode(records []interval.Range[K]) []byte {
	return c.Append(make([]byte, 0, len(records)*c.RecordSize()), records...)
}

// EncodeTree serializes a store by an in-order traversal.
func (c *Codec[K]) EncodeTree(t *interval.Tree[K]) []byte {
	var (
		size = c.RecordSize()
		buf  = make([]byte, t.Len()*size)
		off  = 0
	)

	t.Iter(func(r interval.Range[K]) bool {
		c.PutRecord(buf[off:], r)
		off += size
		return true
	})

	return buf
}

// Decode splits data into records. Apart from the length check the data is
// taken as is.
func (c *Codec[K]) Decode(data []byte) ([]interval.Range[K], error) {
	size := c.RecordSize()

	if len(data)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes, record size %d", ErrShortRecord, len(data), size)
	}

	records := make([]interval.Range[K], len(data)/size)

	for i := range records {
		records[i] = c.Record(data[i*size:])
	}

	return records, nil
}
