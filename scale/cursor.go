// Package scale implements C1: SCALE decode/encode of the primitive wire
// types every higher layer (C2-C4) walks over. It is hand-rolled rather
// than built on a generic SCALE library because the spec requires an
// exact, closed error taxonomy per primitive (NoCompact, DataTooShort,
// UnexpectedOptionVariant, ...) and a "remaining tail" threaded through
// every call — neither of which a general-purpose SCALE codec exposes.
// original_source/rust/parser/src/decoding_older.rs and decoding_sci.rs
// hand-roll the same primitives for the same reason; this package mirrors
// their decomposition (fixed-width ints, compacts, option/vec/array/tuple,
// bitvec) one function per primitive.
package scale

import (
	"math/big"

	"github.com/tos-network/vault-core/errorkinds"
)

// Cursor is a forward-only view over a SCALE byte stream. Every decode
// method advances the cursor past what it consumed and returns the
// decoded value directly; callers inspect Remaining()/Empty() themselves
// wherever the spec requires "tail must be empty" assertions (§4.1).
type Cursor struct {
	data []byte
	pos  int
}

// NewCursor wraps b for decoding. b is not copied; callers must not
// mutate it while the cursor is in use.
func NewCursor(b []byte) *Cursor {
	return &Cursor{data: b}
}

// Remaining returns the bytes not yet consumed.
func (c *Cursor) Remaining() []byte {
	return c.data[c.pos:]
}

// Empty reports whether every byte has been consumed.
func (c *Cursor) Empty() bool {
	return c.pos >= len(c.data)
}

// Len reports the number of unconsumed bytes.
func (c *Cursor) Len() int {
	return len(c.data) - c.pos
}

// take returns the next n bytes and advances, or a DataTooShort error.
func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.data) {
		return nil, errorkinds.Parser(errorkinds.CodeDataTooShort, "need %d bytes, have %d", n, c.Len())
	}
	out := c.data[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

// PeekByte returns the next byte without consuming it.
func (c *Cursor) PeekByte() (byte, error) {
	if c.Empty() {
		return 0, errorkinds.Parser(errorkinds.CodeDataTooShort, "need 1 byte, have 0")
	}
	return c.data[c.pos], nil
}

// DecodeByte consumes and returns a single byte.
func (c *Cursor) DecodeByte() (byte, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// DecodeBool decodes a SCALE bool (0x00/0x01).
func (c *Cursor) DecodeBool() (bool, error) {
	b, err := c.DecodeByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, errorkinds.Parser(errorkinds.CodeUnexpectedOptionVariant, "bool byte %#x is neither 0 nor 1", b)
	}
}

// DecodeUint8/16/32/64 decode fixed-width little-endian unsigned ints.
func (c *Cursor) DecodeUint8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Cursor) DecodeUint16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

func (c *Cursor) DecodeUint32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

func (c *Cursor) DecodeUint64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

// DecodeUintN decodes an n-byte little-endian unsigned integer (n in
// {1,2,4,8,16,32} for u8..u128/u256) into a big.Int.
func (c *Cursor) DecodeUintN(n int) (*big.Int, error) {
	b, err := c.take(n)
	if err != nil {
		return nil, err
	}
	le := make([]byte, n)
	for i, v := range b {
		le[n-1-i] = v
	}
	return new(big.Int).SetBytes(le), nil
}

// DecodeIntN decodes an n-byte little-endian two's-complement signed
// integer (n in {1,2,4,8,16,32}) into a big.Int.
func (c *Cursor) DecodeIntN(n int) (*big.Int, error) {
	b, err := c.take(n)
	if err != nil {
		return nil, err
	}
	le := make([]byte, n)
	for i, v := range b {
		le[n-1-i] = v
	}
	u := new(big.Int).SetBytes(le)
	if n > 0 && b[n-1]&0x80 != 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(n*8))
		u.Sub(u, mod)
	}
	return u, nil
}

// DecodeChar decodes a 4-byte UTF-32 scalar value.
func (c *Cursor) DecodeChar() (rune, error) {
	u, err := c.DecodeUint32()
	if err != nil {
		return 0, err
	}
	return rune(u), nil
}

// DecodeArray consumes a fixed-length array of n raw bytes (for the
// common case of byte arrays; composite element arrays are walked by the
// caller one element at a time using the other primitives).
func (c *Cursor) DecodeArray(n int) ([]byte, error) {
	b, err := c.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}
