package scale

import (
	"math/big"

	"github.com/tos-network/vault-core/errorkinds"
)

// DecodeCompact decodes a SCALE compact integer using the shortest-prefix
// rule: the low two bits of the first byte select single-byte, two-byte,
// four-byte, or big-integer mode.
func (c *Cursor) DecodeCompact() (*big.Int, error) {
	first, err := c.PeekByte()
	if err != nil {
		return nil, errorkinds.Parser(errorkinds.CodeNoCompact, "no byte available for compact prefix")
	}
	switch first & 0b11 {
	case 0b00:
		_, _ = c.DecodeByte()
		return big.NewInt(int64(first >> 2)), nil
	case 0b01:
		b, err := c.take(2)
		if err != nil {
			return nil, errorkinds.Parser(errorkinds.CodeNoCompact, "two-byte compact: %v", err)
		}
		v := uint16(b[0])<<0 | uint16(b[1])<<8
		return big.NewInt(int64(v >> 2)), nil
	case 0b10:
		b, err := c.take(4)
		if err != nil {
			return nil, errorkinds.Parser(errorkinds.CodeNoCompact, "four-byte compact: %v", err)
		}
		v := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		return big.NewInt(int64(v >> 2)), nil
	default: // 0b11: big-integer mode
		lenByte, _ := c.DecodeByte()
		nBytes := int(lenByte>>2) + 4
		raw, err := c.take(nBytes)
		if err != nil {
			return nil, errorkinds.Parser(errorkinds.CodeNoCompact, "bigint compact of %d bytes: %v", nBytes, err)
		}
		le := make([]byte, nBytes)
		for i, v := range raw {
			le[nBytes-1-i] = v
		}
		return new(big.Int).SetBytes(le), nil
	}
}

// DecodeCompactUint64 is a convenience wrapper for the common case of a
// compact that is known to fit in a uint64 (lengths, indices).
func (c *Cursor) DecodeCompactUint64() (uint64, error) {
	v, err := c.DecodeCompact()
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, errorkinds.Parser(errorkinds.CodeNoCompact, "compact value %s overflows uint64", v.String())
	}
	return v.Uint64(), nil
}

// EncodeCompact is the inverse of DecodeCompact, used by crypto/junction
// to encode junction names and by tests asserting round-trips.
func EncodeCompact(v *big.Int) []byte {
	if v.Sign() < 0 {
		panic("scale: EncodeCompact of negative value")
	}
	if v.IsUint64() {
		u := v.Uint64()
		switch {
		case u < 1<<6:
			return []byte{byte(u << 2)}
		case u < 1<<14:
			x := uint16(u<<2) | 0b01
			return []byte{byte(x), byte(x >> 8)}
		case u < 1<<30:
			x := uint32(u<<2) | 0b10
			return []byte{byte(x), byte(x >> 8), byte(x >> 16), byte(x >> 24)}
		}
	}
	be := v.Bytes()
	le := make([]byte, len(be))
	for i, b := range be {
		le[len(be)-1-i] = b
	}
	for len(le) > 0 && len(le) > 4 && le[len(le)-1] == 0 {
		le = le[:len(le)-1]
	}
	if len(le) < 4 {
		padded := make([]byte, 4)
		copy(padded, le)
		le = padded
	}
	prefix := byte((len(le)-4)<<2) | 0b11
	return append([]byte{prefix}, le...)
}

// DecodeStr decodes a compact-length-prefixed UTF-8 string.
func (c *Cursor) DecodeStr() (string, error) {
	n, err := c.DecodeCompactUint64()
	if err != nil {
		return "", err
	}
	b, err := c.take(int(n))
	if err != nil {
		return "", errorkinds.Parser(errorkinds.CodeDataTooShort, "string of declared length %d: %v", n, err)
	}
	return string(b), nil
}

// DecodeBytes decodes a compact-length-prefixed byte vector.
func (c *Cursor) DecodeBytes() ([]byte, error) {
	n, err := c.DecodeCompactUint64()
	if err != nil {
		return nil, err
	}
	b, err := c.take(int(n))
	if err != nil {
		return nil, errorkinds.Parser(errorkinds.CodeDataTooShort, "byte vector of declared length %d: %v", n, err)
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}
