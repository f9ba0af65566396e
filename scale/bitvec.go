package scale

import (
	"strings"

	"github.com/tos-network/vault-core/errorkinds"
)

// BitOrder selects how bits within a storage word map to sequence
// positions.
type BitOrder int

const (
	Lsb0 BitOrder = iota
	Msb0
)

// StoreType is the backing integer width scale-info declares for a
// BitSequence type.
type StoreType int

const (
	StoreU8 StoreType = 8
	StoreU16 StoreType = 16
	StoreU32 StoreType = 32
	StoreU64 StoreType = 64
)

// DecodeBitVec decodes a length-prefixed bit sequence into a string of
// '0'/'1' characters, one per bit, in logical order. store/order come
// from the resolved BitSequence type (spec.md §4.1).
func (c *Cursor) DecodeBitVec(store StoreType, order BitOrder) (string, error) {
	nbits, err := c.DecodeCompactUint64()
	if err != nil {
		return "", errorkinds.Parser(errorkinds.CodeBitVecFailure, "bit length compact: %v", err)
	}
	if store == StoreU64 {
		// Documented split: some 32-bit-word runtimes encode a u64 store
		// type as two little-endian u32 limbs rather than one u64 word;
		// decode each half independently and concatenate their bit
		// strings so the result is identical on 32- and 64-bit hosts.
		return c.decodeBitVecU64Split(nbits, order)
	}
	width := int(store)
	nwords := (int(nbits) + width - 1) / width
	var b strings.Builder
	remaining := nbits
	for w := 0; w < nwords; w++ {
		word, err := c.readWord(width)
		if err != nil {
			return "", errorkinds.Parser(errorkinds.CodeBitVecFailure, "word %d: %v", w, err)
		}
		take := width
		if uint64(take) > remaining {
			take = int(remaining)
		}
		b.WriteString(bitsOfWord(word, width, take, order))
		remaining -= uint64(take)
	}
	return b.String(), nil
}

func (c *Cursor) decodeBitVecU64Split(nbits uint64, order BitOrder) (string, error) {
	nwords := (int(nbits) + 63) / 64
	var b strings.Builder
	remaining := nbits
	for w := 0; w < nwords; w++ {
		lo, err := c.DecodeUint32()
		if err != nil {
			return "", errorkinds.Parser(errorkinds.CodeBitVecFailure, "u64-split low limb %d: %v", w, err)
		}
		hi, err := c.DecodeUint32()
		if err != nil {
			return "", errorkinds.Parser(errorkinds.CodeBitVecFailure, "u64-split high limb %d: %v", w, err)
		}
		take := 64
		if uint64(take) > remaining {
			take = int(remaining)
		}
		loBits := 32
		if loBits > take {
			loBits = take
		}
		hiBits := take - loBits
		b.WriteString(bitsOfWord(uint64(lo), 32, loBits, order))
		if hiBits > 0 {
			b.WriteString(bitsOfWord(uint64(hi), 32, hiBits, order))
		}
		remaining -= uint64(take)
	}
	return b.String(), nil
}

func (c *Cursor) readWord(width int) (uint64, error) {
	switch width {
	case 8:
		v, err := c.DecodeUint8()
		return uint64(v), err
	case 16:
		v, err := c.DecodeUint16()
		return uint64(v), err
	case 32:
		v, err := c.DecodeUint32()
		return uint64(v), err
	default:
		return 0, errorkinds.Parser(errorkinds.CodeNotBitStoreType, "unsupported bit store width %d", width)
	}
}

func bitsOfWord(word uint64, width, take int, order BitOrder) string {
	var b strings.Builder
	for i := 0; i < take; i++ {
		var bit uint64
		switch order {
		case Lsb0:
			bit = (word >> uint(i)) & 1
		case Msb0:
			bit = (word >> uint(width-1-i)) & 1
		}
		if bit == 1 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// ParseStoreType maps a scale-info BitSequence ident to a StoreType,
// failing with NotBitStoreType per spec.md §4.3.
func ParseStoreType(ident string) (StoreType, error) {
	switch ident {
	case "u8", "U8":
		return StoreU8, nil
	case "u16", "U16":
		return StoreU16, nil
	case "u32", "U32":
		return StoreU32, nil
	case "u64", "U64":
		return StoreU64, nil
	default:
		return 0, errorkinds.Parser(errorkinds.CodeNotBitStoreType, "unrecognized bit store type %q", ident)
	}
}

// ParseBitOrder maps a scale-info BitSequence order ident to a BitOrder,
// failing with NotBitOrderType per spec.md §4.3.
func ParseBitOrder(ident string) (BitOrder, error) {
	switch ident {
	case "Lsb0":
		return Lsb0, nil
	case "Msb0":
		return Msb0, nil
	default:
		return 0, errorkinds.Parser(errorkinds.CodeNotBitOrderType, "unrecognized bit order %q", ident)
	}
}
