package scale

import "github.com/tos-network/vault-core/errorkinds"

// DecodeOption decodes `Option<T>`: byte 0x00 for None, 0x01 followed by
// a T for Some. elem decodes exactly one T from the cursor.
func DecodeOption[T any](c *Cursor, elem func(*Cursor) (T, error)) (*T, error) {
	tag, err := c.DecodeByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0x00:
		return nil, nil
	case 0x01:
		v, err := elem(c)
		if err != nil {
			return nil, err
		}
		return &v, nil
	default:
		return nil, errorkinds.Parser(errorkinds.CodeUnexpectedOptionVariant, "option tag %#x is neither None(0) nor Some(1)", tag)
	}
}

// DecodeVec decodes a compact-length-prefixed sequence of T. An empty
// length prefix yields an empty, non-nil slice rather than an error
// (spec.md §8 boundary property).
func DecodeVec[T any](c *Cursor, elem func(*Cursor) (T, error)) ([]T, error) {
	n, err := c.DecodeCompactUint64()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := elem(c)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// DecodeFixedArray decodes exactly n elements of T with no length
// prefix (SCALE `[T; N]`).
func DecodeFixedArray[T any](c *Cursor, n int, elem func(*Cursor) (T, error)) ([]T, error) {
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		v, err := elem(c)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// DecodeTuple2/3/4 decode SCALE tuples of arity 2-4, the maximum arity
// the textual type database's anchored regex recognizes (spec.md §4.2).
func DecodeTuple2[A, B any](c *Cursor, da func(*Cursor) (A, error), db func(*Cursor) (B, error)) (A, B, error) {
	var a A
	var b B
	a, err := da(c)
	if err != nil {
		return a, b, err
	}
	b, err = db(c)
	return a, b, err
}

func DecodeTuple3[A, B, C2 any](c *Cursor, da func(*Cursor) (A, error), db func(*Cursor) (B, error), dc func(*Cursor) (C2, error)) (A, B, C2, error) {
	var a A
	var b B
	var cc C2
	a, err := da(c)
	if err != nil {
		return a, b, cc, err
	}
	b, err = db(c)
	if err != nil {
		return a, b, cc, err
	}
	cc, err = dc(c)
	return a, b, cc, err
}

func DecodeTuple4[A, B, C2, D any](c *Cursor, da func(*Cursor) (A, error), db func(*Cursor) (B, error), dc func(*Cursor) (C2, error), dd func(*Cursor) (D, error)) (A, B, C2, D, error) {
	var a A
	var b B
	var cc C2
	var d D
	a, err := da(c)
	if err != nil {
		return a, b, cc, d, err
	}
	b, err = db(c)
	if err != nil {
		return a, b, cc, d, err
	}
	cc, err = dc(c)
	if err != nil {
		return a, b, cc, d, err
	}
	d, err = dd(c)
	return a, b, cc, d, err
}
