package decoder

import (
	"fmt"
	"math/big"

	"github.com/tos-network/vault-core/crypto/ss58"
	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/internal/cardschema"
	"github.com/tos-network/vault-core/scale"
	"github.com/tos-network/vault-core/typeresolve"
)

// remarkFields are rendered as UTF-8 strings even when typed as byte
// sequences (spec.md §4.3).
var remarkFields = map[string]bool{
	"remark":                true,
	"remark_with_event":     true,
}

// Walk decodes one value of type ref from c, emitting cards into deck at
// the given indent. st carries the call expectation and the
// compact/balance flags into this value; nothing is handed back to the
// caller but an error.
func Walk(c *scale.Cursor, r typeresolve.Resolver, ref typeresolve.Ref, deck *cardschema.Deck, indent uint32, ctx *Context, st State) error {
	resolved, err := r.Resolve(ref)
	if err != nil {
		return err
	}
	return walkResolved(c, r, resolved, deck, indent, ctx, st)
}

func walkResolved(c *scale.Cursor, r typeresolve.Resolver, resolved typeresolve.Resolved, deck *cardschema.Deck, indent uint32, ctx *Context, st State) error {
	// Call-expectation transitions on entering a type whose Ident is "Call".
	if resolved.Ident == "Call" {
		switch st.CallExpectation {
		case ExpectNone:
			st.CallExpectation = ExpectPallet
		case ExpectPallet:
			st.CallExpectation = ExpectMethod
		case ExpectMethod:
			// stays Method; nested calls re-enter at Method per spec.
		}
	}

	switch resolved.Kind {
	case typeresolve.KindCompact:
		return walkCompact(c, r, resolved, deck, indent, ctx, st)
	case typeresolve.KindComposite:
		return walkComposite(c, r, resolved, deck, indent, ctx, st)
	case typeresolve.KindVariant:
		return walkVariant(c, r, resolved, deck, indent, ctx, st)
	case typeresolve.KindSequence:
		return walkSequence(c, r, resolved, deck, indent, ctx, st)
	case typeresolve.KindArray:
		return walkArray(c, r, resolved, deck, indent, ctx, st)
	case typeresolve.KindTuple:
		return walkTuple(c, r, resolved, deck, indent, ctx, st)
	case typeresolve.KindBitSequence:
		return walkBitSequence(c, r, resolved, deck, indent, ctx)
	case typeresolve.KindPrimitive:
		return walkPrimitive(c, resolved, deck, indent, ctx, st)
	default:
		return errorkinds.Parser(errorkinds.CodeUnknownType, "unrecognized resolved kind for %q", resolved.Ident)
	}
}

func walkCompact(c *scale.Cursor, r typeresolve.Resolver, resolved typeresolve.Resolved, deck *cardschema.Deck, indent uint32, ctx *Context, st State) error {
	inner, err := r.Resolve(resolved.Element)
	if err != nil {
		return err
	}
	if inner.Kind == typeresolve.KindComposite && len(inner.Fields) > 1 {
		return errorkinds.Parser(errorkinds.CodeUnexpectedCompactInsides, "compact wraps composite %q with %d fields (max 1)", inner.Ident, len(inner.Fields))
	}
	if inner.Kind == typeresolve.KindComposite && len(inner.Fields) == 1 {
		return walkResolved(c, r, inner, deck, indent, ctx, withCompact(st))
	}
	if inner.Kind != typeresolve.KindPrimitive {
		return errorkinds.Parser(errorkinds.CodeCompactNotPrimitive, "compact of non-primitive %q", inner.Ident)
	}
	return walkResolved(c, r, inner, deck, indent, ctx, withCompact(st))
}

func withCompact(st State) State {
	st.CompactFlag = true
	return st
}

func walkComposite(c *scale.Cursor, r typeresolve.Resolver, resolved typeresolve.Resolved, deck *cardschema.Deck, indent uint32, ctx *Context, st State) error {
	// AccountId32 special ident (portable backend): render as a base58
	// address using the network prefix rather than raw bytes.
	if resolved.Ident == "AccountId32" {
		return walkAccountID32(c, deck, indent, ctx)
	}
	elideWrapper := len(resolved.Fields) == 1 && resolved.Fields[0].Name == ""
	childIndent := indent
	if !elideWrapper {
		childIndent = indent + 1
	}
	for i, f := range resolved.Fields {
		fieldExpectation := st.CallExpectation
		if st.CallExpectation == ExpectMethod {
			fieldExpectation = ExpectNone
		}
		if !elideWrapper {
			emitFieldHeader(deck, indent, i, f)
		}
		childState := State{CallExpectation: fieldExpectation}
		if scale.IsBalanceFieldName(f.TypePath) {
			childState.BalanceFlag = true
		}
		if remarkFields[f.Name] {
			if err := walkRemarkBytes(c, deck, childIndent); err != nil {
				return err
			}
			continue
		}
		if err := Walk(c, r, f.Type, deck, childIndent, ctx, childState); err != nil {
			return err
		}
	}
	return nil
}

func emitFieldHeader(deck *cardschema.Deck, indent uint32, index int, f typeresolve.Field) {
	if f.Name != "" {
		deck.Push(indent, cardschema.TagFieldName, cardschema.FieldNamePayload{Name: f.Name, Docs: f.Docs, Path: splitPath(f.TypePath), DocsType: f.TypePath})
	} else {
		deck.Push(indent, cardschema.TagFieldNumber, cardschema.FieldNumberPayload{Index: index, Docs: f.Docs, Path: splitPath(f.TypePath), DocsType: f.TypePath})
	}
}

func splitPath(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func walkRemarkBytes(c *scale.Cursor, deck *cardschema.Deck, indent uint32) error {
	b, err := c.DecodeBytes()
	if err != nil {
		return err
	}
	deck.Push(indent, cardschema.TagText, string(b))
	return nil
}

// walkVariant handles enums, including the Option<bool> tri-state
// special case and the generic Option<_> recognition rule (spec.md
// §4.3): a variant type with exactly two variants named None/Some where
// Some carries one field is an Option.
func walkVariant(c *scale.Cursor, r typeresolve.Resolver, resolved typeresolve.Resolved, deck *cardschema.Deck, indent uint32, ctx *Context, st State) error {
	if isOptionShape(resolved) {
		return walkOption(c, r, resolved, deck, indent, ctx, st)
	}

	idx, err := c.DecodeByte()
	if err != nil {
		return err
	}
	var chosen *typeresolve.Variant
	for i := range resolved.Variants {
		if resolved.Variants[i].Index == idx {
			chosen = &resolved.Variants[i]
			break
		}
	}
	if chosen == nil {
		return errorkinds.Parser(errorkinds.CodeUnexpectedEnumVariant, "variant index %d not declared for %q", idx, resolved.Ident)
	}

	switch st.CallExpectation {
	case ExpectPallet:
		deck.Push(indent, cardschema.TagPallet, chosen.Name)
	case ExpectMethod:
		deck.Push(indent, cardschema.TagMethod, cardschema.MethodPayload{Name: chosen.Name})
	default:
		deck.Push(indent, cardschema.TagEnumVariantName, chosen.Name)
	}

	childExpectation := st.CallExpectation
	if st.CallExpectation == ExpectMethod {
		childExpectation = ExpectNone
	}
	elideWrapper := len(chosen.Fields) == 1 && chosen.Fields[0].Name == ""
	childIndent := indent
	if !elideWrapper {
		childIndent = indent + 1
	}
	for i, f := range chosen.Fields {
		if !elideWrapper {
			emitFieldHeader(deck, indent, i, f)
		}
		childState := State{CallExpectation: childExpectation}
		if scale.IsBalanceFieldName(f.TypePath) {
			childState.BalanceFlag = true
		}
		if remarkFields[f.Name] {
			if err := walkRemarkBytes(c, deck, childIndent); err != nil {
				return err
			}
			continue
		}
		if err := Walk(c, r, f.Type, deck, childIndent, ctx, childState); err != nil {
			return err
		}
	}
	return nil
}

func isOptionShape(resolved typeresolve.Resolved) bool {
	if len(resolved.Variants) != 2 {
		return false
	}
	var none, some *typeresolve.Variant
	for i := range resolved.Variants {
		switch resolved.Variants[i].Name {
		case "None":
			none = &resolved.Variants[i]
		case "Some":
			some = &resolved.Variants[i]
		}
	}
	return none != nil && some != nil && len(some.Fields) == 1
}

func walkOption(c *scale.Cursor, r typeresolve.Resolver, resolved typeresolve.Resolved, deck *cardschema.Deck, indent uint32, ctx *Context, st State) error {
	var some *typeresolve.Variant
	for i := range resolved.Variants {
		if resolved.Variants[i].Name == "Some" {
			some = &resolved.Variants[i]
		}
	}
	innerRef := some.Fields[0].Type
	inner, err := r.Resolve(innerRef)
	if err == nil && inner.Kind == typeresolve.KindPrimitive && inner.Primitive == "bool" {
		tag, err := c.DecodeByte()
		if err != nil {
			return err
		}
		switch tag {
		case 0:
			deck.Push(indent, cardschema.TagNone, nil)
		case 1:
			deck.Push(indent, cardschema.TagDefault, true)
		case 2:
			deck.Push(indent, cardschema.TagDefault, false)
		default:
			return errorkinds.Parser(errorkinds.CodeUnexpectedOptionVariant, "Option<bool> tag %#x not in {0,1,2}", tag)
		}
		return nil
	}
	tag, err := c.DecodeByte()
	if err != nil {
		return err
	}
	switch tag {
	case 0:
		deck.Push(indent, cardschema.TagNone, nil)
		return nil
	case 1:
		return Walk(c, r, innerRef, deck, indent, ctx, st)
	default:
		return errorkinds.Parser(errorkinds.CodeUnexpectedOptionVariant, "option tag %#x is neither None(0) nor Some(1)", tag)
	}
}

func walkAccountID32(c *scale.Cursor, deck *cardschema.Deck, indent uint32, ctx *Context) error {
	pub, err := c.DecodeArray(32)
	if err != nil {
		return err
	}
	prefix := uint16(42)
	if ctx != nil {
		prefix = ctx.Base58Prefix
	}
	addr := ss58.Encode(prefix, pub)
	deck.Push(indent, cardschema.TagID, addr)
	return nil
}

func walkSequence(c *scale.Cursor, r typeresolve.Resolver, resolved typeresolve.Resolved, deck *cardschema.Deck, indent uint32, ctx *Context, st State) error {
	elem, err := r.Resolve(resolved.Element)
	if err == nil && elem.Kind == typeresolve.KindPrimitive && elem.Primitive == "u8" {
		b, derr := c.DecodeBytes()
		if derr != nil {
			return derr
		}
		deck.Push(indent, cardschema.TagText, fmt.Sprintf("%x", b))
		return nil
	}
	n, err := c.DecodeCompactUint64()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		if err := Walk(c, r, resolved.Element, deck, indent, ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func walkArray(c *scale.Cursor, r typeresolve.Resolver, resolved typeresolve.Resolved, deck *cardschema.Deck, indent uint32, ctx *Context, st State) error {
	elem, err := r.Resolve(resolved.Element)
	if err == nil && elem.Kind == typeresolve.KindPrimitive && elem.Primitive == "u8" {
		b, derr := c.DecodeArray(resolved.ArrayLen)
		if derr != nil {
			return derr
		}
		deck.Push(indent, cardschema.TagText, fmt.Sprintf("%x", b))
		return nil
	}
	for i := 0; i < resolved.ArrayLen; i++ {
		if err := Walk(c, r, resolved.Element, deck, indent, ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func walkTuple(c *scale.Cursor, r typeresolve.Resolver, resolved typeresolve.Resolved, deck *cardschema.Deck, indent uint32, ctx *Context, st State) error {
	for i, f := range resolved.Fields {
		emitFieldHeader(deck, indent, i, f)
		if err := Walk(c, r, f.Type, deck, indent+1, ctx, State{}); err != nil {
			return err
		}
	}
	return nil
}

func walkBitSequence(c *scale.Cursor, r typeresolve.Resolver, resolved typeresolve.Resolved, deck *cardschema.Deck, indent uint32, ctx *Context) error {
	storeIdent, err := identOf(r, resolved.BitStore)
	if err != nil {
		return err
	}
	orderIdent, err := identOf(r, resolved.BitOrder)
	if err != nil {
		return err
	}
	store, err := scale.ParseStoreType(storeIdent)
	if err != nil {
		return err
	}
	order, err := scale.ParseBitOrder(orderIdent)
	if err != nil {
		return err
	}
	bits, err := c.DecodeBitVec(store, order)
	if err != nil {
		return err
	}
	deck.Push(indent, cardschema.TagBitVec, bits)
	return nil
}

func identOf(r typeresolve.Resolver, ref typeresolve.Ref) (string, error) {
	if ref.Name != "" {
		return ref.Name, nil
	}
	resolved, err := r.Resolve(ref)
	if err != nil {
		return "", err
	}
	return resolved.Ident, nil
}

func walkPrimitive(c *scale.Cursor, resolved typeresolve.Resolved, deck *cardschema.Deck, indent uint32, ctx *Context, st State) error {
	if denom, ok := scale.PerThingDenominator(resolved.Ident); ok {
		return walkPerThing(c, denom, deck, indent, st)
	}
	switch resolved.Primitive {
	case "bool":
		v, err := c.DecodeBool()
		if err != nil {
			return err
		}
		deck.Push(indent, cardschema.TagDefault, v)
		return nil
	case "str":
		s, err := c.DecodeStr()
		if err != nil {
			return err
		}
		deck.Push(indent, cardschema.TagText, s)
		return nil
	case "char":
		ch, err := c.DecodeChar()
		if err != nil {
			return err
		}
		deck.Push(indent, cardschema.TagText, string(ch))
		return nil
	case "u8", "u16", "u32", "u64", "u128", "u256":
		return walkUint(c, resolved.Primitive, deck, indent, ctx, st)
	case "i8", "i16", "i32", "i64", "i128", "i256":
		return walkInt(c, resolved.Primitive, deck, indent, st)
	default:
		return errorkinds.Parser(errorkinds.CodeUnknownType, "unhandled primitive %q", resolved.Primitive)
	}
}

var uintWidths = map[string]int{"u8": 1, "u16": 2, "u32": 4, "u64": 8, "u128": 16, "u256": 32}
var intWidths = map[string]int{"i8": 1, "i16": 2, "i32": 4, "i64": 8, "i128": 16, "i256": 32}

func walkUint(c *scale.Cursor, prim string, deck *cardschema.Deck, indent uint32, ctx *Context, st State) error {
	var v *big.Int
	var err error
	if st.CompactFlag {
		v, err = c.DecodeCompact()
	} else {
		v, err = c.DecodeUintN(uintWidths[prim])
	}
	if err != nil {
		return err
	}
	if st.BalanceFlag {
		if ctx == nil {
			return errorkinds.Parser(errorkinds.CodeBalanceNotDescribed, "balance field decoded with no network context")
		}
		bal := scale.FormatBalance(v, ctx.Decimals, ctx.Unit)
		deck.Push(indent, cardschema.TagBalance, cardschema.BalancePayload{Number: bal.Number, Units: bal.Units})
		return nil
	}
	deck.Push(indent, cardschema.TagDefault, v.String())
	return nil
}

func walkInt(c *scale.Cursor, prim string, deck *cardschema.Deck, indent uint32, st State) error {
	v, err := c.DecodeIntN(intWidths[prim])
	if err != nil {
		return err
	}
	deck.Push(indent, cardschema.TagDefault, v.String())
	return nil
}

func walkPerThing(c *scale.Cursor, denom uint64, deck *cardschema.Deck, indent uint32, st State) error {
	var u uint64
	var err error
	switch denom {
	case 100, 1 << 16:
		var u16 uint16
		u16, err = c.DecodeUint16()
		u = uint64(u16)
	default:
		var u32 uint32
		u32, err = c.DecodeUint32()
		u = uint64(u32)
	}
	if err != nil {
		return err
	}
	deck.Push(indent, cardschema.TagDefault, fmt.Sprintf("%d/%d", u, denom))
	return nil
}
