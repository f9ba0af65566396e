package decoder

import (
	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/internal/cardschema"
	"github.com/tos-network/vault-core/scale"
	"github.com/tos-network/vault-core/typeresolve"
)

// PalletIndex resolves byte 0 of a call payload to a pallet name and the
// Ref of its Call enum. Both backends implement this identically in
// shape; only how the Ref is constructed differs (numeric id vs a
// synthesized database name), so one interface covers both.
type PalletIndex interface {
	Pallet(index uint8) (name string, callsRef typeresolve.Ref, err error)
}

// DecodeCall is the C3 entry point (spec.md §4.3): byte 0 selects the
// pallet and byte 1 the variant of the pallet's Call enum. DecodeCall
// pushes the `pallet` and `method` cards itself, then walks the chosen
// call's fields with a fresh State.
func DecodeCall(payload []byte, r typeresolve.Resolver, idx PalletIndex, ctx *Context) (*cardschema.Deck, error) {
	c := scale.NewCursor(payload)
	deck := &cardschema.Deck{}

	palletByte, err := c.DecodeByte()
	if err != nil {
		return nil, errorkinds.Parser(errorkinds.CodeDataTooShort, "no pallet index byte: %v", err)
	}
	name, callsRef, err := idx.Pallet(palletByte)
	if err != nil {
		return nil, err
	}
	deck.Push(0, cardschema.TagPallet, name)

	resolved, err := r.Resolve(callsRef)
	if err != nil {
		return nil, errorkinds.Parser(errorkinds.CodeV14TypeNotResolved, "pallet %q calls type: %v", name, err)
	}
	if resolved.Kind != typeresolve.KindVariant || len(resolved.Variants) == 0 {
		return nil, errorkinds.Parser(errorkinds.CodeNoCallsInPallet, "pallet %q has no calls", name)
	}

	methodByte, err := c.DecodeByte()
	if err != nil {
		return nil, errorkinds.Parser(errorkinds.CodeDataTooShort, "no method index byte: %v", err)
	}
	var chosen *typeresolve.Variant
	for i := range resolved.Variants {
		if resolved.Variants[i].Index == methodByte {
			chosen = &resolved.Variants[i]
			break
		}
	}
	if chosen == nil {
		if int(methodByte) >= len(resolved.Variants) {
			return nil, errorkinds.Parser(errorkinds.CodeMethodIndexTooHigh, "method index %d exceeds %d calls in pallet %q", methodByte, len(resolved.Variants), name)
		}
		return nil, errorkinds.Parser(errorkinds.CodeMethodNotFound, "method index %d not found in pallet %q", methodByte, name)
	}
	deck.Push(0, cardschema.TagMethod, cardschema.MethodPayload{Name: chosen.Name})

	elideWrapper := len(chosen.Fields) == 1 && chosen.Fields[0].Name == ""
	childIndent := uint32(0)
	if !elideWrapper {
		childIndent = 1
	}
	for i, f := range chosen.Fields {
		if !elideWrapper {
			emitFieldHeader(deck, 0, i, f)
		}
		st := State{}
		if scale.IsBalanceFieldName(f.TypePath) {
			st.BalanceFlag = true
		}
		if remarkFields[f.Name] {
			if err := walkRemarkBytes(c, deck, childIndent); err != nil {
				return nil, err
			}
			continue
		}
		if err := Walk(c, r, f.Type, deck, childIndent, ctx, st); err != nil {
			return nil, err
		}
	}

	if !c.Empty() {
		return nil, errorkinds.Parser(errorkinds.CodeSomeDataNotUsedMethod, "%d bytes left after decoding method", c.Len())
	}
	return deck, nil
}
