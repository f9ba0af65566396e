package portable

import (
	"math/big"
	"testing"

	"github.com/tos-network/vault-core/scale"
	"github.com/tos-network/vault-core/typeresolve"
)

func encCompact(v int64) []byte { return scale.EncodeCompact(big.NewInt(v)) }

func encStr(s string) []byte {
	out := encCompact(int64(len(s)))
	return append(out, []byte(s)...)
}

func encVecEmpty() []byte { return encCompact(0) }

func encOptionNone() []byte { return []byte{0} }

// encRegistryEntry builds one (compact id, Type) pair: path, params,
// TypeDef, docs, matching DecodeRegistry's own field order.
func encRegistryEntry(id int, def []byte) []byte {
	out := encCompact(int64(id))
	out = append(out, encVecEmpty()...) // path
	out = append(out, encCompact(0)...) // params
	out = append(out, def...)
	out = append(out, encVecEmpty()...) // docs
	return out
}

func encRegistry(entries [][]byte) []byte {
	out := encCompact(int64(len(entries)))
	for _, e := range entries {
		out = append(out, e...)
	}
	return out
}

func encPrimitive(tag byte) []byte { return []byte{5, tag} }

func encField(name string, tyID int) []byte {
	out := append([]byte{1}, encStr(name)...) // Option<str> Some
	out = append(out, encCompact(int64(tyID))...)
	out = append(out, encOptionNone()...) // typeName
	out = append(out, encVecEmpty()...)   // docs
	return out
}

func encComposite(fields [][]byte) []byte {
	out := []byte{0}
	out = append(out, encCompact(int64(len(fields)))...)
	for _, f := range fields {
		out = append(out, f...)
	}
	return out
}

func encSequence(elemID int) []byte {
	return append([]byte{2}, encCompact(int64(elemID))...)
}

func encArray(elemID, length int) []byte {
	out := append([]byte{3}, encCompact(int64(elemID))...)
	out = append(out, byte(length), byte(length>>8), byte(length>>16), byte(length>>24))
	return out
}

func TestDecodeRegistryPrimitivesAndComposite(t *testing.T) {
	// id 0: u32 primitive
	// id 1: composite { a: u32 }
	// id 2: Vec<u32> (sequence over id 0)
	// id 3: [u32; 4] (array over id 0)
	entries := [][]byte{
		encRegistryEntry(0, encPrimitive(5)), // u32 tag is index 5 in primitiveName's list
		encRegistryEntry(1, encComposite([][]byte{encField("a", 0)})),
		encRegistryEntry(2, encSequence(0)),
		encRegistryEntry(3, encArray(0, 4)),
	}
	c := scale.NewCursor(encRegistry(entries))
	reg, err := DecodeRegistry(c)
	if err != nil {
		t.Fatalf("DecodeRegistry: %v", err)
	}
	if !c.Empty() {
		t.Fatalf("expected cursor fully consumed, %d bytes left", c.Len())
	}
	if len(reg.Types) != 4 {
		t.Fatalf("got %d types, want 4", len(reg.Types))
	}

	r := &Resolver{Reg: reg}
	if r.Backend() != "portable" {
		t.Fatalf("Backend() = %q", r.Backend())
	}

	u32, err := r.Resolve(typeresolve.ByID(0))
	if err != nil {
		t.Fatalf("resolve u32: %v", err)
	}
	if u32.Kind != typeresolve.KindPrimitive || u32.Primitive != "u32" {
		t.Fatalf("u32 resolved as %+v", u32)
	}

	composite, err := r.Resolve(typeresolve.ByID(1))
	if err != nil {
		t.Fatalf("resolve composite: %v", err)
	}
	if composite.Kind != typeresolve.KindComposite || len(composite.Fields) != 1 || composite.Fields[0].Name != "a" {
		t.Fatalf("composite resolved as %+v", composite)
	}
	if composite.Fields[0].Type.PortableID != 0 {
		t.Fatalf("field type ref = %+v, want id 0", composite.Fields[0].Type)
	}

	seq, err := r.Resolve(typeresolve.ByID(2))
	if err != nil {
		t.Fatalf("resolve sequence: %v", err)
	}
	if seq.Kind != typeresolve.KindSequence || seq.Element.PortableID != 0 {
		t.Fatalf("sequence resolved as %+v", seq)
	}

	arr, err := r.Resolve(typeresolve.ByID(3))
	if err != nil {
		t.Fatalf("resolve array: %v", err)
	}
	if arr.Kind != typeresolve.KindArray || arr.ArrayLen != 4 || arr.Element.PortableID != 0 {
		t.Fatalf("array resolved as %+v", arr)
	}
}

func TestResolveUnknownID(t *testing.T) {
	reg := &Registry{byID: map[int]*Type{}}
	r := &Resolver{Reg: reg}
	if _, err := r.Resolve(typeresolve.ByID(99)); err == nil {
		t.Fatal("expected error resolving an id absent from the registry")
	}
}

func TestResolveRequiresNumericID(t *testing.T) {
	reg := &Registry{byID: map[int]*Type{}}
	r := &Resolver{Reg: reg}
	if _, err := r.Resolve(typeresolve.ByName("AccountId32")); err == nil {
		t.Fatal("expected error: portable resolver cannot resolve by name")
	}
}

func TestDecodeTypeDefVariantEnum(t *testing.T) {
	// A Call-shaped variant enum: one arm "set_value" at index 0, with
	// a single "value: u32" field referencing a prior registry entry.
	variantDef := append([]byte{1}, encCompact(1)...)
	variantDef = append(variantDef, encStr("set_value")...)
	variantDef = append(variantDef, encCompact(1)...) // one field
	variantDef = append(variantDef, encField("value", 0)...)
	variantDef = append(variantDef, 0)              // variant index byte
	variantDef = append(variantDef, encVecEmpty()...) // variant docs

	entries := [][]byte{
		encRegistryEntry(0, encPrimitive(5)),
		encRegistryEntry(1, variantDef),
	}
	c := scale.NewCursor(encRegistry(entries))
	reg, err := DecodeRegistry(c)
	if err != nil {
		t.Fatalf("DecodeRegistry: %v", err)
	}

	r := &Resolver{Reg: reg}
	callEnum, err := r.Resolve(typeresolve.ByID(1))
	if err != nil {
		t.Fatalf("resolve call enum: %v", err)
	}
	if callEnum.Kind != typeresolve.KindVariant || len(callEnum.Variants) != 1 {
		t.Fatalf("call enum resolved as %+v", callEnum)
	}
	v := callEnum.Variants[0]
	if v.Name != "set_value" || v.Index != 0 || len(v.Fields) != 1 || v.Fields[0].Name != "value" {
		t.Fatalf("variant decoded as %+v", v)
	}
}
