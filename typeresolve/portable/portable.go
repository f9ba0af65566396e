// Package portable implements the scale-info PortableRegistry resolver
// backend (spec.md §4.2, v14+ metadata). The registry is a DAG of
// numeric-id-keyed type descriptors; resolution is a slice index, never
// a pointer chase, so recursion is naturally bounded by the registry's
// own depth (spec.md §9 "cyclic / self-referential type tables").
package portable

import (
	"fmt"

	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/scale"
	"github.com/tos-network/vault-core/typeresolve"
)

// Type is one scale-info registry entry after SCALE decoding.
type Type struct {
	ID   int
	Path []string
	Def  typeresolve.Resolved // Kind/Fields/Variants/Element/Primitive already populated; Path/Ident filled by caller
	Docs []string
}

// Registry is the decoded PortableRegistry: a dense array indexed by id.
type Registry struct {
	Types []Type
	byID  map[int]*Type
}

// Resolver adapts a Registry to typeresolve.Resolver.
type Resolver struct {
	Reg *Registry
}

func (r *Resolver) Backend() string { return "portable" }

func (r *Resolver) Resolve(ref typeresolve.Ref) (typeresolve.Resolved, error) {
	if ref.PortableID < 0 {
		return typeresolve.Resolved{}, errorkinds.Parser(errorkinds.CodeV14TypeNotResolved, "portable resolver requires a numeric type id, got name %q", ref.Name)
	}
	t, ok := r.Reg.byID[ref.PortableID]
	if !ok {
		return typeresolve.Resolved{}, errorkinds.Parser(errorkinds.CodeV14TypeNotResolved, "type id %d not present in registry", ref.PortableID)
	}
	return t.Def, nil
}

// DecodeRegistry decodes a scale-info PortableRegistry: a compact-vec of
// (compact id, Type) pairs, each Type being {path: Vec<str>,
// params: Vec<TypeParameter>, def: TypeDef, docs: Vec<str>}.
func DecodeRegistry(c *scale.Cursor) (*Registry, error) {
	n, err := c.DecodeCompactUint64()
	if err != nil {
		return nil, fmt.Errorf("registry length: %w", err)
	}
	reg := &Registry{byID: make(map[int]*Type, n)}
	for i := uint64(0); i < n; i++ {
		id, err := c.DecodeCompactUint64()
		if err != nil {
			return nil, fmt.Errorf("entry %d id: %w", i, err)
		}
		path, err := scale.DecodeVec(c, (*scale.Cursor).DecodeStr)
		if err != nil {
			return nil, fmt.Errorf("entry %d path: %w", i, err)
		}
		nparams, err := c.DecodeCompactUint64()
		if err != nil {
			return nil, fmt.Errorf("entry %d params length: %w", i, err)
		}
		for p := uint64(0); p < nparams; p++ {
			if _, err := c.DecodeStr(); err != nil { // param name
				return nil, fmt.Errorf("entry %d param %d name: %w", i, p, err)
			}
			if _, err := scale.DecodeOption(c, decodeCompactID); err != nil { // Option<id>
				return nil, fmt.Errorf("entry %d param %d type: %w", i, p, err)
			}
		}
		def, err := decodeTypeDef(c)
		if err != nil {
			return nil, fmt.Errorf("entry %d def: %w", i, err)
		}
		docs, err := scale.DecodeVec(c, (*scale.Cursor).DecodeStr)
		if err != nil {
			return nil, fmt.Errorf("entry %d docs: %w", i, err)
		}
		def.Path = path
		if len(path) > 0 {
			def.Ident = path[len(path)-1]
		}
		t := Type{ID: int(id), Path: path, Def: def, Docs: docs}
		reg.Types = append(reg.Types, t)
		reg.byID[int(id)] = &reg.Types[len(reg.Types)-1]
	}
	return reg, nil
}

func decodeCompactID(c *scale.Cursor) (int, error) {
	v, err := c.DecodeCompactUint64()
	return int(v), err
}

func decodeField(c *scale.Cursor) (typeresolve.Field, error) {
	name, err := scale.DecodeOption(c, (*scale.Cursor).DecodeStr)
	if err != nil {
		return typeresolve.Field{}, err
	}
	ty, err := c.DecodeCompactUint64()
	if err != nil {
		return typeresolve.Field{}, err
	}
	typeName, err := scale.DecodeOption(c, (*scale.Cursor).DecodeStr)
	if err != nil {
		return typeresolve.Field{}, err
	}
	docs, err := scale.DecodeVec(c, (*scale.Cursor).DecodeStr)
	if err != nil {
		return typeresolve.Field{}, err
	}
	f := typeresolve.Field{Type: typeresolve.ByID(int(ty)), Docs: docs}
	if name != nil {
		f.Name = *name
	}
	if typeName != nil {
		f.TypePath = *typeName
	}
	return f, nil
}

func decodeVariant(c *scale.Cursor) (typeresolve.Variant, error) {
	name, err := c.DecodeStr()
	if err != nil {
		return typeresolve.Variant{}, err
	}
	fields, err := scale.DecodeVec(c, decodeField)
	if err != nil {
		return typeresolve.Variant{}, err
	}
	index, err := c.DecodeUint8()
	if err != nil {
		return typeresolve.Variant{}, err
	}
	if _, err := scale.DecodeVec(c, (*scale.Cursor).DecodeStr); err != nil { // docs
		return typeresolve.Variant{}, err
	}
	return typeresolve.Variant{Name: name, Index: index, Fields: fields}, nil
}

// decodeTypeDef decodes the TypeDef enum. Variant order matches the
// scale-info crate: Composite=0, Variant=1, Sequence=2, Array=3,
// Tuple=4, Primitive=5, Compact=6, BitSequence=7.
func decodeTypeDef(c *scale.Cursor) (typeresolve.Resolved, error) {
	tag, err := c.DecodeByte()
	if err != nil {
		return typeresolve.Resolved{}, err
	}
	switch tag {
	case 0: // Composite
		fields, err := scale.DecodeVec(c, decodeField)
		if err != nil {
			return typeresolve.Resolved{}, err
		}
		return typeresolve.Resolved{Kind: typeresolve.KindComposite, Fields: fields}, nil
	case 1: // Variant
		variants, err := scale.DecodeVec(c, decodeVariant)
		if err != nil {
			return typeresolve.Resolved{}, err
		}
		return typeresolve.Resolved{Kind: typeresolve.KindVariant, Variants: variants}, nil
	case 2: // Sequence
		elem, err := c.DecodeCompactUint64()
		if err != nil {
			return typeresolve.Resolved{}, err
		}
		return typeresolve.Resolved{Kind: typeresolve.KindSequence, Element: typeresolve.ByID(int(elem))}, nil
	case 3: // Array
		elem, err := c.DecodeCompactUint64()
		if err != nil {
			return typeresolve.Resolved{}, err
		}
		length, err := c.DecodeUint32()
		if err != nil {
			return typeresolve.Resolved{}, err
		}
		return typeresolve.Resolved{Kind: typeresolve.KindArray, Element: typeresolve.ByID(int(elem)), ArrayLen: int(length)}, nil
	case 4: // Tuple
		elems, err := scale.DecodeVec(c, decodeCompactID)
		if err != nil {
			return typeresolve.Resolved{}, err
		}
		fields := make([]typeresolve.Field, len(elems))
		for i, id := range elems {
			fields[i] = typeresolve.Field{Type: typeresolve.ByID(id)}
		}
		return typeresolve.Resolved{Kind: typeresolve.KindTuple, Fields: fields}, nil
	case 5: // Primitive
		ptag, err := c.DecodeByte()
		if err != nil {
			return typeresolve.Resolved{}, err
		}
		name, ok := primitiveName(ptag)
		if !ok {
			return typeresolve.Resolved{}, errorkinds.Parser(errorkinds.CodeUnknownType, "unrecognized primitive tag %#x", ptag)
		}
		return typeresolve.Resolved{Kind: typeresolve.KindPrimitive, Primitive: name}, nil
	case 6: // Compact
		elem, err := c.DecodeCompactUint64()
		if err != nil {
			return typeresolve.Resolved{}, err
		}
		return typeresolve.Resolved{Kind: typeresolve.KindCompact, Element: typeresolve.ByID(int(elem))}, nil
	case 7: // BitSequence
		storeID, err := c.DecodeCompactUint64()
		if err != nil {
			return typeresolve.Resolved{}, err
		}
		orderID, err := c.DecodeCompactUint64()
		if err != nil {
			return typeresolve.Resolved{}, err
		}
		return typeresolve.Resolved{Kind: typeresolve.KindBitSequence, BitStore: typeresolve.ByID(int(storeID)), BitOrder: typeresolve.ByID(int(orderID))}, nil
	default:
		return typeresolve.Resolved{}, errorkinds.Parser(errorkinds.CodeUnknownType, "unrecognized TypeDef tag %#x", tag)
	}
}

func primitiveName(tag byte) (string, bool) {
	names := []string{"bool", "char", "str", "u8", "u16", "u32", "u64", "u128", "u256", "i8", "i16", "i32", "i64", "i128", "i256"}
	if int(tag) < len(names) {
		return names[tag], true
	}
	return "", false
}
