// Package typeresolve implements C2: two resolver backends (textual
// type-database for pre-v14 metadata, scale-info PortableRegistry for
// v14) behind one Resolver interface, dispatched as a tagged variant per
// DESIGN NOTES (spec.md §9) rather than through runtime polymorphism
// spread across many small types.
package typeresolve

// Kind is the resolved shape of a type, mirroring scale-info's TypeDef
// variant set (spec.md §4.2) — the textual backend's Type/Struct/Enum
// entries are normalized into the same set so C3 only ever walks one
// shape of descriptor regardless of backend.
type Kind int

const (
	KindComposite Kind = iota
	KindVariant
	KindSequence
	KindArray
	KindTuple
	KindPrimitive
	KindCompact
	KindBitSequence
)

// Ref names a type without committing to a backend's native key space:
// portable registries key by numeric id, the textual database keys by
// name.
type Ref struct {
	PortableID int
	Name       string
}

func ByID(id int) Ref    { return Ref{PortableID: id, Name: ""} }
func ByName(n string) Ref { return Ref{PortableID: -1, Name: n} }

// Field is one composite field or unnamed tuple element.
type Field struct {
	Name     string // empty for unnamed fields
	Type     Ref
	Docs     []string
	TypePath string // human-readable type path/name for card rendering
}

// Variant is one enum arm.
type Variant struct {
	Name   string
	Index  uint8
	Fields []Field
}

// Resolved is the normalized descriptor C3/C4 walk.
type Resolved struct {
	Kind Kind
	// Path is the ident path; Ident is its last segment (e.g. "Call",
	// "AccountId32", "Era" are recognized by Ident alone per spec.md §4.2).
	Path  []string
	Ident string

	Fields   []Field // Composite fields, or Tuple elements (Name always "")
	Variants []Variant

	Element Ref // Sequence/Array/Compact element type
	ArrayLen int

	Primitive string // "u8","u16","u32","u64","u128","u256","bool","str","char", i-variants

	// BitStore/BitOrder are the referenced store/order types for a
	// BitSequence; the caller resolves them to learn their Ident
	// ("u8"/"u16"/"u32"/"u64", "Lsb0"/"Msb0").
	BitStore Ref
	BitOrder Ref
}

// Resolver is implemented by both backends.
type Resolver interface {
	// Resolve looks up ref and returns its normalized shape.
	Resolve(ref Ref) (Resolved, error)
	// Backend identifies which variant this is, for log lines and tests.
	Backend() string
}
