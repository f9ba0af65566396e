// Package textual implements the pre-v14 textual type-database resolver
// backend (spec.md §4.2). Chains below metadata v14 do not ship a
// self-describing type registry; their call arguments are typed by name
// against a flat database compiled offline (by regex extraction from the
// chain's Rust source, per the original implementation) and shipped with
// the core. This package only consumes the compiled database; compiling
// it from Rust source is an external, offline step (out of scope, like
// RPC metadata fetching — spec.md §1).
package textual

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/typeresolve"
)

// EntryKind discriminates the three shapes a database entry can take.
type EntryKind int

const (
	EntryAlias EntryKind = iota
	EntryStruct
	EntryEnum
)

// StructField is one field of an EntryStruct (Name may be empty for an
// unnamed/tuple-style struct field).
type StructField struct {
	Name string
	Type string
}

// EnumVariant is one arm of an EntryEnum: either no payload, a single
// aliased type, or an inline struct.
type EnumVariant struct {
	Name   string
	Type   string        // non-empty for Type(alias) variants
	Fields []StructField // non-empty for Struct(...) variants
}

// Entry is one flat database row.
type Entry struct {
	Name    string
	Kind    EntryKind
	Alias   string
	Fields  []StructField
	Variants []EnumVariant
}

// Database is the flat, name-indexed type table.
type Database struct {
	Entries map[string]Entry
}

// NewDatabase builds a Database from already-compiled entries (as
// produced offline from chain source, or hand-authored for tests).
func NewDatabase(entries []Entry) *Database {
	db := &Database{Entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		db.Entries[e.Name] = e
	}
	return db
}

// Resolver adapts a Database to typeresolve.Resolver. AccountEncryption
// is the network's encryption scheme, needed to decide whether a
// pre-v14 AccountId (fixed at 32 bytes, spec.md §9 open question) can
// satisfy the request.
type Resolver struct {
	DB                *Database
	AccountEncryption string // "ed25519", "sr25519", "ecdsa", "ethereum"
}

func (r *Resolver) Backend() string { return "textual" }

var (
	reOption  = regexp.MustCompile(`^Option<(.+)>$`)
	reVec     = regexp.MustCompile(`^Vec<(.+)>$`)
	reArray   = regexp.MustCompile(`^\[\s*(.+?)\s*;\s*(\d+)\s*\]$`)
	reCompact = regexp.MustCompile(`^Compact<(.+)>$`)
	reTuple   = regexp.MustCompile(`^\((.+)\)$`)
)

// Resolve husks one generic wrapper per call (Option<T>, Vec<T>,
// [T; N], Compact<T>, tuples up to arity 4), then falls back to the
// flat database, then to the hard-coded special names.
func (r *Resolver) Resolve(ref typeresolve.Ref) (typeresolve.Resolved, error) {
	name := strings.TrimSpace(ref.Name)

	if m := reOption.FindStringSubmatch(name); m != nil {
		inner := m[1]
		return typeresolve.Resolved{
			Kind: typeresolve.KindVariant,
			Ident: "Option",
			Variants: []typeresolve.Variant{
				{Name: "None", Index: 0},
				{Name: "Some", Index: 1, Fields: []typeresolve.Field{{Type: typeresolve.ByName(inner), TypePath: inner}}},
			},
		}, nil
	}
	if m := reVec.FindStringSubmatch(name); m != nil {
		return typeresolve.Resolved{Kind: typeresolve.KindSequence, Ident: "Vec", Element: typeresolve.ByName(m[1])}, nil
	}
	if m := reArray.FindStringSubmatch(name); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return typeresolve.Resolved{}, errorkinds.Parser(errorkinds.CodeUnknownType, "bad array length in %q", name)
		}
		return typeresolve.Resolved{Kind: typeresolve.KindArray, Ident: "Array", Element: typeresolve.ByName(m[1]), ArrayLen: n}, nil
	}
	if m := reCompact.FindStringSubmatch(name); m != nil {
		return typeresolve.Resolved{Kind: typeresolve.KindCompact, Ident: "Compact", Element: typeresolve.ByName(m[1])}, nil
	}
	if m := reTuple.FindStringSubmatch(name); m != nil {
		parts := splitTupleTopLevel(m[1])
		if len(parts) < 1 || len(parts) > 4 {
			return typeresolve.Resolved{}, errorkinds.Parser(errorkinds.CodeUnknownType, "tuple arity %d unsupported (max 4): %q", len(parts), name)
		}
		fields := make([]typeresolve.Field, len(parts))
		for i, p := range parts {
			p = strings.TrimSpace(p)
			fields[i] = typeresolve.Field{Type: typeresolve.ByName(p), TypePath: p}
		}
		return typeresolve.Resolved{Kind: typeresolve.KindTuple, Ident: "Tuple", Fields: fields}, nil
	}

	if resolved, ok, err := r.resolveSpecial(name); ok || err != nil {
		return resolved, err
	}

	if prim, ok := primitiveAlias(name); ok {
		return typeresolve.Resolved{Kind: typeresolve.KindPrimitive, Ident: name, Primitive: prim}, nil
	}

	entry, ok := r.DB.Entries[name]
	if !ok {
		return typeresolve.Resolved{}, errorkinds.Parser(errorkinds.CodeUnknownType, "type %q not present in textual database", name)
	}
	switch entry.Kind {
	case EntryAlias:
		return r.Resolve(typeresolve.ByName(entry.Alias))
	case EntryStruct:
		fields := make([]typeresolve.Field, len(entry.Fields))
		for i, f := range entry.Fields {
			fields[i] = typeresolve.Field{Name: f.Name, Type: typeresolve.ByName(f.Type), TypePath: f.Type}
		}
		return typeresolve.Resolved{Kind: typeresolve.KindComposite, Ident: name, Fields: fields}, nil
	case EntryEnum:
		variants := make([]typeresolve.Variant, len(entry.Variants))
		for i, v := range entry.Variants {
			tv := typeresolve.Variant{Name: v.Name, Index: uint8(i)}
			switch {
			case len(v.Fields) > 0:
				fs := make([]typeresolve.Field, len(v.Fields))
				for j, f := range v.Fields {
					fs[j] = typeresolve.Field{Name: f.Name, Type: typeresolve.ByName(f.Type), TypePath: f.Type}
				}
				tv.Fields = fs
			case v.Type != "":
				tv.Fields = []typeresolve.Field{{Type: typeresolve.ByName(v.Type), TypePath: v.Type}}
			}
			variants[i] = tv
		}
		return typeresolve.Resolved{Kind: typeresolve.KindVariant, Ident: name, Variants: variants}, nil
	default:
		return typeresolve.Resolved{}, errorkinds.Parser(errorkinds.CodeUnknownType, "entry %q has unrecognized kind", name)
	}
}

// resolveSpecial handles the hard-coded names spec.md §4.2 calls out:
// AccountId, IdentityFields, BitVec.
func (r *Resolver) resolveSpecial(name string) (typeresolve.Resolved, bool, error) {
	switch name {
	case "AccountId":
		if r.AccountEncryption == "ecdsa" || r.AccountEncryption == "ethereum" {
			// Open question (spec.md §9): legacy chains hard-code 32
			// bytes even though Ecdsa public keys are 33 bytes. Do not
			// silently widen; surface the mismatch.
			return typeresolve.Resolved{}, true, errorkinds.Parser(errorkinds.CodeNotPrimitive, "AccountId is fixed at 32 bytes in the textual database but network encryption %q needs 33", r.AccountEncryption)
		}
		return typeresolve.Resolved{Kind: typeresolve.KindArray, Ident: "AccountId", Element: typeresolve.ByName("u8"), ArrayLen: 32}, true, nil
	case "IdentityFields":
		return typeresolve.Resolved{Kind: typeresolve.KindArray, Ident: "IdentityFields", Element: typeresolve.ByName("u8"), ArrayLen: 8}, true, nil
	case "BitVec":
		return typeresolve.Resolved{Kind: typeresolve.KindBitSequence, Ident: "BitVec", BitStore: typeresolve.ByName("u8"), BitOrder: typeresolve.ByName("Lsb0")}, true, nil
	default:
		return typeresolve.Resolved{}, false, nil
	}
}

func primitiveAlias(name string) (string, bool) {
	switch name {
	case "bool", "char", "str":
		return name, true
	case "u8", "u16", "u32", "u64", "u128", "U256":
		return strings.ToLower(name), true
	case "i8", "i16", "i32", "i64", "i128", "i256":
		return name, true
	default:
		return "", false
	}
}

// splitTupleTopLevel splits a tuple's inner text on top-level commas,
// respecting nested angle brackets, parens, and square brackets.
func splitTupleTopLevel(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '<', '(', '[':
			depth++
		case '>', ')', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}
