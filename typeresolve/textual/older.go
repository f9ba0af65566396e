package textual

import (
	"fmt"

	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/typeresolve"
)

// OlderArg is one function argument in pre-v14 FunctionMetadata.
type OlderArg struct {
	Name string
	Type string
}

// OlderCall is one FunctionMetadata entry (a pallet's dispatchable).
type OlderCall struct {
	Name string
	Docs []string
	Args []OlderArg
}

// OlderModule is one ModuleMetadata entry: name, its assigned call
// index (pre-v14 metadata assigns pallet indices implicitly by their
// position among modules that have calls, unless an explicit index is
// given), and its calls.
type OlderModule struct {
	Name  string
	Index uint8
	Calls []OlderCall
}

// Index adapts a flat OlderModule list to decoder.PalletIndex, wiring
// each module's calls into db as a synthesized enum entry so the shared
// Walk machinery in package decoder can walk pre-v14 calls exactly like
// v14 ones.
type Index struct {
	DB      *Database
	Modules []OlderModule
}

// NewIndex synthesizes one "$calls::<Name>" enum entry per module (each
// call becomes a variant whose fields are the call's named arguments)
// and returns an Index ready to drive decoder.DecodeCall.
func NewIndex(db *Database, modules []OlderModule) *Index {
	for _, m := range modules {
		variants := make([]EnumVariant, len(m.Calls))
		for i, call := range m.Calls {
			fields := make([]StructField, len(call.Args))
			for j, a := range call.Args {
				fields[j] = StructField{Name: a.Name, Type: a.Type}
			}
			variants[i] = EnumVariant{Name: call.Name, Fields: fields}
		}
		db.Entries[callsEntryName(m.Name)] = Entry{
			Name:     callsEntryName(m.Name),
			Kind:     EntryEnum,
			Variants: variants,
		}
	}
	return &Index{DB: db, Modules: modules}
}

func callsEntryName(module string) string {
	return fmt.Sprintf("$calls::%s", module)
}

func (x *Index) Pallet(index uint8) (string, typeresolve.Ref, error) {
	for _, m := range x.Modules {
		if m.Index == index {
			if len(m.Calls) == 0 {
				return "", typeresolve.Ref{}, errorkinds.Parser(errorkinds.CodeNoCallsInPallet, "module %q (index %d) has no calls", m.Name, index)
			}
			return m.Name, typeresolve.ByName(callsEntryName(m.Name)), nil
		}
	}
	return "", typeresolve.Ref{}, errorkinds.Parser(errorkinds.CodePalletNotFound, "no module at index %d", index)
}
