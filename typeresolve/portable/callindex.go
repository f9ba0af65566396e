package portable

import (
	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/typeresolve"
)

// Index adapts a decoded V14's pallet list to decoder.PalletIndex.
type Index struct {
	Meta *V14
}

func (x *Index) Pallet(index uint8) (string, typeresolve.Ref, error) {
	for _, p := range x.Meta.Pallets {
		if p.Index == index {
			if p.CallsTy == nil {
				return "", typeresolve.Ref{}, errorkinds.Parser(errorkinds.CodeNoCallsInPallet, "pallet %q (index %d) has no calls", p.Name, index)
			}
			return p.Name, typeresolve.ByID(*p.CallsTy), nil
		}
	}
	return "", typeresolve.Ref{}, errorkinds.Parser(errorkinds.CodePalletNotFound, "no pallet at index %d", index)
}
