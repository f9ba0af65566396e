package ed25519

import (
	"github.com/tos-network/vault-core/crypto/junction"
	"github.com/tos-network/vault-core/errorkinds"
)

// hdkdDomain is the domain-separation tag hashed into every hard
// junction step, matching sp-core's Ed25519 Pair::derive
// (ecosystem knowledge — no file in the retrieved original_source/ set
// implements sp-core's crypto primitives — constant "Ed25519HDKD").
const hdkdDomain = "Ed25519HDKD"

// Derive walks seed through path's junctions, hard only — Ed25519 has no
// notion of a blinded public key, so a soft junction anywhere in the
// path is rejected.
func Derive(seed [32]byte, path junction.Path) ([32]byte, error) {
	acc := seed
	for _, j := range path.Junctions {
		if j.Kind == junction.Soft {
			return [32]byte{}, errorkinds.New(errorkinds.KindAddressGen, errorkinds.CodeInvalidDerivation, "soft junctions are not supported for Ed25519")
		}
		acc = deriveHardJunction(acc, j.ID)
	}
	return acc, nil
}

func deriveHardJunction(seed, cc [32]byte) [32]byte {
	return junction.HDKDHash(hdkdDomain, seed, cc)
}
