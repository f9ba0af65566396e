// Package ecdsa implements the Ecdsa/Ethereum signature scheme (spec.md
// §5): secp256k1 keys, hard-only junction derivation, and the 65-byte
// recoverable signature shape Ethereum-style encryption uses. Grounded
// on the teacher's cmd/toskey/generate.go (btcec key handling); Derive
// chains hard junctions with the blake2b HDKD hash from crypto/junction.
package ecdsa

import (
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	decredec "github.com/decred/dcrd/dcrec/secp256k1/v4"
	decredecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"

	"github.com/tos-network/vault-core/crypto/junction"
	"github.com/tos-network/vault-core/errorkinds"
)

const hdkdDomain = "Secp256k1HDKD"

// PrivateKey is a secp256k1 scalar; PublicKey its corresponding point,
// both backed by decred's constant-time field/scalar arithmetic (the
// same library btcec/v2 itself is built on, already a teacher-adjacent
// dependency via cmd/toskey/generate.go's btcec usage).
type PrivateKey = decredec.PrivateKey
type PublicKey = decredec.PublicKey

// NewKeyFromSeed reduces a 32-byte seed to a secp256k1 scalar.
func NewKeyFromSeed(seed [32]byte) *PrivateKey {
	return decredec.PrivKeyFromBytes(seed[:])
}

// Derive walks seed through path's junctions using the same
// domain-separated blake2b-256 hard-chaining scheme crypto/ed25519
// uses, rejecting any soft junction — Ecdsa has no blinded-public-key
// construction, so soft derivation can't be supported without a shared
// secret.
func Derive(seed [32]byte, path junction.Path) ([32]byte, error) {
	acc := seed
	for _, j := range path.Junctions {
		if j.Kind == junction.Soft {
			return [32]byte{}, errorkinds.New(errorkinds.KindAddressGen, errorkinds.CodeInvalidDerivation, "soft junctions are not supported for Ecdsa")
		}
		acc = deriveHardJunction(acc, j.ID)
	}
	return acc, nil
}

func deriveHardJunction(seed, cc [32]byte) [32]byte {
	return junction.HDKDHash(hdkdDomain, seed, cc)
}

// Sign produces a 65-byte recoverable signature (r ∥ s ∥ recovery-id)
// over a 32-byte digest, the shape Ethereum-family transaction and
// message signing uses.
func Sign(priv *PrivateKey, digest [32]byte) ([]byte, error) {
	sig, err := decredecdsa.SignCompact(priv, digest[:], false)
	if err != nil {
		return nil, err
	}
	// decred's SignCompact returns [recovery-id+27, r, s]; normalize to
	// the Ethereum convention of [r, s, recovery-id].
	out := make([]byte, 65)
	copy(out[0:32], sig[1:33])
	copy(out[32:64], sig[33:65])
	out[64] = sig[0] - 27
	return out, nil
}

// Verify reports whether sig (64-byte r‖s, recovery id ignored) is a
// valid signature of digest by pub.
func Verify(pub *PublicKey, digest, sig []byte) bool {
	if len(sig) < 64 {
		return false
	}
	r := new(big.Int).SetBytes(sig[0:32])
	s := new(big.Int).SetBytes(sig[32:64])
	var rMod, sMod decredec.ModNScalar
	rMod.SetByteSlice(r.Bytes())
	sMod.SetByteSlice(s.Bytes())
	signature := decredecdsa.NewSignature(&rMod, &sMod)
	return signature.Verify(digest, pub)
}

// EthereumAddress derives the 20-byte Ethereum-style address from an
// uncompressed public key: the low 20 bytes of keccak256(x ∥ y).
func EthereumAddress(pub *PublicKey) [20]byte {
	uncompressed := pub.SerializeUncompressed()[1:] // strip the 0x04 prefix
	h := sha3.NewLegacyKeccak256()
	h.Write(uncompressed)
	sum := h.Sum(nil)
	var out [20]byte
	copy(out[:], sum[12:])
	return out
}

// SignSchnorr produces a BIP340 schnorr signature, the alternate
// "schnorr" signer type cmd/toskey's generate command names alongside
// plain ecdsa secp256k1.
func SignSchnorr(priv *PrivateKey, digest [32]byte) ([]byte, error) {
	sig, err := schnorr.Sign(priv, digest[:])
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}

// VerifySchnorr reports whether sig is a valid BIP340 signature of
// digest by pub.
func VerifySchnorr(pub *PublicKey, digest [32]byte, sig []byte) bool {
	s, err := schnorr.ParseSignature(sig)
	if err != nil {
		return false
	}
	return s.Verify(digest[:], pub)
}
