// Package keystore implements C6: hierarchical key derivation and the
// address metadata store (spec.md §3, §6). Seed phrases themselves are
// never written to the on-disk store — only a SeedStorage
// implementation (backed by whatever secure enclave/keychain the host
// provides) ever sees plaintext mnemonics; this package persists only
// public address metadata (ADDRTREE), matching the teacher's key/value
// separation of concerns in accounts/keystore (encrypted material kept
// apart from the address-keyed lookup the rest of the system uses).
package keystore

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/tos-network/vault-core/errorkinds"
)

// Encryption is the closed set of schemes spec.md §5 names.
type Encryption string

const (
	Sr25519  Encryption = "sr25519"
	Ed25519  Encryption = "ed25519"
	Ecdsa    Encryption = "ecdsa"
	Ethereum Encryption = "ethereum"
)

func (e Encryption) tag() byte {
	switch e {
	case Ed25519:
		return 0
	case Sr25519:
		return 1
	case Ecdsa:
		return 2
	case Ethereum:
		return 3
	default:
		return 0xff
	}
}

func encryptionFromTag(b byte) (Encryption, error) {
	switch b {
	case 0:
		return Ed25519, nil
	case 1:
		return Sr25519, nil
	case 2:
		return Ecdsa, nil
	case 3:
		return Ethereum, nil
	default:
		return "", errorkinds.New(errorkinds.KindInput, errorkinds.CodeBadFormat, "unknown encryption tag %#x", b)
	}
}

// EncryptionFromTag exposes encryptionFromTag for packages (C9's prelude
// parser, C7's trust store) that decode the 1-byte encryption tag before
// any AddressKey/NetworkSpecsKey bytes are available to parse it from.
func EncryptionFromTag(b byte) (Encryption, error) { return encryptionFromTag(b) }

// AddressKey identifies one derived key by its public key bytes, tagged
// with the scheme that produced it (the same pubkey bytes under two
// schemes would otherwise collide). Exported as a fixed-layout byte
// slice, the same way spec.md's glossary describes database keys.
type AddressKey []byte

// NewAddressKey builds an AddressKey from a scheme and raw public key.
func NewAddressKey(enc Encryption, pubkey []byte) AddressKey {
	out := make(AddressKey, 0, len(pubkey)+1)
	out = append(out, enc.tag())
	return append(out, pubkey...)
}

// Encryption extracts the scheme tag from an AddressKey.
func (k AddressKey) Encryption() (Encryption, error) {
	if len(k) == 0 {
		return "", errorkinds.New(errorkinds.KindInput, errorkinds.CodeBadFormat, "empty address key")
	}
	return encryptionFromTag(k[0])
}

// PublicKey extracts the raw public key bytes from an AddressKey.
func (k AddressKey) PublicKey() []byte {
	if len(k) < 1 {
		return nil
	}
	return k[1:]
}

func (k AddressKey) Hex() string { return hex.EncodeToString(k) }

// NetworkSpecsKey identifies one network by its genesis hash and the
// encryption scheme its addresses use (spec.md §3: a chain can in
// principle run more than one scheme, so genesis hash alone doesn't
// disambiguate).
type NetworkSpecsKey []byte

func NewNetworkSpecsKey(enc Encryption, genesisHash []byte) NetworkSpecsKey {
	out := make(NetworkSpecsKey, 0, len(genesisHash)+1)
	out = append(out, enc.tag())
	return append(out, genesisHash...)
}

func (k NetworkSpecsKey) Hex() string { return hex.EncodeToString(k) }

// MetaKey identifies one (network name, spec version) metadata blob.
type MetaKey struct {
	NetworkName string
	SpecVersion uint32
}

func (k MetaKey) Bytes() []byte {
	out := make([]byte, len(k.NetworkName)+4)
	copy(out, k.NetworkName)
	binary.BigEndian.PutUint32(out[len(k.NetworkName):], k.SpecVersion)
	return out
}

// VerifierKey identifies a network's verifier record by genesis hash.
type VerifierKey []byte

func NewVerifierKey(genesisHash []byte) VerifierKey {
	return VerifierKey(append([]byte(nil), genesisHash...))
}
