// Package bip39derive turns a BIP39 mnemonic into the 64-byte seed every
// scheme's hard-junction chaining starts from (spec.md §5). Mnemonic
// parsing/checksum/entropy extraction is grounded on the teacher's
// cmd/toskey/mnemonic.go, which calls the same go-bip39 library for the
// same purpose; generalized here to not assume any one target scheme,
// since this core must derive Sr25519, Ed25519, and Ecdsa/Ethereum keys
// from the same seed.
//
// The stretching step deliberately does NOT use go-bip39's own
// NewSeedWithErrorChecking (standard BIP39: PBKDF2 over the mnemonic's
// *word sentence*). sp-core/substrate-bip39 — and spec.md §5's "seed =
// pbkdf2(...)" line — stretch the mnemonic's raw *entropy* instead, so
// this package extracts the entropy first and runs PBKDF2 over that, to
// match the ground-truth derivation vectors in spec.md §8.
package bip39derive

import (
	"crypto/sha512"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/pbkdf2"

	"github.com/tos-network/vault-core/errorkinds"
)

const (
	pbkdf2Salt       = "mnemonic"
	pbkdf2Iterations = 2048
	pbkdf2KeyLen     = 64
)

// SeedFromMnemonic validates mnemonic's checksum, extracts its raw BIP39
// entropy, and stretches that entropy via
// PBKDF2-HMAC-SHA512(entropy, "mnemonic"+passphrase, 2048, 64) into the
// 64-byte seed every scheme's Derive takes its mini-secret/scalar from
// (the first 32 bytes). This is sp-core's entropy-based stretching, not
// standard BIP39's sentence-based one.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errorkinds.New(errorkinds.KindInput, errorkinds.CodeBadFormat, "invalid BIP39 mnemonic")
	}
	entropy, err := bip39.EntropyFromMnemonic(mnemonic)
	if err != nil {
		return nil, errorkinds.New(errorkinds.KindInput, errorkinds.CodeBadFormat, "invalid BIP39 mnemonic: %v", err)
	}
	salt := []byte(pbkdf2Salt + passphrase)
	seed := pbkdf2.Key(entropy, salt, pbkdf2Iterations, pbkdf2KeyLen, sha512.New)
	return seed, nil
}

// GenerateMnemonic creates a new mnemonic at the given entropy size in
// bits (128, 160, 192, 224, or 256), matching cmd/toskey's supported
// sizes.
func GenerateMnemonic(bits int) (string, error) {
	switch bits {
	case 128, 160, 192, 224, 256:
	default:
		return "", errorkinds.New(errorkinds.KindInput, errorkinds.CodeBadFormat, "invalid mnemonic entropy %d bits", bits)
	}
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}
