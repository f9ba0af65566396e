// Package txpipeline implements C9: the glue that turns a reassembled
// QR payload into a staged, checksum-gated action and, on approval, a
// signature or an applied store update (spec.md §4.9, §6). Multi-frame
// reassembly (raptorq / legacy indexed frames) happens upstream of this
// package; Parse always receives one already-reassembled payload.
package txpipeline

import (
	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/keystore"
	"github.com/tos-network/vault-core/scale"
)

// PayloadKind is the byte at prelude offset 2 (spec.md §6).
type PayloadKind byte

const (
	PayloadTransaction       PayloadKind = 0x00
	PayloadLoadMetadata      PayloadKind = 0x02
	PayloadAddSpecs          PayloadKind = 0xC1
	PayloadLoadTypes         PayloadKind = 0x81
	PayloadDerivationsBundle PayloadKind = 0xDE
)

func (k PayloadKind) known() bool {
	switch k {
	case PayloadTransaction, PayloadLoadMetadata, PayloadAddSpecs, PayloadLoadTypes, PayloadDerivationsBundle:
		return true
	default:
		return false
	}
}

const preludeMagic = 0x53

// Prelude is the decoded 3-byte header spec.md §6 puts before every
// payload body.
type Prelude struct {
	Encryption keystore.Encryption
	Kind       PayloadKind
}

// ParsePrelude reads the 0x53 magic, encryption byte, and payload-kind
// byte off raw and returns the rest as body. A leading byte other than
// 0x53 is not an error this package's own taxonomy models as a decode
// failure to retry against different metadata — it means the bytes
// aren't a Substrate payload at all.
func ParsePrelude(raw []byte) (Prelude, []byte, error) {
	c := scale.NewCursor(raw)
	magic, err := c.DecodeByte()
	if err != nil {
		return Prelude{}, nil, errorkinds.Parser(errorkinds.CodeNotSubstrate, "payload shorter than the prelude")
	}
	if magic != preludeMagic {
		return Prelude{}, nil, errorkinds.Parser(errorkinds.CodeNotSubstrate, "leading byte %#x is not the Substrate payload magic", magic)
	}
	encByte, err := c.DecodeByte()
	if err != nil {
		return Prelude{}, nil, errorkinds.Parser(errorkinds.CodeDataTooShort, "no encryption byte after magic")
	}
	enc, err := keystore.EncryptionFromTag(encByte)
	if err != nil {
		return Prelude{}, nil, err
	}
	kindByte, err := c.DecodeByte()
	if err != nil {
		return Prelude{}, nil, errorkinds.Parser(errorkinds.CodeDataTooShort, "no payload kind byte after encryption")
	}
	kind := PayloadKind(kindByte)
	if !kind.known() {
		return Prelude{}, nil, errorkinds.Parser(errorkinds.CodePayloadNotSupported, "unknown payload kind %#x", kindByte)
	}
	return Prelude{Encryption: enc, Kind: kind}, c.Remaining(), nil
}

// pubkeyLen is the raw public key/address length persisted for each
// scheme (spec.md §8 scenario 2: Ethereum's "public key" is the 20-byte
// address, not a curve point).
func pubkeyLen(enc keystore.Encryption) int {
	switch enc {
	case keystore.Sr25519, keystore.Ed25519:
		return 32
	case keystore.Ecdsa:
		return 33
	case keystore.Ethereum:
		return 20
	default:
		return 0
	}
}
