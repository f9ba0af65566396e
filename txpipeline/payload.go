package txpipeline

import (
	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/keystore"
	"github.com/tos-network/vault-core/scale"
	"github.com/tos-network/vault-core/verifier"
)

// TransactionBody is the decoded body of a 0x00 payload.
type TransactionBody struct {
	AuthorPubkey []byte
	Method       []byte
	Extensions   []byte
	GenesisHash  []byte
}

func decodeTransactionBody(c *scale.Cursor, enc keystore.Encryption) (TransactionBody, error) {
	pub, err := c.DecodeArray(pubkeyLen(enc))
	if err != nil {
		return TransactionBody{}, errorkinds.Parser(errorkinds.CodeDataTooShort, "author pubkey: %v", err)
	}
	method, err := c.DecodeBytes()
	if err != nil {
		return TransactionBody{}, errorkinds.Parser(errorkinds.CodeDataTooShort, "method: %v", err)
	}
	rest := c.Remaining()
	if len(rest) < 32 {
		return TransactionBody{}, errorkinds.Parser(errorkinds.CodeDataTooShort, "no trailing genesis hash")
	}
	return TransactionBody{
		AuthorPubkey: pub,
		Method:       method,
		Extensions:   rest[:len(rest)-32],
		GenesisHash:  rest[len(rest)-32:],
	}, nil
}

// LoadMetadataBody is the decoded body of a 0x02 payload.
type LoadMetadataBody struct {
	Signer      *verifier.Value
	Meta        []byte
	GenesisHash []byte
}

func decodeLoadMetadataBody(c *scale.Cursor) (LoadMetadataBody, error) {
	signer, err := decodeVerifierInfo(c)
	if err != nil {
		return LoadMetadataBody{}, err
	}
	meta, err := c.DecodeBytes()
	if err != nil {
		return LoadMetadataBody{}, errorkinds.Parser(errorkinds.CodeDataTooShort, "metadata bytes: %v", err)
	}
	rest := c.Remaining()
	if len(rest) < 32 {
		return LoadMetadataBody{}, errorkinds.Parser(errorkinds.CodeDataTooShort, "no trailing genesis hash")
	}
	return LoadMetadataBody{Signer: signer, Meta: meta, GenesisHash: rest[:32]}, nil
}

// AddSpecsBody is the decoded body of a 0xC1 payload: verifier_info plus
// a NetworkSpecsToSend record laid out field-for-field as network.BaseSpecs
// (this wire shape is this core's own design — original_source ships the
// equivalent struct over a different serialization, so field order here
// is a judgment call recorded in DESIGN.md rather than a reverse-engineered
// byte-exact format).
type AddSpecsBody struct {
	Signer *verifier.Value
	Specs  NetworkSpecsToSend
}

// NetworkSpecsToSend mirrors network.BaseSpecs for wire transport.
type NetworkSpecsToSend struct {
	Base58Prefix   uint16
	Color          string
	SecondaryColor string
	Decimals       uint8
	Encryption     keystore.Encryption
	GenesisHash    []byte
	Logo           string
	Name           string
	PathID         string
	Title          string
	Unit           string
}

func decodeAddSpecsBody(c *scale.Cursor) (AddSpecsBody, error) {
	signer, err := decodeVerifierInfo(c)
	if err != nil {
		return AddSpecsBody{}, err
	}
	prefix, err := c.DecodeUint16()
	if err != nil {
		return AddSpecsBody{}, errorkinds.Parser(errorkinds.CodeDataTooShort, "base58 prefix: %v", err)
	}
	color, err := c.DecodeStr()
	if err != nil {
		return AddSpecsBody{}, errorkinds.Parser(errorkinds.CodeDataTooShort, "color: %v", err)
	}
	secondary, err := c.DecodeStr()
	if err != nil {
		return AddSpecsBody{}, errorkinds.Parser(errorkinds.CodeDataTooShort, "secondary color: %v", err)
	}
	decimals, err := c.DecodeUint8()
	if err != nil {
		return AddSpecsBody{}, errorkinds.Parser(errorkinds.CodeDataTooShort, "decimals: %v", err)
	}
	encByte, err := c.DecodeByte()
	if err != nil {
		return AddSpecsBody{}, errorkinds.Parser(errorkinds.CodeDataTooShort, "encryption: %v", err)
	}
	enc, err := keystore.EncryptionFromTag(encByte)
	if err != nil {
		return AddSpecsBody{}, err
	}
	genesis, err := c.DecodeArray(32)
	if err != nil {
		return AddSpecsBody{}, errorkinds.Parser(errorkinds.CodeDataTooShort, "genesis hash: %v", err)
	}
	logo, err := c.DecodeStr()
	if err != nil {
		return AddSpecsBody{}, errorkinds.Parser(errorkinds.CodeDataTooShort, "logo: %v", err)
	}
	name, err := c.DecodeStr()
	if err != nil {
		return AddSpecsBody{}, errorkinds.Parser(errorkinds.CodeDataTooShort, "name: %v", err)
	}
	pathID, err := c.DecodeStr()
	if err != nil {
		return AddSpecsBody{}, errorkinds.Parser(errorkinds.CodeDataTooShort, "path id: %v", err)
	}
	title, err := c.DecodeStr()
	if err != nil {
		return AddSpecsBody{}, errorkinds.Parser(errorkinds.CodeDataTooShort, "title: %v", err)
	}
	unit, err := c.DecodeStr()
	if err != nil {
		return AddSpecsBody{}, errorkinds.Parser(errorkinds.CodeDataTooShort, "unit: %v", err)
	}
	return AddSpecsBody{
		Signer: signer,
		Specs: NetworkSpecsToSend{
			Base58Prefix: prefix, Color: color, SecondaryColor: secondary, Decimals: decimals,
			Encryption: enc, GenesisHash: genesis, Logo: logo, Name: name, PathID: pathID,
			Title: title, Unit: unit,
		},
	}, nil
}

// LoadTypesBody is the decoded body of a 0x81 payload.
type LoadTypesBody struct {
	Signer *verifier.Value
	Types  []byte
}

func decodeLoadTypesBody(c *scale.Cursor) (LoadTypesBody, error) {
	signer, err := decodeVerifierInfo(c)
	if err != nil {
		return LoadTypesBody{}, err
	}
	types, err := c.DecodeBytes()
	if err != nil {
		return LoadTypesBody{}, errorkinds.Parser(errorkinds.CodeDataTooShort, "types bytes: %v", err)
	}
	return LoadTypesBody{Signer: signer, Types: types}, nil
}

// DerivationEntry is one path in a derivations_bundle payload. The seed
// it applies to is never transmitted — the caller supplies a local seed
// name at commit time.
type DerivationEntry struct {
	Encryption keystore.Encryption
	Path       string
}

func decodeDerivationsBundle(c *scale.Cursor) ([]DerivationEntry, error) {
	n, err := c.DecodeCompactUint64()
	if err != nil {
		return nil, errorkinds.Parser(errorkinds.CodeNoCompact, "derivations bundle length: %v", err)
	}
	out := make([]DerivationEntry, 0, n)
	for i := uint64(0); i < n; i++ {
		encByte, err := c.DecodeByte()
		if err != nil {
			return nil, errorkinds.Parser(errorkinds.CodeDataTooShort, "derivation %d encryption: %v", i, err)
		}
		enc, err := keystore.EncryptionFromTag(encByte)
		if err != nil {
			return nil, err
		}
		path, err := c.DecodeStr()
		if err != nil {
			return nil, errorkinds.Parser(errorkinds.CodeDataTooShort, "derivation %d path: %v", i, err)
		}
		out = append(out, DerivationEntry{Encryption: enc, Path: path})
	}
	return out, nil
}

func decodeVerifierInfo(c *scale.Cursor) (*verifier.Value, error) {
	tag, err := c.DecodeByte()
	if err != nil {
		return nil, errorkinds.Parser(errorkinds.CodeDataTooShort, "verifier_info tag: %v", err)
	}
	switch tag {
	case 0:
		return nil, nil
	case 1:
		encByte, err := c.DecodeByte()
		if err != nil {
			return nil, errorkinds.Parser(errorkinds.CodeDataTooShort, "verifier encryption: %v", err)
		}
		enc, err := keystore.EncryptionFromTag(encByte)
		if err != nil {
			return nil, err
		}
		pub, err := c.DecodeArray(pubkeyLen(enc))
		if err != nil {
			return nil, errorkinds.Parser(errorkinds.CodeDataTooShort, "verifier public key: %v", err)
		}
		return &verifier.Value{Public: pub, Encryption: string(enc)}, nil
	default:
		return nil, errorkinds.Parser(errorkinds.CodeUnexpectedOptionVariant, "verifier_info tag %#x is neither 0 nor 1", tag)
	}
}
