package txpipeline

import (
	"testing"

	"github.com/tos-network/vault-core/crypto/bip39derive"
	"github.com/tos-network/vault-core/crypto/junction"
	"github.com/tos-network/vault-core/crypto/sr25519"
	"github.com/tos-network/vault-core/keystore"
	"github.com/tos-network/vault-core/scale"
)

// The helpers below hand-encode a minimal v14-shaped metadata blob:
// one pallet ("System") with one call ("set_value", a single u32
// field) and the five standard signed extensions, enough to drive a
// transaction all the way from raw QR bytes to a verified signature
// without a real chain's metadata on hand.

func encOptionNone() []byte { return []byte{0} }

func encOptionStr(s string) []byte {
	return append([]byte{1}, encodeStr(s)...)
}

func encVecStrEmpty() []byte { return scale.EncodeCompact(bigFromInt(0)) }

func encField(name string, tyID int) []byte {
	out := encOptionStr(name)
	out = append(out, scale.EncodeCompact(bigFromInt(int64(tyID)))...)
	out = append(out, encOptionNone()...) // typeName
	out = append(out, encVecStrEmpty()...)
	return out
}

func encVariant(name string, index uint8, fields [][]byte) []byte {
	out := encodeStr(name)
	out = append(out, scale.EncodeCompact(bigFromInt(int64(len(fields))))...)
	for _, f := range fields {
		out = append(out, f...)
	}
	out = append(out, index)
	out = append(out, encVecStrEmpty()...)
	return out
}

func encRegistryEntry(id int, def []byte) []byte {
	out := scale.EncodeCompact(bigFromInt(int64(id)))
	out = append(out, encVecStrEmpty()...)             // path
	out = append(out, scale.EncodeCompact(bigFromInt(0))...) // params
	out = append(out, def...)
	out = append(out, encVecStrEmpty()...) // docs
	return out
}

func encRegistry(entries [][]byte) []byte {
	out := scale.EncodeCompact(bigFromInt(int64(len(entries))))
	for _, e := range entries {
		out = append(out, e...)
	}
	return out
}

func encPallet(name string, index uint8, callsTy *int) []byte {
	out := encodeStr(name)
	out = append(out, 0) // storage: None
	if callsTy == nil {
		out = append(out, 0)
	} else {
		out = append(out, 1)
		out = append(out, scale.EncodeCompact(bigFromInt(int64(*callsTy)))...)
	}
	out = append(out, 0)                               // events: None
	out = append(out, scale.EncodeCompact(bigFromInt(0))...) // constants: empty
	out = append(out, 0)                               // errors: None
	out = append(out, index)
	return out
}

func encSignedExtension(identifier string, ty, additional int) []byte {
	out := encodeStr(identifier)
	out = append(out, scale.EncodeCompact(bigFromInt(int64(ty)))...)
	out = append(out, scale.EncodeCompact(bigFromInt(int64(additional)))...)
	return out
}

// buildV14MetadataBlob assembles the full decodeMetadataBlob wire shape:
// spec version (u32 LE) + "meta" magic + version byte 14 + the
// scale-info PortableRegistry body (registry, pallets, extrinsic).
func buildV14MetadataBlob(specVersion uint32) []byte {
	// type id 0: Primitive u32 (tag 5 in decodeTypeDef's primitive
	// list, ptag 5 within primitiveName's own ordering)
	primitiveU32 := encRegistryEntry(0, []byte{5, 5})

	// type id 1: the System pallet's Call enum, one variant
	// "set_value" at index 0 with a single "value: u32" field.
	callEnum := encRegistryEntry(1, append([]byte{1}, append(
		scale.EncodeCompact(bigFromInt(1)),
		encVariant("set_value", 0, [][]byte{encField("value", 0)})...,
	)...))

	// type id 2: the unit type (an empty tuple), which consumes no bytes.
	unit := encRegistryEntry(2, []byte{4, 0})

	registry := encRegistry([][]byte{primitiveU32, callEnum, unit})

	callsTy := 1
	pallets := scale.EncodeCompact(bigFromInt(1))
	pallets = append(pallets, encPallet("System", 0, &callsTy)...)

	exts := [][]byte{
		encSignedExtension("CheckMortality", 0, 0),
		encSignedExtension("CheckNonce", 0, 2),
		encSignedExtension("ChargeTransactionPayment", 0, 2),
		encSignedExtension("CheckGenesis", 2, 0),
		encSignedExtension("CheckSpecVersion", 2, 0),
	}
	extrinsic := scale.EncodeCompact(bigFromInt(0)) // extrinsic type id, unused
	extrinsic = append(extrinsic, 4)                // format version
	extrinsic = append(extrinsic, scale.EncodeCompact(bigFromInt(int64(len(exts))))...)
	for _, e := range exts {
		extrinsic = append(extrinsic, e...)
	}

	var out []byte
	out = append(out, byte(specVersion), byte(specVersion>>8), byte(specVersion>>16), byte(specVersion>>24))
	out = append(out, []byte(metadataMagic[:])...)
	out = append(out, metadataVersionByte)
	out = append(out, registry...)
	out = append(out, pallets...)
	out = append(out, extrinsic...)
	return out
}

// mortalEraBytes encodes a valid two-byte mortal Era (period=64, phase=1).
func mortalEraBytes() []byte { return []byte{0x15, 0x00} }

func TestTransactionSignEndToEnd(t *testing.T) {
	p := openTest(t)
	storage := newMemSeedStorage()
	if err := storage.SaveSeed("main", testMnemonic); err != nil {
		t.Fatalf("save seed: %v", err)
	}

	genesis := make([]byte, 32)
	genesis[0] = 0x42

	// Register the network (add_specs).
	specsBody := append([]byte{}, encodeVerifierInfoNone()...)
	specsBody = append(specsBody, uint16le(42)...)
	specsBody = append(specsBody, encodeStr("")...)
	specsBody = append(specsBody, encodeStr("")...)
	specsBody = append(specsBody, 10)
	specsBody = append(specsBody, 1) // sr25519
	specsBody = append(specsBody, genesis...)
	specsBody = append(specsBody, encodeStr("")...)
	specsBody = append(specsBody, encodeStr("fixturenet")...)
	specsBody = append(specsBody, encodeStr("fixturenet")...)
	specsBody = append(specsBody, encodeStr("Fixturenet")...)
	specsBody = append(specsBody, encodeStr("FIX")...)
	specsRaw := append([]byte{0x53, 0x01, byte(PayloadAddSpecs)}, specsBody...)
	specsResult, err := p.Parse(specsRaw)
	if err != nil {
		t.Fatalf("Parse add_specs: %v", err)
	}
	if _, err := p.Commit(specsResult.Checksum, storage, "", ""); err != nil {
		t.Fatalf("Commit add_specs: %v", err)
	}

	// Load metadata for spec version 9000.
	metaBlob := buildV14MetadataBlob(9000)
	metaBody := append([]byte{}, encodeVerifierInfoNone()...)
	metaBody = append(metaBody, encodeBytes(metaBlob)...)
	metaBody = append(metaBody, genesis...)
	metaRaw := append([]byte{0x53, 0x01, byte(PayloadLoadMetadata)}, metaBody...)
	metaResult, err := p.Parse(metaRaw)
	if err != nil {
		t.Fatalf("Parse load_metadata: %v", err)
	}
	if _, err := p.Commit(metaResult.Checksum, storage, "", ""); err != nil {
		t.Fatalf("Commit load_metadata: %v", err)
	}

	// Derive the signing address and register it for this network.
	addrKey, _, err := p.keys.TryCreateAddress(storage, "main", keystore.Sr25519, "//0", genesis)
	if err != nil {
		t.Fatalf("TryCreateAddress: %v", err)
	}
	pubkey := []byte(addrKey[1:])

	// Build the transaction payload: pubkey + method (length-prefixed)
	// + extensions + trailing genesis hash.
	method := []byte{0, 0} // pallet 0 (System), call 0 (set_value)
	method = append(method, 7, 0, 0, 0)

	var extBytes []byte
	extBytes = append(extBytes, mortalEraBytes()...)                  // CheckMortality.extra
	extBytes = append(extBytes, scale.EncodeCompact(bigFromInt(0))...) // CheckNonce.extra
	extBytes = append(extBytes, scale.EncodeCompact(bigFromInt(0))...) // ChargeTransactionPayment.extra
	extBytes = append(extBytes, genesis...)                           // CheckMortality.additional_signed (checkpoint)
	extBytes = append(extBytes, genesis...)                           // CheckGenesis.additional_signed
	extBytes = append(extBytes, uint32le(9000)...)                    // CheckSpecVersion.additional_signed

	txBody := append([]byte{}, pubkey...)
	txBody = append(txBody, encodeBytes(method)...)
	txBody = append(txBody, extBytes...)
	txBody = append(txBody, genesis...)
	txRaw := append([]byte{0x53, 0x01, byte(PayloadTransaction)}, txBody...)

	txResult, err := p.Parse(txRaw)
	if err != nil {
		t.Fatalf("Parse transaction: %v", err)
	}
	if !txResult.IsSign {
		t.Fatal("expected IsSign")
	}
	if len(txResult.Deck.Cards) == 0 {
		t.Fatal("expected a non-empty card deck")
	}

	commitResult, err := p.Commit(txResult.Checksum, storage, "", "")
	if err != nil {
		t.Fatalf("Commit transaction: %v", err)
	}
	if len(commitResult.Signature) == 0 {
		t.Fatal("expected a signature")
	}

	signingPayload := append(append([]byte{}, method...), extBytes...)
	path, err := junction.Parse("//0")
	if err != nil {
		t.Fatalf("Parse //0: %v", err)
	}
	seed, err := bip39derive.SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic: %v", err)
	}
	var seed32 [32]byte
	copy(seed32[:], seed)
	kp, err := sr25519.Derive(seed32, path)
	if err != nil {
		t.Fatalf("Derive //0: %v", err)
	}
	pub, err := kp.Public()
	if err != nil {
		t.Fatalf("Public: %v", err)
	}
	if pub.Encode() != [32]byte(pubkey) {
		t.Fatalf("derived pubkey does not match the address created by TryCreateAddress")
	}
	var sig [64]byte
	copy(sig[:], commitResult.Signature)
	ok, err := sr25519.Verify(pub, signingPayload, sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("signature does not verify against the method+extensions payload")
	}

	// A second Commit against the now-deleted checksum must fail.
	if _, err := p.Commit(txResult.Checksum, storage, "", ""); err == nil {
		t.Fatal("expected committing an already-consumed checksum to fail")
	}
}

func encodeBytes(b []byte) []byte {
	n := scale.EncodeCompact(bigFromInt(int64(len(b))))
	return append(n, b...)
}

func uint32le(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
