package extensions

import (
	"math/big"
	"testing"

	"github.com/tos-network/vault-core/decoder"
	"github.com/tos-network/vault-core/scale"
	"github.com/tos-network/vault-core/typeresolve"
)

// unitResolver resolves every Ref to an empty Composite — enough to
// drive Walk's default (non-special-cased) path without consuming any
// wire bytes or needing a real metadata fixture.
type unitResolver struct{}

func (unitResolver) Resolve(ref typeresolve.Ref) (typeresolve.Resolved, error) {
	return typeresolve.Resolved{Kind: typeresolve.KindComposite}, nil
}
func (unitResolver) Backend() string { return "unit" }

func standardExtensions() []Extension {
	unit := typeresolve.ByName("()")
	return []Extension{
		{Identifier: "CheckMortality", Ty: unit, AdditionalSigned: unit},
		{Identifier: "CheckNonce", Ty: unit, AdditionalSigned: unit},
		{Identifier: "ChargeTransactionPayment", Ty: unit, AdditionalSigned: unit},
		{Identifier: "CheckGenesis", Ty: unit, AdditionalSigned: unit},
		{Identifier: "CheckSpecVersion", Ty: unit, AdditionalSigned: unit},
	}
}

func mortalBytes(t *testing.T) []byte {
	t.Helper()
	// period=64 (encoded%16 == 4 -> 2<<4==32? use a known-good pair):
	// period = 2 << (encoded % 16); pick encoded such that period=64,
	// phase inside range. encoded%16 == 5 -> period = 2<<5 = 64.
	// quantizeFactor = period>>12 = 0 -> forced to 1. phase = (encoded>>4)*1.
	// Choose encoded = 0x0005 with phase bits = 1 -> encoded = 0b0001_0101 = 0x15.
	encoded := uint16(0x15)
	return []byte{byte(encoded), byte(encoded >> 8)}
}

func buildPayload(t *testing.T, genesis, checkpoint [32]byte, specVersion uint32, nonce, tip uint64) []byte {
	t.Helper()
	var out []byte
	out = append(out, mortalBytes(t)...)                        // CheckMortality.extra (Era)
	out = append(out, scale.EncodeCompact(big.NewInt(int64(nonce)))...) // CheckNonce.extra
	out = append(out, scale.EncodeCompact(big.NewInt(int64(tip)))...)  // ChargeTransactionPayment.extra
	// CheckGenesis.extra and CheckSpecVersion.extra both resolve via the
	// unitResolver default path and consume zero bytes.
	out = append(out, checkpoint[:]...) // CheckMortality.additional_signed
	out = append(out, genesis[:]...)    // CheckGenesis.additional_signed
	var specBuf [4]byte
	specBuf[0] = byte(specVersion)
	specBuf[1] = byte(specVersion >> 8)
	specBuf[2] = byte(specVersion >> 16)
	specBuf[3] = byte(specVersion >> 24)
	out = append(out, specBuf[:]...) // CheckSpecVersion.additional_signed
	return out
}

func TestDecodeMortalExtensionsHappyPath(t *testing.T) {
	var genesis, checkpoint [32]byte
	for i := range genesis {
		genesis[i] = byte(i)
	}
	checkpoint = genesis // mortal era: checkpoint need not equal genesis

	payload := buildPayload(t, genesis, checkpoint, 9110, 5, 100)
	c := scale.NewCursor(payload)
	ctx := &decoder.Context{Decimals: 10, Unit: "UNIT"}

	decoded, err := Decode(c, unitResolver{}, standardExtensions(), ctx)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.EraImmortal {
		t.Fatal("expected a mortal era")
	}
	if decoded.SpecVersion != 9110 {
		t.Fatalf("SpecVersion = %d, want 9110", decoded.SpecVersion)
	}
	if !c.Empty() {
		t.Fatalf("expected all bytes consumed, %d remain", c.Len())
	}
	if err := decoded.CheckGenesis(genesis[:]); err != nil {
		t.Fatalf("CheckGenesis: %v", err)
	}
	bad := append([]byte(nil), genesis[:]...)
	bad[0] ^= 0xFF
	if err := decoded.CheckGenesis(bad); err == nil {
		t.Fatal("expected CheckGenesis to reject a mismatched genesis hash")
	}
}

func TestDecodeImmortalEraRequiresMatchingCheckpoint(t *testing.T) {
	var genesis, checkpoint [32]byte
	for i := range genesis {
		genesis[i] = byte(i + 1)
	}
	checkpoint[0] = 0xFF // deliberately different from genesis

	var out []byte
	out = append(out, 0x00)                                        // Era: immortal (single zero byte)
	out = append(out, scale.EncodeCompact(big.NewInt(0))...)       // nonce
	out = append(out, scale.EncodeCompact(big.NewInt(0))...)       // tip
	out = append(out, genesis[:]...)
	out = append(out, checkpoint[:]...)
	out = append(out, 0, 0, 0, 0) // spec version

	c := scale.NewCursor(out)
	ctx := &decoder.Context{}
	_, err := Decode(c, unitResolver{}, standardExtensions(), ctx)
	if err == nil {
		t.Fatal("expected ImmortalHashMismatch when genesis != checkpoint under an immortal era")
	}
}

func TestDecodeMissingSpecVersionExtensionFails(t *testing.T) {
	exts := []Extension{
		{Identifier: "CheckMortality", Ty: typeresolve.ByName("()"), AdditionalSigned: typeresolve.ByName("()")},
	}
	payload := append(mortalBytes(t), make([]byte, 32)...) // era + checkpoint hash only
	c := scale.NewCursor(payload)
	_, err := Decode(c, unitResolver{}, exts, &decoder.Context{})
	if err == nil {
		t.Fatal("expected an error for missing spec-version extension")
	}
}

func TestDecodeDuplicateEraExtensionFails(t *testing.T) {
	exts := append(standardExtensions(), Extension{
		Identifier:       "CheckEra",
		Ty:               typeresolve.ByName("()"),
		AdditionalSigned: typeresolve.ByName("()"),
	})
	var genesis, checkpoint [32]byte
	payload := buildPayload(t, genesis, checkpoint, 1, 0, 0)
	// Append a second era's worth of bytes for the duplicate extension.
	payload = append(payload, mortalBytes(t)...)
	c := scale.NewCursor(payload)
	_, err := Decode(c, unitResolver{}, exts, &decoder.Context{})
	if err == nil {
		t.Fatal("expected EraTwice for a second era-bearing extension")
	}
}
