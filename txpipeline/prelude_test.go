package txpipeline

import (
	"testing"

	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/keystore"
)

func TestParsePreludeOK(t *testing.T) {
	raw := []byte{0x53, 0x01, 0x00, 0xde, 0xad, 0xbe, 0xef}
	p, body, err := ParsePrelude(raw)
	if err != nil {
		t.Fatalf("ParsePrelude: %v", err)
	}
	if p.Encryption != keystore.Sr25519 {
		t.Fatalf("encryption = %q, want sr25519", p.Encryption)
	}
	if p.Kind != PayloadTransaction {
		t.Fatalf("kind = %#x, want PayloadTransaction", p.Kind)
	}
	if string(body) != "\xde\xad\xbe\xef" {
		t.Fatalf("body = %x", body)
	}
}

func TestParsePreludeNotSubstrate(t *testing.T) {
	_, _, err := ParsePrelude([]byte{0x00, 0x01, 0x00})
	if !errorkinds.Is(err, errorkinds.CodeNotSubstrate) {
		t.Fatalf("err = %v, want CodeNotSubstrate", err)
	}
}

func TestParsePreludeUnknownPayloadKind(t *testing.T) {
	_, _, err := ParsePrelude([]byte{0x53, 0x01, 0x99})
	if !errorkinds.Is(err, errorkinds.CodePayloadNotSupported) {
		t.Fatalf("err = %v, want CodePayloadNotSupported", err)
	}
}

func TestParsePreludeTooShort(t *testing.T) {
	_, _, err := ParsePrelude([]byte{0x53})
	if !errorkinds.Is(err, errorkinds.CodeDataTooShort) {
		t.Fatalf("err = %v, want CodeDataTooShort", err)
	}
}

func TestParsePreludeUnknownEncryption(t *testing.T) {
	_, _, err := ParsePrelude([]byte{0x53, 0x09, 0x00})
	if err == nil {
		t.Fatal("expected error for unknown encryption byte")
	}
}
