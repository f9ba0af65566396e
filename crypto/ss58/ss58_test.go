package ss58

import (
	"testing"

	"github.com/mr-tron/base58"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	prefixes := []uint16{0, 2, 42, 63, 64, 255, 1284, 16383}
	pubkey := make([]byte, 32)
	for i := range pubkey {
		pubkey[i] = byte(i * 7)
	}
	for _, prefix := range prefixes {
		addr := Encode(prefix, pubkey)
		gotPrefix, gotPubkey, err := Decode(addr)
		if err != nil {
			t.Fatalf("prefix %d: decode: %v", prefix, err)
		}
		if gotPrefix != prefix {
			t.Fatalf("prefix %d: got prefix %d", prefix, gotPrefix)
		}
		if string(gotPubkey) != string(pubkey) {
			t.Fatalf("prefix %d: pubkey mismatch", prefix)
		}
	}
}

func TestDecodeRejectsTamperedChecksum(t *testing.T) {
	pubkey := make([]byte, 32)
	addr := Encode(42, pubkey)
	raw, err := base58.Decode(addr)
	if err != nil {
		t.Fatalf("decode to bytes: %v", err)
	}
	raw[len(raw)-1] ^= 0xff
	if _, _, err := Decode(base58.Encode(raw)); err != ErrBadChecksum {
		t.Fatalf("got %v, want ErrBadChecksum", err)
	}
}

func TestDecodeRejectsShortInput(t *testing.T) {
	if _, _, err := Decode(base58.Encode([]byte{1, 2})); err != ErrBadLength {
		t.Fatalf("got %v, want ErrBadLength", err)
	}
}

func TestIdentBytesTwoBytePrefix(t *testing.T) {
	// Prefixes at and above 64 round-trip through the two-byte ident
	// form; below 64 they stay a single byte.
	for _, prefix := range []uint16{64, 100, 1284, 4095} {
		ident := identBytes(prefix)
		if len(ident) != 2 {
			t.Fatalf("prefix %d: want 2-byte ident, got %d bytes", prefix, len(ident))
		}
		got, n, err := identPrefix(ident)
		if err != nil {
			t.Fatalf("prefix %d: identPrefix: %v", prefix, err)
		}
		if n != 2 || got != prefix {
			t.Fatalf("prefix %d: round trip got prefix=%d n=%d", prefix, got, n)
		}
	}
}
