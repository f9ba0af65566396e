package junction

import (
	"math/big"
	"testing"

	"golang.org/x/crypto/blake2b"

	"github.com/tos-network/vault-core/scale"
)

func TestParseSeparatesSeedNameAndPassword(t *testing.T) {
	p, err := Parse("main//hard/soft///secret")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.SeedName != "main" {
		t.Fatalf("seed name: got %q", p.SeedName)
	}
	if !p.HasPassword || p.Password != "secret" {
		t.Fatalf("password: got %q has=%v", p.Password, p.HasPassword)
	}
	if len(p.Junctions) != 2 {
		t.Fatalf("expected 2 junctions, got %d", len(p.Junctions))
	}
	if p.Junctions[0].Kind != Hard || p.Junctions[1].Kind != Soft {
		t.Fatalf("unexpected junction kinds: %+v", p.Junctions)
	}
}

func TestParseNoJunctionsOrPassword(t *testing.T) {
	p, err := Parse("main")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.SeedName != "main" || len(p.Junctions) != 0 || p.HasPassword {
		t.Fatalf("unexpected parse result: %+v", p)
	}
}

func TestHasSoftDetectsAnySoftJunction(t *testing.T) {
	p, err := Parse("main//hard/soft")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !p.HasSoft() {
		t.Fatalf("expected HasSoft to be true")
	}

	hardOnly, err := Parse("main//one//two")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if hardOnly.HasSoft() {
		t.Fatalf("expected HasSoft to be false for an all-hard path")
	}
}

func TestEncodeIDNumericIsLittleEndian(t *testing.T) {
	id := encodeID("1")
	if id[0] != 1 {
		t.Fatalf("expected first byte to be 1, got %d", id[0])
	}
	for _, b := range id[1:] {
		if b != 0 {
			t.Fatalf("expected remaining bytes to be zero, got %v", id)
		}
	}
}

func TestEncodeIDShortStringIsScaleEncodedThenCopiedVerbatim(t *testing.T) {
	// spec.md §5: "SCALE-length-prefixed UTF-8" — a compact length
	// prefix (here 5<<2, the 1-byte compact mode) precedes the bytes.
	id := encodeID("hello")
	if id[0] != 5<<2 {
		t.Fatalf("expected a compact(5) length prefix (0x%02x), got 0x%02x", byte(5<<2), id[0])
	}
	if string(id[1:6]) != "hello" {
		t.Fatalf("expected bytes after the length prefix to be 'hello', got %q", id[1:6])
	}
}

func TestEncodeIDLongStringIsHashed(t *testing.T) {
	long := "this string is deliberately longer than thirty two bytes"
	id := encodeID(long)
	if string(id[:5]) == long[:5] {
		t.Fatalf("expected long string to be hashed, not copied verbatim")
	}
}

// TestHDKDHashMatchesScaleEncodedTuple pins the tuple encoding
// (domain, seed, cc).using_encoded(blake2_256): the domain string
// carries its own compact length prefix, followed by the two raw
// 32-byte arrays (arrays carry no length prefix in SCALE).
func TestHDKDHashMatchesScaleEncodedTuple(t *testing.T) {
	var seed, cc [32]byte
	for i := range seed {
		seed[i] = byte(i)
		cc[i] = byte(0xFF - i)
	}
	domain := "Sr25519HDKD"

	want := func() [32]byte {
		buf := append(scale.EncodeCompact(big.NewInt(int64(len(domain)))), []byte(domain)...)
		buf = append(buf, seed[:]...)
		buf = append(buf, cc[:]...)
		return blake2b.Sum256(buf)
	}()

	if got := HDKDHash(domain, seed, cc); got != want {
		t.Fatalf("HDKDHash = %x, want %x", got, want)
	}
}
