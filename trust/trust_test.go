package trust

import (
	"path/filepath"
	"testing"

	"github.com/tos-network/vault-core/keystore"
	"github.com/tos-network/vault-core/store"
	"github.com/tos-network/vault-core/verifier"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "vault.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return Open(s)
}

func v(pub string) *verifier.Value {
	return &verifier.Value{Public: []byte(pub), Encryption: "sr25519"}
}

func TestGetNetworkDefaultsToNone(t *testing.T) {
	tr := openTest(t)
	got, err := tr.GetNetwork(keystore.NewVerifierKey([]byte("genesis")))
	if err != nil {
		t.Fatalf("GetNetwork: %v", err)
	}
	if got.Kind != verifier.KindNone {
		t.Fatalf("got %+v, want KindNone", got)
	}
}

func TestAcceptLoadMetadataTrustOnFirstUse(t *testing.T) {
	tr := openTest(t)
	genesis := []byte("genesis-1")
	signer := v("alice")

	got, err := tr.AcceptLoadMetadata(genesis, signer)
	if err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if got.Kind != verifier.KindCustom {
		t.Fatalf("got %+v, want KindCustom", got)
	}

	persisted, err := tr.GetNetwork(keystore.NewVerifierKey(genesis))
	if err != nil {
		t.Fatalf("GetNetwork after accept: %v", err)
	}
	if persisted.Kind != verifier.KindCustom {
		t.Fatalf("got %+v, want KindCustom", persisted)
	}
	if string(persisted.Value.Public) != "alice" {
		t.Fatalf("persisted verifier public key = %q, want alice", persisted.Value.Public)
	}
}

func TestAcceptLoadMetadataSameSignerIsNoop(t *testing.T) {
	tr := openTest(t)
	genesis := []byte("genesis-2")
	signer := v("alice")

	if _, err := tr.AcceptLoadMetadata(genesis, signer); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	got, err := tr.AcceptLoadMetadata(genesis, signer)
	if err != nil {
		t.Fatalf("repeat accept with same signer: %v", err)
	}
	if got.Kind != verifier.KindCustom {
		t.Fatalf("got %+v", got)
	}
}

func TestAcceptLoadMetadataChangedSignerGoesDead(t *testing.T) {
	tr := openTest(t)
	genesis := []byte("genesis-3")
	alice := v("alice")
	mallory := v("mallory")

	if _, err := tr.AcceptLoadMetadata(genesis, alice); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	_, err := tr.AcceptLoadMetadata(genesis, mallory)
	if err == nil {
		t.Fatalf("expected error for changed signer")
	}
	got, err := tr.GetNetwork(keystore.NewVerifierKey(genesis))
	if err != nil {
		t.Fatalf("GetNetwork: %v", err)
	}
	if got.Kind != verifier.KindDead {
		t.Fatalf("got %+v, want KindDead", got)
	}
}

func TestAcceptLoadMetadataDeadVerifierIsTerminalUntilReset(t *testing.T) {
	tr := openTest(t)
	genesis := []byte("genesis-4")
	alice := v("alice")
	mallory := v("mallory")
	if _, err := tr.AcceptLoadMetadata(genesis, alice); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if _, err := tr.AcceptLoadMetadata(genesis, mallory); err == nil {
		t.Fatalf("expected dead transition")
	}
	if _, err := tr.AcceptLoadMetadata(genesis, alice); err == nil {
		t.Fatalf("expected dead verifier to reject even the original signer")
	}

	if err := tr.ResetNetwork(genesis); err != nil {
		t.Fatalf("ResetNetwork: %v", err)
	}
	got, err := tr.AcceptLoadMetadata(genesis, alice)
	if err != nil {
		t.Fatalf("accept after reset: %v", err)
	}
	if got.Kind != verifier.KindCustom {
		t.Fatalf("got %+v after reset+accept", got)
	}
}

func TestAcceptLoadTypesSetsAndPinsGeneralVerifier(t *testing.T) {
	tr := openTest(t)
	gen := v("general")

	got, err := tr.AcceptLoadTypes(gen)
	if err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if got.Kind != verifier.KindGeneral {
		t.Fatalf("got %+v", got)
	}

	persisted, err := tr.GetGeneral()
	if err != nil {
		t.Fatalf("GetGeneral: %v", err)
	}
	if string(persisted.Value.Public) != "general" {
		t.Fatalf("persisted general verifier = %q", persisted.Value.Public)
	}

	other := v("mallory")
	if _, err := tr.AcceptLoadTypes(other); err == nil {
		t.Fatalf("expected rejection of a changed general verifier")
	}
	stillGen, err := tr.GetGeneral()
	if err != nil {
		t.Fatalf("GetGeneral after rejected change: %v", err)
	}
	if string(stillGen.Value.Public) != "general" {
		t.Fatalf("general verifier changed after rejected update: %+v", stillGen)
	}
}
