package txpipeline

import (
	"path/filepath"
	"testing"

	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "vault.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStagedRoundTrip(t *testing.T) {
	s := openTestStore(t)
	checksum, err := putStaged(s, staged{Action: ActionLoadTypes, Types: []byte{1, 2, 3}})
	if err != nil {
		t.Fatalf("putStaged: %v", err)
	}
	got, err := getStaged(s, checksum)
	if err != nil {
		t.Fatalf("getStaged: %v", err)
	}
	if got.Action != ActionLoadTypes || len(got.Types) != 3 {
		t.Fatalf("got = %+v", got)
	}
	if err := deleteStaged(s, checksum); err != nil {
		t.Fatalf("deleteStaged: %v", err)
	}
	if _, err := getStaged(s, checksum); !errorkinds.Is(err, errorkinds.CodeChecksumMismatch) {
		t.Fatalf("err after delete = %v, want CodeChecksumMismatch", err)
	}
}

func TestStagedMismatchOnUnknownChecksum(t *testing.T) {
	s := openTestStore(t)
	if _, err := getStaged(s, 0x12345678); !errorkinds.Is(err, errorkinds.CodeChecksumMismatch) {
		t.Fatalf("err = %v, want CodeChecksumMismatch", err)
	}
}

func TestReplaceStaged(t *testing.T) {
	s := openTestStore(t)
	checksum, err := putStaged(s, staged{IsSign: true, SigningPayload: []byte("abc")})
	if err != nil {
		t.Fatalf("putStaged: %v", err)
	}
	st, err := getStaged(s, checksum)
	if err != nil {
		t.Fatalf("getStaged: %v", err)
	}
	st.PasswordAttempts++
	newChecksum, err := replaceStaged(s, checksum, st)
	if err != nil {
		t.Fatalf("replaceStaged: %v", err)
	}
	if newChecksum == checksum {
		t.Fatalf("replaceStaged returned the same checksum after mutating the entry")
	}
	if _, err := getStaged(s, checksum); !errorkinds.Is(err, errorkinds.CodeChecksumMismatch) {
		t.Fatalf("old checksum should be gone, got: %v", err)
	}
	got, err := getStaged(s, newChecksum)
	if err != nil {
		t.Fatalf("getStaged(new): %v", err)
	}
	if got.PasswordAttempts != 1 {
		t.Fatalf("PasswordAttempts = %d, want 1", got.PasswordAttempts)
	}
}
