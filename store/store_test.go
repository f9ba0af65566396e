package store

import (
	"path/filepath"
	"testing"

	"github.com/tos-network/vault-core/errorkinds"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "vault.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTest(t)
	if err := s.Put(TreeAddr, []byte("k"), []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(TreeAddr, []byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("got %q want %q", got, "v")
	}
}

func TestGetMissingKeyReturnsNotFound(t *testing.T) {
	s := openTest(t)
	_, err := s.Get(TreeAddr, []byte("missing"))
	if !errorkinds.Is(err, errorkinds.CodeKeyDecoding) {
		t.Fatalf("expected CodeKeyDecoding, got %v", err)
	}
}

func TestTreesDoNotCollide(t *testing.T) {
	s := openTest(t)
	if err := s.Put(TreeAddr, []byte("x"), []byte("addr-value")); err != nil {
		t.Fatalf("put addr: %v", err)
	}
	if err := s.Put(TreeSpecs, []byte("x"), []byte("specs-value")); err != nil {
		t.Fatalf("put specs: %v", err)
	}
	got, err := s.Get(TreeAddr, []byte("x"))
	if err != nil {
		t.Fatalf("get addr: %v", err)
	}
	if string(got) != "addr-value" {
		t.Fatalf("tree collision: got %q", got)
	}
}

func TestBatchWriteIsAtomicAcrossTrees(t *testing.T) {
	s := openTest(t)
	b := s.NewBatch()
	b.Put(TreeAddr, []byte("a"), []byte("1"))
	b.Put(TreeHistory, []byte("h"), []byte("2"))
	if err := s.Write(b); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	if has, _ := s.Has(TreeAddr, []byte("a")); !has {
		t.Fatalf("expected addr key to exist")
	}
	if has, _ := s.Has(TreeHistory, []byte("h")); !has {
		t.Fatalf("expected history key to exist")
	}
}

func TestIterateStripsTreePrefix(t *testing.T) {
	s := openTest(t)
	keys := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	for _, k := range keys {
		if err := s.Put(TreeAddr, k, k); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	seen := map[string]bool{}
	err := s.Iterate(TreeAddr, func(k, v []byte) error {
		seen[string(k)] = true
		return nil
	})
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	for _, k := range keys {
		if !seen[string(k)] {
			t.Fatalf("missing key %q in iteration", k)
		}
	}
}

func TestDeleteRemovesKey(t *testing.T) {
	s := openTest(t)
	if err := s.Put(TreeAddr, []byte("k"), []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Delete(TreeAddr, []byte("k")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if has, _ := s.Has(TreeAddr, []byte("k")); has {
		t.Fatalf("expected key to be gone")
	}
}

func TestReopenDetectsCompatibleSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s1.Put(TreeAddr, []byte("k"), []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.Get(TreeAddr, []byte("k"))
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("got %q want %q", got, "v")
	}
}
