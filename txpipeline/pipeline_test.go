package txpipeline

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/keystore"
	"github.com/tos-network/vault-core/scale"
	"github.com/tos-network/vault-core/store"
)

func bigFromInt(v int64) *big.Int { return big.NewInt(v) }

type memSeedStorage struct{ seeds map[string]string }

func newMemSeedStorage() *memSeedStorage { return &memSeedStorage{seeds: map[string]string{}} }

func (m *memSeedStorage) HasSeed(name string) (bool, error) { _, ok := m.seeds[name]; return ok, nil }
func (m *memSeedStorage) SaveSeed(name, mnemonic string) error {
	m.seeds[name] = mnemonic
	return nil
}
func (m *memSeedStorage) LoadSeed(name string) (string, error) {
	s, ok := m.seeds[name]
	if !ok {
		return "", errorkinds.New(errorkinds.KindNotFound, errorkinds.CodeKeyNotFound, "no such seed %q", name)
	}
	return s, nil
}
func (m *memSeedStorage) DeleteSeed(name string) error { delete(m.seeds, name); return nil }
func (m *memSeedStorage) SeedNames() ([]string, error) {
	var out []string
	for n := range m.seeds {
		out = append(out, n)
	}
	return out, nil
}

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func openTest(t *testing.T) *Pipeline {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "vault.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return Open(s)
}

func encodeVerifierInfoNone() []byte { return []byte{0} }

func TestAddSpecsStageAndCommit(t *testing.T) {
	p := openTest(t)
	genesis := make([]byte, 32)
	genesis[0] = 0xAB

	body := append([]byte{}, encodeVerifierInfoNone()...)
	body = append(body, uint16le(0)...)
	body = append(body, encodeStr("")...)    // color
	body = append(body, encodeStr("")...)    // secondary color
	body = append(body, 12)                  // decimals
	body = append(body, 1)                   // sr25519 tag
	body = append(body, genesis...)
	body = append(body, encodeStr("")...)           // logo
	body = append(body, encodeStr("westend")...)    // name
	body = append(body, encodeStr("westend")...)    // path id
	body = append(body, encodeStr("Westend")...)    // title
	body = append(body, encodeStr("WND")...)        // unit

	raw := append([]byte{0x53, 0x01, byte(PayloadAddSpecs)}, body...)
	result, err := p.Parse(raw)
	if err != nil {
		t.Fatalf("Parse add_specs: %v", err)
	}
	if result.Action != ActionAddSpecs {
		t.Fatalf("action = %q", result.Action)
	}

	storage := newMemSeedStorage()
	if _, err := p.Commit(result.Checksum, storage, "", ""); err != nil {
		t.Fatalf("Commit add_specs: %v", err)
	}

	specs, err := p.nets.ByGenesisHash(genesis)
	if err != nil || len(specs) != 1 {
		t.Fatalf("ByGenesisHash: %v %d", err, len(specs))
	}
	if specs[0].Name != "westend" {
		t.Fatalf("name = %q", specs[0].Name)
	}
}

func TestAddSpecsIdempotent(t *testing.T) {
	p := openTest(t)
	genesis := make([]byte, 32)
	genesis[0] = 0xCD
	storage := newMemSeedStorage()

	makeRaw := func() []byte {
		body := append([]byte{}, encodeVerifierInfoNone()...)
		body = append(body, uint16le(0)...)
		body = append(body, encodeStr("")...)
		body = append(body, encodeStr("")...)
		body = append(body, 10)
		body = append(body, 0) // ed25519
		body = append(body, genesis...)
		body = append(body, encodeStr("")...)
		body = append(body, encodeStr("kusama")...)
		body = append(body, encodeStr("kusama")...)
		body = append(body, encodeStr("Kusama")...)
		body = append(body, encodeStr("KSM")...)
		return append([]byte{0x53, 0x01, byte(PayloadAddSpecs)}, body...)
	}

	r1, err := p.Parse(makeRaw())
	if err != nil {
		t.Fatalf("first parse: %v", err)
	}
	if _, err := p.Commit(r1.Checksum, storage, "", ""); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	r2, err := p.Parse(makeRaw())
	if err != nil {
		t.Fatalf("second parse: %v", err)
	}
	if _, err := p.Commit(r2.Checksum, storage, "", ""); err != nil {
		t.Fatalf("second commit should be a no-op, got: %v", err)
	}
}

func TestDerivationsBundleCommit(t *testing.T) {
	p := openTest(t)
	storage := newMemSeedStorage()
	if err := storage.SaveSeed("main", testMnemonic); err != nil {
		t.Fatalf("save seed: %v", err)
	}

	body := scale.EncodeCompact(bigFromInt(1))
	body = append(body, 1) // sr25519
	body = append(body, encodeStr("//Alice")...)
	raw := append([]byte{0x53, 0x01, byte(PayloadDerivationsBundle)}, body...)

	result, err := p.Parse(raw)
	if err != nil {
		t.Fatalf("Parse derivations_bundle: %v", err)
	}
	if result.Action != ActionDerivationsBundle {
		t.Fatalf("action = %q", result.Action)
	}
	if _, err := p.Commit(result.Checksum, storage, "", "main"); err != nil {
		t.Fatalf("Commit derivations_bundle: %v", err)
	}

	if err := p.keys.DerivationCheck("main", keystore.Sr25519, "//Alice"); err == nil {
		t.Fatalf("expected DerivationCheck to report the path as already used")
	}
}

func TestCommitUnknownChecksum(t *testing.T) {
	p := openTest(t)
	_, err := p.Commit(0xdeadbeef, newMemSeedStorage(), "", "")
	if !errorkinds.Is(err, errorkinds.CodeChecksumMismatch) {
		t.Fatalf("err = %v, want CodeChecksumMismatch", err)
	}
}

func uint16le(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }

func encodeStr(s string) []byte {
	n := scale.EncodeCompact(bigFromInt(int64(len(s))))
	return append(n, []byte(s)...)
}
