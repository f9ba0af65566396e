package keystore

import (
	"path/filepath"
	"testing"

	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/store"
)

// testMnemonic is the canonical all-"abandon" BIP39 test vector, valid
// under any wordlist checksum.
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

var testGenesis = []byte{0x01, 0x02, 0x03, 0x04}

type memSeedStorage struct {
	seeds map[string]string
}

func newMemSeedStorage() *memSeedStorage {
	return &memSeedStorage{seeds: map[string]string{}}
}

func (m *memSeedStorage) HasSeed(name string) (bool, error) {
	_, ok := m.seeds[name]
	return ok, nil
}

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

func (m *memSeedStorage) DeleteSeed(name string) error {
	delete(m.seeds, name)
	return nil
}

func (m *memSeedStorage) SeedNames() ([]string, error) {
	var out []string
	for n := range m.seeds {
		out = append(out, n)
	}
	return out, nil
}

func openTest(t *testing.T) (*Keystore, *memSeedStorage) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "vault.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	storage := newMemSeedStorage()
	if err := storage.SaveSeed("main", testMnemonic); err != nil {
		t.Fatalf("save seed: %v", err)
	}
	return Open(s), storage
}

func TestTryCreateSeedRejectsDuplicateName(t *testing.T) {
	storage := newMemSeedStorage()
	if _, err := TryCreateSeed(storage, "main", testMnemonic, 128); err != nil {
		t.Fatalf("create seed: %v", err)
	}
	if _, err := TryCreateSeed(storage, "main", testMnemonic, 128); !errorkinds.Is(err, errorkinds.CodeSeedNameExists) {
		t.Fatalf("expected CodeSeedNameExists, got %v", err)
	}
}

func TestTryCreateSeedGeneratesWhenMnemonicEmpty(t *testing.T) {
	storage := newMemSeedStorage()
	mnemonic, err := TryCreateSeed(storage, "fresh", "", 128)
	if err != nil {
		t.Fatalf("create seed: %v", err)
	}
	if mnemonic == "" {
		t.Fatalf("expected a generated mnemonic")
	}
	stored, err := storage.LoadSeed("fresh")
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	if stored != mnemonic {
		t.Fatalf("stored mnemonic does not match returned one")
	}
}

func TestTryCreateAddressRegistersAndIsIdempotentAcrossNetworks(t *testing.T) {
	ks, storage := openTest(t)

	addrKey, details, err := ks.TryCreateAddress(storage, "main", Sr25519, "//hard/soft", testGenesis)
	if err != nil {
		t.Fatalf("create address: %v", err)
	}
	if details.SeedName != "main" || details.Path != "//hard/soft" {
		t.Fatalf("unexpected details: %+v", details)
	}

	otherGenesis := []byte{0xaa, 0xbb}
	_, details2, err := ks.TryCreateAddress(storage, "main", Sr25519, "//hard/soft", otherGenesis)
	if err != nil {
		t.Fatalf("create address on second network: %v", err)
	}
	if len(details2.NetworkGenesisHashes) != 2 {
		t.Fatalf("expected the same key to now cover two networks, got %+v", details2.NetworkGenesisHashes)
	}

	if _, _, err := ks.TryCreateAddress(storage, "main", Sr25519, "//hard/soft", testGenesis); !errorkinds.Is(err, errorkinds.CodeDerivationExists) {
		t.Fatalf("expected CodeDerivationExists for repeat registration, got %v", err)
	}
	_ = addrKey
}

// TestTryCreateAddressDerivationExistsReportsCollision exercises spec.md
// §8 scenario 3: creating the same derivation twice on the same network
// succeeds once and then reports the collision with the existing
// multisigner, AddressDetails, and network_specs_key so the caller can
// present it. (spec.md's literal example value
// `0x01b0a8d4…ea3dafe` elides the genesis hash's middle bytes, so it
// cannot be reproduced byte-for-byte here; this asserts the same
// NetworkSpecsKey{tag,genesis} round trip the collision must carry,
// under the tag-byte order in DESIGN.md's "Encryption tag order"
// note.)
func TestTryCreateAddressDerivationExistsReportsCollision(t *testing.T) {
	ks, storage := openTest(t)

	firstKey, _, err := ks.TryCreateAddress(storage, "main", Sr25519, "//Alice", testGenesis)
	if err != nil {
		t.Fatalf("create address: %v", err)
	}

	collisionKey, existing, err := ks.TryCreateAddress(storage, "main", Sr25519, "//Alice", testGenesis)
	if !errorkinds.Is(err, errorkinds.CodeDerivationExists) {
		t.Fatalf("expected CodeDerivationExists, got %v", err)
	}
	if string(collisionKey) != string(firstKey) {
		t.Fatalf("collision multisigner = %x, want %x", collisionKey, firstKey)
	}
	if existing.Path != "//Alice" || existing.SeedName != "main" {
		t.Fatalf("collision AddressDetails = %+v, want path //Alice under seed main", existing)
	}

	wantSpecsKey := NewNetworkSpecsKey(Sr25519, testGenesis)
	gotSpecsKey := NewNetworkSpecsKey(existing.Encryption, existing.NetworkGenesisHashes[0])
	if string(gotSpecsKey) != string(wantSpecsKey) {
		t.Fatalf("network_specs_key = %x, want %x", gotSpecsKey, wantSpecsKey)
	}
}

func TestTryCreateAddressRejectsSoftJunctionForEcdsa(t *testing.T) {
	ks, storage := openTest(t)
	_, _, err := ks.TryCreateAddress(storage, "main", Ecdsa, "/soft", testGenesis)
	if !errorkinds.Is(err, errorkinds.CodeInvalidDerivation) {
		t.Fatalf("expected CodeInvalidDerivation, got %v", err)
	}
}

func TestTryCreateAddressEd25519HardOnly(t *testing.T) {
	ks, storage := openTest(t)
	_, details, err := ks.TryCreateAddress(storage, "main", Ed25519, "//staking", testGenesis)
	if err != nil {
		t.Fatalf("create ed25519 address: %v", err)
	}
	if details.Encryption != Ed25519 {
		t.Fatalf("unexpected encryption: %v", details.Encryption)
	}
}

func TestDerivationCheckCatchesDuplicates(t *testing.T) {
	ks, storage := openTest(t)
	if _, _, err := ks.TryCreateAddress(storage, "main", Sr25519, "//one", testGenesis); err != nil {
		t.Fatalf("create address: %v", err)
	}
	if err := ks.DerivationCheck("main", Sr25519, "//one"); !errorkinds.Is(err, errorkinds.CodeDerivationExists) {
		t.Fatalf("expected CodeDerivationExists, got %v", err)
	}
	if err := ks.DerivationCheck("main", Sr25519, "//two"); err != nil {
		t.Fatalf("expected //two to be free, got %v", err)
	}
}

func TestCreateIncrementSetFillsLowestFreeIndices(t *testing.T) {
	ks, storage := openTest(t)
	created, err := ks.CreateIncrementSet(storage, "main", Sr25519, "acct", testGenesis, 3)
	if err != nil {
		t.Fatalf("create increment set: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("expected 3 addresses, got %d", len(created))
	}
	paths := map[string]bool{}
	for _, d := range created {
		paths[d.Path] = true
	}
	for _, want := range []string{"acct//0", "acct//1", "acct//2"} {
		if !paths[want] {
			t.Fatalf("expected path %q among %+v", want, paths)
		}
	}
}

func TestRemoveKeyDeletesRecordWhenLastNetworkRemoved(t *testing.T) {
	ks, storage := openTest(t)
	addrKey, _, err := ks.TryCreateAddress(storage, "main", Sr25519, "//only", testGenesis)
	if err != nil {
		t.Fatalf("create address: %v", err)
	}
	if err := ks.RemoveKey(addrKey, testGenesis); err != nil {
		t.Fatalf("remove key: %v", err)
	}
	if _, err := ks.loadAddress(addrKey); !errorkinds.Is(err, errorkinds.CodeKeyDecoding) {
		t.Fatalf("expected record to be gone, got %v", err)
	}
}

func TestRemoveSeedDeletesAllDerivedAddresses(t *testing.T) {
	ks, storage := openTest(t)
	if _, _, err := ks.TryCreateAddress(storage, "main", Sr25519, "//a", testGenesis); err != nil {
		t.Fatalf("create address: %v", err)
	}
	if _, _, err := ks.TryCreateAddress(storage, "main", Sr25519, "//b", testGenesis); err != nil {
		t.Fatalf("create address: %v", err)
	}
	if err := ks.RemoveSeed(storage, "main"); err != nil {
		t.Fatalf("remove seed: %v", err)
	}
	all, err := ks.allAddresses()
	if err != nil {
		t.Fatalf("all addresses: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no remaining addresses, got %+v", all)
	}
	if _, err := storage.LoadSeed("main"); err == nil {
		t.Fatalf("expected seed to be removed from storage")
	}
}

func TestExportSecretKeyMarksDescendantsExposed(t *testing.T) {
	ks, storage := openTest(t)
	parentKey, _, err := ks.TryCreateAddress(storage, "main", Sr25519, "//parent", testGenesis)
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	childKey, _, err := ks.TryCreateAddress(storage, "main", Sr25519, "//parent/child", testGenesis)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	secret, err := ks.ExportSecretKey(storage, parentKey)
	if err != nil {
		t.Fatalf("export secret: %v", err)
	}
	if len(secret) == 0 {
		t.Fatalf("expected non-empty secret material")
	}

	childDetails, err := ks.loadAddress(childKey)
	if err != nil {
		t.Fatalf("load child: %v", err)
	}
	if !childDetails.SecretExposed {
		t.Fatalf("expected child derivation to inherit secret_exposed")
	}
}

func TestDynamicDerivationsCollectsPerPathErrors(t *testing.T) {
	ks, storage := openTest(t)
	created, errs := ks.DynamicDerivations(storage, "main", Sr25519, testGenesis, []string{"//ok", "//ok"})
	if len(created) != 1 {
		t.Fatalf("expected exactly one successful derivation, got %d", len(created))
	}
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error for the repeated path, got %d", len(errs))
	}
}
