package keystore

import (
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/tos-network/vault-core/crypto/bip39derive"
	"github.com/tos-network/vault-core/crypto/ecdsa"
	"github.com/tos-network/vault-core/crypto/ed25519"
	"github.com/tos-network/vault-core/crypto/junction"
	"github.com/tos-network/vault-core/crypto/sr25519"
	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/history"
	"github.com/tos-network/vault-core/store"
)

// SeedStorage is the narrow interface onto wherever plaintext mnemonics
// actually live (a platform keychain, secure enclave, or — in tests —
// an in-memory map). This package never persists a mnemonic itself.
type SeedStorage interface {
	HasSeed(name string) (bool, error)
	SaveSeed(name, mnemonic string) error
	LoadSeed(name string) (string, error)
	DeleteSeed(name string) error
	SeedNames() ([]string, error)
}

// AddressDetails is the ADDRTREE record for one derived key: which seed
// and path it came from, which networks it's registered for, and
// whether its secret has ever been exported.
type AddressDetails struct {
	SeedName             string     `json:"seed_name"`
	Path                 string     `json:"path"`
	HasPassword          bool       `json:"has_password"`
	Encryption           Encryption `json:"encryption"`
	NetworkGenesisHashes [][]byte   `json:"network_genesis_hashes"`
	SecretExposed        bool       `json:"secret_exposed"`
}

func (a *AddressDetails) hasNetwork(genesisHash []byte) bool {
	for _, g := range a.NetworkGenesisHashes {
		if string(g) == string(genesisHash) {
			return true
		}
	}
	return false
}

// Keystore is the C6 entry point, bound to one store.Store.
type Keystore struct {
	s *store.Store
}

func Open(s *store.Store) *Keystore { return &Keystore{s: s} }

// TryCreateSeed validates (or generates, if mnemonic is empty) a BIP39
// mnemonic and registers seedName in storage. Returns the final
// mnemonic so a generated one can be shown to the user exactly once.
func TryCreateSeed(storage SeedStorage, seedName, mnemonic string, entropyBits int) (string, error) {
	exists, err := storage.HasSeed(seedName)
	if err != nil {
		return "", err
	}
	if exists {
		return "", errorkinds.New(errorkinds.KindInput, errorkinds.CodeSeedNameExists, "seed name %q already in use", seedName)
	}
	if mnemonic == "" {
		mnemonic, err = bip39derive.GenerateMnemonic(entropyBits)
		if err != nil {
			return "", err
		}
	} else if _, err := bip39derive.SeedFromMnemonic(mnemonic, ""); err != nil {
		return "", err
	}
	if err := storage.SaveSeed(seedName, mnemonic); err != nil {
		return "", err
	}
	return mnemonic, nil
}

// seedPassphrase returns path's trailing "///password" component, the
// BIP39 passphrase every scheme stretches the mnemonic with before
// junction-walking the result.
func seedPassphrase(path junction.Path) string {
	if path.HasPassword {
		return path.Password
	}
	return ""
}

func seedTo32(seed []byte) [32]byte {
	var out [32]byte
	copy(out[:], seed[:32])
	return out
}

// derivePublicKey derives the public key bytes for seed/path under enc.
// Each scheme's own Derive rejects soft junctions where unsupported.
func derivePublicKey(seed32 [32]byte, path junction.Path, enc Encryption) ([]byte, error) {
	switch enc {
	case Sr25519:
		kp, err := sr25519.Derive(seed32, path)
		if err != nil {
			return nil, err
		}
		pub, err := kp.Public()
		if err != nil {
			return nil, err
		}
		encoded := pub.Encode()
		return encoded[:], nil
	case Ed25519:
		derived, err := ed25519.Derive(seed32, path)
		if err != nil {
			return nil, err
		}
		priv := ed25519.NewKeyFromSeed(derived[:])
		pub := priv.Public().(ed25519.PublicKey)
		return []byte(pub), nil
	case Ecdsa:
		derived, err := ecdsa.Derive(seed32, path)
		if err != nil {
			return nil, err
		}
		priv := ecdsa.NewKeyFromSeed(derived)
		return priv.PubKey().SerializeCompressed(), nil
	case Ethereum:
		derived, err := ecdsa.Derive(seed32, path)
		if err != nil {
			return nil, err
		}
		priv := ecdsa.NewKeyFromSeed(derived)
		addr := ecdsa.EthereumAddress(priv.PubKey())
		return addr[:], nil
	default:
		return nil, errorkinds.New(errorkinds.KindInput, errorkinds.CodeBadFormat, "unknown encryption %q", enc)
	}
}

// derivePrivateKey derives the raw private key material for seed/path
// under enc, the payload ExportSecretKey hands back to the caller.
func derivePrivateKey(seed32 [32]byte, path junction.Path, enc Encryption) ([]byte, error) {
	switch enc {
	case Sr25519:
		kp, err := sr25519.Derive(seed32, path)
		if err != nil {
			return nil, err
		}
		encoded := kp.Mini.Encode()
		return encoded[:], nil
	case Ed25519:
		derived, err := ed25519.Derive(seed32, path)
		if err != nil {
			return nil, err
		}
		priv := ed25519.NewKeyFromSeed(derived[:])
		return []byte(priv), nil
	case Ecdsa, Ethereum:
		derived, err := ecdsa.Derive(seed32, path)
		if err != nil {
			return nil, err
		}
		priv := ecdsa.NewKeyFromSeed(derived)
		return priv.Serialize(), nil
	default:
		return nil, errorkinds.New(errorkinds.KindInput, errorkinds.CodeBadFormat, "unknown encryption %q", enc)
	}
}

// TryCreateAddress derives the address for seedName/path/enc and
// registers it under network's genesis hash, reusing an existing
// ADDRTREE record for the same public key if one already exists (the
// same key can be registered against more than one network).
func (k *Keystore) TryCreateAddress(storage SeedStorage, seedName string, enc Encryption, pathStr string, networkGenesisHash []byte) (AddressKey, *AddressDetails, error) {
	mnemonic, err := storage.LoadSeed(seedName)
	if err != nil {
		return nil, nil, err
	}
	path, err := junction.Parse(pathStr)
	if err != nil {
		return nil, nil, err
	}
	if (enc == Ecdsa || enc == Ethereum) && path.HasSoft() {
		return nil, nil, errorkinds.New(errorkinds.KindAddressGen, errorkinds.CodeInvalidDerivation, "soft junctions are not supported for Ecdsa")
	}
	seed, err := bip39derive.SeedFromMnemonic(mnemonic, seedPassphrase(path))
	if err != nil {
		return nil, nil, err
	}
	pubkey, err := derivePublicKey(seedTo32(seed), path, enc)
	if err != nil {
		return nil, nil, err
	}
	addrKey := NewAddressKey(enc, pubkey)

	existing, err := k.loadAddress(addrKey)
	if err != nil && !errorkinds.Is(err, errorkinds.CodeKeyDecoding) {
		return nil, nil, err
	}
	if existing != nil {
		if existing.hasNetwork(networkGenesisHash) {
			return addrKey, existing, errorkinds.New(errorkinds.KindInput, errorkinds.CodeDerivationExists, "this derivation is already registered for this network")
		}
		existing.NetworkGenesisHashes = append(existing.NetworkGenesisHashes, networkGenesisHash)
		if err := k.saveAddress(addrKey, existing); err != nil {
			return nil, nil, err
		}
		return addrKey, existing, nil
	}

	details := &AddressDetails{
		SeedName:             seedName,
		Path:                 pathStr,
		HasPassword:          path.HasPassword,
		Encryption:           enc,
		NetworkGenesisHashes: [][]byte{networkGenesisHash},
	}
	if err := k.saveAddress(addrKey, details); err != nil {
		return nil, nil, err
	}
	return addrKey, details, nil
}

// DerivationCheck reports whether pathStr is syntactically valid and,
// if so, whether it collides with an existing derivation for seedName
// under enc — the check the UI runs on every keystroke before letting
// the user commit to TryCreateAddress.
func (k *Keystore) DerivationCheck(seedName string, enc Encryption, pathStr string) error {
	path, err := junction.Parse(pathStr)
	if err != nil {
		return errorkinds.New(errorkinds.KindInput, errorkinds.CodeBadFormat, "invalid derivation path: %v", err)
	}
	if (enc == Ecdsa || enc == Ethereum) && path.HasSoft() {
		return errorkinds.New(errorkinds.KindAddressGen, errorkinds.CodeInvalidDerivation, "soft junctions are not supported for Ecdsa")
	}
	all, err := k.allAddresses()
	if err != nil {
		return err
	}
	for _, a := range all {
		if a.SeedName == seedName && a.Encryption == enc && a.Path == pathStr {
			return errorkinds.New(errorkinds.KindInput, errorkinds.CodeDerivationExists, "derivation %q already exists for this seed", pathStr)
		}
	}
	return nil
}

// CreateIncrementSet derives count new addresses at baseName//N for the
// lowest N values not already used under seedName/enc, the bulk-account
// creation flow spec.md §6 names.
func (k *Keystore) CreateIncrementSet(storage SeedStorage, seedName string, enc Encryption, baseName string, networkGenesisHash []byte, count int) ([]*AddressDetails, error) {
	all, err := k.allAddresses()
	if err != nil {
		return nil, err
	}
	used := map[int]bool{}
	prefix := baseName + "//"
	for _, a := range all {
		if a.SeedName != seedName || a.Encryption != enc {
			continue
		}
		if !strings.HasPrefix(a.Path, prefix) {
			continue
		}
		if n, err := strconv.Atoi(a.Path[len(prefix):]); err == nil {
			used[n] = true
		}
	}
	var out []*AddressDetails
	n := 0
	for len(out) < count {
		if !used[n] {
			_, details, err := k.TryCreateAddress(storage, seedName, enc, prefix+strconv.Itoa(n), networkGenesisHash)
			if err != nil {
				return out, err
			}
			out = append(out, details)
			used[n] = true
		}
		n++
	}
	return out, nil
}

// RemoveKey unregisters addrKey from one network, deleting the ADDRTREE
// record entirely once no network references it.
func (k *Keystore) RemoveKey(addrKey AddressKey, networkGenesisHash []byte) error {
	details, err := k.loadAddress(addrKey)
	if err != nil {
		return err
	}
	kept := details.NetworkGenesisHashes[:0]
	for _, g := range details.NetworkGenesisHashes {
		if string(g) != string(networkGenesisHash) {
			kept = append(kept, g)
		}
	}
	details.NetworkGenesisHashes = kept
	if len(kept) == 0 {
		return k.s.Delete(store.TreeAddr, addrKey)
	}
	return k.saveAddress(addrKey, details)
}

// RemoveKeysSet removes every key in addrKeys from networkGenesisHash.
func (k *Keystore) RemoveKeysSet(addrKeys []AddressKey, networkGenesisHash []byte) error {
	for _, ak := range addrKeys {
		if err := k.RemoveKey(ak, networkGenesisHash); err != nil {
			return err
		}
	}
	return nil
}

// RemoveSeed deletes every ADDRTREE record derived from seedName and
// removes the seed itself from storage.
func (k *Keystore) RemoveSeed(storage SeedStorage, seedName string) error {
	all, err := k.allAddressesWithKeys()
	if err != nil {
		return err
	}
	b := k.s.NewBatch()
	for _, e := range all {
		if e.details.SeedName == seedName {
			b.Delete(store.TreeAddr, e.key)
		}
	}
	if err := k.s.Write(b); err != nil {
		return err
	}
	return storage.DeleteSeed(seedName)
}

// ExportSecretKey re-derives addrKey's private key material and marks
// it (and every descendant derived further down the same path) as
// secret_exposed — once an ancestor's seed-level secret has been shown,
// every key derivable from it is no longer considered safe.
func (k *Keystore) ExportSecretKey(storage SeedStorage, addrKey AddressKey) ([]byte, error) {
	details, err := k.loadAddress(addrKey)
	if err != nil {
		return nil, err
	}
	mnemonic, err := storage.LoadSeed(details.SeedName)
	if err != nil {
		return nil, err
	}
	path, err := junction.Parse(details.Path)
	if err != nil {
		return nil, err
	}
	seed, err := bip39derive.SeedFromMnemonic(mnemonic, seedPassphrase(path))
	if err != nil {
		return nil, err
	}
	secret, err := derivePrivateKey(seedTo32(seed), path, details.Encryption)
	if err != nil {
		return nil, err
	}

	details.SecretExposed = true
	if err := k.saveAddress(addrKey, details); err != nil {
		return nil, err
	}
	if err := k.propagateSecretExposed(details.SeedName, details.Path); err != nil {
		return nil, err
	}
	return secret, nil
}

// Lookup returns the stored AddressDetails for addrKey, the read path
// C9 uses to find which seed/path/password a signing request's author
// key resolves to.
func (k *Keystore) Lookup(addrKey AddressKey) (*AddressDetails, error) {
	return k.loadAddress(addrKey)
}

// SeedSummary is the seed-selection-screen read model: one row per
// known seed name, with how many addresses it has derived per network.
type SeedSummary struct {
	SeedName      string         `json:"seed_name"`
	AddressCount  int            `json:"address_count"`
	NetworkCounts map[string]int `json:"network_counts"`
}

func genesisHashHex(g []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(g)*2)
	for i, c := range g {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0xf]
	}
	return string(out)
}

// SeedSummaries returns one SeedSummary per seed name known to storage,
// in storage's own order, with zero-address seeds included so a newly
// created seed still shows up before anything is derived under it.
func (k *Keystore) SeedSummaries(storage SeedStorage) ([]SeedSummary, error) {
	names, err := storage.SeedNames()
	if err != nil {
		return nil, err
	}
	bySeed := make(map[string]*SeedSummary, len(names))
	out := make([]SeedSummary, len(names))
	for i, name := range names {
		out[i] = SeedSummary{SeedName: name, NetworkCounts: map[string]int{}}
		bySeed[name] = &out[i]
	}

	addrs, err := k.allAddresses()
	if err != nil {
		return nil, err
	}
	for _, a := range addrs {
		summary, ok := bySeed[a.SeedName]
		if !ok {
			continue // address for a seed storage no longer knows about
		}
		summary.AddressCount++
		for _, g := range a.NetworkGenesisHashes {
			summary.NetworkCounts[genesisHashHex(g)]++
		}
	}
	return out, nil
}

// MarkSeedPhraseShown records that seedName's recovery phrase was
// revealed to the user. The original (backup_prep/seed_backup_done)
// logs this the moment the navigator displays the mnemonic; this core
// has no navigator, so the caller invokes it right after the phrase
// leaves SeedStorage on its way to the screen.
func (k *Keystore) MarkSeedPhraseShown(hist *history.Log, seedName string) error {
	_, err := hist.Append(history.KindSeedNameShown, "seed phrase shown: "+seedName, nil)
	return err
}

// RemoveAllForNetwork unregisters networkGenesisHash from every
// ADDRTREE record, deleting outright any record left with no remaining
// network — the address-removal half of spec.md §3's network-removal
// cascade. It returns the keys of records deleted outright, so the
// caller can log one IdentityRemoved history event per deleted address
// (spec.md §8 end-to-end scenario 5).
func (k *Keystore) RemoveAllForNetwork(networkGenesisHash []byte) ([]AddressKey, error) {
	all, err := k.allAddressesWithKeys()
	if err != nil {
		return nil, err
	}
	b := k.s.NewBatch()
	var removed []AddressKey
	touched := false
	for _, e := range all {
		if !e.details.hasNetwork(networkGenesisHash) {
			continue
		}
		touched = true
		kept := e.details.NetworkGenesisHashes[:0]
		for _, g := range e.details.NetworkGenesisHashes {
			if string(g) != string(networkGenesisHash) {
				kept = append(kept, g)
			}
		}
		e.details.NetworkGenesisHashes = kept
		if len(kept) == 0 {
			b.Delete(store.TreeAddr, e.key)
			removed = append(removed, e.key)
			continue
		}
		raw, err := json.Marshal(e.details)
		if err != nil {
			return nil, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeEntryDecoding, "marshal address details: %v", err)
		}
		b.Put(store.TreeAddr, e.key, raw)
	}
	if !touched {
		return nil, nil
	}
	if err := k.s.Write(b); err != nil {
		return nil, err
	}
	return removed, nil
}

// derivedPublicKey re-derives addrKey's public key under attemptedPassword
// and reports whether it matches addrKey's stored bytes — the shared
// core of ValidateKeyPassword and Sign's own password check.
func (k *Keystore) derivedPublicKey(storage SeedStorage, addrKey AddressKey, attemptedPassword string) (*AddressDetails, []byte, error) {
	details, err := k.loadAddress(addrKey)
	if err != nil {
		return nil, nil, err
	}
	mnemonic, err := storage.LoadSeed(details.SeedName)
	if err != nil {
		return nil, nil, err
	}
	path, err := junction.Parse(details.Path)
	if err != nil {
		return nil, nil, err
	}
	if details.HasPassword {
		path.Password = attemptedPassword
		path.HasPassword = true
	}
	seed, err := bip39derive.SeedFromMnemonic(mnemonic, seedPassphrase(path))
	if err != nil {
		return nil, nil, err
	}
	pub, err := derivePublicKey(seedTo32(seed), path, details.Encryption)
	if err != nil {
		return nil, nil, err
	}
	return details, pub, nil
}

// ValidateKeyPassword implements spec.md §4.5's
// validate_key_password(address_key, phrase, attempted_password): it
// returns true iff the derived public key under
// path ∥ "///" ∥ attempted_password matches addrKey's own public bytes.
func (k *Keystore) ValidateKeyPassword(storage SeedStorage, addrKey AddressKey, attemptedPassword string) (bool, error) {
	_, pub, err := k.derivedPublicKey(storage, addrKey, attemptedPassword)
	if err != nil {
		return false, err
	}
	return bytesEqual(pub, addrKey.PublicKey()), nil
}

// Sign re-derives addrKey's signing key and signs message. If the
// address is password-protected, attemptedPassword must match (checked
// by re-deriving the public key first so a wrong password never reaches
// private-key material) or a KindWrongPassword error is returned,
// matching spec.md §6's password-gated signing flow.
func (k *Keystore) Sign(storage SeedStorage, addrKey AddressKey, attemptedPassword string, message []byte) ([]byte, error) {
	details, pub, err := k.derivedPublicKey(storage, addrKey, attemptedPassword)
	if err != nil {
		return nil, err
	}
	if details.HasPassword && !bytesEqual(pub, addrKey.PublicKey()) {
		return nil, errorkinds.New(errorkinds.KindWrongPassword, "", "wrong password for %s", addrKey.Hex())
	}

	mnemonic, err := storage.LoadSeed(details.SeedName)
	if err != nil {
		return nil, err
	}
	path, err := junction.Parse(details.Path)
	if err != nil {
		return nil, err
	}
	if details.HasPassword {
		path.Password = attemptedPassword
		path.HasPassword = true
	}
	seed, err := bip39derive.SeedFromMnemonic(mnemonic, seedPassphrase(path))
	if err != nil {
		return nil, err
	}
	seed32 := seedTo32(seed)
	switch details.Encryption {
	case Sr25519:
		kp, err := sr25519.Derive(seed32, path)
		if err != nil {
			return nil, err
		}
		sig, err := kp.Sign(message)
		if err != nil {
			return nil, err
		}
		return sig[:], nil
	case Ed25519:
		derived, err := ed25519.Derive(seed32, path)
		if err != nil {
			return nil, err
		}
		priv := ed25519.NewKeyFromSeed(derived[:])
		return ed25519.Sign(priv, message), nil
	case Ecdsa:
		derived, err := ecdsa.Derive(seed32, path)
		if err != nil {
			return nil, err
		}
		priv := ecdsa.NewKeyFromSeed(derived)
		return ecdsa.Sign(priv, blake2b.Sum256(message))
	case Ethereum:
		derived, err := ecdsa.Derive(seed32, path)
		if err != nil {
			return nil, err
		}
		priv := ecdsa.NewKeyFromSeed(derived)
		h := sha3.NewLegacyKeccak256()
		h.Write(message)
		var digest [32]byte
		copy(digest[:], h.Sum(nil))
		return ecdsa.Sign(priv, digest)
	default:
		return nil, errorkinds.New(errorkinds.KindInput, errorkinds.CodeBadFormat, "unknown encryption %q", details.Encryption)
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// propagateSecretExposed marks every other address derived from the
// same seed whose path extends ancestorPath as secret_exposed too.
func (k *Keystore) propagateSecretExposed(seedName, ancestorPath string) error {
	all, err := k.allAddressesWithKeys()
	if err != nil {
		return err
	}
	b := k.s.NewBatch()
	changed := false
	for _, e := range all {
		if e.details.SeedName != seedName || e.details.SecretExposed {
			continue
		}
		if e.details.Path != ancestorPath && strings.HasPrefix(e.details.Path, ancestorPath) {
			e.details.SecretExposed = true
			raw, err := json.Marshal(e.details)
			if err != nil {
				return errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeEntryDecoding, "marshal address details: %v", err)
			}
			b.Put(store.TreeAddr, e.key, raw)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return k.s.Write(b)
}

// DynamicDerivations bulk-derives every path in pathStrs under seedName
// for one network, collecting per-path failures instead of aborting the
// whole batch — the import flow for a set of derivations proposed by an
// external source (e.g. a scanned QR set).
func (k *Keystore) DynamicDerivations(storage SeedStorage, seedName string, enc Encryption, networkGenesisHash []byte, pathStrs []string) ([]*AddressDetails, []error) {
	var created []*AddressDetails
	var errs []error
	for _, p := range pathStrs {
		_, details, err := k.TryCreateAddress(storage, seedName, enc, p, networkGenesisHash)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		created = append(created, details)
	}
	return created, errs
}

type addressEntry struct {
	key     AddressKey
	details *AddressDetails
}

func (k *Keystore) loadAddress(addrKey AddressKey) (*AddressDetails, error) {
	raw, err := k.s.Get(store.TreeAddr, addrKey)
	if err != nil {
		return nil, err
	}
	var details AddressDetails
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeEntryDecoding, "unmarshal address details: %v", err)
	}
	return &details, nil
}

func (k *Keystore) saveAddress(addrKey AddressKey, details *AddressDetails) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeEntryDecoding, "marshal address details: %v", err)
	}
	return k.s.Put(store.TreeAddr, addrKey, raw)
}

func (k *Keystore) allAddressesWithKeys() ([]addressEntry, error) {
	var out []addressEntry
	err := k.s.Iterate(store.TreeAddr, func(key, value []byte) error {
		var details AddressDetails
		if err := json.Unmarshal(value, &details); err != nil {
			return errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeEntryDecoding, "unmarshal address details: %v", err)
		}
		out = append(out, addressEntry{key: append(AddressKey(nil), key...), details: &details})
		return nil
	})
	return out, err
}

func (k *Keystore) allAddresses() ([]*AddressDetails, error) {
	entries, err := k.allAddressesWithKeys()
	if err != nil {
		return nil, err
	}
	out := make([]*AddressDetails, len(entries))
	for i, e := range entries {
		out[i] = e.details
	}
	return out, nil
}
