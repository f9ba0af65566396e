// Package network persists the two entities C9's pipeline selects by
// genesis hash before it can decode anything: NetworkSpecs (SPECSTREE)
// and MetaValues (METATREE), spec.md §3. Grounded on keystore's own
// ADDRTREE package shape (a thin type wrapping one store.Store tree,
// JSON-encoded records) and on spec.md §3's invariants for both
// entities, which this package is the only place that can enforce them
// since it's the only code that ever writes these two trees.
package network

import (
	"bytes"
	"encoding/json"

	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/keystore"
	"github.com/tos-network/vault-core/store"
)

// BaseSpecs is the caller-supplied, immutable-once-stored portion of a
// NetworkSpecs record (spec.md §3).
type BaseSpecs struct {
	Base58Prefix  uint16             `json:"base58_prefix"`
	Color         string             `json:"color"`
	SecondaryColor string            `json:"secondary_color"`
	Decimals      uint8              `json:"decimals"`
	Encryption    keystore.Encryption `json:"encryption"`
	GenesisHash   []byte             `json:"genesis_hash"`
	Logo          string             `json:"logo"`
	Name          string             `json:"name"`
	PathID        string             `json:"path_id"`
	Title         string             `json:"title"`
	Unit          string             `json:"unit"`
}

// important returns the subset of fields spec.md §3 requires every
// entry sharing a genesis hash to agree on.
type important struct {
	Base58Prefix uint16
	Decimals     uint8
	Encryption   keystore.Encryption
	Name         string
	Unit         string
}

func (b BaseSpecs) important() important {
	return important{b.Base58Prefix, b.Decimals, b.Encryption, b.Name, b.Unit}
}

// NetworkSpecs is the SPECSTREE record: BaseSpecs plus the insertion
// order assigned at Add time.
type NetworkSpecs struct {
	BaseSpecs
	Order uint8 `json:"order"`
}

// Key derives this network's NetworkSpecsKey.
func (n NetworkSpecs) Key() keystore.NetworkSpecsKey {
	return keystore.NewNetworkSpecsKey(n.Encryption, n.GenesisHash)
}

// MetaValues is the METATREE record for one (network name, spec
// version)'s raw metadata bytes (spec.md §3).
type MetaValues struct {
	Name    string `json:"name"`
	Version uint32 `json:"version"`
	Meta    []byte `json:"meta"`
}

func (m MetaValues) key() keystore.MetaKey {
	return keystore.MetaKey{NetworkName: m.Name, SpecVersion: m.Version}
}

// Store is the C9-facing handle onto SPECSTREE and METATREE.
type Store struct {
	s *store.Store
}

func Open(s *store.Store) *Store { return &Store{s: s} }

// GetSpecs looks up one network by key.
func (s *Store) GetSpecs(key keystore.NetworkSpecsKey) (*NetworkSpecs, error) {
	raw, err := s.s.Get(store.TreeSpecs, key)
	if err != nil {
		return nil, err
	}
	var n NetworkSpecs
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeEntryDecoding, "unmarshal network specs: %v", err)
	}
	return &n, nil
}

// AllSpecs returns every stored NetworkSpecs, in no particular order.
func (s *Store) AllSpecs() ([]*NetworkSpecs, error) {
	var out []*NetworkSpecs
	err := s.s.Iterate(store.TreeSpecs, func(_, v []byte) error {
		var n NetworkSpecs
		if err := json.Unmarshal(v, &n); err != nil {
			return errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeEntryDecoding, "unmarshal network specs: %v", err)
		}
		out = append(out, &n)
		return nil
	})
	return out, err
}

// ByGenesisHash returns every stored entry sharing genesisHash. Since
// AddSpecs requires such entries to agree on encryption and name, this
// is at most one entry for specs added through AddSpecs.
func (s *Store) ByGenesisHash(genesisHash []byte) ([]*NetworkSpecs, error) {
	all, err := s.AllSpecs()
	if err != nil {
		return nil, err
	}
	var out []*NetworkSpecs
	for _, n := range all {
		if bytes.Equal(n.GenesisHash, genesisHash) {
			out = append(out, n)
		}
	}
	return out, nil
}

// AddSpecs inserts specs, enforcing spec.md §3's two invariants: (name,
// encryption) is unique, and every entry sharing a genesis hash agrees
// on the "important" field subset. If an entry already exists at the
// same key with identical content, it returns that entry and
// CodeSpecsKnown (a no-op acceptance, not a failure — spec.md §8's
// "applying an add_specs update whose content already matches the
// stored entry is a no-op").
func (s *Store) AddSpecs(specs BaseSpecs) (*NetworkSpecs, error) {
	key := keystore.NewNetworkSpecsKey(specs.Encryption, specs.GenesisHash)
	if existing, err := s.GetSpecs(key); err == nil {
		if existing.important() == specs.important() &&
			existing.Color == specs.Color && existing.SecondaryColor == specs.SecondaryColor &&
			existing.Logo == specs.Logo && existing.PathID == specs.PathID && existing.Title == specs.Title {
			return existing, errorkinds.New(errorkinds.KindInput, errorkinds.CodeSpecsKnown, "network specs already known")
		}
		return nil, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeMismatch, "network specs at this key already exist with different content")
	} else if !errorkinds.Is(err, errorkinds.CodeKeyDecoding) {
		return nil, err
	}

	all, err := s.AllSpecs()
	if err != nil {
		return nil, err
	}
	for _, n := range all {
		if n.Name == specs.Name && n.Encryption == specs.Encryption {
			return nil, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeMismatch, "a network named %q already exists under encryption %q", specs.Name, specs.Encryption)
		}
		if bytes.Equal(n.GenesisHash, specs.GenesisHash) && n.important() != specs.important() {
			return nil, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeMismatch, "genesis hash %x already stored with different base58 prefix/decimals/encryption/name/unit", specs.GenesisHash)
		}
	}

	n := &NetworkSpecs{BaseSpecs: specs, Order: uint8(len(all))}
	raw, err := json.Marshal(n)
	if err != nil {
		return nil, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeEntryDecoding, "marshal network specs: %v", err)
	}
	if err := s.s.Put(store.TreeSpecs, key, raw); err != nil {
		return nil, err
	}
	return n, nil
}

// RemoveSpecs deletes one network's SPECSTREE entry and every METATREE
// entry under its name, the cascade spec.md §3's lifecycle section
// names. It returns the removed metadata versions so the caller can log
// one MetadataRemoved history event per version.
func (s *Store) RemoveSpecs(key keystore.NetworkSpecsKey) (*NetworkSpecs, []uint32, error) {
	specs, err := s.GetSpecs(key)
	if err != nil {
		return nil, nil, err
	}
	versions, err := s.MetaVersions(specs.Name)
	if err != nil {
		return nil, nil, err
	}
	b := s.s.NewBatch()
	b.Delete(store.TreeSpecs, key)
	for _, v := range versions {
		b.Delete(store.TreeMeta, keystore.MetaKey{NetworkName: specs.Name, SpecVersion: v}.Bytes())
	}
	if err := s.s.Write(b); err != nil {
		return nil, nil, err
	}
	return specs, versions, nil
}

// GetMeta looks up one (name, version) metadata blob.
func (s *Store) GetMeta(name string, version uint32) (*MetaValues, error) {
	raw, err := s.s.Get(store.TreeMeta, keystore.MetaKey{NetworkName: name, SpecVersion: version}.Bytes())
	if err != nil {
		return nil, err
	}
	var m MetaValues
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeEntryDecoding, "unmarshal meta values: %v", err)
	}
	return &m, nil
}

// MetaVersions returns every spec version stored for name, ascending.
func (s *Store) MetaVersions(name string) ([]uint32, error) {
	var out []uint32
	err := s.s.Iterate(store.TreeMeta, func(_, v []byte) error {
		var m MetaValues
		if err := json.Unmarshal(v, &m); err != nil {
			return errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeEntryDecoding, "unmarshal meta values: %v", err)
		}
		if m.Name == name {
			out = append(out, m.Version)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out, nil
}

// AddMeta inserts mv, enforcing spec.md §3's invariants: at most two
// versions per name in the hot DB (the oldest is evicted to make room
// for a third — an Open Question resolution recorded in DESIGN.md,
// since spec.md states the invariant but not the eviction policy), and
// identical (name, version) must carry identical bytes. Returns
// (-1, true, nil) with CodeMetadataKnown-equivalent semantics (no write)
// when the exact bytes are already stored, and the evicted version (or
// -1) so the caller can log MetadataRemoved for it.
func (s *Store) AddMeta(mv MetaValues) (evicted int64, known bool, err error) {
	if existing, err := s.GetMeta(mv.Name, mv.Version); err == nil {
		if bytes.Equal(existing.Meta, mv.Meta) {
			return -1, true, nil
		}
		return -1, false, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeMismatch, "metadata %s v%d already stored with different bytes", mv.Name, mv.Version)
	} else if !errorkinds.Is(err, errorkinds.CodeKeyDecoding) {
		return -1, false, err
	}

	versions, err := s.MetaVersions(mv.Name)
	if err != nil {
		return -1, false, err
	}
	b := s.s.NewBatch()
	evicted = -1
	if len(versions) >= 2 {
		evicted = int64(versions[0])
		b.Delete(store.TreeMeta, keystore.MetaKey{NetworkName: mv.Name, SpecVersion: versions[0]}.Bytes())
	}
	raw, err := json.Marshal(mv)
	if err != nil {
		return -1, false, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeEntryDecoding, "marshal meta values: %v", err)
	}
	b.Put(store.TreeMeta, mv.key().Bytes(), raw)
	if err := s.s.Write(b); err != nil {
		return -1, false, err
	}
	return evicted, false, nil
}

// RemoveMeta deletes one (name, version) entry by explicit user command.
func (s *Store) RemoveMeta(name string, version uint32) error {
	return s.s.Delete(store.TreeMeta, keystore.MetaKey{NetworkName: name, SpecVersion: version}.Bytes())
}
