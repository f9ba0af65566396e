// Package trust persists C7's verifier state: one verifier.Verifier per
// network (VERIFIERS, keyed by keystore.VerifierKey) and the process-wide
// general verifier (GENERALVERIFIER, a single cell). verifier.go itself
// stays pure (DESIGN.md: "pure functions returning the next Verifier plus
// an error so the caller... decides persistence"); this package is that
// caller, grounded on the same store.Store tree-per-concern shape
// keystore/history/network already use.
package trust

import (
	"bytes"
	"encoding/json"

	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/keystore"
	"github.com/tos-network/vault-core/store"
	"github.com/tos-network/vault-core/verifier"
)

// verifiersEqual compares two Verifiers by value; verifier.Verifier
// embeds a []byte field so Go's == is unavailable on it directly.
func verifiersEqual(a, b verifier.Verifier) bool {
	return a.Kind == b.Kind && a.Value.Encryption == b.Value.Encryption && bytes.Equal(a.Value.Public, b.Value.Public)
}

var generalVerifierKey = []byte("general")

// Store is the C9-facing handle onto VERIFIERS and GENERALVERIFIER.
type Store struct {
	s *store.Store
}

func Open(s *store.Store) *Store { return &Store{s: s} }

func (s *Store) GetGeneral() (verifier.Verifier, error) {
	raw, err := s.s.Get(store.TreeGeneralVerifier, generalVerifierKey)
	if err != nil {
		if errorkinds.Is(err, errorkinds.CodeKeyDecoding) {
			return verifier.Verifier{Kind: verifier.KindNone}, nil
		}
		return verifier.Verifier{}, err
	}
	return decodeVerifier(raw)
}

func (s *Store) putGeneral(b *store.Batch, v verifier.Verifier) error {
	raw, err := encodeVerifier(v)
	if err != nil {
		return err
	}
	b.Put(store.TreeGeneralVerifier, generalVerifierKey, raw)
	return nil
}

func (s *Store) GetNetwork(key keystore.VerifierKey) (verifier.Verifier, error) {
	raw, err := s.s.Get(store.TreeVerifiers, key)
	if err != nil {
		if errorkinds.Is(err, errorkinds.CodeKeyDecoding) {
			return verifier.Verifier{Kind: verifier.KindNone}, nil
		}
		return verifier.Verifier{}, err
	}
	return decodeVerifier(raw)
}

func (s *Store) putNetwork(b *store.Batch, key keystore.VerifierKey, v verifier.Verifier) error {
	raw, err := encodeVerifier(v)
	if err != nil {
		return err
	}
	b.Put(store.TreeVerifiers, key, raw)
	return nil
}

// AcceptLoadMetadata applies and persists verifier.AcceptLoadMetadata's
// result for genesisHash's network in one atomic write; on rejection the
// network is left (and persisted) Dead, matching spec.md §7's "any ->
// Dead on conflict... terminal" rule — the caller still sees the
// original error to decide whether to surface it.
func (s *Store) AcceptLoadMetadata(genesisHash []byte, signer *verifier.Value) (verifier.Verifier, error) {
	key := keystore.NewVerifierKey(genesisHash)
	current, err := s.GetNetwork(key)
	if err != nil {
		return verifier.Verifier{}, err
	}
	general, err := s.GetGeneral()
	if err != nil {
		return verifier.Verifier{}, err
	}
	next, acceptErr := verifier.AcceptLoadMetadata(current, general, signer)
	if !verifiersEqual(next, current) {
		b := s.s.NewBatch()
		if err := s.putNetwork(b, key, next); err != nil {
			return verifier.Verifier{}, err
		}
		if err := s.s.Write(b); err != nil {
			return verifier.Verifier{}, err
		}
	}
	return next, acceptErr
}

// AcceptLoadTypes applies and persists verifier.AcceptLoadTypes's result
// against the general verifier.
func (s *Store) AcceptLoadTypes(signer *verifier.Value) (verifier.Verifier, error) {
	general, err := s.GetGeneral()
	if err != nil {
		return verifier.Verifier{}, err
	}
	next, acceptErr := verifier.AcceptLoadTypes(general, signer)
	if !verifiersEqual(next, general) {
		b := s.s.NewBatch()
		if err := s.putGeneral(b, next); err != nil {
			return verifier.Verifier{}, err
		}
		if err := s.s.Write(b); err != nil {
			return verifier.Verifier{}, err
		}
	}
	return next, acceptErr
}

// ResetNetwork clears genesisHash's verifier back to None, the only way
// out of KindDead (spec.md §7).
func (s *Store) ResetNetwork(genesisHash []byte) error {
	return s.s.Put(store.TreeVerifiers, keystore.NewVerifierKey(genesisHash), mustEncode(verifier.Reset()))
}

func decodeVerifier(raw []byte) (verifier.Verifier, error) {
	var wire wireVerifier
	if err := json.Unmarshal(raw, &wire); err != nil {
		return verifier.Verifier{}, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeEntryDecoding, "unmarshal verifier: %v", err)
	}
	return verifier.Verifier{Kind: verifier.Kind(wire.Kind), Value: verifier.Value{Public: wire.Public, Encryption: wire.Encryption}}, nil
}

func encodeVerifier(v verifier.Verifier) ([]byte, error) {
	wire := wireVerifier{Kind: int(v.Kind), Public: v.Value.Public, Encryption: v.Value.Encryption}
	raw, err := json.Marshal(wire)
	if err != nil {
		return nil, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeEntryDecoding, "marshal verifier: %v", err)
	}
	return raw, nil
}

func mustEncode(v verifier.Verifier) []byte {
	raw, _ := encodeVerifier(v)
	return raw
}

type wireVerifier struct {
	Kind       int    `json:"kind"`
	Public     []byte `json:"public,omitempty"`
	Encryption string `json:"encryption,omitempty"`
}
