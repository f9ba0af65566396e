package txpipeline

import (
	"encoding/binary"
	"encoding/json"

	"golang.org/x/crypto/blake2b"

	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/keystore"
	"github.com/tos-network/vault-core/network"
	"github.com/tos-network/vault-core/store"
)

// Action discriminates what a Stub staging entry applies on commit.
type Action string

const (
	ActionLoadMetadata      Action = "load_metadata"
	ActionAddSpecs          Action = "add_specs"
	ActionLoadTypes         Action = "load_types"
	ActionDerivationsBundle Action = "derivations_bundle"
)

// staged is the TreeTransaction record: either a Sign (a ready-to-sign
// transaction) or a Stub (an update awaiting commit), spec.md §4.9's
// two staging shapes, checksum-keyed so the caller must echo back
// exactly what they were shown (spec.md §4.9 step 3). Checksum is a
// uint32 to match the WrongPasswordNewChecksum(u32) wire shape
// errorkinds already carries — a short display checksum, distinct from
// history.Log's full blake2b-256 hex digest used for the history modal.
type staged struct {
	IsSign bool `json:"is_sign"`

	// Sign fields.
	AddressKey         keystore.AddressKey `json:"address_key,omitempty"`
	NetworkGenesisHash []byte              `json:"network_genesis_hash,omitempty"`
	SigningPayload     []byte              `json:"signing_payload,omitempty"`
	PasswordAttempts   int                 `json:"password_attempts,omitempty"`

	// Stub fields.
	Action      Action              `json:"action,omitempty"`
	MetaValues  *network.MetaValues `json:"meta_values,omitempty"`
	Specs       *network.BaseSpecs  `json:"specs,omitempty"`
	Types       []byte              `json:"types,omitempty"`
	Derivations []DerivationEntry   `json:"derivations,omitempty"`

	Deck json.RawMessage `json:"deck,omitempty"`
}

func checksumOf(raw []byte) uint32 {
	sum := blake2b.Sum256(raw)
	return binary.BigEndian.Uint32(sum[:4])
}

func checksumKey(checksum uint32) []byte {
	var k [4]byte
	binary.BigEndian.PutUint32(k[:], checksum)
	return k[:]
}

// putStaged writes st keyed by its own checksum and returns that
// checksum for the caller to echo back on commit.
func putStaged(s *store.Store, st staged) (uint32, error) {
	raw, err := json.Marshal(st)
	if err != nil {
		return 0, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeEntryDecoding, "marshal staged entry: %v", err)
	}
	checksum := checksumOf(raw)
	if err := s.Put(store.TreeTransaction, checksumKey(checksum), raw); err != nil {
		return 0, err
	}
	return checksum, nil
}

// getStaged looks up a staged entry by the checksum the caller echoes
// back, recomputing the checksum to detect any change since it was
// shown (spec.md §4.9: "the core recomputes the store hash and refuses
// if it changed").
func getStaged(s *store.Store, checksum uint32) (staged, error) {
	raw, err := s.Get(store.TreeTransaction, checksumKey(checksum))
	if err != nil {
		if errorkinds.Is(err, errorkinds.CodeKeyDecoding) {
			return staged{}, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeChecksumMismatch, "no staged entry at this checksum")
		}
		return staged{}, err
	}
	if checksumOf(raw) != checksum {
		return staged{}, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeChecksumMismatch, "staged entry no longer matches its checksum")
	}
	var st staged
	if err := json.Unmarshal(raw, &st); err != nil {
		return staged{}, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeEntryDecoding, "unmarshal staged entry: %v", err)
	}
	return st, nil
}

func deleteStaged(s *store.Store, checksum uint32) error {
	return s.Delete(store.TreeTransaction, checksumKey(checksum))
}

// replaceStaged atomically removes the entry at oldChecksum and writes
// st under its new checksum, used when a wrong password bumps
// PasswordAttempts and must be re-staged under a fresh checksum
// (spec.md §4.9: "wrong password... emits WrongPasswordNewChecksum(new_
// checksum); the caller must use the new checksum on the next retry").
func replaceStaged(s *store.Store, oldChecksum uint32, st staged) (uint32, error) {
	raw, err := json.Marshal(st)
	if err != nil {
		return 0, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeEntryDecoding, "marshal staged entry: %v", err)
	}
	newChecksum := checksumOf(raw)
	b := s.NewBatch()
	b.Delete(store.TreeTransaction, checksumKey(oldChecksum))
	b.Put(store.TreeTransaction, checksumKey(newChecksum), raw)
	if err := s.Write(b); err != nil {
		return 0, err
	}
	return newChecksum, nil
}
