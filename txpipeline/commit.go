package txpipeline

import (
	"encoding/json"

	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/history"
	"github.com/tos-network/vault-core/keystore"
	"github.com/tos-network/vault-core/network"
)

// CommitResult is what Commit returns on success: a signature for a
// transaction, or nothing (history already reflects the applied stub)
// for an update.
type CommitResult struct {
	Signature []byte
	Action    Action
}

func isWrongPassword(err error) bool {
	e, ok := err.(*errorkinds.Error)
	return ok && e.Kind == errorkinds.KindWrongPassword
}

// Commit applies the staged entry at checksum (spec.md §4.9 step 3). A
// Sign entry needs storage (to load the seed) and password (if the
// address is password-protected); a Stub entry needs neither, but
// derivations_bundle additionally needs seedName, the local seed the
// bundle's paths are created under (the bundle itself never names one —
// seed names never cross the air gap).
func (p *Pipeline) Commit(checksum uint32, storage keystore.SeedStorage, password, seedName string) (CommitResult, error) {
	st, err := getStaged(p.s, checksum)
	if err != nil {
		return CommitResult{}, err
	}
	if st.IsSign {
		return p.commitSign(checksum, st, storage, password)
	}
	return p.commitStub(checksum, st, storage, seedName)
}

func (p *Pipeline) commitSign(checksum uint32, st staged, storage keystore.SeedStorage, password string) (CommitResult, error) {
	sig, err := p.keys.Sign(storage, st.AddressKey, password, st.SigningPayload)
	if err != nil {
		if isWrongPassword(err) {
			st.PasswordAttempts++
			if st.PasswordAttempts >= p.PasswordRetryLimit {
				_ = deleteStaged(p.s, checksum)
				_, _ = p.hist.Append(history.KindWrongPassword, "password retry limit exceeded; staged transaction purged", nil)
				return CommitResult{}, errorkinds.New(errorkinds.KindWrongPassword, "", "password retry limit exceeded")
			}
			newChecksum, rerr := replaceStaged(p.s, checksum, st)
			if rerr != nil {
				return CommitResult{}, rerr
			}
			_, _ = p.hist.Append(history.KindWrongPassword, "wrong password, retry requested", nil)
			return CommitResult{}, errorkinds.WrongPasswordNewChecksum(newChecksum)
		}
		return CommitResult{}, err
	}
	if err := deleteStaged(p.s, checksum); err != nil {
		return CommitResult{}, err
	}
	if _, err := p.hist.Append(history.KindTransactionSigned, "transaction signed", nil); err != nil {
		return CommitResult{}, err
	}
	return CommitResult{Signature: sig}, nil
}

func (p *Pipeline) commitStub(checksum uint32, st staged, storage keystore.SeedStorage, seedName string) (CommitResult, error) {
	switch st.Action {
	case ActionLoadMetadata:
		evicted, known, err := p.nets.AddMeta(*st.MetaValues)
		if err != nil {
			return CommitResult{}, err
		}
		if !known {
			if _, err := p.hist.Append(history.KindMetadataAdded, metadataAddedMessage(st.MetaValues), nil); err != nil {
				return CommitResult{}, err
			}
			if evicted >= 0 {
				if _, err := p.hist.Append(history.KindMetadataAdded, evictedMessage(st.MetaValues.Name, uint32(evicted)), nil); err != nil {
					return CommitResult{}, err
				}
			}
		}
	case ActionAddSpecs:
		_, err := p.nets.AddSpecs(*st.Specs)
		if err != nil && !errorkinds.Is(err, errorkinds.CodeSpecsKnown) {
			return CommitResult{}, err
		}
		if err == nil {
			if _, herr := p.hist.Append(history.KindNetworkAdded, "network specs added: "+st.Specs.Name, nil); herr != nil {
				return CommitResult{}, herr
			}
		}
	case ActionLoadTypes:
		if _, err := p.hist.Append(history.KindTypesAdded, "type information database updated", nil); err != nil {
			return CommitResult{}, err
		}
	case ActionDerivationsBundle:
		if seedName == "" {
			return CommitResult{}, errorkinds.New(errorkinds.KindInterface, errorkinds.CodeBadFormat, "derivations_bundle commit requires a local seed name")
		}
		if err := p.applyDerivationsBundle(storage, seedName, st.Derivations); err != nil {
			return CommitResult{}, err
		}
	default:
		return CommitResult{}, errorkinds.New(errorkinds.KindInput, errorkinds.CodeBadFormat, "unrecognized staged action %q", st.Action)
	}
	if err := deleteStaged(p.s, checksum); err != nil {
		return CommitResult{}, err
	}
	return CommitResult{Action: st.Action}, nil
}

// applyDerivationsBundle creates one address per bundle entry under
// seedName, without a target network (derivations_bundle entries carry
// only scheme and path — spec.md §6 names no network field for this
// kind; the resulting address is registered against a network later,
// the same way TryCreateAddress registers an existing address for an
// additional network).
func (p *Pipeline) applyDerivationsBundle(storage keystore.SeedStorage, seedName string, entries []DerivationEntry) error {
	for _, e := range entries {
		if _, _, err := p.keys.TryCreateAddress(storage, seedName, e.Encryption, e.Path, nil); err != nil {
			return err
		}
	}
	return nil
}

func metadataAddedMessage(mv *network.MetaValues) string {
	raw, _ := json.Marshal(struct {
		Name    string `json:"name"`
		Version uint32 `json:"version"`
	}{mv.Name, mv.Version})
	return string(raw)
}

func evictedMessage(name string, version uint32) string {
	raw, _ := json.Marshal(struct {
		Name    string `json:"name"`
		Version uint32 `json:"version"`
	}{name, version})
	return string(raw)
}
