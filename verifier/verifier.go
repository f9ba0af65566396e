// Package verifier implements C7: the trust model governing which
// signatures are accepted for metadata and type-database updates
// (spec.md §7). A network's verifier starts as None (nothing signed
// yet is trusted), is set on first acceptance (trust-on-first-use), and
// once set is never replaced: later updates are accepted only from that
// same signer (or, for a Custom network, from the general verifier), and
// any other signer is rejected and the network's verifier is marked Dead
// until an operator resets it. Grounded on
// original_source/'s `network_details.rs`/verifier-handling modules
// (the enum shape: None/Custom/General) and on the teacher's
// `errorkinds`-style closed-taxonomy error reporting already used
// throughout this core.
package verifier

import (
	"bytes"

	"github.com/tos-network/vault-core/errorkinds"
)

// Kind discriminates the four verifier states a network can be in.
type Kind int

const (
	KindNone Kind = iota
	KindCustom
	KindGeneral
	KindDead
)

// Value identifies a verifying key: its raw public key bytes and the
// encryption scheme it was produced under (spec.md §5's three schemes).
type Value struct {
	Public     []byte
	Encryption string
}

func (v Value) equal(o Value) bool {
	return v.Encryption == o.Encryption && bytes.Equal(v.Public, o.Public)
}

// Verifier is a network's current trust state.
type Verifier struct {
	Kind  Kind
	Value Value // zero value when Kind is KindNone or KindDead
}

// IsDead reports whether this network's verifier has been marked dead
// by a prior verifier-changed rejection; a dead network accepts no
// further metadata or specs updates until explicitly reset.
func (v Verifier) IsDead() bool { return v.Kind == KindDead }

// AcceptLoadMetadata applies spec.md's load_metadata acceptance rule: a
// metadata update signed by signer is accepted if the network has no
// verifier yet (first use sets it), or if signer matches the existing
// verifier. A different signer is rejected and the returned Verifier is
// KindDead; the caller is responsible for persisting that.
//
// general additionally lets an update signed by the current general
// verifier be accepted for a network whose own verifier is Custom; the
// network keeps its Custom verifier.
func AcceptLoadMetadata(current Verifier, general Verifier, signer *Value) (Verifier, error) {
	if current.IsDead() {
		return current, errorkinds.New(errorkinds.KindDeadVerifier, errorkinds.CodeLoadMetaVerifierChanged, "network verifier is dead, reset required before accepting new metadata")
	}
	if signer == nil {
		if current.Kind == KindNone {
			return current, errorkinds.New(errorkinds.KindParser, errorkinds.CodeLoadMetaNotVerified, "unsigned metadata for a network with no established verifier")
		}
		return current, errorkinds.New(errorkinds.KindParser, errorkinds.CodeLoadMetaNotVerified, "unsigned metadata but network already has a verifier")
	}
	switch current.Kind {
	case KindNone:
		return Verifier{Kind: KindCustom, Value: *signer}, nil
	case KindCustom:
		if current.Value.equal(*signer) {
			return current, nil
		}
		if general.Kind != KindNone && general.Value.equal(*signer) {
			return current, nil
		}
		return Verifier{Kind: KindDead}, errorkinds.New(errorkinds.KindParser, errorkinds.CodeLoadMetaVerifierChanged, "metadata signer does not match the network's established verifier")
	case KindGeneral:
		if current.Value.equal(*signer) {
			return current, nil
		}
		return Verifier{Kind: KindDead}, errorkinds.New(errorkinds.KindParser, errorkinds.CodeLoadMetaVerifierChanged, "metadata signer does not match the network's established general verifier")
	default:
		return Verifier{Kind: KindDead}, errorkinds.New(errorkinds.KindParser, errorkinds.CodeLoadMetaUnknownNetwork, "network has an unrecognized verifier state")
	}
}

// AcceptLoadTypes applies spec.md's load_types acceptance rule: the
// shared type-information database can only be updated by the general
// verifier, or left unsigned while no general verifier is set (which
// leaves it None). The first signed update sets the general verifier.
func AcceptLoadTypes(general Verifier, signer *Value) (Verifier, error) {
	if signer == nil {
		if general.Kind == KindNone {
			return general, nil
		}
		return general, errorkinds.New(errorkinds.KindParser, errorkinds.CodeLoadMetaNotVerified, "unsigned types update but a general verifier is already established")
	}
	switch general.Kind {
	case KindNone:
		return Verifier{Kind: KindGeneral, Value: *signer}, nil
	case KindGeneral:
		if general.Value.equal(*signer) {
			return general, nil
		}
		return general, errorkinds.New(errorkinds.KindParser, errorkinds.CodeGeneralVerifierChanged, "types update signer does not match the established general verifier")
	default:
		return general, errorkinds.New(errorkinds.KindParser, errorkinds.CodeGeneralVerifierChanged, "general verifier is in an unrecognized state")
	}
}

// Reset clears a dead network verifier back to None, the operator
// action spec.md §7 describes as the only way out of KindDead.
func Reset() Verifier { return Verifier{Kind: KindNone} }
