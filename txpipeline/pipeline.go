package txpipeline

import (
	"bytes"
	"encoding/json"

	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/history"
	"github.com/tos-network/vault-core/internal/cardschema"
	"github.com/tos-network/vault-core/keystore"
	"github.com/tos-network/vault-core/network"
	"github.com/tos-network/vault-core/scale"
	"github.com/tos-network/vault-core/store"
	"github.com/tos-network/vault-core/trust"
)

// DefaultPasswordRetryLimit is spec.md §9's Open Question resolution:
// "the retry limit for password attempts before purging a staging entry
// is not explicit in the source; treat as a configurable parameter,
// default 3."
const DefaultPasswordRetryLimit = 3

// Pipeline is the C9 entry point wiring C1-C8 together (spec.md §4.9).
// It holds no SeedStorage — like Keystore, every call that touches
// plaintext seed material takes one explicitly.
type Pipeline struct {
	s    *store.Store
	nets *network.Store
	tr   *trust.Store
	keys *keystore.Keystore
	hist *history.Log

	PasswordRetryLimit int
}

func Open(s *store.Store) *Pipeline {
	return &Pipeline{
		s:                  s,
		nets:               network.Open(s),
		tr:                 trust.Open(s),
		keys:               keystore.Open(s),
		hist:               history.Open(s),
		PasswordRetryLimit: DefaultPasswordRetryLimit,
	}
}

// ParseResult is what Parse returns for the caller to display before
// asking for approval: the checksum to echo back on Commit, and either
// a transaction's card deck or a one-line description of the update.
type ParseResult struct {
	Checksum    uint32
	IsSign      bool
	Deck        *cardschema.Deck
	Action      Action
	NetworkName string
}

// Parse decodes prelude + body and stages the result, returning what
// the caller should show for approval (spec.md §4.9 steps 1-2).
func (p *Pipeline) Parse(raw []byte) (ParseResult, error) {
	prelude, body, err := ParsePrelude(raw)
	if err != nil {
		return ParseResult{}, err
	}
	c := scale.NewCursor(body)
	switch prelude.Kind {
	case PayloadTransaction:
		return p.stageTransaction(prelude, c)
	case PayloadLoadMetadata:
		return p.stageLoadMetadata(prelude, c)
	case PayloadAddSpecs:
		return p.stageAddSpecs(c)
	case PayloadLoadTypes:
		return p.stageLoadTypes(c)
	case PayloadDerivationsBundle:
		return p.stageDerivationsBundle(c)
	default:
		return ParseResult{}, errorkinds.Parser(errorkinds.CodePayloadNotSupported, "unhandled payload kind %#x", prelude.Kind)
	}
}

func (p *Pipeline) stageTransaction(prelude Prelude, c *scale.Cursor) (ParseResult, error) {
	tb, err := decodeTransactionBody(c, prelude.Encryption)
	if err != nil {
		return ParseResult{}, err
	}
	specsKey := keystore.NewNetworkSpecsKey(prelude.Encryption, tb.GenesisHash)
	specs, err := p.nets.GetSpecs(specsKey)
	if err != nil {
		return ParseResult{}, err
	}
	if v, err := p.tr.GetNetwork(keystore.NewVerifierKey(tb.GenesisHash)); err != nil {
		return ParseResult{}, err
	} else if v.IsDead() {
		return ParseResult{}, errorkinds.New(errorkinds.KindDeadVerifier, errorkinds.CodeLoadMetaVerifierChanged, "network verifier is dead; reset required before signing")
	}

	addrKey := keystore.NewAddressKey(prelude.Encryption, tb.AuthorPubkey)
	details, err := p.keys.Lookup(addrKey)
	if err != nil {
		return ParseResult{}, err
	}
	registered := false
	for _, g := range details.NetworkGenesisHashes {
		if bytes.Equal(g, tb.GenesisHash) {
			registered = true
			break
		}
	}
	if !registered {
		return ParseResult{}, errorkinds.New(errorkinds.KindNotFound, errorkinds.CodeKeyNotFound, "address is not registered for this network")
	}

	deck, decoded, err := decodeAgainstInstalledVersions(p.nets, specs, tb.Method, tb.Extensions)
	if err != nil {
		return ParseResult{}, err
	}
	if err := decoded.CheckGenesis(specs.GenesisHash); err != nil {
		return ParseResult{}, err
	}

	signingPayload := make([]byte, 0, len(tb.Method)+len(tb.Extensions))
	signingPayload = append(signingPayload, tb.Method...)
	signingPayload = append(signingPayload, tb.Extensions...)

	deckRaw, err := json.Marshal(deck)
	if err != nil {
		return ParseResult{}, errorkinds.New(errorkinds.KindDatabase, errorkinds.CodeEntryDecoding, "marshal deck: %v", err)
	}
	checksum, err := putStaged(p.s, staged{
		IsSign:             true,
		AddressKey:         addrKey,
		NetworkGenesisHash: tb.GenesisHash,
		SigningPayload:     signingPayload,
		Deck:               deckRaw,
	})
	if err != nil {
		return ParseResult{}, err
	}
	return ParseResult{Checksum: checksum, IsSign: true, Deck: deck, NetworkName: specs.Name}, nil
}

func (p *Pipeline) stageLoadMetadata(prelude Prelude, c *scale.Cursor) (ParseResult, error) {
	lm, err := decodeLoadMetadataBody(c)
	if err != nil {
		return ParseResult{}, err
	}
	specs, err := p.nets.GetSpecs(keystore.NewNetworkSpecsKey(prelude.Encryption, lm.GenesisHash))
	if err != nil {
		return ParseResult{}, err
	}
	if _, err := p.tr.AcceptLoadMetadata(lm.GenesisHash, lm.Signer); err != nil {
		return ParseResult{}, err
	}
	specVersion, _, err := decodeMetadataBlob(lm.Meta)
	if err != nil {
		return ParseResult{}, err
	}
	checksum, err := putStaged(p.s, staged{
		Action:     ActionLoadMetadata,
		MetaValues: &network.MetaValues{Name: specs.Name, Version: specVersion, Meta: lm.Meta},
	})
	if err != nil {
		return ParseResult{}, err
	}
	return ParseResult{Checksum: checksum, Action: ActionLoadMetadata, NetworkName: specs.Name}, nil
}

func (p *Pipeline) stageAddSpecs(c *scale.Cursor) (ParseResult, error) {
	as, err := decodeAddSpecsBody(c)
	if err != nil {
		return ParseResult{}, err
	}
	if _, err := p.tr.AcceptLoadMetadata(as.Specs.GenesisHash, as.Signer); err != nil {
		return ParseResult{}, err
	}
	specs := network.BaseSpecs{
		Base58Prefix: as.Specs.Base58Prefix, Color: as.Specs.Color, SecondaryColor: as.Specs.SecondaryColor,
		Decimals: as.Specs.Decimals, Encryption: as.Specs.Encryption, GenesisHash: as.Specs.GenesisHash,
		Logo: as.Specs.Logo, Name: as.Specs.Name, PathID: as.Specs.PathID, Title: as.Specs.Title, Unit: as.Specs.Unit,
	}
	checksum, err := putStaged(p.s, staged{Action: ActionAddSpecs, Specs: &specs})
	if err != nil {
		return ParseResult{}, err
	}
	return ParseResult{Checksum: checksum, Action: ActionAddSpecs, NetworkName: specs.Name}, nil
}

func (p *Pipeline) stageLoadTypes(c *scale.Cursor) (ParseResult, error) {
	lt, err := decodeLoadTypesBody(c)
	if err != nil {
		return ParseResult{}, err
	}
	if _, err := p.tr.AcceptLoadTypes(lt.Signer); err != nil {
		return ParseResult{}, err
	}
	checksum, err := putStaged(p.s, staged{Action: ActionLoadTypes, Types: lt.Types})
	if err != nil {
		return ParseResult{}, err
	}
	return ParseResult{Checksum: checksum, Action: ActionLoadTypes}, nil
}

func (p *Pipeline) stageDerivationsBundle(c *scale.Cursor) (ParseResult, error) {
	entries, err := decodeDerivationsBundle(c)
	if err != nil {
		return ParseResult{}, err
	}
	checksum, err := putStaged(p.s, staged{Action: ActionDerivationsBundle, Derivations: entries})
	if err != nil {
		return ParseResult{}, err
	}
	return ParseResult{Checksum: checksum, Action: ActionDerivationsBundle}, nil
}

// Cancel discards a staged entry without applying or logging it.
func (p *Pipeline) Cancel(checksum uint32) error {
	return deleteStaged(p.s, checksum)
}
