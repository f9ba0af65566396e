// Package extensions implements C4: decoding the signed extensions that
// follow a call in an extrinsic payload (spec.md §4.4). The wire format
// is two back-to-back passes over the same ordered SignedExtensionMetadata
// list — first every extension's `extra` (ty) field, in order, then every
// extension's `additional_signed` field, in the same order — matching how
// the runtime itself concatenates extra and additional_signed bytes to
// form the bytes that get signed (original_source/rust/parser/src/cards.rs
// decodes extrinsics the same two-pass way, since the wire offers no other
// way to tell where one extension's fields end and the next begins).
//
// Most extensions carry fields the generic decoder.Walk already renders
// correctly (an enum or primitive with a normal type name). A handful are
// special-cased by SignedExtensionMetadata.Identifier because spec.md's
// card schema gives them their own tags (era_nonce_tip, tx_spec,
// block_hash) instead of the generic field_name/varname/balance cards
// Walk would otherwise emit — real Substrate metadata does not carry a
// machine-readable "this is the era" marker beyond the extension's name,
// so identifier-substring matching is the only available signal.
package extensions

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/tos-network/vault-core/decoder"
	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/internal/cardschema"
	"github.com/tos-network/vault-core/scale"
	"github.com/tos-network/vault-core/typeresolve"
)

// Extension is one signed extension's identifier and the Refs of its two
// wire-carried values, backend-agnostic (portable.SignedExtensionMetadata
// and any textual-backend equivalent both reduce to this shape).
type Extension struct {
	Identifier       string
	Ty               typeresolve.Ref
	AdditionalSigned typeresolve.Ref
}

// Decoded carries the cards plus the handful of extracted facts C9's
// commit stage needs for cross-checks (genesis hash equality, spec
// version vs. installed metadata).
type Decoded struct {
	Deck           *cardschema.Deck
	SpecVersion    uint32
	GenesisHash    []byte
	CheckpointHash []byte
	EraImmortal    bool
}

// blockHashPayload backs TagBlockHash cards. Kind distinguishes the two
// 32-byte hashes a mortal extrinsic can carry: the chain's genesis hash
// (CheckGenesis's additional_signed) and the checkpoint block hash a
// mortal era is anchored to (CheckMortality's additional_signed) — spec.md
// describes both as "tagged as ... hash" without naming a payload shape,
// so this distinguishes them the way original_source/ keeps them as
// separate fields rather than collapsing them into one card.
type blockHashPayload struct {
	Hash string `json:"hash"`
	Kind string `json:"kind"`
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Decode walks extra then additional_signed fields of exts, in order, off
// of c. c must already be positioned just past the call bytes.
func Decode(c *scale.Cursor, r typeresolve.Resolver, exts []Extension, ctx *decoder.Context) (*Decoded, error) {
	deck := &cardschema.Deck{}
	out := &Decoded{Deck: deck}
	var sawEra, sawGenesis, sawCheckpoint, sawSpecVersion bool

	for _, ext := range exts {
		switch {
		case containsAny(ext.Identifier, "Mortality", "CheckEra"):
			if sawEra {
				return nil, errorkinds.Parser(errorkinds.CodeEraTwice, "era decoded twice (extension %q)", ext.Identifier)
			}
			sawEra = true
			immortal, err := walkEra(c, deck)
			if err != nil {
				return nil, err
			}
			out.EraImmortal = immortal
		case containsAny(ext.Identifier, "Nonce"):
			if err := walkNonce(c, deck); err != nil {
				return nil, err
			}
		case containsAny(ext.Identifier, "TransactionPayment", "ChargeTransaction"):
			if err := walkTip(c, deck, ctx); err != nil {
				return nil, err
			}
		default:
			if err := decoder.Walk(c, r, ext.Ty, deck, 0, ctx, decoder.State{}); err != nil {
				return nil, err
			}
		}
	}

	for _, ext := range exts {
		switch {
		case containsAny(ext.Identifier, "Genesis"):
			if sawGenesis {
				return nil, errorkinds.Parser(errorkinds.CodeGenesisHashTwice, "genesis hash decoded twice (extension %q)", ext.Identifier)
			}
			sawGenesis = true
			h, err := c.DecodeArray(32)
			if err != nil {
				return nil, errorkinds.Parser(errorkinds.CodeDataTooShort, "genesis hash: %v", err)
			}
			out.GenesisHash = h
			deck.Push(0, cardschema.TagBlockHash, blockHashPayload{Hash: hex.EncodeToString(h), Kind: "genesis"})
		case containsAny(ext.Identifier, "Mortality", "CheckEra"):
			if sawCheckpoint {
				return nil, errorkinds.Parser(errorkinds.CodeBlockHashTwice, "checkpoint block hash decoded twice (extension %q)", ext.Identifier)
			}
			sawCheckpoint = true
			h, err := c.DecodeArray(32)
			if err != nil {
				return nil, errorkinds.Parser(errorkinds.CodeDataTooShort, "checkpoint block hash: %v", err)
			}
			out.CheckpointHash = h
			deck.Push(0, cardschema.TagBlockHash, blockHashPayload{Hash: hex.EncodeToString(h), Kind: "checkpoint"})
		case containsAny(ext.Identifier, "SpecVersion"):
			if sawSpecVersion {
				return nil, errorkinds.Parser(errorkinds.CodeSpecVersionTwice, "spec version decoded twice (extension %q)", ext.Identifier)
			}
			sawSpecVersion = true
			v, err := c.DecodeUint32()
			if err != nil {
				return nil, errorkinds.Parser(errorkinds.CodeDataTooShort, "spec version: %v", err)
			}
			out.SpecVersion = v
			deck.Push(0, cardschema.TagTxSpec, cardschema.TxSpecPayload{SpecVersion: v})
		default:
			if err := decoder.Walk(c, r, ext.AdditionalSigned, deck, 0, ctx, decoder.State{}); err != nil {
				return nil, err
			}
		}
	}

	if !sawEra {
		return nil, errorkinds.Parser(errorkinds.CodeNoEra, "no era-bearing signed extension in metadata")
	}
	if !sawCheckpoint {
		return nil, errorkinds.Parser(errorkinds.CodeNoBlockHash, "no mortality-checkpoint-hash-bearing signed extension in metadata")
	}
	if !sawSpecVersion {
		return nil, errorkinds.Parser(errorkinds.CodeNoVersionExt, "no spec-version-bearing signed extension in metadata")
	}
	if out.EraImmortal && sawGenesis && !bytes.Equal(out.GenesisHash, out.CheckpointHash) {
		return nil, errorkinds.Parser(errorkinds.CodeImmortalHashMismatch, "immortal era but checkpoint hash does not equal genesis hash")
	}

	return out, nil
}

// CheckGenesis cross-checks a verified chain's known genesis hash against
// the one decoded from the payload, independent of era mortality.
func (d *Decoded) CheckGenesis(known []byte) error {
	if d.GenesisHash == nil || known == nil {
		return nil
	}
	if !bytes.Equal(d.GenesisHash, known) {
		return errorkinds.Parser(errorkinds.CodeGenesisHashMismatch, "decoded genesis hash does not match the network's known genesis hash")
	}
	return nil
}

// walkEra decodes the generic::Era encoding: a single 0x00 byte for
// Immortal, or two bytes packing (period, phase) otherwise. Returns
// whether the era is immortal.
func walkEra(c *scale.Cursor, deck *cardschema.Deck) (bool, error) {
	first, err := c.DecodeByte()
	if err != nil {
		return false, errorkinds.Parser(errorkinds.CodeDataTooShort, "era first byte: %v", err)
	}
	if first == 0 {
		deck.Push(0, cardschema.TagEraNonceTip, cardschema.EraNonceTipPayload{Kind: cardschema.EraImmortal})
		return true, nil
	}
	second, err := c.DecodeByte()
	if err != nil {
		return false, errorkinds.Parser(errorkinds.CodeDataTooShort, "era second byte: %v", err)
	}
	encoded := uint64(first) + uint64(second)<<8
	period := uint64(2) << (encoded % (1 << 4))
	quantizeFactor := period >> 12
	if quantizeFactor == 0 {
		quantizeFactor = 1
	}
	phase := (encoded >> 4) * quantizeFactor
	if period < 4 || phase >= period {
		return false, errorkinds.Parser(errorkinds.CodeInvalidEra, "era period %d phase %d is not a valid mortal era", period, phase)
	}
	deck.Push(0, cardschema.TagEraNonceTip, cardschema.EraNonceTipPayload{Kind: cardschema.EraMortal, Period: period, Phase: phase})
	return false, nil
}

func walkNonce(c *scale.Cursor, deck *cardschema.Deck) error {
	v, err := c.DecodeCompact()
	if err != nil {
		return err
	}
	deck.Push(0, cardschema.TagEraNonceTip, cardschema.EraNonceTipPayload{Kind: cardschema.NonceCard, Value: v.String()})
	return nil
}

func walkTip(c *scale.Cursor, deck *cardschema.Deck, ctx *decoder.Context) error {
	v, err := c.DecodeCompact()
	if err != nil {
		return err
	}
	bal := scale.FormatBalance(v, ctx.Decimals, ctx.Unit)
	deck.Push(0, cardschema.TagEraNonceTip, cardschema.EraNonceTipPayload{Kind: cardschema.TipCard, Value: fmt.Sprintf("%s %s", bal.Number, bal.Units)})
	return nil
}
