// Package cardschema defines the exit card schema (spec.md §6): the
// closed tag set and ordered stream the decoder emits for the UI
// collaborator to render. This package only carries data; it performs
// no decoding itself.
package cardschema

// Tag is the closed card-type tag set.
type Tag string

const (
	TagPallet           Tag = "pallet"
	TagMethod           Tag = "method"
	TagVarName          Tag = "varname"
	TagFieldName        Tag = "field_name"
	TagFieldNumber      Tag = "field_number"
	TagEnumVariantName  Tag = "enum_variant_name"
	TagBalance          Tag = "balance"
	TagID               Tag = "Id"
	TagDefault          Tag = "default"
	TagText             Tag = "text"
	TagNone             Tag = "None"
	TagIdentityField    Tag = "identity_field"
	TagBitVec           Tag = "bitvec"
	TagEraNonceTip      Tag = "era_nonce_tip"
	TagTxSpec           Tag = "tx_spec"
	TagBlockHash        Tag = "block_hash"
	TagCall             Tag = "call"
)

// Card is one emitted row: {index, indent, type, payload}.
type Card struct {
	Index   uint32      `json:"index"`
	Indent  uint32      `json:"indent"`
	Type    Tag         `json:"type"`
	Payload interface{} `json:"payload"`
}

// FieldNamePayload backs TagFieldName.
type FieldNamePayload struct {
	Name     string   `json:"name"`
	Docs     []string `json:"docs,omitempty"`
	Path     []string `json:"path,omitempty"`
	DocsType string   `json:"docs_type,omitempty"`
}

// FieldNumberPayload backs TagFieldNumber.
type FieldNumberPayload struct {
	Index    int      `json:"index"`
	Docs     []string `json:"docs,omitempty"`
	Path     []string `json:"path,omitempty"`
	DocsType string   `json:"docs_type,omitempty"`
}

// MethodPayload backs TagMethod.
type MethodPayload struct {
	Name string   `json:"name"`
	Docs []string `json:"docs,omitempty"`
}

// BalancePayload backs TagBalance.
type BalancePayload struct {
	Number string `json:"number"`
	Units  string `json:"units"`
}

// EraNonceTipKind discriminates what an era_nonce_tip card carries.
type EraNonceTipKind string

const (
	EraImmortal EraNonceTipKind = "immortal"
	EraMortal   EraNonceTipKind = "mortal"
	NonceCard   EraNonceTipKind = "nonce"
	TipCard     EraNonceTipKind = "tip"
)

// EraNonceTipPayload backs TagEraNonceTip.
type EraNonceTipPayload struct {
	Kind   EraNonceTipKind `json:"kind"`
	Period uint64          `json:"period,omitempty"`
	Phase  uint64          `json:"phase,omitempty"`
	Value  string          `json:"value,omitempty"`
}

// TxSpecPayload backs TagTxSpec (spec version card).
type TxSpecPayload struct {
	SpecVersion uint32 `json:"spec_version"`
}

// Deck accumulates cards in emission order and assigns monotonically
// increasing indices.
type Deck struct {
	Cards []Card
	next  uint32
}

// Push appends a card at the given indent, assigning the next index.
func (d *Deck) Push(indent uint32, tag Tag, payload interface{}) {
	d.Cards = append(d.Cards, Card{Index: d.next, Indent: indent, Type: tag, Payload: payload})
	d.next++
}
