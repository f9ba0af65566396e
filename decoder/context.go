// Package decoder implements C3: the recursive-descent transaction/call
// decoder that walks a resolved type tree and emits an ordered card
// stream (spec.md §4.3, §6). The walker is shared with C4 (extensions),
// which drives it with an Observer active to catch Era/GenesisHash/
// BlockHash/SpecVersion exactly once each.
package decoder

// Context carries the per-network facts the walker needs to render
// balances and addresses: decimals/unit for the balance overlay, the
// base58 prefix for AccountId32 rendering, and the encryption scheme
// (needed by the textual backend's AccountId special case).
type Context struct {
	Decimals     uint8
	Unit         string
	Base58Prefix uint16
	Encryption   string
}

// CallExpectation is the state machine spec.md §4.3 describes: it
// transitions on entering a type whose Ident is "Call".
type CallExpectation int

const (
	ExpectNone CallExpectation = iota
	ExpectPallet
	ExpectMethod
)

// State is threaded through the recursive walk. It is a value type:
// each recursive call receives (and may locally modify) its own copy,
// matching the spec's "mutable... compact_flag, balance_flag,
// call_expectation" description without needing shared mutable state
// across sibling fields.
type State struct {
	CompactFlag     bool
	BalanceFlag     bool
	CallExpectation CallExpectation
}
