// Package errorkinds defines the closed, tagged error taxonomy every core
// operation returns through instead of ad-hoc error strings (spec.md §7).
//
// Each top-level Kind mirrors a variant of the original Rust
// error_signer.rs/error_active.rs enums (see original_source/ in the
// retrieval pack); Go has no sum types, so each Kind carries an
// optional structured Detail instead of nested enum payloads.
package errorkinds

import "fmt"

// Kind is the top-level discriminant from spec.md §7.
type Kind string

const (
	KindInterface        Kind = "Interface"
	KindDatabase         Kind = "Database"
	KindInput            Kind = "Input"
	KindNotFound         Kind = "NotFound"
	KindDeadVerifier     Kind = "DeadVerifier"
	KindAddressGen       Kind = "AddressGeneration"
	KindParser           Kind = "Parser"
	KindAllParsingFailed Kind = "AllParsingFailed"
	KindWrongPassword    Kind = "WrongPassword"
	KindWrongPasswordNew Kind = "WrongPasswordNewChecksum"
	KindQrPng            Kind = "QrPngGeneration"
)

// Code is a fine-grained error tag. The string values match the names
// used throughout spec.md so log lines and test assertions can grep for
// them directly.
type Code string

const (
	// Parser / Decoding sub-kinds (spec.md §4).
	CodeDataTooShort            Code = "DataTooShort"
	CodeNoCompact                Code = "NoCompact"
	CodeUnexpectedOptionVariant  Code = "UnexpectedOptionVariant"
	CodeSomeDataNotUsedMethod    Code = "SomeDataNotUsedMethod"
	CodeSomeDataNotUsedExtensions Code = "SomeDataNotUsedExtensions"
	CodePalletNotFound           Code = "PalletNotFound"
	CodeMethodNotFound           Code = "MethodNotFound"
	CodeMethodIndexTooHigh       Code = "MethodIndexTooHigh"
	CodeNoCallsInPallet          Code = "NoCallsInPallet"
	CodeV14TypeNotResolved       Code = "V14TypeNotResolved"
	CodeUnknownType              Code = "UnknownType"
	CodeUnexpectedEnumVariant    Code = "UnexpectedEnumVariant"
	CodeUnexpectedCompactInsides Code = "UnexpectedCompactInsides"
	CodeCompactNotPrimitive      Code = "CompactNotPrimitive"
	CodeBalanceNotDescribed      Code = "BalanceNotDescribed"
	CodeNotBitStoreType          Code = "NotBitStoreType"
	CodeNotBitOrderType          Code = "NotBitOrderType"
	CodeBitVecFailure            Code = "BitVecFailure"
	CodeNotPrimitive             Code = "NotPrimitive"

	// Extensions (C4).
	CodeEraTwice        Code = "EraTwice"
	CodeGenesisHashTwice Code = "GenesisHashTwice"
	CodeBlockHashTwice  Code = "BlockHashTwice"
	CodeSpecVersionTwice Code = "SpecVersionTwice"
	CodeNoEra           Code = "NoEra"
	CodeNoBlockHash     Code = "NoBlockHash"
	CodeNoVersionExt    Code = "NoVersionExt"
	CodeImmortalHashMismatch Code = "ImmortalHashMismatch"
	CodeGenesisHashMismatch  Code = "GenesisHashMismatch"
	CodeWrongNetworkVersion  Code = "WrongNetworkVersion"
	CodeInvalidEra           Code = "InvalidEra"

	// Pipeline / prelude (C9, §6).
	CodeNotSubstrate       Code = "NotSubstrate"
	CodePayloadNotSupported Code = "PayloadNotSupported"
	CodeChecksumMismatch   Code = "ChecksumMismatch"

	// Database.
	CodeKeyDecoding       Code = "KeyDecoding"
	CodeEntryDecoding     Code = "EntryDecoding"
	CodeInternal          Code = "Internal"
	CodeMismatch          Code = "Mismatch"
	CodeDbSchemaMismatch  Code = "DbSchemaMismatch"

	// Verifier / trust (C7).
	CodeGeneralVerifierChanged Code = "GeneralVerifierChanged"
	CodeCustomVerifierChanged  Code = "CustomVerifierChanged"
	CodeLoadMetaUnknownNetwork Code = "LoadMetaUnknownNetwork"
	CodeLoadMetaNotVerified    Code = "LoadMetaNotVerified"
	CodeLoadMetaVerifierChanged Code = "LoadMetaVerifierChanged"
	CodeLoadMetaSetGeneral      Code = "LoadMetaSetGeneral"

	// Key store / address generation (C6).
	CodeSeedNameExists    Code = "SeedNameExists"
	CodeDerivationExists  Code = "DerivationExists"
	CodeBadFormat         Code = "BadFormat"
	CodeInvalidDerivation Code = "InvalidDerivation"
	CodeKeyNotFound       Code = "KeyNotFound"

	// No-op acceptance results (not failures, reported via this taxonomy
	// for uniform handling at the call site).
	CodeSpecsKnown    Code = "SpecsKnown"
	CodeMetadataKnown Code = "MetadataKnown"
)

// Error is the concrete value every core operation returns on failure.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	// NewChecksum carries the WrongPasswordNewChecksum(u32) payload.
	NewChecksum uint32
	// AsDecoded/InMetadata carry WrongNetworkVersion{as_decoded, in_metadata}.
	AsDecoded  uint32
	InMetadata uint32
	// Attempts carries per-metadata-version Parser errors folded into
	// AllParsingFailed.
	Attempts []error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s/%s: %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s/%s", e.Kind, e.Code)
}

// New builds a tagged error with a formatted message.
func New(kind Kind, code Code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Parser is a convenience constructor for the common C1-C4 decode failures.
func Parser(code Code, format string, args ...interface{}) *Error {
	return New(KindParser, code, format, args...)
}

// WrongNetworkVersion builds the {as_decoded, in_metadata} Parser variant.
func WrongNetworkVersion(asDecoded, inMetadata uint32) *Error {
	e := New(KindParser, CodeWrongNetworkVersion, "extensions declare spec version %d, metadata has %d", asDecoded, inMetadata)
	e.AsDecoded = asDecoded
	e.InMetadata = inMetadata
	return e
}

// AllParsingFailed folds per-metadata-version Parser errors.
func AllParsingFailed(attempts []error) *Error {
	e := New(KindAllParsingFailed, "", "no installed metadata version could parse the payload")
	e.Attempts = attempts
	return e
}

// WrongPasswordNewChecksum builds the retry-with-new-checksum variant.
func WrongPasswordNewChecksum(newChecksum uint32) *Error {
	e := New(KindWrongPasswordNew, "", "wrong password, retry with refreshed checksum")
	e.NewChecksum = newChecksum
	return e
}

// Is reports whether err is an *Error carrying the given code, allowing
// callers to use errors.Is-style dispatch without importing this
// package's concrete type at every call site.
func Is(err error, code Code) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}
