package txpipeline

import (
	"github.com/tos-network/vault-core/decoder"
	"github.com/tos-network/vault-core/errorkinds"
	"github.com/tos-network/vault-core/extensions"
	"github.com/tos-network/vault-core/internal/cardschema"
	"github.com/tos-network/vault-core/network"
	"github.com/tos-network/vault-core/scale"
	"github.com/tos-network/vault-core/typeresolve"
	"github.com/tos-network/vault-core/typeresolve/portable"
)

// Every stored metadata blob starts with a u32 little-endian spec
// version, followed by metadataMagic ∥ metadataVersionByte: this core's own
// wrapper around the raw PortableRegistry body, since the exact outer
// framing of a real chain's metadata blob (where spec_version actually
// lives is a separate RuntimeVersion query, not part of Metadata itself)
// is out of scope to reverse-engineer byte-exact here — recorded as a
// judgment call in DESIGN.md.
var metadataMagic = [4]byte{'m', 'e', 't', 'a'}

const metadataVersionByte = 14

// decodeMetadataBlob splits a stored/incoming metadata blob into its
// declared spec version and v14 body.
func decodeMetadataBlob(raw []byte) (uint32, *portable.V14, error) {
	c := scale.NewCursor(raw)
	specVersion, err := c.DecodeUint32()
	if err != nil {
		return 0, nil, errorkinds.Parser(errorkinds.CodeDataTooShort, "metadata spec version: %v", err)
	}
	magic, err := c.DecodeArray(4)
	if err != nil {
		return 0, nil, errorkinds.Parser(errorkinds.CodeDataTooShort, "metadata magic: %v", err)
	}
	if string(magic) != string(metadataMagic[:]) {
		return 0, nil, errorkinds.Parser(errorkinds.CodeUnknownType, "metadata blob missing %q magic", metadataMagic)
	}
	verByte, err := c.DecodeByte()
	if err != nil {
		return 0, nil, errorkinds.Parser(errorkinds.CodeDataTooShort, "metadata version byte: %v", err)
	}
	if verByte != metadataVersionByte {
		return 0, nil, errorkinds.Parser(errorkinds.CodeUnknownType, "unsupported metadata version %d, only v14 is implemented", verByte)
	}
	v14, err := portable.DecodeV14(c)
	if err != nil {
		return 0, nil, err
	}
	return specVersion, v14, nil
}

// decodeAgainstVersion decodes method/extensions using the v14
// PortableRegistry stored for one (network name, spec version) pair.
func decodeAgainstVersion(mv *network.MetaValues, specs *network.NetworkSpecs, method, extBytes []byte) (*cardschema.Deck, *extensions.Decoded, error) {
	declaredVersion, v14, err := decodeMetadataBlob(mv.Meta)
	if err != nil {
		return nil, nil, errorkinds.Parser(errorkinds.CodeV14TypeNotResolved, "metadata v%d: %v", mv.Version, err)
	}
	if declaredVersion != mv.Version {
		return nil, nil, errorkinds.WrongNetworkVersion(declaredVersion, mv.Version)
	}
	idx := &portable.Index{Meta: v14}
	resolver := &portable.Resolver{Reg: v14.Registry}
	ctx := &decoder.Context{
		Decimals:     specs.Decimals,
		Unit:         specs.Unit,
		Base58Prefix: specs.Base58Prefix,
		Encryption:   string(specs.Encryption),
	}

	deck, err := decoder.DecodeCall(method, resolver, idx, ctx)
	if err != nil {
		return nil, nil, err
	}

	exts := make([]extensions.Extension, len(v14.Extrinsic.SignedExtensions))
	for i, se := range v14.Extrinsic.SignedExtensions {
		exts[i] = extensions.Extension{
			Identifier:       se.Identifier,
			Ty:               typeresolve.ByID(se.Ty),
			AdditionalSigned: typeresolve.ByID(se.AdditionalSigned),
		}
	}
	extCursor := scale.NewCursor(extBytes)
	decoded, err := extensions.Decode(extCursor, resolver, exts, ctx)
	if err != nil {
		return nil, nil, err
	}
	if !extCursor.Empty() {
		return nil, nil, errorkinds.Parser(errorkinds.CodeSomeDataNotUsedExtensions, "%d bytes left after decoding extensions", extCursor.Len())
	}
	if decoded.SpecVersion != mv.Version {
		return nil, nil, errorkinds.WrongNetworkVersion(decoded.SpecVersion, mv.Version)
	}

	merged := &cardschema.Deck{}
	merged.Cards = append(merged.Cards, deck.Cards...)
	merged.Cards = append(merged.Cards, decoded.Deck.Cards...)
	return merged, decoded, nil
}

// decodeAgainstInstalledVersions runs decodeAgainstVersion against every
// MetaValues stored for name, newest first, folding per-version Parser
// failures into AllParsingFailed only once every version has failed
// (spec.md §7: "Parser errors on one metadata version fall through to
// the next-newer metadata version... only when all installed versions
// fail does AllParsingFailed surface").
func decodeAgainstInstalledVersions(metaStore *network.Store, specs *network.NetworkSpecs, method, extBytes []byte) (*cardschema.Deck, *extensions.Decoded, error) {
	versions, err := metaStore.MetaVersions(specs.Name)
	if err != nil {
		return nil, nil, err
	}
	if len(versions) == 0 {
		return nil, nil, errorkinds.Parser(errorkinds.CodeV14TypeNotResolved, "no metadata installed for network %q", specs.Name)
	}
	var attempts []error
	for i := len(versions) - 1; i >= 0; i-- {
		mv, err := metaStore.GetMeta(specs.Name, versions[i])
		if err != nil {
			attempts = append(attempts, err)
			continue
		}
		deck, decoded, err := decodeAgainstVersion(mv, specs, method, extBytes)
		if err == nil {
			return deck, decoded, nil
		}
		attempts = append(attempts, err)
	}
	return nil, nil, errorkinds.AllParsingFailed(attempts)
}
