package scale

import (
	"math/big"
	"strings"
)

// BalanceFieldNames is the closed detector set spec.md §4.1 names: a
// field typed as one of these (by type name, or by textual-database
// alias resolving to one of these) is reformatted as a balance overlay
// rather than a bare integer.
var BalanceFieldNames = map[string]bool{
	"Balance":          true,
	"T::Balance":       true,
	"BalanceOf<T>":     true,
	"ExtendedBalance":  true,
	"BalanceOf<T, I>":  true,
	"DepositBalance":   true,
	"PalletBalanceOf<T>": true,
}

// IsBalanceFieldName reports whether name is one of the closed balance
// detector names.
func IsBalanceFieldName(name string) bool {
	return BalanceFieldNames[name]
}

// Balance is the {number, units} overlay a detected balance value is
// reformatted into, using the owning network's decimals and unit.
type Balance struct {
	Number string // human-formatted decimal string, no grouping
	Units  string
}

// FormatBalance renders raw (a u128 value) as a decimal string shifted
// by decimals places, matching how Substrate displays fixed-point
// balances (e.g. 1_000_000_000_000 planck at 12 decimals -> "1").
func FormatBalance(raw *big.Int, decimals uint8, unit string) Balance {
	s := raw.String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	d := int(decimals)
	for len(s) <= d {
		s = "0" + s
	}
	intPart := s[:len(s)-d]
	fracPart := s[len(s)-d:]
	fracPart = strings.TrimRight(fracPart, "0")
	out := intPart
	if fracPart != "" {
		out += "." + fracPart
	}
	if neg {
		out = "-" + out
	}
	return Balance{Number: out, Units: unit}
}

// PerThingDenominator returns the fixed-point denominator for the
// per-thing primitives spec.md §4.1 names.
func PerThingDenominator(ident string) (uint64, bool) {
	switch ident {
	case "Percent":
		return 100, true
	case "Perbill":
		return 1_000_000_000, true
	case "PerU16":
		return 1 << 16, true
	case "Permill":
		return 1_000_000, true
	case "Perquintill":
		return 1_000_000_000_000_000_000, true
	default:
		return 0, false
	}
}
