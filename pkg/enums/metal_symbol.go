package enums

import "fmt"

// MetalSymbol is the canonical spot-feed symbol for a precious metal.
type MetalSymbol string

const (
	MetalGold      MetalSymbol = "XAU"
	MetalSilver    MetalSymbol = "XAG"
	MetalPlatinum  MetalSymbol = "XPT"
	MetalPalladium MetalSymbol = "XPD"

	// MetalAll is the implicit override scope for halt state, never a quote symbol.
	MetalAll MetalSymbol = "ALL"
)

var validMetalSymbols = []MetalSymbol{
	MetalGold,
	MetalSilver,
	MetalPlatinum,
	MetalPalladium,
}

// AllMetalSymbols returns the quoteable symbols in feed order.
func AllMetalSymbols() []MetalSymbol {
	out := make([]MetalSymbol, len(validMetalSymbols))
	copy(out, validMetalSymbols)
	return out
}

// IsValid reports whether the value is a quoteable metal symbol.
func (m MetalSymbol) IsValid() bool {
	for _, candidate := range validMetalSymbols {
		if candidate == m {
			return true
		}
	}
	return false
}

// IsHaltScope reports whether the value is addressable in halt state (symbols plus ALL).
func (m MetalSymbol) IsHaltScope() bool {
	return m == MetalAll || m.IsValid()
}

// ParseMetalSymbol converts the raw string to MetalSymbol.
func ParseMetalSymbol(value string) (MetalSymbol, error) {
	for _, candidate := range validMetalSymbols {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid metal symbol %q", value)
}

// ParseHaltScope accepts metal symbols plus the ALL override.
func ParseHaltScope(value string) (MetalSymbol, error) {
	if value == string(MetalAll) {
		return MetalAll, nil
	}
	return ParseMetalSymbol(value)
}
