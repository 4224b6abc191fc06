// market/symbol.go
package market

import (
	"fmt"
	"strings"
)

// Symbol is an opaque instrument identifier such as "RELIANCE" or "BTCUSDT".
type Symbol string

func (s Symbol) String() string { return string(s) }

// Mode selects the universe the dashboard is watching.
type Mode string

const (
	Equity Mode = "equity"
	Crypto Mode = "crypto"
)

// ParseMode accepts "equity"/"crypto" and a few common aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equity", "equities", "stocks", "nse":
		return Equity, nil
	case "crypto", "cryptocurrency":
		return Crypto, nil
	}
	return "", fmt.Errorf("unknown market mode %q (supported: equity, crypto)", s)
}

// QuoteAssets are the suffixes that mark a symbol as a crypto pair.
var QuoteAssets = []string{"USDT", "USDC", "BUSD", "FDUSD", "INR", "BTC", "ETH"}

// Classify returns the market a symbol trades in. Pairs quoted in one of
// QuoteAssets are crypto; everything else is treated as an equity ticker.
func Classify(sym Symbol) Mode {
	s := strings.ToUpper(string(sym))
	for _, q := range QuoteAssets {
		if len(s) > len(q) && strings.HasSuffix(s, q) {
			return Crypto
		}
	}
	return Equity
}

// Normalize upper-cases and trims a user supplied symbol.
func Normalize(s string) Symbol {
	return Symbol(strings.ToUpper(strings.TrimSpace(s)))
}

// Symbols converts plain strings into normalized symbols, dropping blanks
// and duplicates while keeping the original order.
func Symbols(in []string) []Symbol {
	seen := make(map[Symbol]struct{}, len(in))
	out := make([]Symbol, 0, len(in))
	for _, s := range in {
		sym := Normalize(s)
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}
