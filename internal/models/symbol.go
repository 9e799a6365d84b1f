package models

import (
	"strings"
)

// MarketType selects which fee schedule applies to a symbol.
type MarketType string

const (
	MarketSpot    MarketType = "spot"
	MarketFutures MarketType = "futures"
)

// SplitPair splits a spot symbol of the form "BASE/QUOTE" into its two
// currencies. Derivative forms ("BTC/USDT:USDT", "BTC-USDT-SWAP", ...) are
// rejected so triangular cycles are only built from spot pairs.
func SplitPair(symbol string) (base, quote string, ok bool) {
	if strings.Contains(symbol, ":") {
		return "", "", false
	}
	parts := strings.Split(symbol, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// BaseAsset extracts the base currency from any of the symbol conventions
// seen across venues. Returns "" when the form is not recognized.
func BaseAsset(symbol string) string {
	switch {
	case strings.Contains(symbol, "/"):
		return strings.SplitN(symbol, "/", 2)[0]
	case strings.Contains(symbol, "-USDT-SWAP"):
		return strings.Replace(symbol, "-USDT-SWAP", "", 1)
	case strings.Contains(symbol, "_USDT"):
		return strings.Replace(symbol, "_USDT", "", 1)
	case strings.HasSuffix(symbol, "USDT"):
		return strings.TrimSuffix(symbol, "USDT")
	}
	return ""
}

// MarketTypeOf classifies a symbol as spot or derivative. Every derivative
// convention in the tracked universe is either suffixed (":USDT",
// "-USDT-SWAP", "_USDT") or a bare concatenated contract name without a slash.
func MarketTypeOf(symbol string) MarketType {
	if strings.Contains(symbol, ":") ||
		strings.Contains(symbol, "-USDT-SWAP") ||
		strings.Contains(symbol, "_USDT") ||
		(!strings.Contains(symbol, "/") && strings.HasSuffix(symbol, "USDT")) {
		return MarketFutures
	}
	return MarketSpot
}

// IsSpotUSDT reports whether a symbol is a spot pair quoted in USDT, the
// universe the basis detector derives contract symbols from.
func IsSpotUSDT(symbol string) bool {
	return strings.HasSuffix(symbol, "/USDT") && !strings.Contains(symbol, ":")
}
