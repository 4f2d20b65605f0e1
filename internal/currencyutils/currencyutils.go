// Package currencyutils provides currency normalization, amount parsing and display formatting.
package currencyutils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// currencyAliases maps lowercased symbols, words and codes to ISO codes.
var currencyAliases = map[string]string{
	"₪":       "ILS",
	"nis":     "ILS",
	"ils":     "ILS",
	"shekel":  "ILS",
	"shekels": "ILS",
	"€":       "EUR",
	"eur":     "EUR",
	"euro":    "EUR",
	"euros":   "EUR",
	"$":       "USD",
	"usd":     "USD",
	"dollar":  "USD",
	"dollars": "USD",
	"£":       "GBP",
	"gbp":     "GBP",
	"pound":   "GBP",
	"pounds":  "GBP",
	"¥":       "JPY",
	"jpy":     "JPY",
	"yen":     "JPY",
}

var currencySymbols = map[string]string{
	"ILS": "₪",
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"JPY": "¥",
}

// knownCodes are the three-letter tokens accepted after a bare number.
var knownCodes = map[string]bool{
	"ILS": true,
	"EUR": true,
	"USD": true,
	"GBP": true,
	"JPY": true,
	"NIS": true,
}

// Symbols is the set of single-rune currency symbols the parser recognizes.
const Symbols = "₪€$£¥"

// Normalize maps a currency symbol, word or code to its ISO code.
// Unknown tokens are uppercased and passed through.
func Normalize(token string) string {
	if code, ok := currencyAliases[strings.ToLower(token)]; ok {
		return code
	}
	return strings.ToUpper(token)
}

// IsAlias reports whether token is a recognized symbol, word or code.
func IsAlias(token string) bool {
	_, ok := currencyAliases[strings.ToLower(token)]
	return ok
}

// IsKnownCode reports whether token is one of the accepted three-letter codes.
func IsKnownCode(token string) bool {
	return knownCodes[strings.ToUpper(token)]
}

// SymbolFor returns the display symbol for a code, or the code itself when unknown.
func SymbolFor(code string) string {
	if symbol, ok := currencySymbols[strings.ToUpper(code)]; ok {
		return symbol
	}
	return code
}

// ParseAmount parses a numeric literal, dropping comma thousands separators.
// Precision is kept exactly as written.
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	standardized := strings.ReplaceAll(strings.TrimSpace(amountStr), ",", "")
	amount, err := decimal.NewFromString(standardized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	return amount, nil
}

// FormatAmount renders an amount with its currency symbol in front, e.g. "₪100" or "$50.50".
// Whole amounts are printed without decimals.
func FormatAmount(amount decimal.Decimal, currency string) string {
	return SymbolFor(currency) + formatNumber(amount)
}

func formatNumber(amount decimal.Decimal) string {
	if amount.Equal(amount.Truncate(0)) {
		return amount.Truncate(0).String()
	}
	if amount.Exponent() < -2 {
		return amount.String()
	}
	return amount.StringFixed(2)
}
