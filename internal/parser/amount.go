package parser

import (
	"regexp"
	"strings"

	"clawback/clawback/internal/currencyutils"

	"github.com/shopspring/decimal"
)

const numberPattern = `([\d,]+(?:\.\d{1,2})?)`

var (
	// ₪100, $50.50, € 30
	symbolBeforeAmount = regexp.MustCompile(`([` + currencyutils.Symbols + `])\s*` + numberPattern)
	// 100₪, 50 $
	amountBeforeSymbol = regexp.MustCompile(numberPattern + `\s*([` + currencyutils.Symbols + `])`)
	// 100 ILS, 50usd, 30 eur
	amountBeforeCode = regexp.MustCompile(numberPattern + `\s*([a-zA-Z]{3})`)
)

// AmountMatch is an amount and its normalized currency code.
type AmountMatch struct {
	Amount   decimal.Decimal
	Currency string
}

// ParseAmountCurrency extracts one amount and currency from text.
//
// Forms are tried in order: symbol before the number, symbol after the number,
// then a recognized three-letter code after the number. Only the first match of
// each form is considered. The second result is false when nothing parses.
func ParseAmountCurrency(text string) (AmountMatch, bool) {
	if m := symbolBeforeAmount.FindStringSubmatch(text); m != nil {
		if match, ok := buildMatch(m[2], m[1]); ok {
			return match, true
		}
	}

	if m := amountBeforeSymbol.FindStringSubmatch(text); m != nil {
		if match, ok := buildMatch(m[1], m[2]); ok {
			return match, true
		}
	}

	if m := amountBeforeCode.FindStringSubmatch(text); m != nil {
		code := m[2]
		if currencyutils.IsAlias(code) || currencyutils.IsKnownCode(code) {
			if match, ok := buildMatch(m[1], code); ok {
				return match, true
			}
		}
	}

	return AmountMatch{}, false
}

func buildMatch(amountStr, currencyStr string) (AmountMatch, bool) {
	if strings.Trim(amountStr, ",") == "" {
		return AmountMatch{}, false
	}
	amount, err := currencyutils.ParseAmount(amountStr)
	if err != nil {
		return AmountMatch{}, false
	}
	return AmountMatch{
		Amount:   amount,
		Currency: currencyutils.Normalize(currencyStr),
	}, true
}
