// Package fx converts amounts between currencies using live exchange rates.
package fx

import (
	"context"
	"strings"

	"clawback/clawback/internal/models"
	"clawback/clawback/internal/parsererror"

	"github.com/shopspring/decimal"
)

// Converter converts an amount from one currency to another.
// Matching currencies (case-insensitive) return the amount untouched.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// RateSource looks up the multiplier that turns one unit of from into to.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

func sameCurrency(from, to string) bool {
	return strings.EqualFold(from, to)
}

// applyRate multiplies and rounds to cents with banker's rounding.
func applyRate(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).RoundBank(models.MoneyPlaces)
}

// Static converts with a fixed rate table. Used offline and in tests.
type Static struct {
	rates map[string]decimal.Decimal
}

// NewStatic builds a Static converter from pairs keyed like Key("EUR", "ILS").
// Inverse pairs are derived when missing.
func NewStatic(rates map[string]decimal.Decimal) *Static {
	table := make(map[string]decimal.Decimal, len(rates)*2)
	for key, rate := range rates {
		table[strings.ToUpper(key)] = rate
	}
	for key, rate := range rates {
		parts := strings.SplitN(strings.ToUpper(key), "->", 2)
		if len(parts) != 2 || rate.IsZero() {
			continue
		}
		inverse := Key(parts[1], parts[0])
		if _, ok := table[inverse]; !ok {
			table[inverse] = decimal.NewFromInt(1).DivRound(rate, 8)
		}
	}
	return &Static{rates: table}
}

// Rate returns the table rate for a pair.
func (s *Static) Rate(_ context.Context, from, to string) (decimal.Decimal, error) {
	if sameCurrency(from, to) {
		return decimal.NewFromInt(1), nil
	}
	rate, ok := s.rates[Key(from, to)]
	if !ok {
		return decimal.Zero, &parsererror.ConversionError{
			From:   strings.ToUpper(from),
			To:     strings.ToUpper(to),
			Reason: "no static rate",
			Err:    parsererror.ErrRateUnavailable,
		}
	}
	return rate, nil
}

// Convert implements Converter.
func (s *Static) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if sameCurrency(from, to) {
		return amount, nil
	}
	rate, err := s.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return applyRate(amount, rate), nil
}
