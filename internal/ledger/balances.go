package ledger

import (
	"context"
	"fmt"

	"clawback/clawback/internal/models"

	"github.com/shopspring/decimal"
)

// Converter converts an amount between currencies.
// Implementations return the amount unchanged when from and to are equal.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// Balance is one person's net position. Positive means they are owed money.
type Balance struct {
	Person string
	Amount models.Money
}

// Balances is an ordered balance sheet. People appear in the order they were
// first seen while walking expenses then settlements.
type Balances []Balance

// Get returns the balance for person, or zero in currency when absent.
func (b Balances) Get(person, currency string) models.Money {
	for _, entry := range b {
		if entry.Person == person {
			return entry.Amount
		}
	}
	return models.ZeroMoney(currency)
}

// Total sums every balance. For a consistent ledger it is zero up to rounding.
func (b Balances) Total() decimal.Decimal {
	total := decimal.Zero
	for _, entry := range b {
		total = total.Add(entry.Amount.Amount)
	}
	return total
}

// NonZero drops people whose balance is exactly zero.
func (b Balances) NonZero() Balances {
	out := make(Balances, 0, len(b))
	for _, entry := range b {
		if !entry.Amount.IsZero() {
			out = append(out, entry)
		}
	}
	return out
}

type accumulator struct {
	order  []string
	totals map[string]decimal.Decimal
}

func newAccumulator() *accumulator {
	return &accumulator{totals: make(map[string]decimal.Decimal)}
}

func (a *accumulator) add(person string, amount decimal.Decimal) {
	current, seen := a.totals[person]
	if !seen {
		a.order = append(a.order, person)
	}
	a.totals[person] = current.Add(amount)
}

// ComputeBalances returns each person's net balance in base, or the trip base
// currency when base is empty.
//
// Every line item is converted on its own. Rounding happens once, after all
// items are accumulated. The first conversion failure aborts the computation.
func ComputeBalances(ctx context.Context, trip models.Trip, base string, conv Converter) (Balances, error) {
	if base == "" {
		base = trip.BaseCurrency
	}

	acc := newAccumulator()
	convert := func(m models.Money) (decimal.Decimal, error) {
		return conv.Convert(ctx, m.Amount, m.Currency, base)
	}

	for _, expense := range trip.Expenses {
		paid, err := convert(expense.Total)
		if err != nil {
			return nil, fmt.Errorf("expense %q: %w", expense.Description, err)
		}
		acc.add(expense.PaidBy, paid)

		for _, split := range expense.Splits {
			share, err := convert(split.Amount)
			if err != nil {
				return nil, fmt.Errorf("expense %q split for %s: %w", expense.Description, split.Person, err)
			}
			acc.add(split.Person, share.Neg())
		}
	}

	for _, settlement := range trip.Settlements {
		amount, err := convert(settlement.Amount)
		if err != nil {
			return nil, fmt.Errorf("settlement %s->%s: %w", settlement.From, settlement.To, err)
		}
		acc.add(settlement.From, amount)
		acc.add(settlement.To, amount.Neg())
	}

	balances := make(Balances, 0, len(acc.order))
	for _, person := range acc.order {
		balances = append(balances, Balance{
			Person: person,
			Amount: models.NewMoney(models.RoundHalfUp(acc.totals[person]), base),
		})
	}
	return balances, nil
}
