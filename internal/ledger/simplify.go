package ledger

import (
	"context"
	"sort"

	"clawback/clawback/internal/models"

	"github.com/shopspring/decimal"
)

// residueThreshold is the largest leftover treated as rounding noise during matching.
var residueThreshold = decimal.New(1, -2)

type position struct {
	person string
	amount decimal.Decimal
}

func sortDescending(positions []position) {
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].amount.GreaterThan(positions[j].amount)
	})
}

// Simplify reduces a balance sheet to a short list of payments.
//
// The largest debtor is repeatedly matched with the largest creditor and pays
// the smaller of the two amounts. Leftovers above one cent go back into the
// queue. Equal amounts keep their balance-sheet order, and a re-queued
// leftover sorts ahead of others with the same amount.
func Simplify(balances Balances) []models.Debt {
	var debtors, creditors []position
	currency := ""
	for _, b := range balances {
		currency = b.Amount.Currency
		switch {
		case b.Amount.Amount.IsNegative():
			debtors = append(debtors, position{b.Person, b.Amount.Amount.Neg()})
		case b.Amount.Amount.IsPositive():
			creditors = append(creditors, position{b.Person, b.Amount.Amount})
		}
	}
	if len(debtors) == 0 && len(creditors) == 0 {
		return []models.Debt{}
	}

	sortDescending(debtors)
	sortDescending(creditors)

	debts := make([]models.Debt, 0, len(debtors)+len(creditors))
	for len(debtors) > 0 && len(creditors) > 0 {
		debtor, creditor := debtors[0], creditors[0]
		transfer := decimal.Min(debtor.amount, creditor.amount)
		if transfer.IsPositive() {
			debts = append(debts, models.Debt{
				Debtor:   debtor.person,
				Creditor: creditor.person,
				Amount:   models.NewMoney(transfer, currency),
			})
		}

		debtors = requeue(debtors[1:], debtor.person, debtor.amount.Sub(transfer))
		creditors = requeue(creditors[1:], creditor.person, creditor.amount.Sub(transfer))
	}
	return debts
}

func requeue(rest []position, person string, remaining decimal.Decimal) []position {
	if !remaining.GreaterThan(residueThreshold) {
		return rest
	}
	queue := make([]position, 0, len(rest)+1)
	queue = append(queue, position{person, remaining})
	queue = append(queue, rest...)
	sortDescending(queue)
	return queue
}

// SimplifyTrip computes balances in base and simplifies them in one step.
func SimplifyTrip(ctx context.Context, trip models.Trip, base string, conv Converter) ([]models.Debt, error) {
	balances, err := ComputeBalances(ctx, trip, base, conv)
	if err != nil {
		return nil, err
	}
	return Simplify(balances), nil
}
