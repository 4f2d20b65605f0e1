// Package ledger holds the pure money logic of a trip: split computation,
// balance accumulation, debt simplification and snapshot mutators.
// Nothing in this package performs I/O or logs.
package ledger

import (
	"fmt"

	"clawback/clawback/internal/models"
	"clawback/clawback/internal/parsererror"

	"github.com/shopspring/decimal"
)

// DefaultTolerance is the largest gap allowed between a split sum and its expense total.
var DefaultTolerance = decimal.New(1, -2)

// EqualSplits divides total among participants in order.
// Every share but the last is rounded half-up to cents; the last participant
// absorbs the remainder so the shares always add up to total exactly.
func EqualSplits(total models.Money, participants []string) ([]models.Split, error) {
	n := len(participants)
	if n == 0 {
		return nil, &parsererror.ValidationError{Reason: "equal split", Err: parsererror.ErrNoParticipants}
	}

	share := models.RoundHalfUp(total.Amount.Div(decimal.NewFromInt(int64(n))))
	allocated := share.Mul(decimal.NewFromInt(int64(n - 1)))

	splits := make([]models.Split, 0, n)
	for i, person := range participants {
		amount := share
		if i == n-1 {
			amount = total.Amount.Sub(allocated)
		}
		splits = append(splits, models.Split{
			Person: person,
			Amount: models.NewMoney(amount, total.Currency),
		})
	}
	return splits, nil
}

// CustomSplits turns explicit per-person amounts into splits in the given currency.
func CustomSplits(custom []models.CustomSplit, currency string) []models.Split {
	splits := make([]models.Split, 0, len(custom))
	for _, c := range custom {
		splits = append(splits, models.Split{
			Person: c.Person,
			Amount: models.NewMoney(c.Amount, currency),
		})
	}
	return splits
}

// SumSplits adds up split amounts. All splits must share total's currency.
func SumSplits(splits []models.Split, currency string) (decimal.Decimal, error) {
	sum := models.ZeroMoney(currency)
	for _, s := range splits {
		next, err := sum.Add(s.Amount)
		if err != nil {
			return decimal.Zero, &parsererror.ValidationError{
				Reason: fmt.Sprintf("split for %s", s.Person),
				Err:    err,
			}
		}
		sum = next
	}
	return sum.Amount, nil
}

// ValidateSplits fails with a *parsererror.SplitMismatchError when the splits
// are more than tolerance away from total.
func ValidateSplits(splits []models.Split, total models.Money, tolerance decimal.Decimal) error {
	sum, err := SumSplits(splits, total.Currency)
	if err != nil {
		return err
	}
	if sum.Sub(total.Amount).Abs().GreaterThan(tolerance) {
		return &parsererror.SplitMismatchError{
			Sum:       sum,
			Total:     total.Amount,
			Tolerance: tolerance,
		}
	}
	return nil
}
