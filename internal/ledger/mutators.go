package ledger

import (
	"time"

	"clawback/clawback/internal/models"

	"github.com/google/uuid"
)

// Journal produces new trip snapshots. It never modifies the trip it is given.
// Clock and NewID are swappable so tests get stable timestamps and ids.
type Journal struct {
	Clock func() time.Time
	NewID func() string
}

// NewJournal returns a Journal stamping entries with UTC wall time and random UUIDs.
func NewJournal() *Journal {
	return &Journal{
		Clock: func() time.Time { return time.Now().UTC() },
		NewID: uuid.NewString,
	}
}

// ExpenseInput describes an expense to record.
type ExpenseInput struct {
	Description string
	Total       models.Money
	PaidBy      string
	Splits      []models.Split
	Notes       string
}

// AddExpense validates the splits against the total and appends the expense.
// The payer and then each split person join the participants if new.
// On a validation failure the returned trip is the unchanged input.
func (j *Journal) AddExpense(trip models.Trip, in ExpenseInput) (models.Trip, models.Expense, error) {
	if err := ValidateSplits(in.Splits, in.Total, DefaultTolerance); err != nil {
		return trip, models.Expense{}, err
	}

	expense := models.Expense{
		ID:          j.NewID(),
		Timestamp:   j.Clock(),
		Description: in.Description,
		Total:       in.Total,
		PaidBy:      in.PaidBy,
		Splits:      append([]models.Split{}, in.Splits...),
		Notes:       in.Notes,
	}

	next := trip.Clone()
	next.Expenses = append(next.Expenses, expense)
	addParticipant(&next, in.PaidBy)
	for _, split := range in.Splits {
		addParticipant(&next, split.Person)
	}
	return next, expense, nil
}

// AddSettlement appends a payment from one person to another. Settlements are never rejected.
func (j *Journal) AddSettlement(trip models.Trip, from, to string, amount models.Money, notes string) (models.Trip, models.Settlement) {
	settlement := models.Settlement{
		ID:        j.NewID(),
		Timestamp: j.Clock(),
		From:      from,
		To:        to,
		Amount:    amount,
		Notes:     notes,
	}

	next := trip.Clone()
	next.Settlements = append(next.Settlements, settlement)
	return next, settlement
}

// Removed is the item taken off a trip by UndoLast. At most one field is set.
type Removed struct {
	Expense    *models.Expense
	Settlement *models.Settlement
}

// Empty reports whether nothing was removed.
func (r Removed) Empty() bool {
	return r.Expense == nil && r.Settlement == nil
}

// UndoLast removes whichever of the last expense and last settlement is newer
// by timestamp. A tie removes the settlement.
func UndoLast(trip models.Trip) (models.Trip, Removed) {
	next := trip.Clone()
	lastExpense, hasExpense := next.LastExpense()
	lastSettlement, hasSettlement := next.LastSettlement()

	switch {
	case !hasExpense && !hasSettlement:
		return next, Removed{}
	case !hasSettlement || (hasExpense && lastExpense.Timestamp.After(lastSettlement.Timestamp)):
		next.Expenses = next.Expenses[:len(next.Expenses)-1]
		return next, Removed{Expense: &lastExpense}
	default:
		next.Settlements = next.Settlements[:len(next.Settlements)-1]
		return next, Removed{Settlement: &lastSettlement}
	}
}

func addParticipant(trip *models.Trip, person string) {
	if person == "" || trip.HasParticipant(person) {
		return
	}
	trip.Participants = append(trip.Participants, person)
}

// ResolveParticipants picks who shares an equal split: the explicit list when
// given, otherwise the trip participants, otherwise the payer alone.
func ResolveParticipants(explicit []string, trip models.Trip, payer string) []string {
	if len(explicit) > 0 {
		return explicit
	}
	if len(trip.Participants) > 0 {
		return append([]string{}, trip.Participants...)
	}
	return []string{payer}
}
