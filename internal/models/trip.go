package models

import (
	"time"
)

// DefaultBaseCurrency is used when a trip is created without an explicit base.
const DefaultBaseCurrency = "ILS"

// Split is one participant's share of one expense.
type Split struct {
	Person string `json:"person" yaml:"person"`
	Amount Money  `json:"amount" yaml:"amount"`
}

// Expense is a single purchase paid by one person and shared by the split recipients.
type Expense struct {
	ID          string    `json:"id" yaml:"id"`
	Timestamp   time.Time `json:"ts" yaml:"ts"`
	Description string    `json:"description" yaml:"description"`
	Total       Money     `json:"total" yaml:"total"`
	PaidBy      string    `json:"paid_by" yaml:"paid_by"`
	Splits      []Split   `json:"splits" yaml:"splits"`
	Notes       string    `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Settlement is a direct payment from one participant to another.
type Settlement struct {
	ID        string    `json:"id" yaml:"id"`
	Timestamp time.Time `json:"ts" yaml:"ts"`
	From      string    `json:"from_person" yaml:"from_person"`
	To        string    `json:"to_person" yaml:"to_person"`
	Amount    Money     `json:"amount" yaml:"amount"`
	Notes     string    `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Trip is a named ledger of expenses and settlements sharing a base currency.
//
// Participants keep insertion order and never contain duplicates. Expenses and
// settlements are append-ordered.
type Trip struct {
	Name         string       `json:"name" yaml:"name"`
	SheetID      string       `json:"sheet_id,omitempty" yaml:"sheet_id,omitempty"`
	BaseCurrency string       `json:"base_currency" yaml:"base_currency"`
	Participants []string     `json:"participants" yaml:"participants"`
	CreatedAt    time.Time    `json:"created_at" yaml:"created_at"`
	Expenses     []Expense    `json:"expenses" yaml:"expenses"`
	Settlements  []Settlement `json:"settlements" yaml:"settlements"`
}

// NewTrip creates an empty trip. An empty base currency falls back to DefaultBaseCurrency.
func NewTrip(name, baseCurrency string, createdAt time.Time) Trip {
	if baseCurrency == "" {
		baseCurrency = DefaultBaseCurrency
	}
	return Trip{
		Name:         name,
		BaseCurrency: baseCurrency,
		Participants: []string{},
		CreatedAt:    createdAt,
		Expenses:     []Expense{},
		Settlements:  []Settlement{},
	}
}

// HasParticipant reports whether name is already a participant.
func (t Trip) HasParticipant(name string) bool {
	for _, p := range t.Participants {
		if p == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so that snapshots never share backing arrays.
func (t Trip) Clone() Trip {
	c := t
	c.Participants = append([]string{}, t.Participants...)
	c.Expenses = make([]Expense, len(t.Expenses))
	for i, e := range t.Expenses {
		e.Splits = append([]Split{}, e.Splits...)
		c.Expenses[i] = e
	}
	c.Settlements = append([]Settlement{}, t.Settlements...)
	return c
}

// LastExpense returns the most recently appended expense, if any.
func (t Trip) LastExpense() (Expense, bool) {
	if len(t.Expenses) == 0 {
		return Expense{}, false
	}
	return t.Expenses[len(t.Expenses)-1], true
}

// LastSettlement returns the most recently appended settlement, if any.
func (t Trip) LastSettlement() (Settlement, bool) {
	if len(t.Settlements) == 0 {
		return Settlement{}, false
	}
	return t.Settlements[len(t.Settlements)-1], true
}

// Debt is one payment instruction produced by debt simplification.
type Debt struct {
	Debtor   string `json:"debtor" yaml:"debtor"`
	Creditor string `json:"creditor" yaml:"creditor"`
	Amount   Money  `json:"amount" yaml:"amount"`
}
