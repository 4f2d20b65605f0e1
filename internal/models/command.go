package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CommandKind identifies a parsed command variant.
type CommandKind string

const (
	KindHelp       CommandKind = "help"
	KindWho        CommandKind = "who"
	KindSummary    CommandKind = "summary"
	KindUndo       CommandKind = "undo"
	KindBalances   CommandKind = "balances"
	KindTrip       CommandKind = "trip"
	KindSettle     CommandKind = "settle"
	KindAddExpense CommandKind = "add_expense"
)

// IsWrite reports whether commands of this kind mutate state and need confirmation.
func (k CommandKind) IsWrite() bool {
	switch k {
	case KindAddExpense, KindSettle, KindUndo, KindTrip:
		return true
	}
	return false
}

// SplitType describes how an expense is divided.
type SplitType string

const (
	// SplitEqual divides equally among explicit names or, when none were given, the trip participants.
	SplitEqual SplitType = "equal"
	// SplitOnly divides equally among an explicit list.
	SplitOnly SplitType = "only"
	// SplitCustom assigns a fixed amount per person.
	SplitCustom SplitType = "custom"
)

// Command is the closed set of commands the parser can produce.
type Command interface {
	Kind() CommandKind
	Raw() string
	command()
}

// HelpCommand lists the supported commands.
type HelpCommand struct{ RawText string }

// WhoCommand lists trip participants.
type WhoCommand struct{ RawText string }

// SummaryCommand shows totals and outstanding debts.
type SummaryCommand struct{ RawText string }

// UndoCommand removes the most recent expense or settlement.
type UndoCommand struct{ RawText string }

// BalancesCommand shows simplified debts. An empty DisplayCurrency means the trip base currency.
type BalancesCommand struct {
	RawText         string
	DisplayCurrency string
}

// TripCommand creates or switches to a trip. An empty BaseCurrency means the default.
type TripCommand struct {
	RawText      string
	Name         string
	BaseCurrency string
}

// SettleCommand records a payment between two people.
type SettleCommand struct {
	RawText  string
	From     string
	To       string
	Amount   decimal.Decimal
	Currency string
}

// CustomSplit is one person's explicit share in a custom split.
type CustomSplit struct {
	Person string
	Amount decimal.Decimal
}

// AddExpenseCommand records a new expense.
//
// SplitAmong is nil when no participant list was given; it is then resolved
// against the trip participants at execution time.
type AddExpenseCommand struct {
	RawText      string
	Description  string
	Amount       decimal.Decimal
	Currency     string
	PaidBy       string
	SplitType    SplitType
	SplitAmong   []string
	CustomSplits []CustomSplit
}

func (c HelpCommand) Kind() CommandKind       { return KindHelp }
func (c WhoCommand) Kind() CommandKind        { return KindWho }
func (c SummaryCommand) Kind() CommandKind    { return KindSummary }
func (c UndoCommand) Kind() CommandKind       { return KindUndo }
func (c BalancesCommand) Kind() CommandKind   { return KindBalances }
func (c TripCommand) Kind() CommandKind       { return KindTrip }
func (c SettleCommand) Kind() CommandKind     { return KindSettle }
func (c AddExpenseCommand) Kind() CommandKind { return KindAddExpense }

func (c HelpCommand) Raw() string       { return c.RawText }
func (c WhoCommand) Raw() string        { return c.RawText }
func (c SummaryCommand) Raw() string    { return c.RawText }
func (c UndoCommand) Raw() string       { return c.RawText }
func (c BalancesCommand) Raw() string   { return c.RawText }
func (c TripCommand) Raw() string       { return c.RawText }
func (c SettleCommand) Raw() string     { return c.RawText }
func (c AddExpenseCommand) Raw() string { return c.RawText }

func (HelpCommand) command()       {}
func (WhoCommand) command()        {}
func (SummaryCommand) command()    {}
func (UndoCommand) command()       {}
func (BalancesCommand) command()   {}
func (TripCommand) command()       {}
func (SettleCommand) command()     {}
func (AddExpenseCommand) command() {}

// CustomTotal sums the custom split amounts.
func (c AddExpenseCommand) CustomTotal() decimal.Decimal {
	total := decimal.Zero
	for _, s := range c.CustomSplits {
		total = total.Add(s.Amount)
	}
	return total
}

// CommandRecord is the flat storage form of a Command.
type CommandRecord struct {
	Kind         CommandKind       `json:"kind" yaml:"kind"`
	RawText      string            `json:"raw_text" yaml:"raw_text"`
	Description  string            `json:"description,omitempty" yaml:"description,omitempty"`
	Amount       *decimal.Decimal  `json:"amount,omitempty" yaml:"amount,omitempty"`
	Currency     string            `json:"currency,omitempty" yaml:"currency,omitempty"`
	PaidBy       string            `json:"paid_by,omitempty" yaml:"paid_by,omitempty"`
	SplitType    SplitType         `json:"split_type,omitempty" yaml:"split_type,omitempty"`
	SplitAmong   []string          `json:"split_among,omitempty" yaml:"split_among,omitempty"`
	CustomSplits []CustomSplitItem `json:"custom_splits,omitempty" yaml:"custom_splits,omitempty"`
	From         string            `json:"from_person,omitempty" yaml:"from_person,omitempty"`
	To           string            `json:"to_person,omitempty" yaml:"to_person,omitempty"`
	Display      string            `json:"display_currency,omitempty" yaml:"display_currency,omitempty"`
	TripName     string            `json:"trip_name,omitempty" yaml:"trip_name,omitempty"`
	TripBase     string            `json:"trip_base_currency,omitempty" yaml:"trip_base_currency,omitempty"`
}

// CustomSplitItem is the storage form of a CustomSplit.
type CustomSplitItem struct {
	Person string          `json:"person" yaml:"person"`
	Amount decimal.Decimal `json:"amount" yaml:"amount"`
}

// EncodeCommand flattens a command for storage.
func EncodeCommand(cmd Command) CommandRecord {
	rec := CommandRecord{Kind: cmd.Kind(), RawText: cmd.Raw()}
	switch c := cmd.(type) {
	case BalancesCommand:
		rec.Display = c.DisplayCurrency
	case TripCommand:
		rec.TripName = c.Name
		rec.TripBase = c.BaseCurrency
	case SettleCommand:
		amount := c.Amount
		rec.From = c.From
		rec.To = c.To
		rec.Amount = &amount
		rec.Currency = c.Currency
	case AddExpenseCommand:
		amount := c.Amount
		rec.Description = c.Description
		rec.Amount = &amount
		rec.Currency = c.Currency
		rec.PaidBy = c.PaidBy
		rec.SplitType = c.SplitType
		rec.SplitAmong = c.SplitAmong
		for _, s := range c.CustomSplits {
			rec.CustomSplits = append(rec.CustomSplits, CustomSplitItem(s))
		}
	}
	return rec
}

// Decode rebuilds the typed command from its storage form.
func (r CommandRecord) Decode() (Command, error) {
	switch r.Kind {
	case KindHelp:
		return HelpCommand{RawText: r.RawText}, nil
	case KindWho:
		return WhoCommand{RawText: r.RawText}, nil
	case KindSummary:
		return SummaryCommand{RawText: r.RawText}, nil
	case KindUndo:
		return UndoCommand{RawText: r.RawText}, nil
	case KindBalances:
		return BalancesCommand{RawText: r.RawText, DisplayCurrency: r.Display}, nil
	case KindTrip:
		if r.TripName == "" {
			return nil, fmt.Errorf("trip command record without a name")
		}
		return TripCommand{RawText: r.RawText, Name: r.TripName, BaseCurrency: r.TripBase}, nil
	case KindSettle:
		if r.Amount == nil {
			return nil, fmt.Errorf("settle command record without an amount")
		}
		return SettleCommand{
			RawText:  r.RawText,
			From:     r.From,
			To:       r.To,
			Amount:   *r.Amount,
			Currency: r.Currency,
		}, nil
	case KindAddExpense:
		if r.Amount == nil {
			return nil, fmt.Errorf("add_expense command record without an amount")
		}
		cmd := AddExpenseCommand{
			RawText:     r.RawText,
			Description: r.Description,
			Amount:      *r.Amount,
			Currency:    r.Currency,
			PaidBy:      r.PaidBy,
			SplitType:   r.SplitType,
			SplitAmong:  r.SplitAmong,
		}
		for _, s := range r.CustomSplits {
			cmd.CustomSplits = append(cmd.CustomSplits, CustomSplit(s))
		}
		if cmd.SplitType == "" {
			cmd.SplitType = SplitEqual
		}
		return cmd, nil
	default:
		return nil, fmt.Errorf("unknown command kind %q", r.Kind)
	}
}
