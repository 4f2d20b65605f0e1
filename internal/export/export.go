// Package export writes a trip out as a set of CSV files.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"clawback/clawback/internal/ledger"
	"clawback/clawback/internal/logging"
	"clawback/clawback/internal/models"

	"github.com/gocarina/gocsv"
)

// Output file names.
const (
	ExpensesFile    = "expenses.csv"
	SplitsFile      = "splits.csv"
	SettlementsFile = "settlements.csv"
	BalancesFile    = "balances.csv"
)

// ExpenseRow is one line of expenses.csv.
type ExpenseRow struct {
	ExpenseID   string `csv:"expense_id"`
	Timestamp   string `csv:"timestamp"`
	Description string `csv:"description"`
	Amount      string `csv:"amount"`
	Currency    string `csv:"currency"`
	PaidBy      string `csv:"paid_by"`
	Notes       string `csv:"notes"`
}

// SplitRow is one line of splits.csv.
type SplitRow struct {
	ExpenseID  string `csv:"expense_id"`
	Person     string `csv:"person"`
	AmountOwed string `csv:"amount_owed"`
	Currency   string `csv:"currency"`
}

// SettlementRow is one line of settlements.csv.
type SettlementRow struct {
	SettlementID string `csv:"settlement_id"`
	Timestamp    string `csv:"timestamp"`
	From         string `csv:"from"`
	To           string `csv:"to"`
	Amount       string `csv:"amount"`
	Currency     string `csv:"currency"`
	Notes        string `csv:"notes"`
}

// BalanceRow is one line of balances.csv.
type BalanceRow struct {
	Person     string `csv:"person"`
	NetBalance string `csv:"net_balance"`
	Currency   string `csv:"currency"`
}

// Exporter writes trips to CSV.
type Exporter struct {
	conv      ledger.Converter
	logger    logging.Logger
	delimiter rune
}

// New creates an Exporter. A zero delimiter means comma.
func New(conv ledger.Converter, logger logging.Logger, delimiter rune) *Exporter {
	if delimiter == 0 {
		delimiter = ','
	}
	return &Exporter{conv: conv, logger: logger, delimiter: delimiter}
}

// ExportTrip writes the four CSV files for trip into dir and returns their paths.
// Balances are expressed in the trip base currency; a conversion failure aborts
// before anything is written.
func (e *Exporter) ExportTrip(ctx context.Context, trip models.Trip, dir string) ([]string, error) {
	balances, err := ledger.ComputeBalances(ctx, trip, trip.BaseCurrency, e.conv)
	if err != nil {
		return nil, fmt.Errorf("error computing balances for %q: %w", trip.Name, err)
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("error creating directory: %w", err)
	}

	expenses, splits := expenseRows(trip.Expenses)
	outputs := []struct {
		name string
		rows interface{}
		n    int
	}{
		{ExpensesFile, expenses, len(expenses)},
		{SplitsFile, splits, len(splits)},
		{SettlementsFile, settlementRows(trip.Settlements), len(trip.Settlements)},
		{BalancesFile, balanceRows(balances, trip.BaseCurrency), len(balances)},
	}

	paths := make([]string, 0, len(outputs))
	for _, out := range outputs {
		path := filepath.Join(dir, out.name)
		if err := e.write(path, out.rows); err != nil {
			return paths, err
		}
		e.logger.Debug("Wrote CSV file",
			logging.F(logging.FieldPath, path),
			logging.F(logging.FieldCount, out.n))
		paths = append(paths, path)
	}

	e.logger.Info("Exported trip",
		logging.F(logging.FieldTrip, trip.Name),
		logging.F(logging.FieldPath, dir))
	return paths, nil
}

func (e *Exporter) write(path string, rows interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating CSV file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			e.logger.WithError(err).Warn("Failed to close file", logging.F(logging.FieldPath, path))
		}
	}()

	writer := csv.NewWriter(file)
	writer.Comma = e.delimiter
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(writer)); err != nil {
		return fmt.Errorf("error writing CSV data to %s: %w", path, err)
	}
	return nil
}

func expenseRows(expenses []models.Expense) ([]ExpenseRow, []SplitRow) {
	rows := make([]ExpenseRow, 0, len(expenses))
	var splits []SplitRow
	for _, exp := range expenses {
		rows = append(rows, ExpenseRow{
			ExpenseID:   exp.ID,
			Timestamp:   exp.Timestamp.Format(time.RFC3339),
			Description: exp.Description,
			Amount:      exp.Total.Amount.String(),
			Currency:    exp.Total.Currency,
			PaidBy:      exp.PaidBy,
			Notes:       exp.Notes,
		})
		for _, s := range exp.Splits {
			splits = append(splits, SplitRow{
				ExpenseID:  exp.ID,
				Person:     s.Person,
				AmountOwed: s.Amount.Amount.String(),
				Currency:   s.Amount.Currency,
			})
		}
	}
	if splits == nil {
		splits = []SplitRow{}
	}
	return rows, splits
}

func settlementRows(settlements []models.Settlement) []SettlementRow {
	rows := make([]SettlementRow, 0, len(settlements))
	for _, s := range settlements {
		rows = append(rows, SettlementRow{
			SettlementID: s.ID,
			Timestamp:    s.Timestamp.Format(time.RFC3339),
			From:         s.From,
			To:           s.To,
			Amount:       s.Amount.Amount.String(),
			Currency:     s.Amount.Currency,
			Notes:        s.Notes,
		})
	}
	return rows
}

func balanceRows(balances ledger.Balances, currency string) []BalanceRow {
	rows := make([]BalanceRow, 0, len(balances))
	for _, b := range balances {
		rows = append(rows, BalanceRow{
			Person:     b.Person,
			NetBalance: b.Amount.Amount.StringFixed(models.MoneyPlaces),
			Currency:   currency,
		})
	}
	return rows
}

// ReadRows loads a CSV file written by ExportTrip back into rows.
func ReadRows[T any](path string, delimiter rune) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	var rows []T
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		return nil, fmt.Errorf("error parsing CSV file: %w", err)
	}
	return rows, nil
}
