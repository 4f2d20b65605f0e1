// Package parsererror defines the typed errors shared by the parser, the ledger
// and the I/O collaborators.
package parsererror

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Category classifies a ParseError so callers can give targeted guidance.
type Category string

const (
	CategoryInvalidAmount      Category = "invalid_amount"
	CategoryInvalidCustomSplit Category = "invalid_custom_split"
	CategoryMissingPaidBy      Category = "missing_paid_by"
	CategoryMissingAmount      Category = "missing_amount"
	CategoryUnknownCommand     Category = "unknown_command"
)

var (
	// ErrNoParticipants is returned when an equal split has nobody to split among.
	ErrNoParticipants = errors.New("cannot split among zero participants")
	// ErrRateUnavailable is matched by every ConversionError.
	ErrRateUnavailable = errors.New("exchange rate unavailable")
	// ErrTripNotFound is returned by stores for an unknown trip name.
	ErrTripNotFound = errors.New("trip not found")
)

// ParseError represents text that could not be turned into a command
type ParseError struct {
	RawText     string
	Message     string
	Suggestions []string
	Category    Category
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s (input '%s')", e.Category, e.Message, e.RawText)
}

// ValidationError represents a rejected ledger input
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// SplitMismatchError is returned when splits do not reconcile with an expense total.
type SplitMismatchError struct {
	Sum       decimal.Decimal
	Total     decimal.Decimal
	Tolerance decimal.Decimal
}

// Difference is the absolute gap between the splits and the total.
func (e *SplitMismatchError) Difference() decimal.Decimal {
	return e.Sum.Sub(e.Total).Abs()
}

// Direction is "under" when the splits fall short of the total and "over" otherwise.
func (e *SplitMismatchError) Direction() string {
	if e.Sum.LessThan(e.Total) {
		return "under"
	}
	return "over"
}

func (e *SplitMismatchError) Error() string {
	return fmt.Sprintf("splits sum to %s but expense total is %s (%s by %s, tolerance: %s)",
		e.Sum.String(), e.Total.String(), e.Direction(), e.Difference().String(), e.Tolerance.String())
}

// ConversionError wraps a failed currency conversion
type ConversionError struct {
	From   string
	To     string
	Reason string
	Err    error
}

func (e *ConversionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to convert %s->%s", e.From, e.To)
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Is makes every ConversionError match ErrRateUnavailable.
func (e *ConversionError) Is(target error) bool {
	return target == ErrRateUnavailable
}

// SheetsError represents a failed spreadsheet sync operation
type SheetsError struct {
	Op  string
	Msg string
	Err error
}

func (e *SheetsError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sheets %s failed: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("sheets %s failed: %s", e.Op, e.Msg)
}

func (e *SheetsError) Unwrap() error {
	return e.Err
}
