package parsererror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ParseError
		expected string
	}{
		{
			name: "unknown command",
			err: &ParseError{
				RawText:  "asdf",
				Message:  "Could not understand command",
				Category: CategoryUnknownCommand,
			},
			expected: "unknown_command: Could not understand command (input 'asdf')",
		},
		{
			name: "invalid amount",
			err: &ParseError{
				RawText:  "add x abc paid by Dan",
				Message:  "Could not parse amount from 'abc'",
				Category: CategoryInvalidAmount,
			},
			expected: "invalid_amount: Could not parse amount from 'abc' (input 'add x abc paid by Dan')",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestValidationError(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := &ValidationError{Reason: "empty description"}
		assert.Equal(t, "validation failed: empty description", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("wraps sentinel", func(t *testing.T) {
		err := &ValidationError{Reason: "equal split", Err: ErrNoParticipants}
		assert.True(t, errors.Is(err, ErrNoParticipants))
		assert.Contains(t, err.Error(), "zero participants")
	})
}

func TestSplitMismatchError(t *testing.T) {
	tests := []struct {
		name      string
		sum       string
		total     string
		direction string
		diff      string
	}{
		{"under", "90", "100", "under", "10"},
		{"over", "110", "100", "over", "10"},
		{"fractional", "99.5", "100", "under", "0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &SplitMismatchError{
				Sum:       decimal.RequireFromString(tt.sum),
				Total:     decimal.RequireFromString(tt.total),
				Tolerance: decimal.RequireFromString("0.01"),
			}
			assert.Equal(t, tt.direction, err.Direction())
			assert.True(t, decimal.RequireFromString(tt.diff).Equal(err.Difference()))
			assert.Contains(t, err.Error(), "splits sum to "+tt.sum)
		})
	}
}

func TestConversionError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &ConversionError{From: "EUR", To: "ILS", Reason: "request failed", Err: cause}

	assert.Equal(t, "failed to convert EUR->ILS: request failed: connection refused", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrRateUnavailable))

	wrapped := fmt.Errorf("balances: %w", err)
	var convErr *ConversionError
	require.True(t, errors.As(wrapped, &convErr))
	assert.Equal(t, "EUR", convErr.From)
	assert.True(t, errors.Is(wrapped, ErrRateUnavailable))
}

func TestSheetsError(t *testing.T) {
	cause := errors.New("exit status 1")
	err := &SheetsError{Op: "append", Msg: "gog command failed", Err: cause}

	assert.Equal(t, "sheets append failed: gog command failed: exit status 1", err.Error())
	assert.Equal(t, cause, err.Unwrap())

	bare := &SheetsError{Op: "create", Msg: "missing sheet id"}
	assert.Equal(t, "sheets create failed: missing sheet id", bare.Error())
}
