package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNewTrip(t *testing.T) {
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	trip := NewTrip("Japan", "", created)
	assert.Equal(t, DefaultBaseCurrency, trip.BaseCurrency)
	assert.Empty(t, trip.Participants)
	assert.NotNil(t, trip.Expenses)
	assert.NotNil(t, trip.Settlements)

	assert.Equal(t, "EUR", NewTrip("Italy", "EUR", created).BaseCurrency)
}

func TestTripClone(t *testing.T) {
	trip := NewTrip("Japan", "ILS", time.Now())
	trip.Participants = []string{"Dan"}
	trip.Expenses = []Expense{{
		ID:     "e1",
		Total:  NewMoney(decimal.NewFromInt(10), "ILS"),
		PaidBy: "Dan",
		Splits: []Split{{Person: "Dan", Amount: NewMoney(decimal.NewFromInt(10), "ILS")}},
	}}

	clone := trip.Clone()
	clone.Participants[0] = "Sara"
	clone.Expenses[0].Splits[0].Person = "Sara"
	clone.Settlements = append(clone.Settlements, Settlement{ID: "s1"})

	assert.Equal(t, "Dan", trip.Participants[0])
	assert.Equal(t, "Dan", trip.Expenses[0].Splits[0].Person)
	assert.Empty(t, trip.Settlements)
	assert.True(t, trip.HasParticipant("Dan"))
	assert.False(t, trip.HasParticipant("dan"))
}

func TestTripLastEntries(t *testing.T) {
	trip := NewTrip("Japan", "ILS", time.Now())

	_, ok := trip.LastExpense()
	assert.False(t, ok)
	_, ok = trip.LastSettlement()
	assert.False(t, ok)

	trip.Expenses = []Expense{{ID: "e1"}, {ID: "e2"}}
	trip.Settlements = []Settlement{{ID: "s1"}}

	last, ok := trip.LastExpense()
	require.True(t, ok)
	assert.Equal(t, "e2", last.ID)

	settlement, ok := trip.LastSettlement()
	require.True(t, ok)
	assert.Equal(t, "s1", settlement.ID)
}

func TestCommandKindIsWrite(t *testing.T) {
	writes := map[CommandKind]bool{
		KindHelp:       false,
		KindWho:        false,
		KindSummary:    false,
		KindBalances:   false,
		KindUndo:       true,
		KindTrip:       true,
		KindSettle:     true,
		KindAddExpense: true,
	}
	for kind, expected := range writes {
		t.Run(string(kind), func(t *testing.T) {
			assert.Equal(t, expected, kind.IsWrite())
		})
	}
}

func TestCommandRecordDecode(t *testing.T) {
	amount := decimal.NewFromInt(60)
	tests := []struct {
		name        string
		record      CommandRecord
		expected    Command
		expectError string
	}{
		{
			name:     "balances keeps display currency",
			record:   CommandRecord{Kind: KindBalances, RawText: "kai balances in EUR", Display: "EUR"},
			expected: BalancesCommand{RawText: "kai balances in EUR", DisplayCurrency: "EUR"},
		},
		{
			name: "custom expense",
			record: CommandRecord{
				Kind: KindAddExpense, RawText: "raw", Description: "wine", Amount: &amount, Currency: "EUR", PaidBy: "Avi",
				SplitType:    SplitCustom,
				CustomSplits: []CustomSplitItem{{Person: "Dan", Amount: decimal.NewFromInt(30)}, {Person: "Sara", Amount: decimal.NewFromInt(30)}},
			},
			expected: AddExpenseCommand{
				RawText: "raw", Description: "wine", Amount: amount, Currency: "EUR", PaidBy: "Avi",
				SplitType:    SplitCustom,
				CustomSplits: []CustomSplit{{Person: "Dan", Amount: decimal.NewFromInt(30)}, {Person: "Sara", Amount: decimal.NewFromInt(30)}},
			},
		},
		{
			name:        "trip without name",
			record:      CommandRecord{Kind: KindTrip},
			expectError: "without a name",
		},
		{
			name:        "settle without amount",
			record:      CommandRecord{Kind: KindSettle, From: "Dan", To: "Sara"},
			expectError: "without an amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := tt.record.Decode()
			if tt.expectError != "" {
				assert.ErrorContains(t, err, tt.expectError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cmd)
		})
	}
}

func TestAddExpenseCustomTotal(t *testing.T) {
	cmd := AddExpenseCommand{CustomSplits: []CustomSplit{
		{Person: "Dan", Amount: decimal.RequireFromString("30.5")},
		{Person: "Sara", Amount: decimal.RequireFromString("19.5")},
	}}
	assert.True(t, decimal.NewFromInt(50).Equal(cmd.CustomTotal()))
}

func TestPendingConfirmation(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	pending := PendingConfirmation{
		ChatID:           "chat-1",
		Command:          SettleCommand{RawText: "kai settle Dan paid Sara 100", From: "Dan", To: "Sara", Amount: decimal.NewFromInt(100), Currency: "ILS"},
		ConfirmationText: "💬 Settle",
		CreatedAt:        created,
		TripName:         "Japan",
	}

	t.Run("expiry", func(t *testing.T) {
		assert.False(t, pending.Expired(created.Add(5*time.Minute), 5*time.Minute))
		assert.True(t, pending.Expired(created.Add(5*time.Minute+time.Second), 5*time.Minute))
	})

	t.Run("yaml storage form", func(t *testing.T) {
		data, err := yaml.Marshal(pending)
		require.NoError(t, err)
		assert.Contains(t, string(data), "kind: settle")

		var decoded PendingConfirmation
		require.NoError(t, yaml.Unmarshal(data, &decoded))
		assert.Equal(t, "Japan", decoded.TripName)
		settle, ok := decoded.Command.(SettleCommand)
		require.True(t, ok)
		assert.Equal(t, "Dan", settle.From)
		assert.True(t, decimal.NewFromInt(100).Equal(settle.Amount))
	})
}
