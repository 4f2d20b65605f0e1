package balances_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"clawback/clawback/cmd/balances"
	"clawback/clawback/cmd/root"
	"clawback/clawback/internal/ledger"
	"clawback/clawback/internal/logging"
	"clawback/clawback/internal/models"
	"clawback/clawback/internal/parsererror"
	"clawback/clawback/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CLAWBACK_STATE_DIR", dir)
	t.Setenv("CLAWBACK_STATE_DRIVER", "file")
	t.Setenv("CLAWBACK_SHEETS_ENABLED", "false")
	t.Setenv("CLAWBACK_FX_BASE_URL", "http://127.0.0.1:1")
	t.Setenv("CLAWBACK_LOG_PATH", "")
	root.AppConfig = nil
	t.Cleanup(func() { root.AppConfig = nil })
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	balances.Cmd.SetOut(&out)
	balances.Cmd.SetErr(&bytes.Buffer{})
	balances.Cmd.SetArgs(args)
	err := balances.Cmd.Execute()
	return out.String(), err
}

func seedTrip(t *testing.T, dir string, settle bool) {
	t.Helper()
	st, err := store.NewFileStore(dir, store.Options{}, logging.NewMockLogger())
	require.NoError(t, err)

	journal := ledger.NewJournal()
	trip := models.NewTrip("Japan", "ILS", time.Now().UTC())
	total := models.NewMoney(decimal.NewFromInt(300), "ILS")
	splits, err := ledger.EqualSplits(total, []string{"Dan", "Sara", "Avi"})
	require.NoError(t, err)
	trip, _, err = journal.AddExpense(trip, ledger.ExpenseInput{Description: "dinner", Total: total, PaidBy: "Dan", Splits: splits})
	require.NoError(t, err)

	if settle {
		hundred := models.NewMoney(decimal.NewFromInt(100), "ILS")
		trip, _ = journal.AddSettlement(trip, "Sara", "Dan", hundred, "")
		trip, _ = journal.AddSettlement(trip, "Avi", "Dan", hundred, "")
	}

	require.NoError(t, st.Save(context.Background(), trip))
	require.NoError(t, st.Close())
}

func TestBalancesCommand_Metadata(t *testing.T) {
	assert.Equal(t, "balances TRIP", balances.Cmd.Use)
	assert.NotNil(t, balances.Cmd.RunE)

	inFlag := balances.Cmd.Flags().Lookup("in")
	require.NotNil(t, inFlag)
	assert.Equal(t, "", inFlag.DefValue)
}

func TestBalancesCommand(t *testing.T) {
	tests := []struct {
		name        string
		seed        bool
		settle      bool
		args        []string
		expected    string
		expectError error
	}{
		{
			name:        "unknown trip",
			args:        []string{"Nowhere"},
			expectError: parsererror.ErrTripNotFound,
		},
		{
			name:     "open debts",
			seed:     true,
			args:     []string{"Japan"},
			expected: "📊 Japan Balances (ILS):\n\n• Sara → Dan: ₪100\n• Avi → Dan: ₪100\n",
		},
		{
			name:     "explicit base currency",
			seed:     true,
			args:     []string{"Japan", "--in", "ils"},
			expected: "📊 Japan Balances (ILS):\n\n• Sara → Dan: ₪100\n• Avi → Dan: ₪100\n",
		},
		{
			name:     "currency symbol",
			seed:     true,
			args:     []string{"Japan", "--in", "₪"},
			expected: "📊 Japan Balances (ILS):\n\n• Sara → Dan: ₪100\n• Avi → Dan: ₪100\n",
		},
		{
			name:     "currency word",
			seed:     true,
			args:     []string{"Japan", "--in", "shekels"},
			expected: "📊 Japan Balances (ILS):\n\n• Sara → Dan: ₪100\n• Avi → Dan: ₪100\n",
		},
		{
			name:     "settled",
			seed:     true,
			settle:   true,
			args:     []string{"Japan"},
			expected: "✨ All settled up!\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setupEnv(t)
			t.Cleanup(func() { _ = balances.Cmd.Flags().Set("in", "") })
			if tt.seed {
				seedTrip(t, dir, tt.settle)
			}

			out, err := run(t, tt.args...)
			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}
