package handle_test

import (
	"bytes"
	"context"
	"testing"

	"clawback/clawback/cmd/handle"
	"clawback/clawback/cmd/root"
	"clawback/clawback/internal/logging"
	"clawback/clawback/internal/store"

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
	handle.Cmd.SetOut(&out)
	handle.Cmd.SetErr(&bytes.Buffer{})
	handle.Cmd.SetArgs(args)
	err := handle.Cmd.Execute()
	return out.String(), err
}

func TestHandleCommand_Metadata(t *testing.T) {
	assert.Equal(t, "handle CHAT_ID MESSAGE...", handle.Cmd.Use)
	assert.Contains(t, handle.Cmd.Short, "chat message")
	assert.NotNil(t, handle.Cmd.RunE)

	accountFlag := handle.Cmd.Flags().Lookup("sheets-account")
	require.NotNil(t, accountFlag)
	assert.Equal(t, "", accountFlag.DefValue)

	noSheetsFlag := handle.Cmd.Flags().Lookup("no-sheets")
	require.NotNil(t, noSheetsFlag)
	assert.Equal(t, "false", noSheetsFlag.DefValue)
}

func TestHandleCommand_RequiresMessage(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "chat-1")
	assert.Error(t, err)
}

func TestHandleCommand_TripFlow(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, "--no-sheets", "chat-1", "kai", "trip", "Japan")
	require.NoError(t, err)
	assert.Contains(t, out, "💬 Create new trip *Japan* with base currency ILS? (yes/no)")

	out, err = run(t, "chat-1", "yes")
	require.NoError(t, err)
	assert.Contains(t, out, "🎉 Trip *Japan* created!")

	out, err = run(t, "chat-1", "kai add dinner ₪300 paid by Dan split equally between Dan, Sara, Avi")
	require.NoError(t, err)
	assert.Contains(t, out, "split equally → Dan ₪100, Sara ₪100, Avi ₪100")

	out, err = run(t, "chat-1", "yes")
	require.NoError(t, err)
	assert.Contains(t, out, "• Sara → Dan: ₪100")

	st, err := store.NewFileStore(dir, store.Options{}, logging.NewMockLogger())
	require.NoError(t, err)
	defer st.Close()

	trip, err := st.Get(context.Background(), "Japan")
	require.NoError(t, err)
	assert.Equal(t, "ILS", trip.BaseCurrency)
	require.Len(t, trip.Expenses, 1)
	assert.Equal(t, "dinner", trip.Expenses[0].Description)
}

func TestHandleCommand_ParseErrorReply(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "chat-1", "kai add dinner paid by Dan")
	require.NoError(t, err)
	assert.Contains(t, out, "❓")
}
