package cleanup_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"clawback/clawback/cmd/cleanup"
	"clawback/clawback/cmd/root"
	"clawback/clawback/internal/logging"
	"clawback/clawback/internal/models"
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
	cleanup.Cmd.SetOut(&out)
	cleanup.Cmd.SetErr(&bytes.Buffer{})
	cleanup.Cmd.SetArgs(args)
	err := cleanup.Cmd.Execute()
	return out.String(), err
}

func TestCleanupCommand_Metadata(t *testing.T) {
	assert.Equal(t, "cleanup", cleanup.Cmd.Use)
	assert.Contains(t, cleanup.Cmd.Short, "pending confirmations")
}

func TestCleanupCommand(t *testing.T) {
	dir := setupEnv(t)

	st, err := store.NewFileStore(dir, store.Options{}, logging.NewMockLogger())
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, st.SetPending(ctx, models.PendingConfirmation{
		ChatID:    "old",
		Command:   models.UndoCommand{RawText: "kai undo"},
		CreatedAt: now.Add(-time.Hour),
		TripName:  "Japan",
	}))
	require.NoError(t, st.SetPending(ctx, models.PendingConfirmation{
		ChatID:    "fresh",
		Command:   models.UndoCommand{RawText: "kai undo"},
		CreatedAt: now,
		TripName:  "Japan",
	}))
	require.NoError(t, st.Close())

	out, err := run(t)
	require.NoError(t, err)
	assert.Equal(t, "Cleaned up 1 expired pending confirmation(s).\n", out)

	out, err = run(t)
	require.NoError(t, err)
	assert.Equal(t, "Cleaned up 0 expired pending confirmation(s).\n", out)
}
