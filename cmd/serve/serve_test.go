package serve_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"clawback/clawback/cmd/root"
	"clawback/clawback/cmd/serve"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
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

func TestServeCommand_Metadata(t *testing.T) {
	assert.Equal(t, "serve", serve.Cmd.Use)
	assert.Contains(t, serve.Cmd.Long, "POST /messages")

	addrFlag := serve.Cmd.Flags().Lookup("addr")
	require.NotNil(t, addrFlag)
	assert.Equal(t, "", addrFlag.DefValue)

	assert.Contains(t, serve.Cmd.Commands(), serve.HashTokenCmd)
}

func TestHashTokenCommand(t *testing.T) {
	var out bytes.Buffer
	serve.Cmd.SetOut(&out)
	serve.Cmd.SetErr(&bytes.Buffer{})
	serve.Cmd.SetArgs([]string{"hash-token", "s3cret"})
	require.NoError(t, serve.Cmd.Execute())

	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("other")))
}

func TestServeCommand_StopsWithContext(t *testing.T) {
	setupEnv(t)
	t.Cleanup(func() { _ = serve.Cmd.Flags().Set("addr", "") })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	serve.Cmd.SetOut(&bytes.Buffer{})
	serve.Cmd.SetErr(&bytes.Buffer{})
	serve.Cmd.SetArgs([]string{"--addr", "127.0.0.1:0"})
	assert.NoError(t, serve.Cmd.ExecuteContext(ctx))
}
