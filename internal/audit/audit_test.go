package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2025, 5, 4, 3, 2, 1, 0, time.UTC) }
}

func TestLogger_LogAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", DefaultFileName)
	logger := NewLogger(path, fixedClock())

	require.NoError(t, logger.Log("kai add dinner ₪100 paid by Dan", "chat-1", StatusOK, ""))
	require.NoError(t, logger.Log("asdf", "chat-1", StatusError, "unknown_command"))
	require.NoError(t, logger.Log("hello friends", "chat-2", StatusIgnored, ""))

	entries, err := logger.Read(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "kai add dinner ₪100 paid by Dan", entries[0].Input)
	assert.Equal(t, StatusOK, entries[0].ParseStatus)
	assert.Empty(t, entries[0].ErrorMsg)
	assert.Equal(t, "unknown_command", entries[1].ErrorMsg)
	assert.Equal(t, "chat-2", entries[2].ChatID)
	assert.True(t, entries[2].Timestamp.Equal(fixedClock()()))
}

func TestLogger_LineFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	logger := NewLogger(path, fixedClock())
	require.NoError(t, logger.Log("₪ <b>", "c", StatusOK, ""))
	require.NoError(t, logger.Log("x", "c", StatusError, "boom"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	assert.Contains(t, lines[0], `"input":"₪ <b>"`)
	assert.NotContains(t, lines[0], "error_msg")
	assert.Contains(t, lines[0], `"parse_status":"ok"`)
	assert.Contains(t, lines[0], `"ts":"2025-05-04T03:02:01Z"`)
	assert.Contains(t, lines[1], `"error_msg":"boom"`)
}

func TestLogger_ReadLimit(t *testing.T) {
	logger := NewLogger(filepath.Join(t.TempDir(), DefaultFileName), fixedClock())
	for _, input := range []string{"one", "two", "three", "four"} {
		require.NoError(t, logger.Log(input, "c", StatusOK, ""))
	}

	entries, err := logger.Read(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "three", entries[0].Input)
	assert.Equal(t, "four", entries[1].Input)

	entries, err = logger.Read(10)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestLogger_ReadMissingFile(t *testing.T) {
	entries, err := NewLogger(filepath.Join(t.TempDir(), "absent.jsonl"), nil).Read(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvLogPath, "")
	assert.Equal(t, filepath.Join("/state", DefaultFileName), ResolvePath("", "/state"))
	assert.Equal(t, "/custom/log.jsonl", ResolvePath("/custom/log.jsonl", "/state"))

	t.Setenv(EnvLogPath, "/env/log.jsonl")
	assert.Equal(t, "/env/log.jsonl", ResolvePath("/custom/log.jsonl", "/state"))
}
