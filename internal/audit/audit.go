// Package audit appends every raw chat message to a JSON-lines log before it is parsed.
package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnvLogPath overrides the configured log path when set.
const EnvLogPath = "CLAWBACK_LOG_PATH"

// DefaultFileName is the log file name inside the state directory.
const DefaultFileName = "raw_inputs.jsonl"

// Status is the parse outcome recorded for a message.
type Status string

const (
	StatusOK      Status = "ok"
	StatusError   Status = "error"
	StatusIgnored Status = "ignored"
)

// Entry is one line of the log.
type Entry struct {
	Timestamp   time.Time `json:"ts"`
	ChatID      string    `json:"chat_id"`
	Input       string    `json:"input"`
	ParseStatus Status    `json:"parse_status"`
	ErrorMsg    string    `json:"error_msg,omitempty"`
}

// Logger writes entries to a single append-only file.
type Logger struct {
	mu    sync.Mutex
	path  string
	clock func() time.Time
}

// ResolvePath returns $CLAWBACK_LOG_PATH when set, then configured, then
// raw_inputs.jsonl inside stateDir.
func ResolvePath(configured, stateDir string) string {
	if env := os.Getenv(EnvLogPath); env != "" {
		return env
	}
	if configured != "" {
		return configured
	}
	return filepath.Join(stateDir, DefaultFileName)
}

// NewLogger returns a Logger for path. A nil clock means time.Now.
func NewLogger(path string, clock func() time.Time) *Logger {
	if clock == nil {
		clock = time.Now
	}
	return &Logger{path: path, clock: clock}
}

// Path returns the log file location.
func (l *Logger) Path() string {
	return l.path
}

// Log appends one entry, creating the directory on demand. errMsg is omitted when empty.
func (l *Logger) Log(input, chatID string, status Status, errMsg string) error {
	entry := Entry{
		Timestamp:   l.clock(),
		ChatID:      chatID,
		Input:       input,
		ParseStatus: status,
		ErrorMsg:    errMsg,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entry); err != nil {
		return fmt.Errorf("error encoding audit entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("error creating audit log directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error opening audit log: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return fmt.Errorf("error writing audit log: %w", err)
	}
	return f.Close()
}

// Read returns the last limit entries in file order, or all of them when limit is 0.
// A missing file yields no entries.
func (l *Logger) Read(limit int) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("error opening audit log: %w", err)
	}
	defer f.Close()

	entries := []Entry{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("error decoding audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading audit log: %w", err)
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}
