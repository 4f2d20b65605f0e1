package logging

import "sync"

// MockLogger records entries in memory for assertions.
// Child loggers created with WithError/WithField(s) record into the same store.
type MockLogger struct {
	store  *mockStore
	err    error
	fields []Field
}

type mockStore struct {
	mu      sync.Mutex
	entries []LogEntry
}

// LogEntry is one captured log call.
type LogEntry struct {
	Level   string
	Message string
	Fields  []Field
	Error   error
}

// NewMockLogger returns an empty MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{store: &mockStore{}}
}

func (m *MockLogger) record(level, msg string, fields []Field) {
	if m.store == nil {
		m.store = &mockStore{}
	}
	all := make([]Field, 0, len(m.fields)+len(fields))
	all = append(all, m.fields...)
	all = append(all, fields...)

	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.entries = append(m.store.entries, LogEntry{Level: level, Message: msg, Fields: all, Error: m.err})
}

func (m *MockLogger) Debug(msg string, fields ...Field) { m.record("DEBUG", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...Field)  { m.record("INFO", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...Field)  { m.record("WARN", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...Field) { m.record("ERROR", msg, fields) }

// Fatal records the entry without exiting.
func (m *MockLogger) Fatal(msg string, fields ...Field) { m.record("FATAL", msg, fields) }

func (m *MockLogger) WithError(err error) Logger {
	return &MockLogger{store: m.shared(), err: err, fields: m.fields}
}

func (m *MockLogger) WithField(key string, value interface{}) Logger {
	return m.WithFields(Field{Key: key, Value: value})
}

func (m *MockLogger) WithFields(fields ...Field) Logger {
	all := append(append([]Field{}, m.fields...), fields...)
	return &MockLogger{store: m.shared(), err: m.err, fields: all}
}

func (m *MockLogger) shared() *mockStore {
	if m.store == nil {
		m.store = &mockStore{}
	}
	return m.store
}

// Entries returns a copy of everything recorded so far.
func (m *MockLogger) Entries() []LogEntry {
	s := m.shared()
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LogEntry{}, s.entries...)
}

// EntriesByLevel filters Entries by level ("DEBUG", "INFO", "WARN", "ERROR", "FATAL").
func (m *MockLogger) EntriesByLevel(level string) []LogEntry {
	var out []LogEntry
	for _, e := range m.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// HasEntry reports whether an entry with this level and message was recorded.
func (m *MockLogger) HasEntry(level, message string) bool {
	for _, e := range m.Entries() {
		if e.Level == level && e.Message == message {
			return true
		}
	}
	return false
}

// Clear drops all recorded entries.
func (m *MockLogger) Clear() {
	s := m.shared()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}
