// Package testutil provides shared test doubles.
package testutil

import (
	"strings"
	"sync"

	"github.com/planva/capline/internal/infrastructure/monitoring/logging"
)

// MockLogger implements logging.Logger and records every entry so tests
// can assert on logging behavior (e.g. log-and-skip paths).
type MockLogger struct {
	mu       sync.Mutex
	Messages []LogMessage
}

// LogMessage is a single entry captured by MockLogger.
type LogMessage struct {
	Level   string
	Message string
	Fields  []logging.Field
}

// NewMockLogger creates an empty MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) log(level, msg string, fields []logging.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, LogMessage{Level: level, Message: msg, Fields: fields})
}

func (m *MockLogger) Debug(msg string, fields ...logging.Field) { m.log("debug", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...logging.Field)  { m.log("info", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...logging.Field)  { m.log("warn", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...logging.Field) { m.log("error", msg, fields) }
func (m *MockLogger) Fatal(msg string, fields ...logging.Field) { m.log("fatal", msg, fields) }

// With and Named return the same recorder so entries from derived loggers
// stay observable.
func (m *MockLogger) With(...logging.Field) logging.Logger { return m }
func (m *MockLogger) Named(string) logging.Logger          { return m }

// HasMessage reports whether any entry at the given level contains substr.
func (m *MockLogger) HasMessage(level, substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Messages {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// CountLevel returns the number of entries recorded at the given level.
func (m *MockLogger) CountLevel(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Messages {
		if e.Level == level {
			n++
		}
	}
	return n
}
