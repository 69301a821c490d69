package libraryapi

import (
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingLogger keeps the messages logged at error level.
type recordingLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Warn(string, ...any)  {}
func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func TestLogrusLogger(t *testing.T) {
	logrusLogger, hook := test.NewNullLogger()
	logrusLogger.SetLevel(logrus.InfoLevel)

	logger := NewLogrusLogger(logrusLogger)

	logger.Debug("debug message", "kid", "k1")
	assert.Empty(t, hook.AllEntries(), "Debug message should not be recorded at Info level")

	logger.Info("info message")
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "info message", hook.LastEntry().Message)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)

	logger.Warn("warn message", "subject", "auth0|reader", "requirement", "all(book:read)")
	require.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, logrus.Fields{"subject": "auth0|reader", "requirement": "all(book:read)"}, hook.LastEntry().Data)

	logger.Error("error message", "error", errors.New("dial tcp: connection refused"), "dangling")
	require.Len(t, hook.AllEntries(), 3)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, logrus.Fields{"error": "dial tcp: connection refused", "dangling": "!MISSING"}, hook.LastEntry().Data)
}
