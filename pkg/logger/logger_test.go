package logger

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// swapLogger installs an observed logger at lvl and restores the original on cleanup.
func swapLogger(t *testing.T, lvl zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	original := defaultLogger
	t.Cleanup(func() { defaultLogger = original })

	core, recorded := observer.New(lvl)
	defaultLogger = zap.New(core)
	return recorded
}

func TestInfoCarriesFields(t *testing.T) {
	recorded := swapLogger(t, zapcore.InfoLevel)

	Info("index built", "index", "sift", "leaves", 42)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, zapcore.InfoLevel, logs[0].Level)
	assert.Equal(t, "index built", logs[0].Message)

	fields := logs[0].ContextMap()
	assert.Equal(t, "sift", fields["index"])
	assert.EqualValues(t, 42, fields["leaves"])
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     zapcore.Level
		logFunc   func(string, ...interface{})
		shouldLog bool
	}{
		{"Debug with Info level", zapcore.InfoLevel, Debug, false},
		{"Info with Info level", zapcore.InfoLevel, Info, true},
		{"Warn with Info level", zapcore.InfoLevel, Warn, true},
		{"Error with Info level", zapcore.InfoLevel, Error, true},
		{"Debug with Debug level", zapcore.DebugLevel, Debug, true},
		{"Info with Warn level", zapcore.WarnLevel, Info, false},
		{"Error with Warn level", zapcore.WarnLevel, Error, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorded := swapLogger(t, tt.level)
			tt.logFunc("test message")
			assert.Equal(t, tt.shouldLog, recorded.Len() > 0)
		})
	}
}

func TestWithChaining(t *testing.T) {
	recorded := swapLogger(t, zapcore.InfoLevel)

	With("component", "builder").With("index", "glove").Info("level attached")

	logs := recorded.All()
	require.Len(t, logs, 1)
	fields := logs[0].ContextMap()
	assert.Equal(t, "builder", fields["component"])
	assert.Equal(t, "glove", fields["index"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestInitWritesToFile(t *testing.T) {
	original := defaultLogger
	t.Cleanup(func() {
		defaultLogger = original
		SetLevel(InfoLevel)
	})

	path := filepath.Join(t.TempDir(), "ecp.log")
	require.NoError(t, Init(Config{Level: DebugLevel, File: path}))
	assert.True(t, level.Enabled(zapcore.DebugLevel))

	SetLevel(ErrorLevel)
	assert.False(t, level.Enabled(zapcore.WarnLevel))
}

func TestInitRejectsUnwritableFile(t *testing.T) {
	original := defaultLogger
	t.Cleanup(func() { defaultLogger = original })

	err := Init(Config{File: filepath.Join(t.TempDir(), "missing", "ecp.log")})
	assert.Error(t, err)
}

func TestConcurrentLogging(t *testing.T) {
	recorded := swapLogger(t, zapcore.InfoLevel)

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				Info("concurrent message", "goroutine", id, "message", j)
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 100, recorded.Len())
}
