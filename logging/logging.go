// Package logging contains the structured logger used by the odometry pipeline and its tools.
package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var globalLoggerRegistry = newRegistry()

// RegisterLogger makes a logger addressable by name from level patterns.
func RegisterLogger(name string, logger Logger) {
	globalLoggerRegistry.add(name, logger)
}

// LoggerNamed returns a previously registered logger.
func LoggerNamed(name string) (Logger, bool) {
	return globalLoggerRegistry.lookup(name)
}

// UpdateLoggerConfig applies level patterns to every registered logger. Loggers that match no
// pattern are reset to INFO. Malformed patterns are reported on errorLogger and skipped.
func UpdateLoggerConfig(logConfig []LoggerPatternConfig, errorLogger Logger) error {
	return globalLoggerRegistry.Apply(logConfig, errorLogger)
}

// NewLogger returns a logger writing INFO and above to stdout with UTC timestamps.
func NewLogger(name string) Logger {
	return newZapLogger(name, INFO, true, NewStdoutAppender())
}

// NewDebugLogger is NewLogger at DEBUG.
func NewDebugLogger(name string) Logger {
	return newZapLogger(name, DEBUG, true, NewStdoutAppender())
}

// NewBlankLogger returns a DEBUG logger with no outputs. Appenders may be added later.
func NewBlankLogger(name string) Logger {
	return newZapLogger(name, DEBUG, true)
}

// NewTestLogger returns a DEBUG logger that prints to stdout in local time.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is NewTestLogger that also records every entry in memory.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	tb.Helper()
	core, logs := observer.New(zap.LevelEnablerFunc(zapcore.DebugLevel.Enabled))
	return newZapLogger("", DEBUG, false, NewStdoutAppender(), core), logs
}
