package attrs

import (
	"context"
	"log/slog"
)

// Logger records non-fatal events from the attribute pipeline, such as
// calibration lookup misses and `only` violations observed on get.
type Logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// LoggerFunc adapts a function to Logger; both levels route to the same
// function with a level prefix in msg.
type LoggerFunc func(msg string, args ...any)

// Warn implements Logger.
func (f LoggerFunc) Warn(msg string, args ...any) {
	if f != nil {
		f(msg, args...)
	}
}

// Debug implements Logger.
func (f LoggerFunc) Debug(msg string, args ...any) {
	if f != nil {
		f(msg, args...)
	}
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Debug(string, ...any) {}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return noopLogger{} }

type slogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger adapts a *slog.Logger. A nil logger uses slog.Default.
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return slogLogger{logger: logger}
}

func (l slogLogger) Warn(msg string, args ...any) {
	l.logger.Log(context.Background(), slog.LevelWarn, msg, args...)
}

func (l slogLogger) Debug(msg string, args ...any) {
	l.logger.Log(context.Background(), slog.LevelDebug, msg, args...)
}
