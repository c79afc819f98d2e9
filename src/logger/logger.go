// Package logger provides the structured logging used throughout the dashboard.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger defines the interface for logging throughout the application.
// Arguments after msg are slog-style key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ConsoleLogger writes structured text logs to stderr (or any writer).
type ConsoleLogger struct {
	l *slog.Logger
}

// NewConsoleLogger creates a logger writing to stderr at the given level.
func NewConsoleLogger(level string) *ConsoleLogger {
	return NewWriterLogger(os.Stderr, level)
}

// NewWriterLogger creates a logger writing to w at the given level.
func NewWriterLogger(w io.Writer, level string) *ConsoleLogger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return &ConsoleLogger{l: slog.New(h)}
}

// NewFileLogger appends logs to path. Used in TUI mode where stderr belongs to the terminal UI.
// The returned closer must be closed on exit.
func NewFileLogger(path, level string) (*ConsoleLogger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return NewWriterLogger(f, level), f, nil
}

// With returns a logger that adds args to every record.
func (c *ConsoleLogger) With(args ...any) *ConsoleLogger {
	return &ConsoleLogger{l: c.l.With(args...)}
}

func (c *ConsoleLogger) Debug(msg string, args ...any) { c.l.Debug(msg, args...) }
func (c *ConsoleLogger) Info(msg string, args ...any)  { c.l.Info(msg, args...) }
func (c *ConsoleLogger) Warn(msg string, args ...any)  { c.l.Warn(msg, args...) }
func (c *ConsoleLogger) Error(msg string, args ...any) { c.l.Error(msg, args...) }

// SilentLogger discards all log messages.
// Used when running in TUI mode to prevent log output from interfering with the display.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Debug(msg string, args ...any) {}
func (s *SilentLogger) Info(msg string, args ...any)  {}
func (s *SilentLogger) Warn(msg string, args ...any)  {}
func (s *SilentLogger) Error(msg string, args ...any) {}

// OrSilent returns l, or a SilentLogger when l is nil.
func OrSilent(l Logger) Logger {
	if l == nil {
		return NewSilentLogger()
	}
	return l
}

// ParseLevel maps debug/info/warn/error to a slog level. Unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
