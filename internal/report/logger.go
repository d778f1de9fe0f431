package report

import (
	"io"
	"log"
	"os"
	"strings"
)

// Logger is an interface for logging.
// Implement it to route pipeline messages into another logging system.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Log levels, lowest first.
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a configured log_level to a level. Unknown names are info.
func ParseLevel(name string) int {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// stdLogger writes level-prefixed lines through the standard log package.
type stdLogger struct {
	out   *log.Logger
	level int
}

// NewLogger creates a Logger that writes to w, dropping messages below level.
func NewLogger(w io.Writer, level string) Logger {
	if w == nil {
		w = os.Stdout
	}
	return &stdLogger{
		out:   log.New(w, "", log.LstdFlags),
		level: ParseLevel(level),
	}
}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger {
	return &stdLogger{out: log.New(io.Discard, "", 0), level: LevelError + 1}
}

func (l *stdLogger) logf(level int, prefix, msg string, args ...interface{}) {
	if level < l.level {
		return
	}
	l.out.Printf(prefix+msg, args...)
}

func (l *stdLogger) Debug(msg string, args ...interface{}) {
	l.logf(LevelDebug, "[DEBUG] ", msg, args...)
}

func (l *stdLogger) Info(msg string, args ...interface{}) {
	l.logf(LevelInfo, "[INFO] ", msg, args...)
}

func (l *stdLogger) Warn(msg string, args ...interface{}) {
	l.logf(LevelWarn, "[WARN] ", msg, args...)
}

func (l *stdLogger) Error(msg string, args ...interface{}) {
	l.logf(LevelError, "[ERROR] ", msg, args...)
}
