// Package plog provides the leveled logger used throughout the patchsplit
// pipeline and CLI.
package plog

import (
	"fmt"
	"io"
	"os"
)

// Level represents the logging verbosity.
type Level int

const (
	// ErrorLevel logs only errors.
	ErrorLevel Level = iota
	// InfoLevel logs errors and info messages.
	InfoLevel
	// DebugLevel logs everything including debug messages.
	DebugLevel
)

// Logger is a minimal structured logger over an io.Writer.
type Logger struct {
	level  Level
	output io.Writer
}

// New creates a Logger at the given level, writing to stderr.
func New(level Level) *Logger {
	return &Logger{level: level, output: os.Stderr}
}

// NewFromEnv builds a Logger whose level is controlled by PATCHSPLIT_VERBOSE
// and PATCHSPLIT_DEBUG.
func NewFromEnv() *Logger {
	level := ErrorLevel
	if os.Getenv("PATCHSPLIT_DEBUG") != "" {
		level = DebugLevel
	} else if os.Getenv("PATCHSPLIT_VERBOSE") != "" {
		level = InfoLevel
	}
	return New(level)
}

// SetOutput redirects log output, used by tests to capture messages.
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
}

// SetLevel changes the logger's verbosity.
func (l *Logger) SetLevel(level Level) {
	l.level = level
}

// Error logs an error-level message.
func (l *Logger) Error(format string, args ...interface{}) {
	if l.level >= ErrorLevel {
		_, _ = fmt.Fprintf(l.output, "[ERROR] "+format+"\n", args...)
	}
}

// Info logs an info-level message.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level >= InfoLevel {
		_, _ = fmt.Fprintf(l.output, "[INFO] "+format+"\n", args...)
	}
}

// Debug logs a debug-level message.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= DebugLevel {
		_, _ = fmt.Fprintf(l.output, "[DEBUG] "+format+"\n", args...)
	}
}

// Warn logs a warning; warnings are always surfaced at InfoLevel or above,
// mirroring the pipeline's "log and continue" handling of recoverable errors.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= InfoLevel {
		_, _ = fmt.Fprintf(l.output, "[WARN] "+format+"\n", args...)
	}
}
