// Package logger implements the ports.Logger adapter on log/slog.
package logger

import (
	"io"
	"log/slog"
	"os"

	"go.trai.ch/keel/internal/core/ports"
)

var _ ports.Logger = (*Logger)(nil)

// Logger reports build progress and state-cache decisions through slog.
// Output goes to stderr so task output on stdout stays machine-readable.
type Logger struct {
	logger *slog.Logger
}

// New creates a logger writing text records to stderr.
func New() ports.Logger {
	return NewWithOutput(os.Stderr)
}

// NewWithOutput creates a logger writing text records to w.
func NewWithOutput(w io.Writer) ports.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	return &Logger{logger: slog.New(handler)}
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.logger.Info(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.logger.Warn(msg)
}

// Error logs a failed operation with its error.
func (l *Logger) Error(err error) {
	l.logger.Error("operation failed", "error", err)
}
