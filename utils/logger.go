package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// Logger provides leveled, printf-style logging on top of a colored slog handler.
type Logger struct {
	sl *slog.Logger
}

// NewLogger creates a Logger writing to stdout at info level.
func NewLogger() *Logger {
	return NewLoggerWithLevel(os.Stdout, slog.LevelInfo)
}

// NewLoggerWithLevel creates a Logger writing to w, dropping records below level.
func NewLoggerWithLevel(w io.Writer, level slog.Level) *Logger {
	h := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02 15:04:05",
	})
	return &Logger{sl: slog.New(h)}
}

// ParseLevel maps a LOG_LEVEL value onto a slog level. Unknown values map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Enabled reports whether records at level would be written.
func (l *Logger) Enabled(level slog.Level) bool {
	return l.sl.Enabled(context.Background(), level)
}

func (l *Logger) Info(format string, args ...any) {
	l.sl.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...any) {
	l.sl.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...any) {
	l.sl.Error(fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...any) {
	if !l.Enabled(slog.LevelDebug) {
		return
	}
	l.sl.Debug(fmt.Sprintf(format, args...))
}
