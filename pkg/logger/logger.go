package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns JSON logger writing to w with level taken from LOG_LEVEL
// (default info). Standard output is reserved for responses, so callers
// pass os.Stderr.
func New(w io.Writer) *slog.Logger {
	return NewWithLevel(w, os.Getenv("LOG_LEVEL"))
}

// NewWithLevel is like New but takes the level name explicitly; unknown
// names fall back to info.
func NewWithLevel(w io.Writer, level string) *slog.Logger {
	lvl := ParseLevel(level)
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}

// ParseLevel converts debug/info/warn/error into slog.Level.
func ParseLevel(s string) slog.Level {
	level := slog.LevelInfo
	if s != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(s)); err == nil {
			level = parsed
		}
	}
	return level
}
