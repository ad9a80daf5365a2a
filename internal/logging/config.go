package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the handler built by New.
type Config struct {
	Level  string
	Format string
	Writer io.Writer
}

const (
	FormatJSON = "json"
	FormatText = "text"
)

// New builds a Logger writing to cfg.Writer (stdout when nil). Format "text"
// selects slog's text handler, anything else JSON.
func New(cfg Config) *SlogLogger {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case FormatText:
		h = slog.NewTextHandler(w, opts)
	default:
		h = slog.NewJSONHandler(w, opts)
	}
	return NewSlogLogger(slog.New(h))
}

// Discard returns a Logger that drops everything.
func Discard() *SlogLogger {
	return NewSlogLogger(slog.New(slog.DiscardHandler))
}

// ParseLevel maps a case-insensitive level name to a slog level. Unknown
// names fall back to info.
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
