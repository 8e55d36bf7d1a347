package app

import (
	"io"
	"log/slog"
)

// newLogger builds the run's slog.Logger. It never touches the process-global
// default, so tests and embedded uses get isolated instances.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(levelStr)}
	switch formatStr {
	case "json":
		return slog.New(slog.NewJSONHandler(outW, opts))
	default:
		return slog.New(slog.NewTextHandler(outW, opts))
	}
}

// parseLevel maps the CLI level names onto slog levels. Unknown names fall
// back to info rather than failing a run over a log flag.
func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
