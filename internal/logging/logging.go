package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level reads LOG_LEVEL. Without it only errors are shown.
func Level() slog.Level {
	l, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		return slog.LevelError
	}
	return ParseLevel(l)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// Init installs a text logger on w as the default and returns it. A nil w
// logs to stderr.
func Init(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	logger := slog.New(
		slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: Level(),
		}),
	)
	slog.SetDefault(logger)
	return logger
}
