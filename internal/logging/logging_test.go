package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":      slog.LevelDebug,
		"DEV":        slog.LevelDebug,
		" info ":     slog.LevelInfo,
		"warning":    slog.LevelWarn,
		"production": slog.LevelError,
		"nonsense":   slog.LevelError,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitHonoursLogLevel(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	t.Setenv("LOG_LEVEL", "info")
	var buf bytes.Buffer
	logger := Init(&buf)

	logger.Debug("hidden")
	logger.Info("shown", "module", "session")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record written at info level: %s", out)
	}
	if !strings.Contains(out, "msg=shown module=session") {
		t.Errorf("info record missing: %s", out)
	}
}
