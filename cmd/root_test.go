package cmd

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogFileClosedAfterRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spacelink.log")
	prev := flagLogFile
	flagLogFile = path
	t.Cleanup(func() {
		flagLogFile = prev
		closeLogFile()
	})
	t.Setenv("LOG_LEVEL", "info")

	if err := rootCmd.PersistentPreRunE(rootCmd, nil); err != nil {
		t.Fatalf("PersistentPreRunE() error: %v", err)
	}
	f := logFile
	if f == nil {
		t.Fatal("log file not opened")
	}
	slog.Info("session started")

	if err := rootCmd.PersistentPostRunE(rootCmd, nil); err != nil {
		t.Fatalf("PersistentPostRunE() error: %v", err)
	}
	if logFile != nil {
		t.Error("log file still held after post-run")
	}
	if _, err := f.WriteString("late"); !errors.Is(err, os.ErrClosed) {
		t.Errorf("write after post-run error = %v, want os.ErrClosed", err)
	}
	if err := closeLogFile(); err != nil {
		t.Errorf("second closeLogFile() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "session started") {
		t.Errorf("log file = %q, want the logged line", data)
	}
}
