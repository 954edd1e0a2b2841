package cmd

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogHandlerLevels(t *testing.T) {
	ctx := context.Background()
	quiet := newLogHandler(&bytes.Buffer{}, false)
	if quiet.Enabled(ctx, slog.LevelInfo) {
		t.Error("non-debug handler enabled at info")
	}
	if !quiet.Enabled(ctx, slog.LevelWarn) {
		t.Error("non-debug handler disabled at warn")
	}
	if !newLogHandler(&bytes.Buffer{}, true).Enabled(ctx, slog.LevelDebug) {
		t.Error("debug handler disabled at debug")
	}
}

func TestSetupLoggingWritesDebugFile(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)
	prev := slog.Default()
	t.Cleanup(func() {
		closeLogging()
		slog.SetDefault(prev)
	})

	if err := setupLogging(true); err != nil {
		t.Fatal(err)
	}
	slog.Debug("probe", "k", "v")
	closeLogging()

	data, err := os.ReadFile(filepath.Join(dataHome, "minmax-code", debugLogName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "msg=probe k=v") {
		t.Errorf("log = %q", data)
	}
}
