package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samsaffron/minmax-code/internal/session"
)

const debugLogName = "debug.log"

var logFile *os.File

// setupLogging installs the default slog logger. Debug output goes to a file
// so it does not interleave with the transcript.
func setupLogging(debug bool) error {
	if !debug {
		slog.SetDefault(slog.New(newLogHandler(os.Stderr, false)))
		return nil
	}

	dir, err := session.GetDataDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, debugLogName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open debug log: %w", err)
	}
	logFile = f
	slog.SetDefault(slog.New(newLogHandler(f, true)))
	slog.Debug("debug logging enabled", "version", Version, "pid", os.Getpid())
	return nil
}

func newLogHandler(w io.Writer, debug bool) slog.Handler {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}

func closeLogging() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
